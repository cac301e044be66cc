package security

import (
	"crypto/x509"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func TestInitializeCA(t *testing.T) {
	key := DeriveKeyFromClusterID("test-cluster")
	if err := SetClusterEncryptionKey(key); err != nil {
		t.Fatalf("Failed to set cluster encryption key: %v", err)
	}

	ca := NewCertAuthority(filepath.Join(t.TempDir(), "ca.json"))

	if err := ca.Initialize(); err != nil {
		t.Fatalf("Failed to initialize CA: %v", err)
	}

	if !ca.IsInitialized() {
		t.Error("CA should be initialized")
	}

	if ca.rootCert == nil {
		t.Error("Root certificate should not be nil")
	}

	if ca.rootKey == nil {
		t.Error("Root key should not be nil")
	}

	if !ca.rootCert.IsCA {
		t.Error("Root certificate should be a CA")
	}

	expectedExpiry := time.Now().Add(rootCAValidity)
	if ca.rootCert.NotAfter.Before(expectedExpiry.Add(-time.Hour)) {
		t.Errorf("Root cert expiry too early: %v, expected around %v", ca.rootCert.NotAfter, expectedExpiry)
	}
}

func TestSaveLoadCA(t *testing.T) {
	key := DeriveKeyFromClusterID("test-cluster")
	if err := SetClusterEncryptionKey(key); err != nil {
		t.Fatalf("Failed to set cluster encryption key: %v", err)
	}

	path := filepath.Join(t.TempDir(), "ca.json")

	ca1 := NewCertAuthority(path)
	if err := ca1.Initialize(); err != nil {
		t.Fatalf("Failed to initialize CA: %v", err)
	}

	if err := ca1.SaveToFile(); err != nil {
		t.Fatalf("Failed to save CA: %v", err)
	}

	ca2 := NewCertAuthority(path)
	if err := ca2.LoadFromFile(); err != nil {
		t.Fatalf("Failed to load CA: %v", err)
	}

	if !ca2.IsInitialized() {
		t.Error("Loaded CA should be initialized")
	}

	if !ca1.rootCert.Equal(ca2.rootCert) {
		t.Error("Loaded root cert should match original")
	}

	if ca1.rootKey.N.Cmp(ca2.rootKey.N) != 0 {
		t.Error("Loaded root key should match original")
	}
}

func TestIssueNodeCertificate(t *testing.T) {
	key := DeriveKeyFromClusterID("test-cluster")
	if err := SetClusterEncryptionKey(key); err != nil {
		t.Fatalf("Failed to set cluster encryption key: %v", err)
	}

	ca := NewCertAuthority(filepath.Join(t.TempDir(), "ca.json"))
	if err := ca.Initialize(); err != nil {
		t.Fatalf("Failed to initialize CA: %v", err)
	}

	tests := []struct {
		name   string
		nodeIP string
	}{
		{"first node", "10.0.0.1"},
		{"second node", "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert, err := ca.IssueNodeCertificate(tt.nodeIP, []string{}, []net.IP{net.ParseIP(tt.nodeIP)})
			if err != nil {
				t.Fatalf("Failed to issue certificate: %v", err)
			}

			if cert.Leaf == nil {
				t.Error("Certificate Leaf should not be nil")
			}

			expectedCN := "node-" + tt.nodeIP
			if cert.Leaf.Subject.CommonName != expectedCN {
				t.Errorf("Expected CN %s, got %s", expectedCN, cert.Leaf.Subject.CommonName)
			}

			expectedExpiry := time.Now().Add(nodeCertValidity)
			if cert.Leaf.NotAfter.Before(expectedExpiry.Add(-time.Hour)) {
				t.Errorf("Cert expiry too early: %v, expected around %v", cert.Leaf.NotAfter, expectedExpiry)
			}

			if cert.Leaf.KeyUsage&x509.KeyUsageDigitalSignature == 0 {
				t.Error("Certificate should have DigitalSignature key usage")
			}

			hasClientAuth := false
			hasServerAuth := false
			for _, usage := range cert.Leaf.ExtKeyUsage {
				if usage == x509.ExtKeyUsageClientAuth {
					hasClientAuth = true
				}
				if usage == x509.ExtKeyUsageServerAuth {
					hasServerAuth = true
				}
			}
			if !hasClientAuth {
				t.Error("Certificate should have ClientAuth extended key usage")
			}
			if !hasServerAuth {
				t.Error("Certificate should have ServerAuth extended key usage")
			}
		})
	}
}

func TestIssueClientCertificate(t *testing.T) {
	key := DeriveKeyFromClusterID("test-cluster")
	if err := SetClusterEncryptionKey(key); err != nil {
		t.Fatalf("Failed to set cluster encryption key: %v", err)
	}

	ca := NewCertAuthority(filepath.Join(t.TempDir(), "ca.json"))
	if err := ca.Initialize(); err != nil {
		t.Fatalf("Failed to initialize CA: %v", err)
	}

	clientID := "user@machine"
	cert, err := ca.IssueClientCertificate(clientID)
	if err != nil {
		t.Fatalf("Failed to issue client certificate: %v", err)
	}

	if cert.Leaf == nil {
		t.Error("Certificate Leaf should not be nil")
	}

	expectedCN := "cli-" + clientID
	if cert.Leaf.Subject.CommonName != expectedCN {
		t.Errorf("Expected CN %s, got %s", expectedCN, cert.Leaf.Subject.CommonName)
	}

	hasClientAuth := false
	hasServerAuth := false
	for _, usage := range cert.Leaf.ExtKeyUsage {
		if usage == x509.ExtKeyUsageClientAuth {
			hasClientAuth = true
		}
		if usage == x509.ExtKeyUsageServerAuth {
			hasServerAuth = true
		}
	}
	if !hasClientAuth {
		t.Error("Client certificate should have ClientAuth extended key usage")
	}
	if hasServerAuth {
		t.Error("Client certificate should not have ServerAuth extended key usage")
	}
}

func TestVerifyCertificate(t *testing.T) {
	key := DeriveKeyFromClusterID("test-cluster")
	if err := SetClusterEncryptionKey(key); err != nil {
		t.Fatalf("Failed to set cluster encryption key: %v", err)
	}

	ca := NewCertAuthority(filepath.Join(t.TempDir(), "ca.json"))
	if err := ca.Initialize(); err != nil {
		t.Fatalf("Failed to initialize CA: %v", err)
	}

	cert, err := ca.IssueNodeCertificate("10.0.0.5", []string{}, []net.IP{net.ParseIP("10.0.0.5")})
	if err != nil {
		t.Fatalf("Failed to issue certificate: %v", err)
	}

	if err := ca.VerifyCertificate(cert.Leaf); err != nil {
		t.Errorf("Certificate verification failed: %v", err)
	}
}

func TestGetRootCACert(t *testing.T) {
	key := DeriveKeyFromClusterID("test-cluster")
	if err := SetClusterEncryptionKey(key); err != nil {
		t.Fatalf("Failed to set cluster encryption key: %v", err)
	}

	ca := NewCertAuthority(filepath.Join(t.TempDir(), "ca.json"))
	if err := ca.Initialize(); err != nil {
		t.Fatalf("Failed to initialize CA: %v", err)
	}

	rootCertDER := ca.GetRootCACert()
	if rootCertDER == nil {
		t.Fatal("Root CA cert should not be nil")
	}

	parsedCert, err := x509.ParseCertificate(rootCertDER)
	if err != nil {
		t.Fatalf("Failed to parse root CA cert: %v", err)
	}

	if !parsedCert.Equal(ca.rootCert) {
		t.Error("Returned root CA cert should match internal cert")
	}
}

func TestCertCache(t *testing.T) {
	key := DeriveKeyFromClusterID("test-cluster")
	if err := SetClusterEncryptionKey(key); err != nil {
		t.Fatalf("Failed to set cluster encryption key: %v", err)
	}

	ca := NewCertAuthority(filepath.Join(t.TempDir(), "ca.json"))
	if err := ca.Initialize(); err != nil {
		t.Fatalf("Failed to initialize CA: %v", err)
	}

	nodeIP := "10.0.0.9"
	_, err := ca.IssueNodeCertificate(nodeIP, []string{}, []net.IP{net.ParseIP(nodeIP)})
	if err != nil {
		t.Fatalf("Failed to issue certificate: %v", err)
	}

	cached, exists := ca.GetCachedCert(nodeIP)
	if !exists {
		t.Error("Certificate should be in cache")
	}

	if cached == nil {
		t.Error("Cached certificate should not be nil")
	}

	if cached.Cert.Subject.CommonName != "node-"+nodeIP {
		t.Errorf("Cached cert CN mismatch: %s", cached.Cert.Subject.CommonName)
	}
}
