/*
Package security provides the cryptographic plumbing ring nodes use to
authenticate each other: a small in-process Certificate Authority for
mutual TLS, certificate file management, and an at-rest encryption helper
that protects the CA's root private key on disk.

# Architecture

	┌────────────────────── SECURITY ──────────────────────┐
	│                                                        │
	│   CertAuthority (ca.go)                                │
	│     root cert + key (RSA 4096, 10y) ──sign──┐          │
	│                                              ▼          │
	│     IssueNodeCertificate(ip, ...)  node cert (RSA 2048, │
	│     IssueClientCertificate(id)     90d, ClientAuth +    │
	│                                     ServerAuth)         │
	│                                                        │
	│   certs.go: PEM files under <certDir>/                 │
	│     node.crt, node.key, ca.crt                          │
	│                                                        │
	│   secrets.go: AES-256-GCM, key = SHA-256(clusterID)    │
	│     used only to encrypt the CA's root private key      │
	│     before ca.json hits disk (see CertAuthority.SaveToFile) │
	└────────────────────────────────────────────────────────┘

# Bootstrapping

The seed node is the only one that calls CertAuthority.Initialize; every
other node receives the resulting ca.json out of band (spec 4.3's "joining
node has no CA material" case) and loads it with LoadFromFile, which
requires the cluster's shared encryption key to already be set via
SetClusterEncryptionKey — every node derives the same key from the same
configured cluster ID.

Each node then calls IssueNodeCertificate for its own IP and saves the
result with SaveCertToFile; transport.ServerTLSConfig and
transport.ClientTLSConfig load those files to build the mTLS configs the
gossip, seed, delegation, and query listeners all share.

# Certificate rotation

CertNeedsRotation flags a certificate once less than 30 days remain before
NotAfter; nothing in this package rotates automatically — a caller checks
periodically and re-issues via the CA, the way the hint sweeper polls for
expired hints (pkg/hints) rather than being pushed a notification.

# See Also

  - pkg/transport for how these certificates become tls.Config values
  - pkg/node for the bootstrap sequence that ties CA, certs, and transport
    together on node startup
*/
package security
