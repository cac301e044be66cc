// Package transport provides the mutually-authenticated TLS plumbing and
// length-prefixed framing shared by every node-to-node channel: gossip,
// query delegation, and hinted-handoff replay.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/binary"
	"io"
	"net"
	"strconv"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/security"
)

// ServerTLSConfig builds a server-side mTLS config from the node,key,ca
// files under certDir, requiring and verifying a client certificate
// signed by the same CA.
func ServerTLSConfig(certDir string) (*tls.Config, error) {
	cert, err := security.LoadCertFromFile(certDir)
	if err != nil {
		return nil, errs.Server(err, "loading node certificate")
	}
	pool, err := caPool(certDir)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{*cert},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ClientTLSConfig builds a client-side mTLS config presenting this node's
// own certificate and trusting only the cluster CA.
func ClientTLSConfig(certDir string) (*tls.Config, error) {
	cert, err := security.LoadCertFromFile(certDir)
	if err != nil {
		return nil, errs.Server(err, "loading node certificate")
	}
	pool, err := caPool(certDir)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{*cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func caPool(certDir string) (*x509.CertPool, error) {
	ca, err := security.LoadCACertFromFile(certDir)
	if err != nil {
		return nil, errs.Server(err, "loading cluster CA certificate")
	}
	pool := x509.NewCertPool()
	pool.AddCert(ca)
	return pool, nil
}

// CertDirFor is a small convenience wrapper over security.GetCertDir for
// the fixed "node" type this package deals exclusively in.
func CertDirFor(nodeID string) (string, error) {
	return security.GetCertDir("node", nodeID)
}

// Dial opens a TLS connection to addr under the given client config.
func Dial(addr string, cfg *tls.Config) (*tls.Conn, error) {
	conn, err := tls.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, errs.Server(err, "dialing %s", addr)
	}
	return conn, nil
}

// WriteFrame writes a 4-byte big-endian length prefix followed by data.
func WriteFrame(w io.Writer, data []byte) error {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(data)))
	if _, err := w.Write(header); err != nil {
		return errs.Server(err, "writing frame length")
	}
	if _, err := w.Write(data); err != nil {
		return errs.Server(err, "writing frame body")
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errs.Server(err, "reading frame length")
	}
	length := binary.BigEndian.Uint32(header)
	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, errs.Server(err, "reading frame body")
		}
	}
	return body, nil
}

// JoinHostPort builds an addr string from a bare IP and a fixed port.
func JoinHostPort(ip string, port int) string {
	return net.JoinHostPort(ip, strconv.Itoa(port))
}
