// Package tlsconf builds the server-side TLS configuration of the RESP
// listener: a hot-reloaded certificate and an optional client CA pool for
// mutual TLS.
package tlsconf

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNoCertsFound is returned when no certificates are found in a PEM file.
	ErrNoCertsFound = errors.New("tlsconf: no certificates found in PEM file")
)

// LoadCAPool reads every CERTIFICATE block of a PEM file into a new pool.
func LoadCAPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: read ca file %s: %w", path, err)
	}

	pool := x509.NewCertPool()
	if err := addPEM(pool, data); err != nil {
		return nil, fmt.Errorf("tlsconf: %s: %w", path, err)
	}
	return pool, nil
}

func addPEM(pool *x509.CertPool, pemData []byte) error {
	var added int

	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("parse certificate: %w", err)
		}
		pool.AddCert(cert)
		added++
	}

	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}
