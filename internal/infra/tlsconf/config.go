package tlsconf

import (
	"crypto/tls"
)

// Options describes the server TLS setup.
type Options struct {
	CertFile string
	KeyFile  string

	// CAFile enables mutual TLS: clients must present a certificate signed
	// by one of its CAs.
	CAFile string
}

// ServerConfig returns a TLS configuration serving the reloader's
// certificate. The caller starts and stops the reloader.
func ServerConfig(opts Options, reloaderOpts ...ReloaderOption) (*tls.Config, *Reloader, error) {
	r, err := NewReloader(opts.CertFile, opts.KeyFile, reloaderOpts...)
	if err != nil {
		return nil, nil, err
	}

	cfg := &tls.Config{
		GetCertificate: r.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}

	if opts.CAFile != "" {
		pool, err := LoadCAPool(opts.CAFile)
		if err != nil {
			return nil, nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return cfg, r, nil
}
