package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/http"
	"time"
)

// ErrNoCertificates is returned when a CA bundle holds no PEM certificate.
var ErrNoCertificates = errors.New("no certificates found in CA bundle")

// NewClient creates an http.Client that trusts the system CAs plus the PEM
// certificates in caPEM. With no caPEM and no timeout it returns
// http.DefaultClient.
func NewClient(caPEM []byte, timeout time.Duration) (*http.Client, error) {
	if len(caPEM) == 0 && timeout == 0 {
		return http.DefaultClient, nil
	}

	client := &http.Client{Timeout: timeout}
	if len(caPEM) == 0 {
		return client, nil
	}

	rootCAs, err := x509.SystemCertPool()
	if err != nil || rootCAs == nil {
		rootCAs = x509.NewCertPool()
	}
	if !rootCAs.AppendCertsFromPEM(caPEM) {
		return nil, ErrNoCertificates
	}

	client.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			RootCAs: rootCAs,
		},
	}
	return client, nil
}
