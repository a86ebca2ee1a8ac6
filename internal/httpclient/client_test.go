package httpclient

import (
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClientDefault(t *testing.T) {
	c, err := NewClient(nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != http.DefaultClient {
		t.Error("expected http.DefaultClient")
	}
}

func TestNewClientTimeout(t *testing.T) {
	c, err := NewClient(nil, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", c.Timeout)
	}
}

func TestNewClientTrustsCustomCA(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ts.Certificate().Raw})
	c, err := NewClient(caPEM, 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := c.Get(ts.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
}

func TestNewClientRejectsGarbage(t *testing.T) {
	if _, err := NewClient([]byte("not a certificate"), 0); !errors.Is(err, ErrNoCertificates) {
		t.Errorf("expected ErrNoCertificates, got %v", err)
	}
}
