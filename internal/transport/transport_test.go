package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNew_SetsDefaultUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.UserAgent()
	}))
	defer srv.Close()

	client := &http.Client{Transport: New(Options{UserAgent: "Storefront-Sync/1.0"})}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if got != "Storefront-Sync/1.0" {
		t.Errorf("User-Agent = %q, want Storefront-Sync/1.0", got)
	}
}

func TestNew_KeepsCallerUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.UserAgent()
	}))
	defer srv.Close()

	client := &http.Client{Transport: New(Options{UserAgent: "Storefront-Sync/1.0"})}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "custom")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()

	if got != "custom" {
		t.Errorf("User-Agent = %q, want custom", got)
	}
	if req.Header.Get("User-Agent") != "custom" {
		t.Error("caller request header was mutated")
	}
}

func TestChromeTransport_PlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write([]byte("echo:" + string(body)))
	}))
	defer srv.Close()

	client := &http.Client{Transport: New(Options{FingerprintTLS: true, DialTimeout: 2 * time.Second})}
	resp, err := client.Post(srv.URL, "text/plain", strings.NewReader("hi"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "echo:hi" {
		t.Errorf("body = %q, want echo:hi", body)
	}
}
