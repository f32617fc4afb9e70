package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	client := NewClient(server.Client(), "Test Agent", 5*time.Second)
	result, err := client.Fetch(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got: %d", result.StatusCode)
	}
	if result.Body != "<html>ok</html>" {
		t.Errorf("Expected body '<html>ok</html>', got: %s", result.Body)
	}
}

func TestFetchReturnsBodyOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("captcha required"))
	}))
	defer server.Close()

	client := NewClient(server.Client(), "Test Agent", 5*time.Second)
	result, err := client.Fetch(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Expected no error for 403 response, got: %v", err)
	}
	if result.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status 403, got: %d", result.StatusCode)
	}
	if result.Body != "captcha required" {
		t.Errorf("Expected block page body to be returned, got: %s", result.Body)
	}
}

func TestFetchSetsHeaders(t *testing.T) {
	var gotUA, gotLang, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		gotReferer = r.Header.Get("Referer")
	}))
	defer server.Close()

	client := NewClient(server.Client(), "Test Agent", 5*time.Second)
	_, err := client.Fetch(context.Background(), server.URL, Headers{
		"Accept-Language": "de-DE,de;q=0.9,en;q=0.8",
		"Referer":         "https://www.kleinanzeigen.de/",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if gotUA != "Test Agent" {
		t.Errorf("Expected user agent header, got: %s", gotUA)
	}
	if gotLang != "de-DE,de;q=0.9,en;q=0.8" {
		t.Errorf("Expected accept-language header, got: %s", gotLang)
	}
	if gotReferer != "https://www.kleinanzeigen.de/" {
		t.Errorf("Expected referer header, got: %s", gotReferer)
	}
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // connection refused from here on

	client := NewClient(http.DefaultClient, "Test Agent", 2*time.Second)
	if _, err := client.Fetch(context.Background(), url, nil); err == nil {
		t.Error("Expected transport error for closed server")
	}
}
