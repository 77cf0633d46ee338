package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSarvamTranslate(t *testing.T) {
	var got sarvamRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("api-subscription-key") != "secret" {
			t.Errorf("missing subscription key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"translated_text": "My father has chest pain"})
	}))
	defer server.Close()

	client := NewSarvamClient(SarvamConfig{APIKey: "secret", BaseURL: server.URL})
	result, err := client.Translate(context.Background(), "nanna appanige ede novu", "kn", "en-IN")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}

	if got.Mode != "formal" || got.SourceLanguage != "kn-IN" || got.TargetLanguage != "en-IN" {
		t.Fatalf("unexpected request %+v", got)
	}
	if result.TranslatedText != "My father has chest pain" || result.SourceLanguage != "kn-IN" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSarvamWithoutKeyIsUnavailable(t *testing.T) {
	client := NewSarvamClient(SarvamConfig{})
	_, err := client.Translate(context.Background(), "hello", "kn-IN", "en-IN")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSarvamBlankInputSkipsCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected for blank input")
	}))
	defer server.Close()

	client := NewSarvamClient(SarvamConfig{APIKey: "secret", BaseURL: server.URL})
	result, err := client.Translate(context.Background(), "  ", "hi-IN", "en-IN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "" {
		t.Fatalf("expected empty translation, got %q", result.TranslatedText)
	}
}

func TestSarvamNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("quota exceeded"))
	}))
	defer server.Close()

	client := NewSarvamClient(SarvamConfig{APIKey: "secret", BaseURL: server.URL})
	_, err := client.Translate(context.Background(), "hello", "kn-IN", "en-IN")
	if err == nil || !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSarvamPrefersReportedSourceLanguage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"translated_text":      "Help",
			"source_language_code": "hi-IN",
		})
	}))
	defer server.Close()

	client := NewSarvamClient(SarvamConfig{APIKey: "secret", BaseURL: server.URL})
	result, err := client.Translate(context.Background(), "madad", "kn-IN", "en-IN")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if result.SourceLanguage != "hi-IN" {
		t.Fatalf("expected reported source language, got %q", result.SourceLanguage)
	}
}
