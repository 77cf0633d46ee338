package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Text string `json:"text"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"help"}`))
	if err := DecodeJSON(httptest.NewRecorder(), req, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Text != "help" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(httptest.NewRecorder(), req, &payload); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	if err := DecodeJSON(httptest.NewRecorder(), req, &payload); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSSEStream(t *testing.T) {
	resp := httptest.NewRecorder()
	stream, err := NewSSEStream(resp)
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	stream.Send("state", map[string]string{"state": "idle"})

	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if got, want := resp.Body.String(), "event: state\ndata: {\"state\":\"idle\"}\n\n"; got != want {
		t.Fatalf("unexpected body %q", got)
	}
}
