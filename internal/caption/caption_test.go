package caption

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCaptionReturnsProviderResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req captionRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(captionResponse{Caption: "a caption for " + req.ImageURL})
	}))
	defer srv.Close()

	c := New(srv.URL, "model-1")
	c.httpDoFn = srv.Client().Do

	caption, err := c.Caption(context.Background(), "https://example.com/pic.png")
	if err != nil {
		t.Fatalf("Caption: %v", err)
	}
	if caption != "a caption for https://example.com/pic.png" {
		t.Fatalf("unexpected caption: %q", caption)
	}
}

func TestCaptionFailureIsReportedToCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "model-1")
	c.httpDoFn = srv.Client().Do

	if _, err := c.Caption(context.Background(), "https://example.com/pic.png"); err == nil {
		t.Fatal("expected error on provider failure")
	}
}

func TestCaptionRequiresEndpoint(t *testing.T) {
	c := New("", "model-1")
	if _, err := c.Caption(context.Background(), "https://example.com/pic.png"); err == nil {
		t.Fatal("expected error with no endpoint configured")
	}
}

func TestNewHuggingFaceSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(captionResponse{Caption: "a cat"})
	}))
	defer srv.Close()

	c, err := NewHuggingFace("hf_secret", "blip-image")
	if err != nil {
		t.Fatalf("NewHuggingFace: %v", err)
	}
	c.Endpoint = srv.URL
	c.httpDoFn = srv.Client().Do

	if _, err := c.Caption(context.Background(), "https://example.com/pic.png"); err != nil {
		t.Fatalf("Caption: %v", err)
	}
	if gotAuth != "Bearer hf_secret" {
		t.Fatalf("Authorization header = %q, want Bearer hf_secret", gotAuth)
	}
}

func TestNewHuggingFaceRejectsUnknownModel(t *testing.T) {
	if _, err := NewHuggingFace("hf_secret", "not-a-model"); err == nil {
		t.Fatal("expected error for unknown --hf-model")
	}
}
