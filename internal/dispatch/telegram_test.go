package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/journeykit/delivery/internal/model"
)

func TestTelegramClient_SendText(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottok123/sendMessage" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	t.Cleanup(srv.Close)

	c := NewTelegramClient("tok123", 5*time.Second).WithBaseURL(srv.URL)

	if err := c.SendText(context.Background(), "987654", "hello"); err != nil {
		t.Fatalf("SendText() error: %v", err)
	}
	if got["chat_id"] != "987654" || got["text"] != "hello" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestTelegramClient_SendMedia_MethodPerType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		media  model.MediaType
		method string
		field  string
	}{
		{model.MediaImage, "/bottok/sendPhoto", "photo"},
		{model.MediaVideo, "/bottok/sendVideo", "video"},
		{model.MediaAudio, "/bottok/sendAudio", "audio"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.media), func(t *testing.T) {
			t.Parallel()

			var gotPath string
			var got map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				_ = json.NewDecoder(r.Body).Decode(&got)
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
			}))
			t.Cleanup(srv.Close)

			c := NewTelegramClient("tok", 5*time.Second).WithBaseURL(srv.URL)

			err := c.SendMedia(context.Background(), "987654", tc.media, "https://cdn.example.com/x", "cap")
			if err != nil {
				t.Fatalf("SendMedia() error: %v", err)
			}
			if gotPath != tc.method {
				t.Fatalf("expected path %q, got %q", tc.method, gotPath)
			}
			if got[tc.field] != "https://cdn.example.com/x" {
				t.Fatalf("expected %s field, got %v", tc.field, got)
			}
			if got["caption"] != "cap" {
				t.Fatalf("expected caption, got %v", got)
			}
		})
	}
}

func TestTelegramClient_InBandErrorClassified(t *testing.T) {
	t.Parallel()

	// Telegram reports blocked bots and bad chat ids with HTTP 200/4xx and
	// ok=false in the body.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  403,
			"description": "Forbidden: bot was blocked by the user",
		})
	}))
	t.Cleanup(srv.Close)

	c := NewTelegramClient("tok", 5*time.Second).WithBaseURL(srv.URL)

	err := c.SendText(context.Background(), "987654", "hi")
	if err == nil {
		t.Fatalf("expected error for ok=false response")
	}
	if !IsPermanent(err) {
		t.Fatalf("expected 403 to classify as permanent, got %v", err)
	}
}

func TestSelector_UnknownPlatformIsPermanent(t *testing.T) {
	t.Parallel()

	s := NewSelector(map[model.Platform]Dispatcher{})

	_, err := s.Select(model.Platform("smoke-signals"))
	if err == nil {
		t.Fatalf("expected error for unknown platform")
	}
	if !IsPermanent(err) {
		t.Fatalf("expected permanent classification, got %v", err)
	}
}
