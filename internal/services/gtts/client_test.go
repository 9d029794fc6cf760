package gtts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"srt-tts/internal/services"
)

// mpeg1Frame128 builds a single 44.1kHz 128kbps MPEG-1 Layer III frame.
func mpeg1Frame128() []byte {
	frame := make([]byte, 417)
	frame[0] = 0xFF
	frame[1] = 0xFB
	frame[2] = 0x90
	return frame
}

func mp3Of(frames int) []byte {
	var data []byte
	for i := 0; i < frames; i++ {
		data = append(data, mpeg1Frame128()...)
	}
	return data
}

func TestStripTags(t *testing.T) {
	cases := map[string]string{
		"[laughs] Hello there":         "Hello there",
		"Hello <break time=\"1s\"/>":   "Hello",
		"Plain text":                   "Plain text",
		"[sighs] mixed <tag> brackets": "mixed  brackets",
		"[only a tag]":                 "",
	}
	for input, want := range cases {
		if got := StripTags(input); got != want {
			t.Fatalf("StripTags(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestEstimateDuration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tl"); got != "en" {
			t.Fatalf("expected language en, got %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "Hello there" {
			t.Fatalf("expected stripped text, got %q", got)
		}
		w.Write(mp3Of(40))
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL, Language: "en"})
	duration, err := client.EstimateDuration(context.Background(), "[laughs] Hello there")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	want := 40 * time.Duration(1152) * time.Second / 44100
	if diff := duration - want; diff < -time.Millisecond || diff > time.Millisecond {
		t.Fatalf("expected ~%v, got %v", want, duration)
	}
}

func TestEstimateDurationEmptyText(t *testing.T) {
	client := NewClient(Config{Endpoint: "http://127.0.0.1:1", Language: "en"})
	duration, err := client.EstimateDuration(context.Background(), "[only a tag]")
	if err != nil {
		t.Fatalf("empty text must not hit the network: %v", err)
	}
	if duration != 0 {
		t.Fatalf("expected zero duration, got %v", duration)
	}
}

func TestEstimateDurationServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	_, err := client.EstimateDuration(context.Background(), "Hello")
	if err == nil {
		t.Fatal("expected error for http 503")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestEstimateDurationBadAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not an mp3"))
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	_, err := client.EstimateDuration(context.Background(), "Hello")
	if err == nil {
		t.Fatal("expected error for unreadable audio")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(mp3Of(2))
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check: %v", err)
	}
}
