package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgnsrekt/murmur/internal/api"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDedupeKey(t *testing.T) {
	a := DedupeKey("hello")
	b := DedupeKey("hello")
	c := DedupeKey("goodbye")

	if a != b {
		t.Errorf("DedupeKey not stable: %s != %s", a, b)
	}
	if a == c {
		t.Error("different texts produced the same key")
	}
	if len(a) != 16 {
		t.Errorf("len(DedupeKey) = %d, want 16", len(a))
	}
}

func TestSpeak(t *testing.T) {
	var received api.SpeakRequest
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/speak" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(api.SpeakResponse{JobID: "job-1", Message: "job enqueued"})
	}))
	defer server.Close()

	c := New(server.URL+"/", "secret", newTestLogger())
	speaker := 4
	id, err := c.Speak(context.Background(), api.SpeakRequest{
		Text:      "hello",
		Profile:   "theresa",
		SpeakerID: &speaker,
		Interrupt: true,
	})
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	if id != "job-1" {
		t.Errorf("job id = %s, want job-1", id)
	}
	if authHeader != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", authHeader)
	}
	if received.Text != "hello" || received.Profile != "theresa" || !received.Interrupt {
		t.Errorf("received = %+v", received)
	}
	if received.SpeakerID == nil || *received.SpeakerID != 4 {
		t.Errorf("speaker_id = %v, want 4", received.SpeakerID)
	}
}

func TestNoTokenOmitsHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want empty", got)
		}
		json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok", Engine: "ready"})
	}))
	defer server.Close()

	c := New(server.URL, "", newTestLogger())
	health, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if health.Engine != "ready" {
		t.Errorf("Engine = %s, want ready", health.Engine)
	}
}

func TestErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "required path does not exist: lexicon.txt"})
	}))
	defer server.Close()

	c := New(server.URL, "", newTestLogger())
	err := c.SelectProfile(context.Background(), "theresa")
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("error = %v, want ErrUnexpectedStatus", err)
	}
	if !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "lexicon.txt") {
		t.Errorf("error = %v, want status and server message", err)
	}
}

func TestNonJSONErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	c := New(server.URL, "", newTestLogger())
	_, err := c.Profiles(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bad gateway") {
		t.Errorf("error = %v, want body in message", err)
	}
}

func TestWait(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/jobs/job-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		status := "running"
		if calls.Add(1) >= 3 {
			status = "done"
		}
		json.NewEncoder(w).Encode(api.JobResponse{JobID: "job-1", Status: status})
	}))
	defer server.Close()

	c := New(server.URL, "", newTestLogger())
	job, err := c.Wait(context.Background(), "job-1", 5*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if job.Status != "done" {
		t.Errorf("Status = %s, want done", job.Status)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.JobResponse{JobID: "job-1", Status: "queued"})
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	c := New(server.URL, "", newTestLogger())
	_, err := c.Wait(ctx, "job-1", 5*time.Millisecond)
	if err == nil {
		t.Fatal("Wait() expected error after context ends")
	}
}
