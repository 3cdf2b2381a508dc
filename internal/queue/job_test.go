package queue

import (
	"testing"
	"time"
)

func TestNewSpeakJob(t *testing.T) {
	job := NewSpeakJob("Hello, world!", JobOptions{
		Profile:   "theresa",
		SpeakerID: 804,
		Speed:     1.25,
		TTL:       5 * time.Second,
		DedupeKey: "key123",
	})

	if job.ID == "" {
		t.Error("expected non-empty job ID")
	}
	if job.Text != "Hello, world!" {
		t.Errorf("expected text 'Hello, world!', got '%s'", job.Text)
	}
	if job.Profile != "theresa" {
		t.Errorf("expected profile 'theresa', got '%s'", job.Profile)
	}
	if job.SpeakerID != 804 || job.Speed != 1.25 {
		t.Errorf("unexpected speaker/speed %d/%v", job.SpeakerID, job.Speed)
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status queued, got %s", job.Status)
	}
	if job.Interrupt {
		t.Error("expected interrupt to be false")
	}
	if job.TTL != 5*time.Second {
		t.Errorf("expected TTL 5s, got %v", job.TTL)
	}
	if job.DedupeKey != "key123" {
		t.Errorf("expected dedupe_key 'key123', got '%s'", job.DedupeKey)
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected non-zero created_at")
	}
	if job.ExpiresAt.IsZero() {
		t.Error("expected non-zero expires_at when TTL is set")
	}
}

func TestNewSpeakJobNoTTL(t *testing.T) {
	job := NewSpeakJob("Hello", JobOptions{})

	if !job.ExpiresAt.IsZero() {
		t.Error("expected zero expires_at when TTL is zero")
	}
}

func TestIsExpired(t *testing.T) {
	// Job with no TTL never expires
	job := NewSpeakJob("Hello", JobOptions{})
	if job.IsExpired() {
		t.Error("job with no TTL should not be expired")
	}

	// Job with future expiry
	job = NewSpeakJob("Hello", JobOptions{TTL: 1 * time.Hour})
	if job.IsExpired() {
		t.Error("job with future expiry should not be expired")
	}

	// Job with past expiry
	job = NewSpeakJob("Hello", JobOptions{TTL: 1 * time.Millisecond})
	time.Sleep(5 * time.Millisecond)
	if !job.IsExpired() {
		t.Error("job with past expiry should be expired")
	}
}

func TestJobIDsAreUnique(t *testing.T) {
	job1 := NewSpeakJob("Hello", JobOptions{})
	job2 := NewSpeakJob("Hello", JobOptions{})

	if job1.ID == job2.ID {
		t.Error("expected unique job IDs")
	}
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusQueued, false},
		{StatusRunning, false},
		{StatusDone, true},
		{StatusFailed, true},
		{StatusCancelled, true},
		{StatusExpired, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
