package queue

import (
	"time"

	"github.com/google/uuid"
)

// Status is where a job is in its lifecycle.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether the job will not change again.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// JobOptions are the per-request settings of a speech job.
type JobOptions struct {
	// Profile switches the active voice before speaking. Empty keeps the
	// current one.
	Profile string
	// SpeakerID overrides the profile's speaker when non-negative.
	SpeakerID int
	// Speed overrides the profile's speed when positive.
	Speed     float32
	Interrupt bool
	TTL       time.Duration
	DedupeKey string
}

// SpeakJob represents a speech job to be processed.
type SpeakJob struct {
	ID        string
	Text      string
	Profile   string
	SpeakerID int
	Speed     float32
	Interrupt bool
	TTL       time.Duration
	DedupeKey string
	CreatedAt time.Time
	ExpiresAt time.Time

	Status     Status
	Error      string
	FinishedAt time.Time
}

// NewSpeakJob creates a new speak job with a unique ID.
func NewSpeakJob(text string, opts JobOptions) *SpeakJob {
	now := time.Now()
	job := &SpeakJob{
		ID:        uuid.New().String(),
		Text:      text,
		Profile:   opts.Profile,
		SpeakerID: opts.SpeakerID,
		Speed:     opts.Speed,
		Interrupt: opts.Interrupt,
		TTL:       opts.TTL,
		DedupeKey: opts.DedupeKey,
		CreatedAt: now,
		Status:    StatusQueued,
	}

	if opts.TTL > 0 {
		job.ExpiresAt = now.Add(opts.TTL)
	}

	return job
}

// IsExpired returns true if the job has passed its TTL.
func (j *SpeakJob) IsExpired() bool {
	if j.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(j.ExpiresAt)
}
