package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dgnsrekt/murmur/internal/controller"
	"github.com/dgnsrekt/murmur/internal/profile"
	"github.com/dgnsrekt/murmur/internal/queue"
	"github.com/dgnsrekt/murmur/internal/tts"
)

// SpeakRequest represents the request body for /v1/speak.
type SpeakRequest struct {
	Text      string  `json:"text"`
	Profile   string  `json:"profile,omitempty"`
	SpeakerID *int    `json:"speaker_id,omitempty"`
	Speed     float32 `json:"speed,omitempty"`
	Interrupt bool    `json:"interrupt,omitempty"`
	TTLMS     int     `json:"ttl_ms,omitempty"`
	DedupeKey string  `json:"dedupe_key,omitempty"`
}

// SpeakResponse represents the response body for /v1/speak.
type SpeakResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// ProfileRequest represents the request body for /v1/profile.
type ProfileRequest struct {
	Name string `json:"name"`
}

// ProfilesResponse represents the response body for /v1/profiles.
type ProfilesResponse struct {
	Profiles []string `json:"profiles"`
	Active   string   `json:"active,omitempty"`
	Default  string   `json:"default,omitempty"`
}

// JobResponse represents the response body for /v1/jobs/{id}.
type JobResponse struct {
	JobID      string     `json:"job_id"`
	Status     string     `json:"status"`
	Profile    string     `json:"profile,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the response body for /v1/healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Engine  string `json:"engine"`
	Profile string `json:"profile,omitempty"`
	Queued  int    `json:"queued"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// handleHealthz handles GET /v1/healthz requests.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Engine: s.voice.State().String()}
	if p, ok := s.voice.Profile(); ok {
		resp.Profile = p.Name
	}
	if s.queue != nil {
		resp.Queued = s.queue.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleProfiles handles GET /v1/profiles requests.
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	reg := s.voice.Registry()
	resp := ProfilesResponse{Profiles: reg.Names()}
	if def, err := reg.Default(); err == nil {
		resp.Default = def.Name
	}
	if p, ok := s.voice.Profile(); ok {
		resp.Active = p.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSelectProfile handles POST /v1/profile requests. It blocks until
// the engine for the profile is built.
func (s *Server) handleSelectProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("failed to decode profile request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	err := s.voice.Configure(r.Context(), req.Name)
	switch {
	case err == nil:
	case errors.Is(err, profile.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "profile not found")
		return
	case errors.Is(err, tts.ErrMissingPath), errors.Is(err, profile.ErrInvalidProfile):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, controller.ErrDisposed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return
	default:
		s.logger.Error("failed to select profile", "profile", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to initialize engine")
		return
	}

	s.logger.Info("profile selected", "profile", req.Name)
	writeJSON(w, http.StatusOK, ProfilesResponse{
		Profiles: s.voice.Registry().Names(),
		Active:   req.Name,
	})
}

// handleSpeak handles POST /v1/speak requests.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("failed to decode speak request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Validate text is present
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	// Validate text length
	if len(req.Text) > s.cfg.MaxTextLength {
		s.logger.Warn("text exceeds max length", "length", len(req.Text), "max", s.cfg.MaxTextLength)
		writeError(w, http.StatusBadRequest, "text exceeds maximum length")
		return
	}

	if req.TTLMS < 0 {
		writeError(w, http.StatusBadRequest, "ttl_ms must be non-negative")
		return
	}

	if req.Speed < 0 {
		writeError(w, http.StatusBadRequest, "speed must be positive")
		return
	}

	speaker := -1
	if req.SpeakerID != nil {
		if *req.SpeakerID < 0 {
			writeError(w, http.StatusBadRequest, "speaker_id must not be negative")
			return
		}
		speaker = *req.SpeakerID
	}

	if req.Profile != "" {
		if _, err := s.voice.Registry().Get(req.Profile); err != nil {
			writeError(w, http.StatusBadRequest, "unknown profile")
			return
		}
	}

	// Convert TTL from milliseconds to duration
	var ttl time.Duration
	if req.TTLMS > 0 {
		ttl = time.Duration(req.TTLMS) * time.Millisecond
	} else if s.cfg.DefaultTTL > 0 {
		ttl = s.cfg.DefaultTTL
	}

	job := queue.NewSpeakJob(req.Text, queue.JobOptions{
		Profile:   req.Profile,
		SpeakerID: speaker,
		Speed:     req.Speed,
		Interrupt: req.Interrupt,
		TTL:       ttl,
		DedupeKey: req.DedupeKey,
	})

	if err := s.queue.Enqueue(job); err != nil {
		switch {
		case errors.Is(err, queue.ErrQueueFull):
			writeError(w, http.StatusServiceUnavailable, "queue is full")
		case errors.Is(err, queue.ErrDuplicateJob):
			writeError(w, http.StatusConflict, "duplicate job")
		case errors.Is(err, queue.ErrQueueClosed):
			writeError(w, http.StatusServiceUnavailable, "shutting down")
		default:
			s.logger.Error("failed to enqueue job", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		}
		return
	}

	s.logger.Info("speak request enqueued",
		"job_id", job.ID,
		"text_length", len(req.Text),
		"profile", req.Profile,
		"interrupt", req.Interrupt,
		"ttl_ms", req.TTLMS,
		"dedupe_key", req.DedupeKey,
	)

	writeJSON(w, http.StatusAccepted, SpeakResponse{
		JobID:   job.ID,
		Message: "job enqueued",
	})
}

// handleJob handles GET /v1/jobs/{id} requests.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.queue.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	resp := JobResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		Profile:   job.Profile,
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
	}
	if !job.FinishedAt.IsZero() {
		finished := job.FinishedAt
		resp.FinishedAt = &finished
	}
	writeJSON(w, http.StatusOK, resp)
}
