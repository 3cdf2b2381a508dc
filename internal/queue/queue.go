// Package queue serializes speech requests from every front-end through a
// single worker.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// historySize is how many finished jobs are kept for status lookups.
const historySize = 100

var (
	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("queue is full")
	// ErrQueueClosed is returned when attempting to enqueue to a closed queue.
	ErrQueueClosed = errors.New("queue is closed")
	// ErrDuplicateJob is returned when a job with the same dedupe key exists.
	ErrDuplicateJob = errors.New("duplicate job")
	// ErrJobNotFound is returned for unknown or forgotten job IDs.
	ErrJobNotFound = errors.New("job not found")
)

// PlaybackHandler is called by the worker to speak a job.
type PlaybackHandler func(ctx context.Context, job *SpeakJob) error

// IdleCallback is called when the queue becomes idle.
type IdleCallback func()

// ShutdownCallback is called once the worker has stopped.
type ShutdownCallback func()

// JobCompletedCallback is called after every job the worker ran. The job
// carries its terminal Status and Error.
type JobCompletedCallback func(job *SpeakJob)

// Queue is a bounded queue with a single playback worker.
type Queue struct {
	mu            sync.Mutex
	jobs          []*SpeakJob
	capacity      int
	dedupeKeys    map[string]bool
	known         map[string]*SpeakJob
	finished      []string
	logger        *slog.Logger
	closed        bool
	idleTimeout   time.Duration
	idleCallback  IdleCallback
	shutdownFunc  ShutdownCallback
	completedFunc JobCompletedCallback
	playbackFunc  PlaybackHandler
	current       *SpeakJob
	cancelCurrent context.CancelFunc
	wg            sync.WaitGroup
	stopCh        chan struct{}
	enqueueCh     chan struct{}
}

// NewQueue creates a new bounded queue.
func NewQueue(capacity int, idleTimeout time.Duration, logger *slog.Logger) *Queue {
	return &Queue{
		jobs:        make([]*SpeakJob, 0, capacity),
		capacity:    capacity,
		dedupeKeys:  make(map[string]bool),
		known:       make(map[string]*SpeakJob),
		logger:      logger,
		idleTimeout: idleTimeout,
		stopCh:      make(chan struct{}),
		enqueueCh:   make(chan struct{}, 1),
	}
}

// SetPlaybackHandler sets the function called to play each job.
func (q *Queue) SetPlaybackHandler(fn PlaybackHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.playbackFunc = fn
}

// SetIdleCallback sets the function called when the queue becomes idle.
func (q *Queue) SetIdleCallback(fn IdleCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.idleCallback = fn
}

// SetShutdownCallback sets the function called after Stop has waited for
// the worker.
func (q *Queue) SetShutdownCallback(fn ShutdownCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shutdownFunc = fn
}

// SetJobCompletedCallback sets the function called after each job.
func (q *Queue) SetJobCompletedCallback(fn JobCompletedCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completedFunc = fn
}

// Enqueue adds a job to the queue. A job with Interrupt set cancels the
// current playback and clears everything queued before it.
func (q *Queue) Enqueue(job *SpeakJob) error {
	if job.Interrupt {
		q.Interrupt()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	if len(q.jobs) >= q.capacity {
		return ErrQueueFull
	}

	if job.DedupeKey != "" && q.dedupeKeys[job.DedupeKey] {
		return ErrDuplicateJob
	}

	job.Status = StatusQueued
	q.jobs = append(q.jobs, job)
	q.known[job.ID] = job
	if job.DedupeKey != "" {
		q.dedupeKeys[job.DedupeKey] = true
	}

	q.logger.Debug("job enqueued", "job_id", job.ID, "queue_depth", len(q.jobs))

	select {
	case q.enqueueCh <- struct{}{}:
	default:
	}

	return nil
}

// Interrupt cancels the current playback and clears the queue.
func (q *Queue) Interrupt() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelCurrent != nil {
		q.cancelCurrent()
		q.cancelCurrent = nil
	}

	cleared := len(q.jobs)
	for _, job := range q.jobs {
		q.finishLocked(job, StatusCancelled, "interrupted")
	}
	q.jobs = q.jobs[:0]
	q.dedupeKeys = make(map[string]bool)

	q.logger.Info("queue interrupted", "jobs_cleared", cleared)
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Busy reports whether a job is being processed.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current != nil
}

// Get returns a snapshot of a queued, running or recently finished job.
func (q *Queue) Get(id string) (SpeakJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.known[id]
	if !ok {
		return SpeakJob{}, ErrJobNotFound
	}
	return *job, nil
}

// finishLocked records a terminal status and forgets the oldest finished
// jobs beyond historySize.
func (q *Queue) finishLocked(job *SpeakJob, status Status, reason string) {
	job.Status = status
	job.Error = reason
	job.FinishedAt = time.Now()

	q.finished = append(q.finished, job.ID)
	for len(q.finished) > historySize {
		delete(q.known, q.finished[0])
		q.finished = q.finished[1:]
	}
}

// Start begins the playback worker goroutine.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.worker()
}

// Stop cancels the current job, waits for the worker and then runs the
// shutdown callback.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.closed = true
	if q.cancelCurrent != nil {
		q.cancelCurrent()
	}
	q.mu.Unlock()

	close(q.stopCh)
	q.wg.Wait()

	q.mu.Lock()
	callback := q.shutdownFunc
	q.mu.Unlock()

	if callback != nil {
		callback()
	}
}

// worker is the single playback goroutine.
func (q *Queue) worker() {
	defer q.wg.Done()

	var idleTimer *time.Timer
	var idleTimerCh <-chan time.Time

	stopIdleTimer := func() {
		if idleTimer != nil {
			idleTimer.Stop()
			idleTimerCh = nil
		}
	}

	for {
		select {
		case <-q.stopCh:
			stopIdleTimer()
			return
		default:
		}

		if job := q.dequeue(); job != nil {
			stopIdleTimer()
			q.processJob(job)
			continue
		}

		if idleTimerCh == nil && q.idleTimeout > 0 {
			idleTimer = time.NewTimer(q.idleTimeout)
			idleTimerCh = idleTimer.C
		}

		select {
		case <-q.stopCh:
			stopIdleTimer()
			return
		case <-q.enqueueCh:
			continue
		case <-idleTimerCh:
			q.mu.Lock()
			callback := q.idleCallback
			q.mu.Unlock()

			if callback != nil {
				q.logger.Info("idle timeout reached")
				callback()
			}
			idleTimerCh = nil
		}
	}
}

// dequeue removes and returns the next live job from the queue.
func (q *Queue) dequeue() *SpeakJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs = q.jobs[1:]

		if job.DedupeKey != "" {
			delete(q.dedupeKeys, job.DedupeKey)
		}

		if job.IsExpired() {
			q.logger.Debug("skipping expired job", "job_id", job.ID)
			q.finishLocked(job, StatusExpired, "ttl exceeded")
			continue
		}

		return job
	}

	return nil
}

// processJob runs a single job with cancellation support.
func (q *Queue) processJob(job *SpeakJob) {
	q.mu.Lock()
	handler := q.playbackFunc
	completed := q.completedFunc
	ctx, cancel := context.WithCancel(context.Background())
	q.cancelCurrent = cancel
	q.current = job
	job.Status = StatusRunning
	q.mu.Unlock()

	var err error
	defer func() {
		cancel()
		q.mu.Lock()
		q.cancelCurrent = nil
		q.current = nil
		switch {
		case err == nil:
			q.finishLocked(job, StatusDone, "")
		case errors.Is(err, context.Canceled):
			q.finishLocked(job, StatusCancelled, err.Error())
		default:
			q.finishLocked(job, StatusFailed, err.Error())
		}
		q.mu.Unlock()

		if completed != nil {
			completed(job)
		}
	}()

	if handler == nil {
		q.logger.Warn("no playback handler set, skipping job", "job_id", job.ID)
		return
	}

	q.logger.Info("processing job", "job_id", job.ID, "text_length", len(job.Text), "profile", job.Profile)

	err = handler(ctx, job)
	switch {
	case err == nil:
		q.logger.Info("job completed", "job_id", job.ID)
	case errors.Is(err, context.Canceled):
		q.logger.Info("job cancelled", "job_id", job.ID)
	default:
		q.logger.Error("job failed", "job_id", job.ID, "error", err)
	}
}
