package controller

import (
	"context"
	"errors"

	"github.com/dgnsrekt/murmur/internal/queue"
	"github.com/dgnsrekt/murmur/internal/tts"
)

// ErrSpeechFailed is returned by HandleJob when the engine or sink failed.
var ErrSpeechFailed = errors.New("speech failed")

// HandleJob speaks a queued job. It satisfies queue.PlaybackHandler.
// A job naming a profile other than the active one switches to it first.
func (c *Controller) HandleJob(ctx context.Context, job *queue.SpeakJob) error {
	if job.Profile != "" {
		if active, ok := c.Profile(); !ok || active.Name != job.Profile {
			if err := c.Configure(ctx, job.Profile); err != nil {
				return err
			}
		}
	}

	result, err := c.SynthesizeWith(ctx, tts.Request{
		Text:      job.Text,
		SpeakerID: job.SpeakerID,
		Speed:     job.Speed,
	})
	if err != nil {
		return err
	}

	c.logger.Debug("job spoken",
		"job_id", job.ID,
		"outcome", result.Outcome.String(),
		"duration", result.Duration,
	)

	switch result.Outcome {
	case OutcomeFailed:
		return ErrSpeechFailed
	case OutcomeInterrupted:
		return context.Canceled
	}
	return nil
}
