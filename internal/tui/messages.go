package tui

import (
	"time"

	"github.com/dgnsrekt/murmur/internal/controller"
)

// configuredMsg is sent when a profile switch has finished.
type configuredMsg struct {
	index int
	name  string
	err   error
}

// spokeMsg is sent when a synthesis request has finished playing.
type spokeMsg struct {
	result controller.Result
	err    error
}

// tickMsg refreshes the status line.
type tickMsg time.Time
