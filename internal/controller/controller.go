// Package controller owns the speech engine and drives playback.
//
// A Controller holds at most one engine, built from the selected voice
// profile. Synthesis is single-flight: a request generates on a worker
// goroutine, the result comes back over a one-slot channel, and the clip
// is played to the end before the next request may start. In streaming
// mode the engine's chunks accumulate in an audio.StreamBuffer and
// playback starts from the controller's mailbox once enough audio is
// buffered.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/murmur/internal/audio"
	"github.com/dgnsrekt/murmur/internal/playback"
	"github.com/dgnsrekt/murmur/internal/profile"
	"github.com/dgnsrekt/murmur/internal/tts"
)

// DefaultStreamThreshold is how much audio must be buffered before
// streaming playback starts.
const DefaultStreamThreshold = 2 * time.Second

var (
	// ErrNotInitialized is returned when no engine could be built for the
	// selected profile.
	ErrNotInitialized = errors.New("speech engine not initialized")
	// ErrDisposed is returned after Close.
	ErrDisposed = errors.New("controller disposed")
	// ErrInvalidSpeed is returned for a speed that is not positive.
	ErrInvalidSpeed = errors.New("speed must be positive")
	// ErrInvalidSpeaker is returned for a negative speaker id.
	ErrInvalidSpeaker = errors.New("speaker id must not be negative")
)

// Result reports what a synthesis request produced.
type Result struct {
	Outcome    Outcome
	Samples    int
	SampleRate int
	Duration   time.Duration
	Streamed   bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithBackends sets the engine factories profiles are built with.
func WithBackends(backends *tts.Backends) Option {
	return func(c *Controller) { c.backends = backends }
}

// WithModelRoot sets the directory relative profile paths resolve against.
func WithModelRoot(root string) Option {
	return func(c *Controller) { c.modelRoot = root }
}

// WithEngineDefaults sets the engine settings profiles are layered over.
func WithEngineDefaults(cfg tts.EngineConfig) Option {
	return func(c *Controller) { c.defaults = cfg }
}

// WithStreaming enables incremental playback for engines that support it.
func WithStreaming(enabled bool) Option {
	return func(c *Controller) { c.streaming = enabled }
}

// WithStreamThreshold sets how much audio is buffered before streaming
// playback starts.
func WithStreamThreshold(d time.Duration) Option {
	return func(c *Controller) { c.threshold = d }
}

// Controller is the synthesis and playback state machine.
type Controller struct {
	// cycle is held for the whole of every Configure and Synthesize.
	cycle sync.Mutex

	mu          sync.RWMutex
	state       State
	registry    *profile.Registry
	engine      tts.Engine
	active      profile.Profile
	lastProfile string
	sampleRate  int
	speakerID   int
	speed       float32

	sink      playback.Sink
	backends  *tts.Backends
	modelRoot string
	defaults  tts.EngineConfig
	streaming bool
	threshold time.Duration
	logger    *slog.Logger

	mailbox  *Mailbox
	done     chan struct{}
	loopDone chan struct{}
}

// New creates a controller in the Uninitialized state. Call Configure to
// select a profile.
func New(registry *profile.Registry, sink playback.Sink, opts ...Option) *Controller {
	c := &Controller{
		state:     Uninitialized,
		registry:  registry,
		sink:      sink,
		backends:  tts.DefaultBackends(""),
		defaults:  tts.DefaultEngineConfig(),
		threshold: DefaultStreamThreshold,
		logger:    slog.Default(),
		mailbox:   NewMailbox(),
		done:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		speed:     1,
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.loop()
	return c
}

// loop drains the mailbox until Close.
func (c *Controller) loop() {
	defer close(c.loopDone)
	for {
		select {
		case <-c.done:
			return
		case <-c.mailbox.Ready():
			c.mailbox.Drain()
		}
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()

	if prev != s {
		c.logger.Debug("controller state changed", "from", prev.String(), "to", s.String())
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SampleRate returns the engine's sample rate, or 0 when no engine is held.
func (c *Controller) SampleRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sampleRate
}

// Profile returns the active profile. ok is false until a Configure
// succeeds.
func (c *Controller) Profile() (p profile.Profile, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active, c.engine != nil
}

// Registry returns the profiles the controller selects from.
func (c *Controller) Registry() *profile.Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry
}

// SetRegistry replaces the profiles. The active engine is kept until the
// next Configure.
func (c *Controller) SetRegistry(reg *profile.Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry = reg
}

// SetSpeaker sets the speaker used by later requests.
func (c *Controller) SetSpeaker(id int) error {
	if id < 0 {
		return ErrInvalidSpeaker
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speakerID = id
	return nil
}

// SetSpeed sets the speed used by later requests.
func (c *Controller) SetSpeed(speed float32) error {
	if speed <= 0 {
		return ErrInvalidSpeed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = speed
	return nil
}

// Speaker returns the speaker used by the next request.
func (c *Controller) Speaker() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speakerID
}

// Speed returns the speed used by the next request.
func (c *Controller) Speed() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

// Configure selects the profile called name and builds its engine,
// blocking until the engine is ready or construction has failed. Any
// previously held engine is released first. On failure the controller is
// left Uninitialized with no engine.
func (c *Controller) Configure(ctx context.Context, name string) error {
	c.cycle.Lock()
	defer c.cycle.Unlock()

	return c.configureLocked(ctx, name)
}

// ConfigureIndex selects a profile by its position in the registry.
func (c *Controller) ConfigureIndex(ctx context.Context, index int) error {
	p, err := c.Registry().At(index)
	if err != nil {
		return err
	}
	return c.Configure(ctx, p.Name)
}

func (c *Controller) configureLocked(ctx context.Context, name string) error {
	if c.State() == Disposed {
		return ErrDisposed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := c.Registry().Get(name)
	if err != nil {
		return err
	}

	c.releaseEngine()
	c.mu.Lock()
	c.lastProfile = name
	c.mu.Unlock()
	c.setState(Initializing)

	engine, err := c.buildEngine(p)
	if err != nil {
		c.setState(Uninitialized)
		c.logger.Error("failed to initialize speech engine",
			"profile", p.Name,
			"backend", p.BackendName(),
			"error", err,
		)
		return err
	}

	c.mu.Lock()
	c.engine = engine
	c.active = p
	c.sampleRate = engine.SampleRate()
	c.speakerID = p.SpeakerID
	c.speed = p.Speed
	c.mu.Unlock()
	c.setState(Ready)

	c.logger.Info("speech engine ready",
		"profile", p.Name,
		"backend", engine.Name(),
		"sample_rate", engine.SampleRate(),
	)
	return nil
}

func (c *Controller) buildEngine(p profile.Profile) (tts.Engine, error) {
	cfg := p.EngineConfig(c.modelRoot, c.defaults)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory, err := c.backends.Get(p.BackendName())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, p.BackendName())
	}

	return factory(cfg, c.logger.With("profile", p.Name))
}

// releaseEngine closes and forgets the held engine.
func (c *Controller) releaseEngine() error {
	c.mu.Lock()
	engine := c.engine
	c.engine = nil
	c.sampleRate = 0
	c.mu.Unlock()

	if engine == nil {
		return nil
	}
	if err := engine.Close(); err != nil {
		c.logger.Warn("failed to release speech engine", "engine", engine.Name(), "error", err)
		return err
	}
	return nil
}

// Synthesize speaks text with the current speaker and speed.
func (c *Controller) Synthesize(ctx context.Context, text string) (Result, error) {
	return c.SynthesizeWith(ctx, tts.Request{Text: text, SpeakerID: -1})
}

// SynthesizeWith speaks req. A zero Speed or negative SpeakerID in req is
// replaced by the controller's current setting. It returns once playback
// has finished; engine and sink failures are logged and reported through
// Result.Outcome rather than as errors.
func (c *Controller) SynthesizeWith(ctx context.Context, req tts.Request) (Result, error) {
	c.cycle.Lock()
	defer c.cycle.Unlock()

	switch c.State() {
	case Disposed:
		return Result{}, ErrDisposed
	case Ready:
	default:
		c.mu.RLock()
		last := c.lastProfile
		c.mu.RUnlock()

		if last == "" {
			c.logger.Warn("synthesis requested before a profile was selected")
			return Result{}, ErrNotInitialized
		}
		if err := c.configureLocked(ctx, last); err != nil {
			c.logger.Warn("speech engine not initialized, dropping request", "profile", last, "error", err)
			return Result{}, ErrNotInitialized
		}
	}

	c.mu.RLock()
	engine := c.engine
	model := c.active.Model
	if req.Speed <= 0 {
		req.Speed = c.speed
	}
	if req.SpeakerID < 0 {
		req.SpeakerID = c.speakerID
	}
	c.mu.RUnlock()

	if strings.TrimSpace(req.Text) == "" {
		c.logger.Warn("nothing to synthesize")
		return Result{Outcome: OutcomeEmpty}, nil
	}

	c.setState(Synthesizing)
	defer c.setState(Ready)

	if streamer, ok := engine.(tts.StreamingEngine); ok && c.streaming {
		return c.stream(ctx, streamer, req, model)
	}
	return c.generate(ctx, engine, req, model)
}

// generation is the worker's hand-off to the waiting request.
type generation struct {
	audio *tts.Audio
	err   error
}

func (c *Controller) generate(ctx context.Context, engine tts.Engine, req tts.Request, model string) (Result, error) {
	results := make(chan generation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- generation{err: fmt.Errorf("%w: engine panic: %v", tts.ErrSynthesisFailed, r)}
			}
		}()
		a, err := engine.Generate(ctx, req)
		results <- generation{audio: a, err: err}
	}()

	var gen generation
	select {
	case gen = <-results:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	if gen.err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		c.logger.Error("speech generation failed",
			"model", model,
			"engine", engine.Name(),
			"error", gen.err,
		)
		return Result{Outcome: OutcomeFailed}, nil
	}

	if gen.audio.Empty() {
		c.logger.Warn("engine produced no audio", "model", model, "text_length", len(req.Text))
		return Result{Outcome: OutcomeEmpty}, nil
	}

	rate := gen.audio.SampleRate
	if rate <= 0 {
		rate = engine.SampleRate()
	}
	clip := audio.NewMonoClip(gen.audio.Samples, rate)
	result := Result{
		Outcome:    OutcomePlayed,
		Samples:    len(clip.Samples),
		SampleRate: rate,
		Duration:   clip.Duration(),
	}

	c.logger.Debug("playing clip", "samples", result.Samples, "sample_rate", rate, "duration", result.Duration)

	if err := c.sink.Play(ctx, clip); err != nil {
		result.Outcome = c.playbackFailure(err)
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
	}
	return result, nil
}

// playbackFailure logs a sink error and maps it to an outcome.
func (c *Controller) playbackFailure(err error) Outcome {
	if errors.Is(err, context.Canceled) {
		c.logger.Info("playback interrupted")
		return OutcomeInterrupted
	}
	c.logger.Error("playback failed", "error", err)
	return OutcomeFailed
}

// streamSession is touched only by mailbox tasks.
type streamSession struct {
	started bool
	done    chan error
}

func (c *Controller) stream(ctx context.Context, engine tts.StreamingEngine, req tts.Request, model string) (Result, error) {
	buf := audio.NewStreamBuffer()
	rate := engine.SampleRate()
	threshold := int(c.threshold.Seconds() * float64(rate))
	session := &streamSession{done: make(chan error, 1)}

	pull := func(out []float32) (int, bool) {
		n := buf.Fill(out)
		return n, !buf.Drained()
	}

	// Runs on the mailbox goroutine.
	maybeStart := func(final bool) {
		if session.started || ctx.Err() != nil || buf.Buffered() == 0 {
			return
		}
		if !final && (buf.Buffered() < threshold || c.sink.IsPlaying()) {
			return
		}
		session.started = true
		c.logger.Debug("starting streaming playback", "buffered", buf.Buffered(), "sample_rate", rate)
		go func() {
			session.done <- c.sink.Stream(ctx, rate, pull)
		}()
	}

	generated := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				generated <- fmt.Errorf("%w: engine panic: %v", tts.ErrSynthesisFailed, r)
			}
		}()
		generated <- engine.GenerateStream(ctx, req, func(samples []float32) bool {
			buf.Append(samples)
			c.mailbox.Post(func() { maybeStart(false) })
			return ctx.Err() == nil
		})
	}()

	var genErr error
	select {
	case genErr = <-generated:
	case <-ctx.Done():
		buf.Close()
		c.sink.Stop()
		return Result{}, ctx.Err()
	}
	buf.Close()

	if genErr != nil {
		c.logger.Error("speech generation failed",
			"model", model,
			"engine", engine.Name(),
			"buffered", buf.Buffered(),
			"error", genErr,
		)
	}

	decided := make(chan bool, 1)
	if !c.mailbox.Post(func() {
		maybeStart(true)
		decided <- session.started
	}) {
		return Result{}, ErrDisposed
	}

	var started bool
	select {
	case started = <-decided:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	samples := buf.Buffered()
	result := Result{
		Outcome:    OutcomePlayed,
		Samples:    samples,
		SampleRate: rate,
		Duration:   samplesDuration(samples, rate),
		Streamed:   true,
	}
	if genErr != nil {
		result.Outcome = OutcomeFailed
	}

	if !started {
		if genErr == nil {
			c.logger.Warn("engine produced no audio", "model", model, "text_length", len(req.Text))
			result.Outcome = OutcomeEmpty
		}
		return result, nil
	}

	select {
	case err := <-session.done:
		if err != nil {
			result.Outcome = c.playbackFailure(err)
		}
	case <-ctx.Done():
		c.sink.Stop()
		return result, ctx.Err()
	}
	return result, nil
}

func samplesDuration(samples, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(rate)
}

// Stop interrupts the current playback. The request in flight returns with
// OutcomeInterrupted.
func (c *Controller) Stop() {
	c.sink.Stop()
}

// Close releases the engine and stops the mailbox. The controller cannot be
// used afterwards.
func (c *Controller) Close() error {
	if c.State() == Disposed {
		return ErrDisposed
	}

	c.sink.Stop()

	c.cycle.Lock()
	defer c.cycle.Unlock()

	if c.State() == Disposed {
		return ErrDisposed
	}

	err := c.releaseEngine()
	c.setState(Disposed)

	c.mailbox.Close()
	close(c.done)
	<-c.loopDone

	c.logger.Info("controller disposed")
	return err
}
