package survey

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/myrjola/survey/internal/errors"
)

// EventType names the user triggers the controller reacts to.
type EventType string

const (
	EventNext     EventType = "next"
	EventPrevious EventType = "previous"
	EventSelect   EventType = "select"
	EventInput    EventType = "input"
	EventBlur     EventType = "blur"
	EventSubmit   EventType = "submit"

	eventAutoAdvance EventType = "auto-advance"
	eventSubmitted   EventType = "submitted"
)

// DefaultAutoAdvanceDelay is the pause between selecting an option and the automatic advance.
const DefaultAutoAdvanceDelay = 300 * time.Millisecond

// Event is a user interaction. Field and Value are used by select, input and blur.
type Event struct {
	Type  EventType
	Field string
	Value string
}

// Config configures a [Controller].
type Config struct {
	Definition *Definition
	Sink       Sink
	Logger     *slog.Logger
	// AutoAdvanceDelay defaults to [DefaultAutoAdvanceDelay].
	AutoAdvanceDelay time.Duration
	// SubmitTimeout bounds the outbound call. Zero waits for the sink indefinitely.
	SubmitTimeout time.Duration
	// Location renders the timestamp, defaults to [time.Local].
	Location *time.Location
	// Now defaults to [time.Now].
	Now             func() time.Time
	FallbackContact string
}

type envelope struct {
	event      Event
	generation uint64
	sendErr    error
	reply      chan result
}

type result struct {
	snapshot Snapshot
	err      error
}

// Controller is the single writer of one survey session.
//
// Events are processed in FIFO order by the goroutine running [Controller.Run]. The auto-advance timer and the
// submission call post their outcome into the same queue, so Navigator, Accumulator and Submitter are never touched
// concurrently.
type Controller struct {
	cfg    Config
	logger *slog.Logger
	nav    *Navigator
	acc    *Accumulator
	sub    *Submitter

	events  chan envelope
	done    chan struct{}
	started atomic.Bool

	mu       sync.Mutex
	snapshot Snapshot
	changed  chan struct{}

	// Owned by the loop goroutine.
	version     uint64
	alert       string
	reported    *FieldMessage
	invalid     map[string]string
	scroll      int
	timer       *time.Timer
	pendingFrom int
	advanceGen  uint64
}

// New constructs a controller positioned on step 1 with an empty record.
func New(cfg Config) *Controller {
	if cfg.AutoAdvanceDelay <= 0 {
		cfg.AutoAdvanceDelay = DefaultAutoAdvanceDelay
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Controller{ //nolint:exhaustruct // loop state starts zeroed.
		cfg:     cfg,
		logger:  logger,
		nav:     NewNavigator(cfg.Definition.Len()),
		acc:     NewAccumulator(cfg.Definition),
		sub:     NewSubmitter(cfg.FallbackContact),
		events:  make(chan envelope),
		done:    make(chan struct{}),
		changed: make(chan struct{}),
		invalid: map[string]string{},
	}
	c.snapshot = c.buildSnapshot()
	return c
}

// Run processes events until ctx is cancelled. It must be called exactly once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("controller already running")
	}
	defer close(c.done)
	defer c.cancelAutoAdvance()
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-c.events:
			err := c.handle(ctx, env)
			c.version++
			snapshot := c.publish()
			if env.reply != nil {
				env.reply <- result{snapshot: snapshot, err: err}
			}
		}
	}
}

// Done is closed when the loop has stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Dispatch queues a user event and returns the snapshot after it was processed.
//
// A refused transition returns the snapshot together with an error matching [ErrValidation].
func (c *Controller) Dispatch(ctx context.Context, ev Event) (Snapshot, error) {
	reply := make(chan result, 1)
	select {
	case c.events <- envelope{event: ev, generation: 0, sendErr: nil, reply: reply}:
	case <-ctx.Done():
		return c.Snapshot(), errors.Wrap(ctx.Err(), "dispatch", slog.String("event", string(ev.Type)))
	case <-c.done:
		return c.Snapshot(), ErrStopped
	}
	r := <-reply
	return r.snapshot, r.err
}

func (c *Controller) Next(ctx context.Context) (Snapshot, error) {
	return c.Dispatch(ctx, Event{Type: EventNext, Field: "", Value: ""})
}

func (c *Controller) Previous(ctx context.Context) (Snapshot, error) {
	return c.Dispatch(ctx, Event{Type: EventPrevious, Field: "", Value: ""})
}

// Select checks an option and schedules the auto-advance when it belongs to the active step.
func (c *Controller) Select(ctx context.Context, field, value string) (Snapshot, error) {
	return c.Dispatch(ctx, Event{Type: EventSelect, Field: field, Value: value})
}

func (c *Controller) Input(ctx context.Context, field, value string) (Snapshot, error) {
	return c.Dispatch(ctx, Event{Type: EventInput, Field: field, Value: value})
}

func (c *Controller) Blur(ctx context.Context, field string) (Snapshot, error) {
	return c.Dispatch(ctx, Event{Type: EventBlur, Field: field, Value: ""})
}

func (c *Controller) Submit(ctx context.Context) (Snapshot, error) {
	return c.Dispatch(ctx, Event{Type: EventSubmit, Field: "", Value: ""})
}

// Snapshot returns the latest published snapshot.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Await blocks until cond holds for a published snapshot, ctx is done or the loop stops.
func (c *Controller) Await(ctx context.Context, cond func(Snapshot) bool) (Snapshot, error) {
	for {
		c.mu.Lock()
		snapshot, changed := c.snapshot, c.changed
		c.mu.Unlock()
		if cond(snapshot) {
			return snapshot, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return snapshot, errors.Wrap(ctx.Err(), "await snapshot")
		case <-c.done:
			if s := c.Snapshot(); cond(s) {
				return s, nil
			}
			return c.Snapshot(), ErrStopped
		}
	}
}

func (c *Controller) publish() Snapshot {
	snapshot := c.buildSnapshot()
	c.mu.Lock()
	c.snapshot = snapshot
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
	return snapshot
}

// post queues an internal event unless the loop has stopped.
func (c *Controller) post(env envelope) {
	select {
	case c.events <- env:
	case <-c.done:
	}
}

func (c *Controller) handle(ctx context.Context, env envelope) error {
	ev := env.event
	switch ev.Type {
	case eventAutoAdvance:
		c.autoAdvance(ctx, env.generation)
		return nil
	case eventSubmitted:
		c.submitted(ctx, env.sendErr)
		return nil
	case EventNext, EventPrevious, EventSelect, EventInput, EventBlur, EventSubmit:
	default:
		return errors.New("unknown event", slog.String("event", string(ev.Type)))
	}

	if c.sub.State() == StateSuccess {
		// The form is torn down, the record is immutable.
		c.logger.LogAttrs(ctx, slog.LevelDebug, "ignoring event after successful submission",
			slog.String("event", string(ev.Type)))
		return nil
	}
	c.alert = ""

	switch ev.Type {
	case EventNext:
		if c.sub.State() == StateSubmitting {
			return nil
		}
		return c.advance(ctx)
	case EventPrevious:
		if c.sub.State() == StateSubmitting {
			return nil
		}
		c.retreat(ctx)
		return nil
	case EventSelect:
		return c.selectOption(ctx, ev.Field, ev.Value)
	case EventInput:
		return c.acc.Input(ev.Field, ev.Value)
	case EventBlur:
		return c.blur(ev.Field)
	case EventSubmit:
		return c.submit(ctx)
	default:
		return nil
	}
}

// validateAndCommit records the outcome of validating the active step and commits it when valid.
func (c *Controller) validateAndCommit(ctx context.Context) error {
	step := c.nav.Current()
	v := c.acc.ValidateActive(step)
	c.reported = v.First
	c.invalid = map[string]string{}
	for k, m := range v.Invalid {
		c.invalid[k] = m
	}
	if !v.Valid {
		c.alert = v.Alert
		err := v.Err()
		c.logger.LogAttrs(ctx, slog.LevelDebug, "step rejected", slog.Int("step", step), errors.SlogError(err))
		return err
	}
	c.acc.CommitActive(step)
	return nil
}

func (c *Controller) advance(ctx context.Context) error {
	if err := c.validateAndCommit(ctx); err != nil {
		return err
	}
	c.cancelAutoAdvance()
	if c.nav.Advance() {
		c.scroll++
		c.logger.LogAttrs(ctx, slog.LevelDebug, "advanced", slog.Int("step", c.nav.Current()))
	}
	return nil
}

func (c *Controller) retreat(ctx context.Context) {
	c.cancelAutoAdvance()
	if c.nav.Retreat() {
		c.scroll++
		c.reported = nil
		c.invalid = map[string]string{}
		c.logger.LogAttrs(ctx, slog.LevelDebug, "retreated", slog.Int("step", c.nav.Current()))
	}
}

func (c *Controller) selectOption(ctx context.Context, field, value string) error {
	if err := c.acc.Select(field, value); err != nil {
		return err
	}
	step := c.cfg.Definition.StepOf(field)
	if step != c.nav.Current() || value == "" || c.sub.State() == StateSubmitting {
		return nil
	}
	c.scheduleAutoAdvance(ctx, step)
	return nil
}

// scheduleAutoAdvance (re)starts the timer. Only one auto-advance is pending at a time.
func (c *Controller) scheduleAutoAdvance(ctx context.Context, step int) {
	c.cancelAutoAdvance()
	c.pendingFrom = step
	generation := c.advanceGen
	c.timer = time.AfterFunc(c.cfg.AutoAdvanceDelay, func() {
		c.post(envelope{event: Event{Type: eventAutoAdvance, Field: "", Value: ""}, generation: generation,
			sendErr: nil, reply: nil})
	})
	c.logger.LogAttrs(ctx, slog.LevelDebug, "auto-advance scheduled",
		slog.Int("step", step), slog.Duration("delay", c.cfg.AutoAdvanceDelay))
}

func (c *Controller) cancelAutoAdvance() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	// A timer that already fired carries the old generation and is dropped.
	c.advanceGen++
	c.pendingFrom = 0
}

func (c *Controller) autoAdvance(ctx context.Context, generation uint64) {
	if generation != c.advanceGen || c.pendingFrom != c.nav.Current() {
		return
	}
	c.alert = ""
	if err := c.advance(ctx); err != nil {
		c.pendingFrom = 0
	}
}

func (c *Controller) blur(field string) error {
	message, err := c.acc.Blur(field)
	if err != nil {
		return err
	}
	if message != "" {
		c.reported = &FieldMessage{Field: field, Message: message}
		c.invalid[field] = message
		return nil
	}
	if c.invalid[field] == PostcodeMessage {
		delete(c.invalid, field)
	}
	if c.reported != nil && c.reported.Field == field && c.reported.Message == PostcodeMessage {
		c.reported = nil
	}
	return nil
}

func (c *Controller) submit(ctx context.Context) error {
	if c.sub.State() == StateSubmitting {
		return nil
	}
	if !c.nav.IsLast() {
		return errors.Wrap(ErrNotLastStep, "submit", slog.Int("step", c.nav.Current()))
	}
	if err := c.validateAndCommit(ctx); err != nil {
		return err
	}
	c.cancelAutoAdvance()
	if !c.sub.Begin() {
		return nil
	}
	c.acc.stamp(FormatTimestamp(c.cfg.Now(), c.cfg.Location))
	record := c.acc.Record()
	c.logger.LogAttrs(ctx, slog.LevelInfo, "submitting answers", slog.Int("fields", len(record)))
	go c.send(ctx, record)
	return nil
}

// send performs the single outbound call and reports its outcome to the loop.
func (c *Controller) send(ctx context.Context, record AnswerRecord) {
	sendCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.cfg.SubmitTimeout > 0 {
		sendCtx, cancel = context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	}
	defer cancel()
	var err error
	if c.cfg.Sink == nil {
		err = errors.New("no sink configured")
	} else {
		err = c.cfg.Sink.Send(sendCtx, record)
	}
	if err != nil {
		err = &TransportError{Err: err}
	}
	c.post(envelope{event: Event{Type: eventSubmitted, Field: "", Value: ""}, generation: 0, sendErr: err, reply: nil})
}

func (c *Controller) submitted(ctx context.Context, err error) {
	alert := c.sub.Complete(err)
	if err == nil {
		c.logger.LogAttrs(ctx, slog.LevelInfo, "submission dispatched", slog.String("state", string(StateSuccess)))
		return
	}
	// The answers stay as committed, the next attempt stamps a fresh timestamp.
	c.acc.unstamp()
	c.alert = alert
	c.logger.LogAttrs(ctx, slog.LevelWarn, "submission failed",
		slog.String("state", string(StateFailed)), errors.SlogError(err))
}
