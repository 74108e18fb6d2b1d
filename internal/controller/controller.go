// Package controller runs the extraction cycle: Idle -> Loading -> Result | Error,
// with retry from either terminal state.
//
// A Controller is built per popup activation and torn down with Close. It owns the
// last-extracted messages and the elapsed-time ticker, and runs at most one cycle at a time.
package controller

import (
	"context"
	"sync"
	"time"

	"respondo/internal/clipboard"
	"respondo/internal/logging"
	"respondo/internal/types"

	"github.com/google/uuid"
)

// DefaultTickInterval is how often a loading cycle reports elapsed time.
const DefaultTickInterval = 50 * time.Millisecond

// MessageSource fetches the active dialog's messages (the Bridge).
type MessageSource interface {
	RequestMessages(ctx context.Context) ([]types.MessageRecord, error)
}

// ReplySuggester turns a conversation into a suggested reply (the reply client).
type ReplySuggester interface {
	SuggestReply(ctx context.Context, turns []types.ConversationTurn) (types.SuggestReplyResult, error)
}

// Options configures a Controller.
type Options struct {
	// TickInterval of the elapsed-time updater. Zero uses DefaultTickInterval;
	// negative disables it.
	TickInterval time.Duration
	// Clipboard receives the reply on Result. Nil skips the copy.
	Clipboard clipboard.Writer
	// Observer receives transitions and ticks. Nil discards them.
	Observer Observer
}

// Controller is the cycle state machine.
type Controller struct {
	source  MessageSource
	replies ReplySuggester
	clip    clipboard.Writer
	obs     Observer
	tick    time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	cycles  sync.WaitGroup

	mu           sync.Mutex
	state        State
	generation   uint64
	lastMessages []types.MessageRecord
	last         *Outcome
	closed       bool
}

// New creates a controller in Idle.
func New(source MessageSource, replies ReplySuggester, opts Options) *Controller {
	tick := opts.TickInterval
	if tick == 0 {
		tick = DefaultTickInterval
	}
	obs := opts.Observer
	if obs == nil {
		obs = ObserverFuncs{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		source:  source,
		replies: replies,
		clip:    opts.Clipboard,
		obs:     obs,
		tick:    tick,
		baseCtx: ctx,
		cancel:  cancel,
		state:   StateIdle,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastMessages returns a copy of the messages from the most recent extraction.
func (c *Controller) LastMessages() []types.MessageRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastMessages == nil {
		return nil
	}
	out := make([]types.MessageRecord, len(c.lastMessages))
	copy(out, c.lastMessages)
	return out
}

// LastOutcome returns the outcome of the most recent finished cycle, or nil.
func (c *Controller) LastOutcome() *Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	o := *c.last
	return &o
}

// Run starts a cycle from Idle, Result or Error and blocks until it ends.
// The returned error is only ever ErrCycleInProgress or ErrClosed; cycle failures
// are reported in the Outcome.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if err := c.checkStartLocked(); err != nil {
		c.mu.Unlock()
		return Outcome{}, err
	}
	return c.cycleLocked(ctx)
}

// Retry re-runs the full cycle from Result or Error. Nothing from the previous cycle is reused.
func (c *Controller) Retry(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if err := c.checkStartLocked(); err != nil {
		c.mu.Unlock()
		return Outcome{}, err
	}
	if !c.state.Terminal() {
		c.mu.Unlock()
		return Outcome{}, ErrInvalidTransition
	}
	return c.cycleLocked(ctx)
}

// Close aborts an in-flight cycle, waits for it to finish and rejects further cycles.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.cycles.Wait()
}

func (c *Controller) checkStartLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.state == StateLoading {
		return ErrCycleInProgress
	}
	return nil
}

// cycleLocked runs one cycle. It is entered with c.mu held and releases it.
func (c *Controller) cycleLocked(ctx context.Context) (Outcome, error) {
	from := c.state
	c.state = StateLoading
	c.generation++
	gen := c.generation
	id := uuid.NewString()
	c.lastMessages = nil
	c.cycles.Add(1)
	c.mu.Unlock()
	defer c.cycles.Done()

	cycleCtx, cancel := context.WithCancel(c.baseCtx)
	defer cancel()
	stopAfter := context.AfterFunc(ctx, cancel)
	defer stopAfter()

	log := logging.WithRequestID(logging.CategoryController, id)
	log.Info("%s -> %s", from, StateLoading)
	c.obs.OnTransition(Transition{From: from, To: StateLoading, CycleID: id, Generation: gen})

	start := time.Now()
	stopTicker := c.startTicker(gen, id, start)

	outcome := c.execute(cycleCtx, log)
	stopTicker()

	outcome.CycleID = id
	outcome.Elapsed = time.Since(start)
	if outcome.State == StateResult && c.clip != nil {
		if err := c.clip.WriteAll(outcome.Reply); err != nil {
			logging.ClipboardWarn("copy failed for cycle %s: %v", id, err)
			outcome.CopyErr = err
		}
	}

	c.mu.Lock()
	c.state = outcome.State
	stored := outcome
	c.last = &stored
	c.mu.Unlock()

	if outcome.Err != nil {
		log.Warn("%s -> %s after %v: %v", StateLoading, outcome.State, outcome.Elapsed, outcome.Err)
	} else {
		log.Info("%s -> %s after %v", StateLoading, outcome.State, outcome.Elapsed)
	}
	terminal := outcome
	c.obs.OnTransition(Transition{From: StateLoading, To: outcome.State, CycleID: id, Generation: gen, Outcome: &terminal})
	return outcome, nil
}

// execute performs extraction and the reply request.
func (c *Controller) execute(ctx context.Context, log *logging.RequestLogger) Outcome {
	msgs, err := c.source.RequestMessages(ctx)

	c.mu.Lock()
	c.lastMessages = msgs
	c.mu.Unlock()

	if err != nil {
		return failed(err)
	}
	if len(msgs) == 0 {
		return failed(types.EmptyResult())
	}

	sorted := make([]types.MessageRecord, len(msgs))
	copy(sorted, msgs)
	types.SortByTimestamp(sorted)
	turns := types.TurnsFromRecords(sorted)
	log.Debug("extracted %d messages, requesting reply", len(turns))

	res, err := c.replies.SuggestReply(ctx, turns)
	if err != nil {
		o := failed(err)
		o.Messages = sorted
		return o
	}
	return Outcome{
		State:          StateResult,
		Reply:          res.SuggestedReply,
		ProcessingTime: res.ProcessingTimeSeconds,
		Messages:       sorted,
	}
}

func failed(err error) Outcome {
	return Outcome{State: StateError, Err: types.AsError(err)}
}

// startTicker reports elapsed time until the returned stop is called. stop joins the
// goroutine, so no tick of this cycle is delivered after it returns.
func (c *Controller) startTicker(gen uint64, id string, start time.Time) (stop func()) {
	if c.tick < 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(c.tick)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-t.C:
				select {
				case <-done:
					return
				default:
				}
				if !c.isCurrent(gen) {
					return
				}
				c.obs.OnElapsed(Tick{CycleID: id, Generation: gen, Elapsed: now.Sub(start)})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

func (c *Controller) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == gen && c.state == StateLoading
}
