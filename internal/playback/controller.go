// Package playback steps a bound pose sequence onto a skeleton, either on a
// timer (Start/Stop) or directly (GotoFrame/Step).
package playback

import (
	"math"
	"sync"
	"time"

	"github.com/banshee-data/pose-replay/internal/monitoring"
	"github.com/banshee-data/pose-replay/internal/pose"
	"github.com/banshee-data/pose-replay/internal/retarget"
	"github.com/banshee-data/pose-replay/internal/skeleton"
	"github.com/banshee-data/pose-replay/internal/timeutil"
)

// DefaultDelay is the pause between ticks, about 20 frames per second.
const DefaultDelay = 50 * time.Millisecond

var logf = monitoring.Tagged("Playback")

// State is the play state of a Controller.
type State int

const (
	Stopped State = iota
	Playing
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Applier writes one frame onto a skeleton. *retarget.Retargeter implements it.
type Applier interface {
	ApplyFrame(frame *pose.Frame, skel skeleton.Skeleton, scale float64) retarget.Stats
}

// Source says what caused a frame to be applied.
type Source string

const (
	SourceTick Source = "tick"
	SourceSeek Source = "seek"
)

// FrameEvent describes one applied frame.
type FrameEvent struct {
	Index    int
	Ordinal  int
	Source   Source
	Stats    retarget.Stats
	Finished bool // playback stopped because this was the last frame
	Elapsed  time.Duration
}

// Status is a point-in-time view of the controller.
type Status struct {
	CurrentIndex int           `json:"current_index"`
	Playing      bool          `json:"is_playing"`
	FrameCount   int           `json:"frame_count"`
	FPS          int           `json:"fps"`
	Delay        time.Duration `json:"-"`
	DelayMillis  int64         `json:"delay_ms"`
	Scale        float64       `json:"scale"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used to schedule ticks.
func WithClock(c timeutil.Clock) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.clock = c
		}
	}
}

// WithDelay sets the pause between ticks.
func WithDelay(d time.Duration) Option {
	return func(ctl *Controller) { ctl.delay = max(d, 0) }
}

// WithScale sets the landmark to skeleton unit multiplier.
func WithScale(s float64) Option {
	return func(ctl *Controller) {
		if validScale(s) {
			ctl.scale = s
		}
	}
}

// Controller owns the play state and current index of one sequence and is
// the only writer to its skeleton. All methods are safe for concurrent use;
// ticks, seeks and binds are serialised by a single mutex.
type Controller struct {
	mu      sync.Mutex
	applier Applier
	skel    skeleton.Skeleton
	clock   timeutil.Clock

	seq   *pose.Sequence
	index int
	state State
	delay time.Duration
	scale float64

	// gen identifies the scheduled tick; callbacks carrying an older value
	// were cancelled.
	gen   uint64
	timer timeutil.Timer

	onFrame func(FrameEvent)
}

// New creates a stopped controller with no sequence bound.
func New(applier Applier, skel skeleton.Skeleton, opts ...Option) *Controller {
	c := &Controller{
		applier: applier,
		skel:    skel,
		clock:   timeutil.RealClock{},
		delay:   DefaultDelay,
		scale:   1.0,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnFrame registers fn to receive an event after every applied frame. fn runs
// after the controller lock is released and may call back into it.
func (c *Controller) OnFrame(fn func(FrameEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = fn
}

// Bind stops playback and replaces the sequence. The index resets to 0. A nil
// sequence unbinds.
func (c *Controller) Bind(seq *pose.Sequence) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.seq = seq
	c.index = 0
	logf("bound sequence: %d frames", seq.Len())
}

// Sequence returns the bound sequence, or nil.
func (c *Controller) Sequence() *pose.Sequence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Start begins playback. With fromBeginning the index is reset to 0 even if
// playback is already running. Starting an already playing controller or one
// without frames does nothing else. The first frame is applied by a tick
// scheduled with zero delay.
func (c *Controller) Start(fromBeginning bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seq.Len() == 0 {
		return
	}
	if fromBeginning {
		c.index = 0
	}
	if c.state == Playing {
		return
	}
	c.state = Playing
	c.scheduleLocked(0)
	logf("playing from frame %d", c.index)
}

// Stop halts playback and cancels the pending tick.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Playing {
		logf("stopped at frame %d", c.index)
	}
	c.stopLocked()
}

// Tick applies the current frame and advances. After the last frame playback
// stops with the index left on that frame. Tick does nothing while stopped.
func (c *Controller) Tick() {
	c.mu.Lock()
	ev, ok, fn := c.tickLocked()
	c.mu.Unlock()
	if ok && fn != nil {
		fn(ev)
	}
}

// GotoFrame clamps idx into the sequence, applies that frame and makes it
// current. The play state is unchanged.
func (c *Controller) GotoFrame(idx int) {
	c.mu.Lock()
	n := c.seq.Len()
	if n == 0 {
		c.mu.Unlock()
		return
	}
	idx = max(0, min(idx, n-1))
	ev := c.applyLocked(idx, SourceSeek)
	c.index = idx
	fn := c.onFrame
	c.mu.Unlock()

	if fn != nil {
		fn(ev)
	}
}

// Step moves delta frames from the current index. The sum saturates, so a
// huge delta lands on the nearest end rather than wrapping.
func (c *Controller) Step(delta int) {
	c.mu.Lock()
	target := saturatingAdd(c.index, delta)
	c.mu.Unlock()
	c.GotoFrame(target)
}

func saturatingAdd(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}

// CurrentIndex returns the index of the frame that will be applied next
// (or was applied last once playback has finished).
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// IsPlaying reports whether playback is running.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Playing
}

// State returns the play state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FrameCount returns the number of frames in the bound sequence.
func (c *Controller) FrameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq.Len()
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		CurrentIndex: c.index,
		Playing:      c.state == Playing,
		FrameCount:   c.seq.Len(),
		Delay:        c.delay,
		DelayMillis:  c.delay.Milliseconds(),
		Scale:        c.scale,
	}
	if c.seq != nil {
		st.FPS = c.seq.FPS
	}
	return st
}

// SetDelay changes the pause between ticks. It takes effect from the next
// scheduled tick. Negative values are treated as zero.
func (c *Controller) SetDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = max(d, 0)
}

// Delay returns the pause between ticks.
func (c *Controller) Delay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delay
}

// SetScale changes the landmark to skeleton unit multiplier. Non-finite or
// zero values are ignored.
func (c *Controller) SetScale(s float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if validScale(s) {
		c.scale = s
	}
}

func (c *Controller) stopLocked() {
	c.state = Stopped
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) scheduleLocked(d time.Duration) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = c.clock.AfterFunc(d, func() { c.fire(gen) })
}

// fire runs a scheduled tick unless it was cancelled or superseded after
// being dispatched.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	ev, ok, fn := c.tickLocked()
	c.mu.Unlock()
	if ok && fn != nil {
		fn(ev)
	}
}

func (c *Controller) tickLocked() (FrameEvent, bool, func(FrameEvent)) {
	n := c.seq.Len()
	if c.state != Playing {
		return FrameEvent{}, false, nil
	}
	if c.index < 0 || c.index >= n {
		c.stopLocked()
		return FrameEvent{}, false, nil
	}

	ev := c.applyLocked(c.index, SourceTick)
	if c.index == n-1 {
		c.stopLocked()
		ev.Finished = true
		logf("finished: %d frames", n)
	} else {
		c.index++
		c.scheduleLocked(c.delay)
	}
	return ev, true, c.onFrame
}

func (c *Controller) applyLocked(idx int, src Source) FrameEvent {
	frame, _ := c.seq.Frame(idx)
	start := c.clock.Now()
	var stats retarget.Stats
	if c.applier != nil {
		stats = c.applier.ApplyFrame(frame, c.skel, c.scale)
	}
	ev := FrameEvent{
		Index:   idx,
		Source:  src,
		Stats:   stats,
		Elapsed: c.clock.Since(start),
	}
	if frame != nil {
		ev.Ordinal = frame.Ordinal
	}
	return ev
}

func validScale(s float64) bool {
	return s != 0 && !math.IsNaN(s) && !math.IsInf(s, 0)
}
