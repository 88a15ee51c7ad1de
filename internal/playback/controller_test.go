package playback

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pose-replay/internal/jointmap"
	"github.com/banshee-data/pose-replay/internal/pose"
	"github.com/banshee-data/pose-replay/internal/retarget"
	"github.com/banshee-data/pose-replay/internal/skeleton"
	"github.com/banshee-data/pose-replay/internal/timeutil"
)

// recordingApplier remembers the ordinal and scale of every applied frame.
type recordingApplier struct {
	mu       sync.Mutex
	ordinals []int
	scales   []float64
}

func (a *recordingApplier) ApplyFrame(frame *pose.Frame, _ skeleton.Skeleton, scale float64) retarget.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ordinals = append(a.ordinals, frame.Ordinal)
	a.scales = append(a.scales, scale)
	return retarget.Stats{Landmarks: len(frame.Landmarks)}
}

func (a *recordingApplier) applied() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.ordinals...)
}

// sequenceOf builds n frames whose ordinals are 100+index.
func sequenceOf(n int) *pose.Sequence {
	seq := &pose.Sequence{FPS: 30}
	for i := 0; i < n; i++ {
		seq.Frames = append(seq.Frames, pose.Frame{
			Ordinal:   100 + i,
			Landmarks: []pose.Landmark{{ID: 15, X: 0.5, Y: 0.5}},
		})
	}
	return seq
}

func newTestController(t *testing.T, n int, opts ...Option) (*Controller, *recordingApplier, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	app := &recordingApplier{}
	c := New(app, skeleton.NewRig(), append([]Option{WithClock(clock)}, opts...)...)
	if n >= 0 {
		c.Bind(sequenceOf(n))
	}
	return c, app, clock
}

func TestController_InitialState(t *testing.T) {
	c, _, _ := newTestController(t, -1)
	assert.Equal(t, Stopped, c.State())
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, 0, c.FrameCount())
	assert.False(t, c.IsPlaying())
	assert.Nil(t, c.Sequence())
	assert.Equal(t, DefaultDelay, c.Delay())
}

func TestController_EndToEndThreeFrames(t *testing.T) {
	clock := timeutil.NewMockClock(time.Time{})
	rig := skeleton.Humanoid()
	c := New(retarget.New(jointmap.MediaPipe()), rig, WithClock(clock), WithDelay(0), WithScale(1.0))
	c.Bind(&pose.Sequence{FPS: 30, Frames: []pose.Frame{
		{Ordinal: 0, Landmarks: []pose.Landmark{{ID: 15, X: 0.6, Y: 0.4, Z: 0.1, Visibility: 1}}},
		{Ordinal: 1, Landmarks: []pose.Landmark{{ID: 15, X: 0.55, Y: 0.45, Z: 0.1, Visibility: 1}}},
		{Ordinal: 2, Landmarks: []pose.Landmark{{ID: 15, X: 0.5, Y: 0.5, Z: 0.1, Visibility: 1}}},
	}})

	var events []FrameEvent
	c.OnFrame(func(ev FrameEvent) { events = append(events, ev) })

	before, ok := rig.JointTransform(skeleton.LeftHand)
	require.True(t, ok)

	c.Start(true)
	require.True(t, c.IsPlaying())

	c.Tick()
	c.Tick()
	c.Tick()

	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, i, ev.Index)
		assert.Equal(t, SourceTick, ev.Source)
		assert.Equal(t, 1, ev.Stats.Rotated, "frame %d", i)
	}
	assert.False(t, events[1].Finished)
	assert.True(t, events[2].Finished)

	assert.Equal(t, Stopped, c.State())
	assert.Equal(t, 2, c.CurrentIndex())

	after, _ := rig.JointTransform(skeleton.LeftHand)
	assert.False(t, after.Rotation.OrientationEqualThreshold(before.Rotation, 1e-6), "hand was not rotated")

	c.Tick()
	assert.Len(t, events, 3, "tick after finishing applied a frame")
}

func TestController_ClockDrivenPlayback(t *testing.T) {
	c, app, clock := newTestController(t, 3, WithDelay(50*time.Millisecond))

	c.Start(true)
	assert.Empty(t, app.applied(), "Start applied a frame synchronously")

	clock.Advance(0)
	assert.Equal(t, []int{100}, app.applied())
	assert.Equal(t, 1, c.CurrentIndex())

	clock.Advance(49 * time.Millisecond)
	assert.Equal(t, []int{100}, app.applied())

	clock.Advance(time.Millisecond)
	assert.Equal(t, []int{100, 101}, app.applied())

	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, []int{100, 101, 102}, app.applied())
	assert.False(t, c.IsPlaying())
	assert.Equal(t, 2, c.CurrentIndex())
	assert.Zero(t, clock.Pending())

	clock.Advance(time.Second)
	assert.Len(t, app.applied(), 3)
}

func TestController_StartWithoutFrames(t *testing.T) {
	for _, n := range []int{-1, 0} {
		c, app, clock := newTestController(t, n)
		c.Start(true)
		clock.Advance(time.Second)

		assert.False(t, c.IsPlaying())
		assert.Zero(t, clock.Pending())
		assert.Empty(t, app.applied())
	}
}

func TestController_StartWhilePlaying(t *testing.T) {
	c, app, clock := newTestController(t, 5, WithDelay(10*time.Millisecond))

	c.Start(true)
	clock.Advance(0)
	clock.Advance(10 * time.Millisecond)
	require.Equal(t, 2, c.CurrentIndex())

	c.Start(false)
	assert.Equal(t, 1, clock.Pending(), "second Start scheduled another tick")
	assert.Equal(t, 2, c.CurrentIndex())

	// Restarting from the beginning rewinds without a second tick chain.
	c.Start(true)
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(10 * time.Millisecond)
	assert.Equal(t, []int{100, 101, 100}, app.applied())
}

func TestController_ResumeFromCurrentIndex(t *testing.T) {
	c, app, clock := newTestController(t, 4, WithDelay(0))

	c.GotoFrame(2)
	c.Start(false)
	clock.Advance(0)
	clock.Advance(0)

	assert.Equal(t, []int{102, 102, 103}, app.applied())
	assert.False(t, c.IsPlaying())
}

func TestController_StopCancelsPendingTick(t *testing.T) {
	c, app, clock := newTestController(t, 3)

	c.Start(true)
	c.Stop()
	assert.Zero(t, clock.Pending())

	clock.Advance(time.Second)
	c.Tick()
	assert.Empty(t, app.applied())
	assert.Equal(t, Stopped, c.State())

	// Stop is unconditional and idempotent.
	c.Stop()
	assert.Equal(t, Stopped, c.State())
}

// leakyClock hands out timers whose Stop never prevents the callback, like a
// real timer that has already been dispatched.
type leakyClock struct {
	timeutil.MockClock
	callbacks []func()
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (l *leakyClock) AfterFunc(_ time.Duration, f func()) timeutil.Timer {
	l.callbacks = append(l.callbacks, f)
	return leakyTimer{}
}

func TestController_StaleTickIgnored(t *testing.T) {
	clock := &leakyClock{}
	app := &recordingApplier{}
	c := New(app, skeleton.NewRig(), WithClock(clock))
	c.Bind(sequenceOf(3))

	c.Start(true)
	require.Len(t, clock.callbacks, 1)
	c.Stop()

	clock.callbacks[0]()
	assert.Empty(t, app.applied())

	// A restarted chain ignores the first chain's callback too.
	c.Start(true)
	require.Len(t, clock.callbacks, 2)
	clock.callbacks[0]()
	assert.Empty(t, app.applied())
	clock.callbacks[1]()
	assert.Equal(t, []int{100}, app.applied())
}

func TestController_GotoFrameClamps(t *testing.T) {
	c, app, _ := newTestController(t, 4)

	tests := []struct {
		idx, want int
	}{
		{2, 2},
		{-5, 0},
		{99, 3},
		{0, 0},
	}
	for _, tt := range tests {
		c.GotoFrame(tt.idx)
		assert.Equal(t, tt.want, c.CurrentIndex(), "GotoFrame(%d)", tt.idx)
	}
	assert.Equal(t, []int{102, 100, 103, 100}, app.applied())
	assert.False(t, c.IsPlaying())
}

func TestController_GotoFrameKeepsPlayState(t *testing.T) {
	c, app, clock := newTestController(t, 5, WithDelay(0))

	c.Start(true)
	c.GotoFrame(3)
	assert.True(t, c.IsPlaying())

	clock.Advance(0)
	assert.Equal(t, []int{103, 103}, app.applied())
	assert.Equal(t, 4, c.CurrentIndex())
}

func TestController_GotoFrameWithoutSequence(t *testing.T) {
	c, app, _ := newTestController(t, -1)
	c.GotoFrame(3)
	c.Step(1)
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Empty(t, app.applied())
}

func TestController_Step(t *testing.T) {
	c, app, _ := newTestController(t, 3)

	c.Step(1)
	c.Step(1)
	c.Step(1)
	assert.Equal(t, 2, c.CurrentIndex())

	c.Step(-10)
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, []int{101, 102, 102, 100}, app.applied())
}

func TestController_StepExtremeDeltaClamps(t *testing.T) {
	c, _, _ := newTestController(t, 5)

	c.GotoFrame(2)
	c.Step(math.MaxInt)
	assert.Equal(t, 4, c.CurrentIndex(), "MaxInt delta lands on the last frame")

	c.GotoFrame(2)
	c.Step(math.MinInt)
	assert.Equal(t, 0, c.CurrentIndex(), "MinInt delta lands on the first frame")

	c.Step(math.MaxInt)
	c.Step(math.MaxInt)
	assert.Equal(t, 4, c.CurrentIndex())
}

func TestSaturatingAdd(t *testing.T) {
	assert.Equal(t, 5, saturatingAdd(2, 3))
	assert.Equal(t, math.MaxInt, saturatingAdd(1, math.MaxInt))
	assert.Equal(t, math.MinInt, saturatingAdd(-1, math.MinInt))
	assert.Equal(t, math.MaxInt, saturatingAdd(math.MaxInt, 0))
}

func TestController_BindStopsAndResets(t *testing.T) {
	c, app, clock := newTestController(t, 5, WithDelay(0))

	c.Start(true)
	clock.Advance(0)
	clock.Advance(0)
	require.Equal(t, 2, c.CurrentIndex())

	c.Bind(sequenceOf(2))
	assert.False(t, c.IsPlaying())
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, 2, c.FrameCount())
	assert.Zero(t, clock.Pending())

	c.Bind(nil)
	assert.Equal(t, 0, c.FrameCount())
	c.Start(true)
	assert.False(t, c.IsPlaying())
	assert.Len(t, app.applied(), 2)
}

func TestController_Status(t *testing.T) {
	c, _, _ := newTestController(t, 4, WithDelay(40*time.Millisecond), WithScale(2))
	c.GotoFrame(1)

	st := c.Status()
	assert.Equal(t, Status{
		CurrentIndex: 1,
		FrameCount:   4,
		FPS:          30,
		Delay:        40 * time.Millisecond,
		DelayMillis:  40,
		Scale:        2,
	}, st)
}

func TestController_SetDelayAndScale(t *testing.T) {
	c, app, clock := newTestController(t, 3)

	c.SetDelay(-time.Second)
	assert.Equal(t, time.Duration(0), c.Delay())
	c.SetDelay(20 * time.Millisecond)

	c.SetScale(0)
	c.SetScale(3)

	c.Start(true)
	clock.Advance(0)
	clock.Advance(19 * time.Millisecond)
	assert.Len(t, app.applied(), 1)
	clock.Advance(time.Millisecond)
	assert.Len(t, app.applied(), 2)

	assert.Equal(t, []float64{3, 3}, app.scales)
}

func TestController_OnFrameMayCallBack(t *testing.T) {
	c, _, _ := newTestController(t, 3)

	var seen []int
	c.OnFrame(func(ev FrameEvent) {
		seen = append(seen, c.CurrentIndex())
		assert.Equal(t, SourceSeek, ev.Source)
		assert.Equal(t, 100+ev.Index, ev.Ordinal)
	})

	c.GotoFrame(1)
	c.Step(1)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestController_NilApplier(t *testing.T) {
	c := New(nil, nil, WithClock(timeutil.NewMockClock(time.Time{})))
	c.Bind(sequenceOf(2))
	c.Start(true)
	c.Tick()
	c.Tick()
	assert.False(t, c.IsPlaying())
	assert.Equal(t, 1, c.CurrentIndex())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "playing", Playing.String())
	assert.Equal(t, "unknown", State(7).String())
}

func TestController_ConcurrentUse(t *testing.T) {
	c := New(&recordingApplier{}, skeleton.NewRig(), WithDelay(time.Millisecond))
	c.Bind(sequenceOf(20))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				switch (i + j) % 4 {
				case 0:
					c.Start(j%2 == 0)
				case 1:
					c.Step(1)
				case 2:
					_ = c.Status()
				case 3:
					c.Stop()
				}
			}
		}(i)
	}
	wg.Wait()
	c.Stop()

	idx := c.CurrentIndex()
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, 20)
}
