package recorder

import (
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a deterministic time source for tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestClockFirstEventDefinesStart(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.Now, time.Time{})

	_, ok := c.Start()
	require.False(t, ok)

	require.Equal(t, int32(0), c.Next())
	start, ok := c.Start()
	require.True(t, ok)
	require.Equal(t, fc.Now(), start)

	fc.Advance(100 * time.Millisecond)
	require.Equal(t, int32(100), c.Next())
	fc.Advance(300 * time.Millisecond)
	require.Equal(t, int32(400), c.Next())
	require.Equal(t, int32(400), c.Last())
}

func TestClockExplicitStart(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.Now, fc.Now().Add(-250*time.Millisecond))
	require.Equal(t, int32(250), c.Next())
}

func TestClockPauseIsAbsorbed(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.Now, time.Time{})

	require.Equal(t, int32(0), c.Next()) // A
	fc.Advance(100 * time.Millisecond)
	require.Equal(t, int32(100), c.Next()) // B

	c.MarkPaused()
	require.True(t, c.Paused())
	fc.Advance(500 * time.Millisecond)
	c.MarkResumed()
	require.False(t, c.Paused())

	require.Equal(t, int32(100), c.Next()) // D
	fc.Advance(50 * time.Millisecond)
	require.Equal(t, int32(150), c.Next())
}

func TestClockRepeatedPauses(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.Now, time.Time{})

	require.Equal(t, int32(0), c.Next())
	fc.Advance(10 * time.Millisecond)
	require.Equal(t, int32(10), c.Next())

	c.MarkPaused()
	fc.Advance(time.Second)
	require.Equal(t, int32(10), c.Next())
	fc.Advance(20 * time.Millisecond)
	require.Equal(t, int32(30), c.Next())

	c.MarkPaused()
	fc.Advance(2 * time.Second)
	c.MarkResumed()
	fc.Advance(5 * time.Millisecond)
	require.Equal(t, int32(30), c.Next())
	fc.Advance(70 * time.Millisecond)
	require.Equal(t, int32(100), c.Next())
}

func TestClockNeverRegresses(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.Now, time.Time{})

	require.Equal(t, int32(0), c.Next())
	fc.Advance(200 * time.Millisecond)
	require.Equal(t, int32(200), c.Next())

	fc.Advance(-150 * time.Millisecond)
	require.Equal(t, int32(200), c.Next())
	fc.Advance(250 * time.Millisecond)
	require.Equal(t, int32(300), c.Next())
}

func TestClockSaturatesOnLongRecordings(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.Now, time.Time{})
	require.Equal(t, int32(0), c.Next())

	fc.Advance(24 * 24 * time.Hour)
	below := c.Next()
	require.Positive(t, below)

	fc.Advance(2 * 24 * time.Hour)
	require.Equal(t, int32(math.MaxInt32), c.Next())
	fc.Advance(time.Hour)
	require.Equal(t, int32(math.MaxInt32), c.Next())
	require.Equal(t, int32(math.MaxInt32), c.Last())
}

func TestClockMonotonicUnderRandomPauses(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.Now, time.Time{})
	rng := rand.New(rand.NewSource(1))

	var last int32
	for i := 0; i < 2000; i++ {
		switch rng.Intn(5) {
		case 0:
			c.MarkPaused()
		case 1:
			c.MarkResumed()
		}
		fc.Advance(time.Duration(rng.Intn(40)-5) * time.Millisecond)
		ts := c.Next()
		require.GreaterOrEqual(t, ts, last, "step %d", i)
		last = ts
	}
}

func TestClockConcurrentCallers(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.Now, time.Time{})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if i%17 == g {
					c.MarkPaused()
				}
				fc.Advance(time.Millisecond)
				c.Next()
			}
		}(g)
	}
	wg.Wait()
	require.GreaterOrEqual(t, c.Last(), int32(0))
}
