package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns strictly increasing times one second apart
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// wallClock replays fixed readings, repeating the last one
type wallClock struct {
	mu       sync.Mutex
	readings []time.Time
}

func (c *wallClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.readings[0]
	if len(c.readings) > 1 {
		c.readings = c.readings[1:]
	}
	return now
}

func TestMonotonicClock(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		readings []time.Time
		want     []time.Time
	}{
		{
			name:     "forward readings pass through",
			readings: []time.Time{base, base.Add(time.Second)},
			want:     []time.Time{base, base.Add(time.Second)},
		},
		{
			name:     "backward step is clamped",
			readings: []time.Time{base, base.Add(-time.Hour), base.Add(time.Second)},
			want:     []time.Time{base, base.Add(time.Microsecond), base.Add(time.Second)},
		},
		{
			name:     "repeated reading still advances",
			readings: []time.Time{base, base, base},
			want:     []time.Time{base, base.Add(time.Microsecond), base.Add(2 * time.Microsecond)},
		},
		{
			name:     "sub-microsecond precision is dropped",
			readings: []time.Time{base.Add(1500 * time.Nanosecond)},
			want:     []time.Time{base.Add(time.Microsecond)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewMonotonicClock((&wallClock{readings: tt.readings}).Now)
			for i, want := range tt.want {
				assert.True(t, want.Equal(clock()), "reading %d", i)
			}
		})
	}
}

func TestSystemClockIsStrictlyIncreasing(t *testing.T) {
	prev := SystemClock()
	for i := 0; i < 1000; i++ {
		now := SystemClock()
		require.True(t, now.After(prev), "reading %d did not advance", i)
		assert.Equal(t, time.UTC, now.Location())
		prev = now
	}
}

func TestMemoryWallClockStepBackKeepsMessagesUnread(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	// conversation, read marker, then a message after the wall clock jumped back
	wall := &wallClock{readings: []time.Time{base, base.Add(time.Minute), base}}
	db := NewMemoryDB(WithClock(NewMonotonicClock(wall.Now)))
	ctx := context.Background()

	conv, _, err := db.CreateConversationIfAbsent(ctx, "u1--u2", [2]string{"u1", "u2"}, false)
	require.NoError(t, err)
	read, err := db.AdvanceReadState(ctx, "u2", conv.ID)
	require.NoError(t, err)
	msg, err := db.AppendMessage(ctx, conv.ID, "u1", "after the step")
	require.NoError(t, err)

	assert.True(t, msg.CreatedAt.After(read.LastReadAt))
	count, err := db.CountUnread(ctx, conv.ID, "u2", read.LastReadAt)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
