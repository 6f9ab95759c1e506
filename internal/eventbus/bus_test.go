package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanout(t *testing.T) {
	t.Parallel()
	b := New()
	a, unsubA := b.Subscribe(2)
	c, unsubC := b.Subscribe(2)
	defer unsubC()

	b.Publish(Event{Type: TaskActivated, Data: "Squad (UR)"})

	ev := <-a
	assert.Equal(t, TaskActivated, ev.Type)
	assert.False(t, ev.Time.IsZero())
	assert.Equal(t, "Squad (UR)", (<-c).Data)

	unsubA()
	unsubA()
	_, open := <-a
	assert.False(t, open)

	// Publishing after an unsubscribe is fine.
	b.Publish(Event{Type: GameReset})
	assert.Equal(t, GameReset, (<-c).Type)
}

func TestSlowSubscriberDrops(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	at := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	b.Publish(Event{Type: BuffSet, Time: at})
	b.Publish(Event{Type: BuffCleared})

	ev := <-ch
	assert.Equal(t, BuffSet, ev.Type)
	assert.True(t, ev.Time.Equal(at))
	require.Equal(t, uint64(1), Dropped(b))
}

func TestNop(t *testing.T) {
	t.Parallel()
	b := Nop()
	b.Publish(Event{Type: SwapArmed})
	ch, unsub := b.Subscribe(1)
	unsub()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, Dropped(b))
}
