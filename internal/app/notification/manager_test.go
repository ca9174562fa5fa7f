package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/loopify/internal/app/repeat"
	"github.com/osa030/loopify/internal/domain/loop"
	"github.com/osa030/loopify/internal/domain/track"
)

type recordingStream struct {
	mu       sync.Mutex
	received []*Notification
	block    chan struct{}
	err      error
}

func (s *recordingStream) Send(n *Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, n)
	return s.err
}

func (s *recordingStream) all() []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Notification(nil), s.received...)
}

func TestManager_SubscribeBroadcast(t *testing.T) {
	m := NewManager()
	a, b := &recordingStream{}, &recordingStream{}

	idA := m.Subscribe(a)
	idB := m.Subscribe(b)
	assert.NotEqual(t, idA, idB)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Broadcast(&Notification{Type: TypeLoopChanged})
	m.Broadcast(&Notification{Type: TypeTrackChanged})

	require.Len(t, a.all(), 2)
	require.Len(t, b.all(), 2)
	assert.Equal(t, uint64(1), a.all()[0].SequenceNo)
	assert.Equal(t, uint64(2), a.all()[1].SequenceNo)

	m.Unsubscribe(idA)
	m.Broadcast(&Notification{Type: TypeDrainStarted})
	assert.Len(t, a.all(), 2)
	assert.Len(t, b.all(), 3)
}

func TestManager_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewManager()
	slow := &recordingStream{block: make(chan struct{})}
	defer close(slow.block)
	fast := &recordingStream{}
	m.Subscribe(slow)
	m.Subscribe(fast)

	start := time.Now()
	m.Broadcast(&Notification{Type: TypeLoopChanged})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, fast.all(), 1)
}

func TestManager_SendToUnknownSubscriber(t *testing.T) {
	m := NewManager()
	assert.NoError(t, m.Send("missing", &Notification{Type: TypeInitialState}))
}

func TestManager_PublishRun(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	m.Subscribe(s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	m.Publish(&Notification{Type: TypeLoopChanged})
	m.Publish(&Notification{Type: TypeLoopRestarted})

	require.Eventually(t, func() bool { return len(s.all()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, TypeLoopChanged, s.all()[0].Type)
	assert.Equal(t, TypeLoopRestarted, s.all()[1].Type)
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingStream{})
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestFromEvent(t *testing.T) {
	cfg := loop.Config{Mode: loop.ModeSong, TargetCount: 3, CompletedCount: 1, LastTrackKey: "A - X, Y"}
	snapshot := &track.Snapshot{
		Title:     "A",
		Artists:   []string{"X", "Y"},
		Duration:  200 * time.Second,
		Progress:  199 * time.Second,
		IsPlaying: true,
	}

	n := FromEvent(repeat.Event{
		Type:   repeat.EventLoopRestarted,
		Config: cfg,
		Phase:  repeat.PhaseActive,
		Track:  snapshot,
	})
	assert.Equal(t, TypeLoopRestarted, n.Type)
	assert.Equal(t, "active", n.Phase)
	assert.Equal(t, LoopState{LoopsDone: 1, LoopCount: 3, LoopStateIndex: 2, LoopState: "Song"}, n.Loop)
	require.NotNil(t, n.Track)
	assert.Equal(t, "X, Y", n.Track.Artist)
	assert.Equal(t, int64(199000), n.Track.ProgressMs)
	assert.Empty(t, n.Error)

	failed := FromEvent(repeat.Event{Type: repeat.EventCommandFailed, Err: errors.New("no device")})
	assert.Equal(t, TypeCommandFailed, failed.Type)
	assert.Equal(t, "no device", failed.Error)
	assert.Nil(t, failed.Track)

	changed := FromEvent(repeat.Event{
		Type:     repeat.EventLoopChanged,
		Config:   loop.Config{Mode: loop.ModeSong, TargetCount: 1},
		Phase:    repeat.PhaseDraining,
		Revision: 5,
	})
	assert.Equal(t, TypeLoopChanged, changed.Type)
	assert.Equal(t, uint64(5), changed.Loop.Revision)
	assert.Equal(t, "draining", changed.Phase)
}

func TestFromEvent_LoopChangedIdle(t *testing.T) {
	n := FromEvent(repeat.Event{Type: repeat.EventLoopChanged, Revision: 7, Config: loop.Default(), Phase: repeat.PhaseIdle})
	assert.Equal(t, TypeLoopChanged, n.Type)
	assert.Equal(t, uint64(7), n.Loop.Revision)
	assert.Equal(t, "Off", n.Loop.LoopState)
	assert.Equal(t, "idle", n.Phase)
}
