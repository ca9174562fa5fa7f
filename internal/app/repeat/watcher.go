package repeat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/loopify/internal/app/player"
	"github.com/osa030/loopify/internal/domain/loop"
	"github.com/osa030/loopify/internal/domain/media"
	"github.com/osa030/loopify/internal/domain/track"
)

// Default watcher timings.
const (
	DefaultInterval         = 2 * time.Second
	DefaultNearEndPoll      = 1 * time.Second
	DefaultDrainPoll        = 1 * time.Second
	DefaultNearEndThreshold = 2 * time.Second
)

// Config holds watcher timings.
type Config struct {
	Interval         time.Duration // Sleep after an idle tick or an action
	NearEndPoll      time.Duration // Sleep while the track is not near its end
	DrainPoll        time.Duration // Sleep between polls while draining
	NearEndThreshold time.Duration // Remaining time at which the loop decision is made
}

// DefaultConfig returns the standard watcher timings.
func DefaultConfig() Config {
	return Config{
		Interval:         DefaultInterval,
		NearEndPoll:      DefaultNearEndPoll,
		DrainPoll:        DefaultDrainPoll,
		NearEndThreshold: DefaultNearEndThreshold,
	}
}

// Watcher polls playback and replays the current track until the loop
// target is reached. Its event channel also carries every committed
// configuration change, so consumers see changes and watcher events in one
// order, each with the phase in effect after it.
type Watcher struct {
	store    *Store
	provider player.StatusProvider
	issuer   player.CommandIssuer
	config   Config

	phase    atomic.Int32
	drainKey string // identity being drained, owned by the run goroutine

	eventCh chan Event

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher creates a new loop watcher.
func NewWatcher(store *Store, provider player.StatusProvider, issuer player.CommandIssuer, config Config) *Watcher {
	w := &Watcher{
		store:    store,
		provider: provider,
		issuer:   issuer,
		config:   config,
		eventCh:  make(chan Event, 16),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	store.OnChange(w.changed)
	return w
}

// Events returns the event channel.
func (w *Watcher) Events() <-chan Event {
	return w.eventCh
}

// Phase returns the current watcher phase.
func (w *Watcher) Phase() Phase {
	return Phase(w.phase.Load())
}

func (w *Watcher) setPhase(p Phase) {
	w.phase.Store(int32(p))
}

// Run polls until ctx is canceled or Stop is called. Only the sleep between
// ticks is interrupted; a poll or command in flight completes first.
// Calling Run more than once has no effect.
func (w *Watcher) Run(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	defer close(w.done)

	zlog.Info().Msgf("loop watcher started: interval=%v threshold=%v", w.config.Interval, w.config.NearEndThreshold)
	defer zlog.Info().Msg("loop watcher stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-timer.C:
		}

		timer.Reset(w.tick(ctx))
	}
}

// Stop signals the watcher to stop. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Done returns a channel closed when Run returns.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// tick runs one step of the state machine and returns the delay before the
// next one.
func (w *Watcher) tick(ctx context.Context) (next time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("loop watcher: recovered from panic: %v", r)
			next = w.config.Interval
		}
	}()

	cfg := w.store.Read()
	if cfg.Mode != loop.ModeSong {
		w.goIdle(cfg)
		return w.config.Interval
	}

	if w.Phase() == PhaseDraining {
		return w.drain(ctx)
	}
	w.setPhase(PhaseActive)

	snapshot := w.poll(ctx)
	if !snapshot.IsActive() {
		return w.config.Interval
	}

	nearEnd := snapshot.Remaining() <= w.config.NearEndThreshold
	d := w.store.Observe(snapshot.Key(), nearEnd)

	if d.Action == ActionIdle {
		// Mode changed between Read and Observe.
		w.goIdle(d.Config)
		return w.config.Interval
	}
	if d.Action == ActionDrain {
		w.drainKey = snapshot.Key()
		w.setPhase(PhaseDraining)
	}
	w.changed(Change{Revision: d.Revision, Config: d.Config})

	if d.TrackChanged {
		zlog.Info().Msgf("loop watcher: track changed: track=%q target=%d", snapshot.Key(), d.Config.TargetCount)
		w.emit(Event{Type: EventTrackChanged, Config: d.Config, Track: snapshot})
	}

	switch d.Action {
	case ActionWait:
		return w.config.NearEndPoll

	case ActionRestart:
		zlog.Info().Msgf("loop watcher: restarting track: track=%q completed=%d target=%d",
			snapshot.Key(), d.Config.CompletedCount, d.Config.TargetCount)
		w.emit(Event{Type: EventLoopRestarted, Config: d.Config, Track: snapshot})
		w.issue(ctx, media.Prev, d.Config)
		return w.config.Interval

	case ActionDrain:
		zlog.Info().Msgf("loop watcher: target reached, waiting for next track: track=%q completed=%d target=%d",
			snapshot.Key(), d.Config.CompletedCount, d.Config.TargetCount)
		w.emit(Event{Type: EventDrainStarted, Config: d.Config, Track: snapshot})
		return w.config.DrainPoll
	}

	return w.config.Interval
}

// drain polls until the drained track is replaced, then resets the target.
func (w *Watcher) drain(ctx context.Context) time.Duration {
	snapshot := w.poll(ctx)
	if !snapshot.IsActive() || snapshot.Key() == w.drainKey {
		return w.config.DrainPoll
	}

	change, ok := w.store.FinishDrain(snapshot.Key())
	if !ok {
		w.goIdle(change.Config)
		return w.config.Interval
	}

	zlog.Info().Msgf("loop watcher: track advanced, loop reset: from=%q to=%q", w.drainKey, snapshot.Key())
	w.drainKey = ""
	w.setPhase(PhaseActive)
	w.changed(change)
	w.emit(Event{Type: EventDrainFinished, Config: change.Config, Track: snapshot})
	return w.config.Interval
}

// goIdle leaves any drain in progress without touching the configuration.
func (w *Watcher) goIdle(cfg loop.Config) {
	if w.Phase() == PhaseDraining {
		zlog.Info().Msgf("loop watcher: drain abandoned: mode=%s", cfg.Mode)
	}
	w.drainKey = ""
	w.setPhase(PhaseIdle)
}

// poll returns the current snapshot, or nil when the provider fails.
func (w *Watcher) poll(ctx context.Context) *track.Snapshot {
	snapshot, err := w.provider.CurrentPlayback(ctx)
	if err != nil {
		zlog.Debug().Msgf("loop watcher: status poll failed: provider=%s error=%v", w.provider.Name(), err)
		return nil
	}
	return snapshot
}

func (w *Watcher) issue(ctx context.Context, cmd media.Command, cfg loop.Config) {
	if err := w.issuer.Issue(ctx, cmd); err != nil {
		zlog.Warn().Msgf("loop watcher: command failed: command=%s issuer=%s error=%v", cmd, w.issuer.Name(), err)
		w.emit(Event{Type: EventCommandFailed, Config: cfg, Err: err})
	}
}

// changed emits a committed configuration change. It is called by the store
// for control surface changes and by tick, after the phase is settled, for
// its own commits.
func (w *Watcher) changed(c Change) {
	if c.Revision == 0 {
		return
	}
	w.emit(Event{Type: EventLoopChanged, Config: c.Config, Revision: c.Revision})
}

// emit sends an event without blocking. Events are dropped when nobody
// drains the channel.
func (w *Watcher) emit(ev Event) {
	ev.Phase = w.Phase()
	select {
	case w.eventCh <- ev:
	default:
		zlog.Debug().Msgf("loop watcher: event dropped: type=%s", ev.Type)
	}
}
