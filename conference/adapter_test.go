package conference

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbed struct {
	events chan Event
	roster []Participant

	mu        sync.Mutex
	rosterErr error
	disposed  int
}

func newFakeEmbed(roster ...Participant) *fakeEmbed {
	return &fakeEmbed{events: make(chan Event, 16), roster: roster}
}

func (e *fakeEmbed) Events() <-chan Event { return e.events }

func (e *fakeEmbed) Roster(ctx context.Context) ([]Participant, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rosterErr != nil {
		return nil, e.rosterErr
	}
	return e.roster, nil
}

func (e *fakeEmbed) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed++
	return nil
}

func (e *fakeEmbed) disposeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

type fakeProvider struct {
	embed      *fakeEmbed
	failFirst  int32 // embed constructions to fail before succeeding
	gatingErr  error // when set, every construction fails with this
	ensureErr  error
	constructs int32
}

func (p *fakeProvider) Ensure(ctx context.Context) error { return p.ensureErr }

func (p *fakeProvider) NewEmbed(ctx context.Context, opts EmbedOptions) (Embed, error) {
	n := atomic.AddInt32(&p.constructs, 1)
	if p.gatingErr != nil {
		return nil, p.gatingErr
	}
	if n <= atomic.LoadInt32(&p.failFirst) {
		return nil, errors.New("embed construction blew up")
	}
	return p.embed, nil
}

func (p *fakeProvider) JoinURL(room string, cfg Config, info UserInfo) string {
	return "https://conf.test/" + room + "#" + cfg.Fragment(info)
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func newTestAdapter(p Provider, onRoster func([]Participant)) *Adapter {
	return NewAdapter(Options{
		Provider:     p,
		Logger:       nopLogger{},
		Resolve:      func() string { return "fresh-room" },
		PollInterval: 20 * time.Millisecond,
		OnRoster:     onRoster,
	})
}

func TestAdapterAttach(t *testing.T) {
	origBackoff := embedBackoff
	embedBackoff = time.Millisecond
	defer func() { embedBackoff = origBackoff }()

	info := UserInfo{DisplayName: "Ms. Frizzle", Role: RoleModerator}

	t.Run("embed on first attempt", func(t *testing.T) {
		provider := &fakeProvider{embed: newFakeEmbed()}
		adapter := newTestAdapter(provider, nil)
		defer adapter.Dispose()

		require.NoError(t, adapter.Attach(context.Background(), "mathclub_x1", info))
		assert.Equal(t, ModeEmbed, adapter.Mode())
		assert.Equal(t, "mathclub_x1", adapter.Room())
		assert.Equal(t, int32(1), atomic.LoadInt32(&provider.constructs))
	})

	t.Run("transient failures are retried", func(t *testing.T) {
		provider := &fakeProvider{embed: newFakeEmbed(), failFirst: 2}
		adapter := newTestAdapter(provider, nil)
		defer adapter.Dispose()

		require.NoError(t, adapter.Attach(context.Background(), "mathclub_x1", info))
		assert.Equal(t, ModeEmbed, adapter.Mode())
		assert.Equal(t, int32(3), atomic.LoadInt32(&provider.constructs))
	})

	t.Run("exhausted retries fall back to iframe", func(t *testing.T) {
		provider := &fakeProvider{embed: newFakeEmbed(), failFirst: 99}
		adapter := newTestAdapter(provider, nil)
		defer adapter.Dispose()

		require.NoError(t, adapter.Attach(context.Background(), "mathclub_x1", info))
		assert.Equal(t, ModeIframe, adapter.Mode())
		assert.Equal(t, int32(3), atomic.LoadInt32(&provider.constructs))
		assert.Equal(t, "fresh-room", adapter.Room())
	})

	t.Run("gating failure skips remaining retries", func(t *testing.T) {
		provider := &fakeProvider{gatingErr: errors.New("conference.connectionError.membersOnly")}
		adapter := newTestAdapter(provider, nil)
		defer adapter.Dispose()

		require.NoError(t, adapter.Attach(context.Background(), "mathclub_x1", info))
		assert.Equal(t, ModeIframe, adapter.Mode())
		assert.Equal(t, int32(1), atomic.LoadInt32(&provider.constructs))
	})

	t.Run("ensure failure falls back without constructing", func(t *testing.T) {
		provider := &fakeProvider{ensureErr: ErrProviderUnavailable}
		adapter := newTestAdapter(provider, nil)
		defer adapter.Dispose()

		require.NoError(t, adapter.Attach(context.Background(), "mathclub_x1", info))
		assert.Equal(t, ModeIframe, adapter.Mode())
		assert.Equal(t, int32(0), atomic.LoadInt32(&provider.constructs))
	})

	t.Run("double attach rejected", func(t *testing.T) {
		provider := &fakeProvider{embed: newFakeEmbed()}
		adapter := newTestAdapter(provider, nil)
		defer adapter.Dispose()

		require.NoError(t, adapter.Attach(context.Background(), "mathclub_x1", info))
		assert.Equal(t, ErrAlreadyAttached, adapter.Attach(context.Background(), "other", info))
	})
}

func TestAdapterFallbackURL(t *testing.T) {
	provider := &fakeProvider{ensureErr: ErrProviderUnavailable}
	adapter := newTestAdapter(provider, nil)
	defer adapter.Dispose()

	info := UserInfo{Role: RoleModerator}
	require.NoError(t, adapter.Attach(context.Background(), "mathclub_x1", info))

	// the iframe URL must carry the full gating-disabled fragment
	assert.Equal(t,
		"https://conf.test/fresh-room#"+
			"config.prejoinPageEnabled=false"+
			"&config.waitForOwner=false"+
			"&config.membersOnly=false"+
			"&config.startWithAudioMuted=false"+
			"&config.startWithVideoMuted=false"+
			"&userInfo.role=moderator",
		adapter.URL(),
	)
}

func TestAdapterRosterPolling(t *testing.T) {
	embed := newFakeEmbed(
		Participant{ID: "t1", Role: RoleModerator},
		Participant{ID: "s1", Role: RoleParticipant},
	)
	provider := &fakeProvider{embed: embed}

	var calls int32
	adapter := newTestAdapter(provider, func(roster []Participant) {
		if len(roster) == 2 {
			atomic.AddInt32(&calls, 1)
		}
	})
	defer adapter.Dispose()

	require.NoError(t, adapter.Attach(context.Background(), "mathclub_x1", UserInfo{Role: RoleModerator}))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestAdapterParticipantEventTriggersRoster(t *testing.T) {
	embed := newFakeEmbed(Participant{ID: "t1", Role: RoleModerator})
	provider := &fakeProvider{embed: embed}

	var calls int32
	adapter := NewAdapter(Options{
		Provider:     provider,
		Logger:       nopLogger{},
		Resolve:      func() string { return "fresh-room" },
		PollInterval: time.Hour, // never ticks during the test
		OnRoster: func([]Participant) {
			atomic.AddInt32(&calls, 1)
		},
	})
	defer adapter.Dispose()

	require.NoError(t, adapter.Attach(context.Background(), "mathclub_x1", UserInfo{Role: RoleModerator}))

	embed.events <- Event{Kind: EventParticipantJoined, Participant: &Participant{ID: "s1"}}
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestAdapterGatingEventSwitchesToFallback(t *testing.T) {
	embed := newFakeEmbed()
	provider := &fakeProvider{embed: embed}
	adapter := newTestAdapter(provider, nil)
	defer adapter.Dispose()

	require.NoError(t, adapter.Attach(context.Background(), "mathclub_x1", UserInfo{Role: RoleModerator}))
	require.Equal(t, ModeEmbed, adapter.Mode())

	embed.events <- Event{Kind: EventError, Err: errors.New("authentication required to join")}
	assert.Eventually(t, func() bool {
		return adapter.Mode() == ModeIframe
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "fresh-room", adapter.Room())
	assert.Equal(t, 1, embed.disposeCount())
}

func TestAdapterDisposeIdempotent(t *testing.T) {
	embed := newFakeEmbed()
	provider := &fakeProvider{embed: embed}
	adapter := newTestAdapter(provider, nil)

	require.NoError(t, adapter.Attach(context.Background(), "mathclub_x1", UserInfo{Role: RoleModerator}))

	adapter.Dispose()
	adapter.Dispose()
	adapter.Dispose()
	assert.Equal(t, 1, embed.disposeCount())
}
