package conference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
)

// Mode is how the adapter ended up presenting the conference.
type Mode string

const (
	// ModeEmbed is the structured embed API: events and roster available.
	ModeEmbed Mode = "embed"
	// ModeIframe is the unmanaged fallback: a direct ungated room URL with no
	// event callbacks, used purely to guarantee visual connectivity.
	ModeIframe Mode = "iframe"
)

const embedAttempts = 3

// mocked in tests
var embedBackoff = 500 * time.Millisecond

var (
	ErrAlreadyAttached = errors.New("adapter already holds a conference")
	ErrNotAttached     = errors.New("adapter is not attached")
)

// RoomResolver mints a fresh fallback room identity.
type RoomResolver func() string

type (
	Options struct {
		Provider Provider
		Detector FailureDetector // nil: default text-signature detector
		Logger   core.Logger
		// Resolve mints the room used when falling back to iframe mode; required.
		Resolve      RoomResolver
		PollInterval time.Duration
		// OnRoster receives a normalized roster snapshot on every poll tick and
		// on every participant event.
		OnRoster func([]Participant)
	}

	// Adapter binds one resolved room identity to the provider embed for one
	// session view. The embed handle is exclusively owned; Dispose is
	// idempotent and runs on every exit path.
	Adapter struct {
		provider Provider
		detector FailureDetector
		logger   core.Logger
		resolve  RoomResolver
		poll     time.Duration
		onRoster func([]Participant)

		mu       sync.Mutex
		attached bool
		mode     Mode
		room     string
		url      string
		embed    Embed
		cancel   context.CancelFunc

		disposeOnce sync.Once
	}
)

func NewAdapter(opts Options) *Adapter {
	detector := opts.Detector
	if detector == nil {
		detector = NewSignatureDetector()
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 10 * time.Second
	}
	onRoster := opts.OnRoster
	if onRoster == nil {
		onRoster = func([]Participant) {}
	}
	return &Adapter{
		provider: opts.Provider,
		detector: detector,
		logger:   opts.Logger,
		resolve:  opts.Resolve,
		poll:     poll,
		onRoster: onRoster,
	}
}

// Attach connects to the room. Construction is retried a fixed number of times
// with a short backoff; a gating failure (or exhausted retries) abandons the
// structured embed API and falls back to a raw ungated iframe URL on a freshly
// resolved room. Attach itself only fails on misuse, never on provider errors.
func (a *Adapter) Attach(ctx context.Context, room string, info UserInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.attached {
		return ErrAlreadyAttached
	}

	cfg := BuildConfig(info.Role)
	opts := EmbedOptions{RoomName: room, UserInfo: info, Config: cfg}

	constructErr := a.provider.Ensure(ctx)
	if constructErr == nil {
		for attempt := 1; attempt <= embedAttempts; attempt++ {
			var embed Embed
			embed, constructErr = a.provider.NewEmbed(ctx, opts)
			if constructErr == nil {
				a.start(ctx, embed, room, cfg, info)
				return nil
			}
			if a.detector.IsGatingFailure(constructErr) {
				// the room got gated; rebuilding the same embed cannot help
				break
			}
			if attempt < embedAttempts {
				select {
				case <-time.After(time.Duration(attempt) * embedBackoff):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}

	a.fallbackLocked(cfg, info, constructErr)
	return nil
}

// start transitions to the structured embed mode; caller holds a.mu.
func (a *Adapter) start(ctx context.Context, embed Embed, room string, cfg Config, info UserInfo) {
	runCtx, cancel := context.WithCancel(ctx)
	a.attached = true
	a.mode = ModeEmbed
	a.room = room
	a.url = a.provider.JoinURL(room, cfg, info)
	a.embed = embed
	a.cancel = cancel

	go a.pumpEvents(runCtx, embed)
	go a.pollRoster(runCtx, embed)
}

// fallbackLocked transitions to the unmanaged iframe mode; caller holds a.mu.
func (a *Adapter) fallbackLocked(cfg Config, info UserInfo, cause error) {
	room := a.resolve()
	a.attached = true
	a.mode = ModeIframe
	a.room = room
	a.url = a.provider.JoinURL(room, cfg, info)
	a.embed = nil
	a.cancel = nil

	if a.logger != nil {
		a.logger.Error(fmt.Sprintf("conference: falling back to iframe on room %s", room), cause)
	}
}

func (a *Adapter) pumpEvents(ctx context.Context, embed Embed) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-embed.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case EventParticipantJoined, EventParticipantLeft, EventRoleChanged, EventConferenceJoined:
				a.forwardRoster(ctx, embed)
			case EventError:
				if a.detector.IsGatingFailure(ev.Err) {
					a.recoverFromGating(ev.Err)
					return
				}
				if a.logger != nil {
					a.logger.Warn("conference: provider error event", ev.Err)
				}
			}
		}
	}
}

func (a *Adapter) pollRoster(ctx context.Context, embed Embed) {
	ticker := time.NewTicker(a.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.forwardRoster(ctx, embed)
		}
	}
}

func (a *Adapter) forwardRoster(ctx context.Context, embed Embed) {
	rosterCtx, cancel := context.WithTimeout(ctx, a.poll)
	roster, err := embed.Roster(rosterCtx)
	cancel()
	if err != nil {
		if a.detector.IsGatingFailure(err) {
			a.recoverFromGating(err)
			return
		}
		if a.logger != nil {
			a.logger.Debug("conference: roster fetch failed", err)
		}
		return
	}
	a.onRoster(roster)
}

// recoverFromGating tears down the structured embed and re-establishes the
// conference as an ungated iframe on a fresh room.
func (a *Adapter) recoverFromGating(cause error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != ModeEmbed {
		return
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.embed != nil {
		_ = a.embed.Dispose()
	}

	// user info is not kept around; the fallback is anonymous-participant only,
	// matching the strictly-weaker-integration contract
	cfg := BuildConfig(RoleParticipant)
	a.fallbackLocked(cfg, UserInfo{Role: RoleParticipant}, cause)
}

func (a *Adapter) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *Adapter) Room() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.room
}

// URL is the join URL for the current mode; in ModeIframe it carries the full
// gating-disabled fragment protocol.
func (a *Adapter) URL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.url
}

// Dispose releases the embed resource. It must run on every exit path and is
// safe to call multiple times.
func (a *Adapter) Dispose() {
	a.disposeOnce.Do(func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.cancel != nil {
			a.cancel()
		}
		if a.embed != nil {
			_ = a.embed.Dispose()
		}
		a.attached = false
		a.embed = nil
	})
}
