package echoapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/conference"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/session"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/user"
)

// liveWatcher supervises started class rooms: one conference.Supervisor per
// live session, auto-completing the session once the room has been inactive
// for the configured timeout. Nil watcher (no provider wired) disables
// supervision; sessions then only complete by explicit teacher action.
type liveWatcher struct {
	provider conference.Provider
	sessSvc  session.Service
	logger   core.Logger
	conf     *core.Config

	mu      sync.Mutex
	watches map[string]*liveWatch
}

type liveWatch struct {
	sup    *conference.Supervisor
	cancel context.CancelFunc
}

func newLiveWatcher(provider conference.Provider, sessSvc session.Service, logger core.Logger, conf *core.Config) *liveWatcher {
	return &liveWatcher{
		provider: provider,
		sessSvc:  sessSvc,
		logger:   logger,
		conf:     conf,
		watches:  make(map[string]*liveWatch),
	}
}

// watch starts supervising the session's room. Repeat starts of the same
// session reuse the existing watch.
func (w *liveWatcher) watch(actor user.User, sessionID string, info session.JoinInfo) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watches[sessionID]; ok {
		return
	}

	sup := conference.NewSupervisor(
		conference.Options{
			Provider:     w.provider,
			Logger:       w.logger,
			Resolve:      session.NeutralRoomID,
			PollInterval: w.conf.Conference.RosterPollInterval,
		},
		w.conf.Conference.InactivityTimeout,
		func() { w.onIdle(actor, sessionID) },
	)

	ctx, cancel := context.WithCancel(context.Background())
	if err := sup.Watch(ctx, info.MeetingID, conference.UserInfo{DisplayName: actor.Name, Role: conference.RoleModerator}); err != nil {
		cancel()
		w.logger.Error(fmt.Sprintf("live: could not watch room %s: %v", info.MeetingID, err), err)
		return
	}
	w.watches[sessionID] = &liveWatch{sup: sup, cancel: cancel}
}

// onIdle completes the session on behalf of the host after prolonged inactivity.
func (w *liveWatcher) onIdle(actor user.User, sessionID string) {
	if _, err := w.sessSvc.Complete(context.Background(), actor, sessionID, ""); err != nil {
		w.logger.Error(fmt.Sprintf("live: auto-completing idle session %s: %v", sessionID, err), err)
	}
	w.stop(sessionID)
}

// stop tears down the watch for a session, if any.
func (w *liveWatcher) stop(sessionID string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	watch, ok := w.watches[sessionID]
	if ok {
		delete(w.watches, sessionID)
	}
	w.mu.Unlock()
	if ok {
		watch.cancel()
		watch.sup.Stop()
	}
}
