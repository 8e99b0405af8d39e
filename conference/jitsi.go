package conference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
)

// jitsiProvider talks to a Jitsi Meet deployment over plain HTTP: a health
// probe standing in for the embed script load, and the room-census endpoint
// for rosters.
type jitsiProvider struct {
	domain string
	client *http.Client

	mu    sync.Mutex
	ready bool
}

var _ Provider = (*jitsiProvider)(nil)

func NewJitsiProvider(conf *core.Config) Provider {
	return &jitsiProvider{
		domain: conf.Conference.Domain,
		client: &http.Client{Timeout: conf.Conference.RequestTimeout},
	}
}

// Ensure probes the deployment once and reuses the result, the way a loaded
// embed script is reused across constructions.
func (p *jitsiProvider) Ensure(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL()+"/about/health", nil)
	if err != nil {
		return errors.Wrap(err, "building health request")
	}
	res, err := p.client.Do(req)
	if err != nil {
		return errors.Wrap(ErrProviderUnavailable, err.Error())
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusInternalServerError {
		return errors.Wrapf(ErrProviderUnavailable, "health probe status %d", res.StatusCode)
	}

	p.ready = true
	return nil
}

func (p *jitsiProvider) NewEmbed(ctx context.Context, opts EmbedOptions) (Embed, error) {
	domain := opts.Domain
	if domain == "" {
		domain = p.domain
	}

	// probe the room page; a gated room answers with the provider's
	// members-only error surface instead of the conference shell
	probeURL := "https://" + domain + "/" + url.PathEscape(opts.RoomName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building room probe request")
	}
	res, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrProviderUnavailable, err.Error())
	}
	defer res.Body.Close()
	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, errors.Errorf("room %s: authentication required (status %d)", opts.RoomName, res.StatusCode)
	case res.StatusCode >= http.StatusBadRequest:
		return nil, errors.Wrapf(ErrProviderUnavailable, "room probe status %d", res.StatusCode)
	}

	return &jitsiEmbed{
		provider: p,
		opts:     opts,
		events:   make(chan Event, 16),
	}, nil
}

func (p *jitsiProvider) JoinURL(room string, cfg Config, info UserInfo) string {
	return "https://" + p.domain + "/" + url.PathEscape(room) + "#" + cfg.Fragment(info)
}

func (p *jitsiProvider) baseURL() string {
	return "https://" + p.domain
}

type jitsiEmbed struct {
	provider *jitsiProvider
	opts     EmbedOptions
	events   chan Event

	disposeOnce sync.Once
}

var _ Embed = (*jitsiEmbed)(nil)

func (e *jitsiEmbed) Events() <-chan Event {
	return e.events
}

// censusResponse is the room-census shape exposed by the deployment.
type censusResponse struct {
	Occupants []struct {
		ID          string `json:"jid"`
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
		JoinedAt    int64  `json:"joined_at"`
	} `json:"occupants"`
}

func (e *jitsiEmbed) Roster(ctx context.Context) ([]Participant, error) {
	censusURL := fmt.Sprintf("%s/room-census?room=%s", e.provider.baseURL(), url.QueryEscape(e.opts.RoomName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, censusURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building census request")
	}
	res, err := e.provider.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrProviderUnavailable, err.Error())
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrProviderUnavailable, "census status %d", res.StatusCode)
	}

	var census censusResponse
	if err := json.NewDecoder(res.Body).Decode(&census); err != nil {
		return nil, errors.Wrap(err, "decoding census")
	}

	roster := make([]Participant, 0, len(census.Occupants))
	for _, occ := range census.Occupants {
		role := RoleParticipant
		if occ.Role == string(RoleModerator) {
			role = RoleModerator
		}
		roster = append(roster, Participant{
			ID:          occ.ID,
			DisplayName: occ.DisplayName,
			Role:        role,
			JoinedAt:    time.Unix(occ.JoinedAt, 0).UTC(),
		})
	}
	return roster, nil
}

func (e *jitsiEmbed) Dispose() error {
	e.disposeOnce.Do(func() {
		close(e.events)
	})
	return nil
}
