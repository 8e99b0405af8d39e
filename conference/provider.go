package conference

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrProviderUnavailable = errors.New("conferencing provider unavailable")

// Participant is a live-conference roster entry. Roster entries live for one
// conference connection and are never persisted.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

type EventKind string

const (
	EventConferenceJoined  EventKind = "videoConferenceJoined"
	EventConferenceLeft    EventKind = "videoConferenceLeft"
	EventParticipantJoined EventKind = "participantJoined"
	EventParticipantLeft   EventKind = "participantLeft"
	EventRoleChanged       EventKind = "participantRoleChanged"
	EventError             EventKind = "errorOccurred"
)

type Event struct {
	Kind        EventKind
	Participant *Participant
	Err         error
}

type (
	// EmbedOptions mirrors the provider's embed contract.
	EmbedOptions struct {
		Domain   string
		RoomName string
		UserInfo UserInfo
		Config   Config
	}

	// Embed is one live connection to a provider room. It must never be shared
	// across two simultaneously-attached adapters; Dispose is idempotent.
	Embed interface {
		Events() <-chan Event
		Roster(ctx context.Context) ([]Participant, error)
		Dispose() error
	}

	Provider interface {
		// Ensure readies the provider client; idempotent, reuses prior success.
		Ensure(ctx context.Context) error
		NewEmbed(ctx context.Context, opts EmbedOptions) (Embed, error)
		// JoinURL builds a direct room URL with cfg passed via URL fragment.
		JoinURL(room string, cfg Config, info UserInfo) string
	}
)

// FailureDetector decides whether a provider error means the room got gated
// (members-only / authentication required) and retrying the structured embed
// is pointless.
type FailureDetector interface {
	IsGatingFailure(err error) bool
}

// gating error signatures observed from the provider; matched case-insensitively
var gatingSignatures = []string{
	"members only",
	"membersonly",
	"conference.connectionerror.membersonly",
	"authentication required",
	"password required",
	"not allowed to join",
}

type signatureDetector struct {
	signatures []string
}

// NewSignatureDetector returns the default text-signature FailureDetector.
// Extra signatures may be supplied for provider deployments with localized
// error text.
func NewSignatureDetector(extra ...string) FailureDetector {
	return &signatureDetector{signatures: append(gatingSignatures, extra...)}
}

func (d *signatureDetector) IsGatingFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range d.signatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
