// Package conference wraps the third-party video-conferencing embed: role
// configuration, provider failure recovery and roster tracking.
package conference

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleModerator   Role = "moderator"
	RoleParticipant Role = "participant"
)

// Config is the provider embed configuration for one role. Values are fixed at
// build time; the two role variants never mutate a shared object.
type Config struct {
	StartWithAudioMuted bool
	StartWithVideoMuted bool

	// gating features are always disabled: rooms are meant to be instantly joinable
	PrejoinPageEnabled    bool
	WaitForOwner          bool
	MembersOnly           bool
	RequireAuthentication bool

	ToolbarAlwaysVisible bool
	ToolbarButtons       []string
}

var (
	moderatorToolbar = []string{
		"microphone", "camera", "desktop", "chat", "raisehand",
		"participants-pane", "tileview", "recording", "invite", "security", "hangup",
	}
	participantToolbar = []string{
		"microphone", "camera", "chat", "raisehand", "participants-pane", "tileview", "hangup",
	}
)

// BuildConfig returns the immutable embed configuration for a role. Each call
// gets its own toolbar slice so callers cannot poison the role templates.
func BuildConfig(role Role) Config {
	if role == RoleModerator {
		return Config{
			StartWithAudioMuted:  false,
			StartWithVideoMuted:  false,
			ToolbarAlwaysVisible: true,
			ToolbarButtons:       append([]string(nil), moderatorToolbar...),
		}
	}
	return Config{
		StartWithAudioMuted: true,
		StartWithVideoMuted: true,
		ToolbarButtons:      append([]string(nil), participantToolbar...),
	}
}

// UserInfo identifies the local participant to the provider.
type UserInfo struct {
	DisplayName string
	Email       string
	Role        Role
}

// Fragment serializes the configuration as the provider's URL fragment
// protocol, used when falling back to a raw iframe. The key names are a
// provider convention and must be preserved bit-for-bit.
func (c Config) Fragment(info UserInfo) string {
	pairs := []string{
		fmt.Sprintf("config.prejoinPageEnabled=%t", c.PrejoinPageEnabled),
		fmt.Sprintf("config.waitForOwner=%t", c.WaitForOwner),
		fmt.Sprintf("config.membersOnly=%t", c.MembersOnly),
		fmt.Sprintf("config.startWithAudioMuted=%t", c.StartWithAudioMuted),
		fmt.Sprintf("config.startWithVideoMuted=%t", c.StartWithVideoMuted),
		"userInfo.role=" + string(info.Role),
	}
	if info.DisplayName != "" {
		pairs = append(pairs, "userInfo.displayName="+fragmentEscape(info.DisplayName))
	}
	return strings.Join(pairs, "&")
}

func fragmentEscape(s string) string {
	return strings.NewReplacer(" ", "%20", "&", "%26", "#", "%23", "=", "%3D").Replace(s)
}
