package clipkit

import (
	"maps"
	"time"

	"github.com/randalmurphal/clipkit/pkg/clipkit/config"
)

// Vault keys the session writes.
const (
	KeySessionContext = "session.context"
	KeySessionHandoff = "session.handoff"
)

// EventDeepLinkOpened is tracked once per ProcessDeepLink call.
const EventDeepLinkOpened = "deep_link_opened"

// SessionContext is the per-activation state. Each ProcessDeepLink call
// replaces it wholesale.
type SessionContext struct {
	SessionID   string               `json:"sessionId"`
	LastURL     string               `json:"lastUrl,omitempty"`
	Segment     string               `json:"segment,omitempty"` // normalized dispatch key
	Params      map[string]string    `json:"params,omitempty"`
	Outcome     string               `json:"outcome,omitempty"`
	PrivacyMode config.AnalyticsMode `json:"privacyMode"`
	Settings    config.Settings      `json:"settings"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

func (c SessionContext) clone() SessionContext {
	c.Params = maps.Clone(c.Params)
	c.Settings.AllowedKeys = append([]string(nil), c.Settings.AllowedKeys...)
	c.Settings.IdentifierKeys = append([]string(nil), c.Settings.IdentifierKeys...)
	return c
}

// Handoff is the snapshot persisted by PrepareForHandoff and restored by
// the next session's Initialize.
type Handoff struct {
	SessionID   string         `json:"sessionId"`
	Context     SessionContext `json:"context"`
	HandedOffAt time.Time      `json:"handedOffAt"`
}
