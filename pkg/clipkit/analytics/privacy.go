package analytics

import (
	"strings"

	"github.com/randalmurphal/clipkit/pkg/clipkit/config"
)

// DefaultIdentifierKeys are stripped in strict-privacy mode when the
// settings don't name their own.
var DefaultIdentifierKeys = []string{
	"device_id",
	"user_id",
	"idfa",
	"idfv",
	"advertising_id",
	"email",
	"phone",
	"ip_address",
}

// Policy decides which properties survive buffering.
//
// In strict-privacy mode only keys in AllowedKeys are kept, and keys in
// IdentifierKeys are dropped even if allow-listed. Other modes keep every
// property. Key comparison ignores case.
type Policy struct {
	Mode           config.AnalyticsMode
	AllowedKeys    []string
	IdentifierKeys []string
}

// PolicyFromSettings builds the policy for a settings snapshot.
func PolicyFromSettings(s config.Settings) Policy {
	ids := s.IdentifierKeys
	if ids == nil {
		ids = DefaultIdentifierKeys
	}
	return Policy{
		Mode:           s.AnalyticsMode,
		AllowedKeys:    s.AllowedKeys,
		IdentifierKeys: ids,
	}
}

// Strict reports whether the policy filters properties.
func (p Policy) Strict() bool {
	return p.Mode == config.AnalyticsStrictPrivacy
}

// Verbose reports whether every tracked event should be logged.
func (p Policy) Verbose() bool {
	return p.Mode == config.AnalyticsVerbose
}

// Allows reports whether key survives the policy.
func (p Policy) Allows(key string) bool {
	if !p.Strict() {
		return true
	}
	return containsFold(p.AllowedKeys, key) && !containsFold(p.IdentifierKeys, key)
}

// Filter returns the properties that survive the policy.
// The input is never modified.
func (p Policy) Filter(props Properties) Properties {
	out := make(Properties, len(props))
	for k, v := range props {
		if p.Allows(k) {
			out[k] = v
		}
	}
	return out
}

// FilterIdentity applies the policy to identity traits. The user ID is
// kept: identifying the user was an explicit call, not a stray property.
func (p Policy) FilterIdentity(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	if !p.Strict() {
		return id
	}
	out := &Identity{UserID: id.UserID}
	if len(id.Traits) > 0 {
		out.Traits = p.Filter(id.Traits)
	}
	return out
}

func containsFold(list []string, key string) bool {
	for _, k := range list {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
