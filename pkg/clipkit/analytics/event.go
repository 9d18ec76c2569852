package analytics

import "time"

// Event is one tracked occurrence.
type Event struct {
	ID         string        `json:"id"`
	Seq        uint64        `json:"seq"`
	Name       string        `json:"name"`
	Properties Properties    `json:"properties"`
	Timestamp  time.Time     `json:"timestamp"`
	Identity   *Identity     `json:"identity,omitempty"`
	Funnel     *FunnelRecord `json:"funnel,omitempty"`
}

// Identity is the user attached to events by IdentifyUser.
type Identity struct {
	UserID string     `json:"userId"`
	Traits Properties `json:"traits,omitempty"`
}

// FunnelRecord is carried by the terminal event of a funnel.
type FunnelRecord struct {
	Name    string   `json:"name"`
	Steps   []string `json:"steps"`
	Outcome string   `json:"outcome"`
	// Value is the completion value; zero for abandoned funnels.
	Value    float64       `json:"value"`
	Duration time.Duration `json:"duration"`
}

// Names of the events the funnel tracker emits.
const (
	EventFunnelCompleted = "funnel_completed"
	EventFunnelAbandoned = "funnel_abandoned"
)
