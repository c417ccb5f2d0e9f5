package model

import (
	"encoding/json"
	"fmt"
)

// EventTrackerCreated is the only carrier event type the pipeline acts
// on; everything else is acknowledged and dropped.
const EventTrackerCreated = "tracker.created"

// InboundEvent is one carrier webhook delivery after parsing. The
// carrier may redeliver the same event id any number of times.
type InboundEvent struct {
	ID        string // carrier event id
	Type      string // e.g. "tracker.created"
	TrackerID string // from the nested result object
	AccountID string // from the request path, or the legacy account
}

// eventEnvelope mirrors the carrier's webhook JSON: id, description
// and a nested result object carrying the tracker.
type eventEnvelope struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Result      struct {
		ID string `json:"id"`
	} `json:"result"`
}

// ParseInboundEvent decodes a raw webhook body. The tracker reference
// is only required for event types the pipeline processes; callers
// check Type before relying on TrackerID.
func ParseInboundEvent(body []byte, accountID string) (InboundEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return InboundEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if env.ID == "" {
		return InboundEvent{}, fmt.Errorf("event missing id")
	}
	if env.Description == "" {
		return InboundEvent{}, fmt.Errorf("event %s missing type", env.ID)
	}
	return InboundEvent{
		ID:        env.ID,
		Type:      env.Description,
		TrackerID: env.Result.ID,
		AccountID: accountID,
	}, nil
}
