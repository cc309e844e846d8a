package plan

import (
	"time"

	"github.com/google/uuid"

	"github.com/planwell/billing-engine/engine"
)

// =============================================================================
// LINE ITEM - One channel's entry on a media plan
// =============================================================================

// LineItem is one per-channel entry on the plan. Records holds the raw
// burst rows exactly as the channel form stored them; the key shapes
// vary by channel and form version, which is why extraction goes
// through the engine's normalizer rather than struct fields.
type LineItem struct {
	ID       uuid.UUID
	Channel  engine.Channel
	Name     string
	Records  []engine.RawRecord
	Created  time.Time
	Modified time.Time
}

// NewLineItem creates a line item with a fresh identifier.
func NewLineItem(channel engine.Channel, name string) *LineItem {
	now := time.Now().UTC()
	return &LineItem{
		ID:       uuid.New(),
		Channel:  channel,
		Name:     name,
		Created:  now,
		Modified: now,
	}
}

// AddRecord appends one raw burst record.
func (li *LineItem) AddRecord(raw engine.RawRecord) {
	li.Records = append(li.Records, raw)
	li.Modified = time.Now().UTC()
}

// Bursts normalizes the line item's records into engine bursts. Bursts
// inherit the line item's name as their display label when the record
// does not carry one.
func (li *LineItem) Bursts() ([]engine.Burst, []engine.Warning) {
	bursts, warnings := engine.NormalizeAll(li.Records, li.ID.String(), li.Channel)
	for i := range bursts {
		if bursts[i].Label == "" {
			bursts[i].Label = li.Name
		}
	}
	return bursts, warnings
}
