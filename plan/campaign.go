package plan

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/planwell/billing-engine/engine"
)

// =============================================================================
// CAMPAIGN - One media plan
// =============================================================================

// Campaign is one client media plan: the date span, the budget the
// manual schedule must reconcile against, and the line items carrying
// burst data per channel.
type Campaign struct {
	ID     uuid.UUID
	Client string
	Name   string

	Start  engine.Date
	End    engine.Date
	Budget decimal.Decimal

	// PlanVersion changes whenever the plan is restructured (line items
	// added or removed, dates shifted). Together with the dates it
	// forms the delivery snapshot identity.
	PlanVersion int

	LineItems []LineItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCampaign creates a campaign with a fresh identifier.
func NewCampaign(client, name string, start, end engine.Date, budget decimal.Decimal) *Campaign {
	now := time.Now().UTC()
	return &Campaign{
		ID:          uuid.New(),
		Client:      client,
		Name:        name,
		Start:       start,
		End:         end,
		Budget:      budget,
		PlanVersion: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SnapshotKey is the campaign's delivery snapshot identity. Changing
// the dates or the plan version produces a new key, which resets the
// frozen delivery schedule.
func (c *Campaign) SnapshotKey() engine.SnapshotKey {
	return engine.SnapshotKey{
		PlanID:        c.ID.String() + ":" + strconv.Itoa(c.PlanVersion),
		CampaignStart: c.Start,
		CampaignEnd:   c.End,
	}
}

// PlanID is the snapshot store key for this campaign.
func (c *Campaign) PlanID() string { return c.ID.String() + ":" + strconv.Itoa(c.PlanVersion) }

// Bursts normalizes every line item's records into engine bursts,
// collecting warnings for dirty data.
func (c *Campaign) Bursts() ([]engine.Burst, []engine.Warning) {
	var bursts []engine.Burst
	var warnings []engine.Warning
	for i := range c.LineItems {
		b, w := c.LineItems[i].Bursts()
		bursts = append(bursts, b...)
		warnings = append(warnings, w...)
	}
	return bursts, warnings
}

