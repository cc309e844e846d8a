package plan

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/planwell/billing-engine/engine"
)

// =============================================================================
// AD-SERVING RATE CARDS
// =============================================================================

// RateCard is a named ad-serving rate configuration. Agencies carry one
// active card; historical cards stay addressable by ID for re-runs of
// old campaigns.
type RateCard struct {
	ID    uuid.UUID
	Name  string
	Rates engine.RateTable
}

// NewRateCard creates a card with a fresh identifier.
func NewRateCard(name string, rates engine.RateTable) RateCard {
	return RateCard{ID: uuid.New(), Name: name, Rates: rates}
}

// DefaultRateCard returns the standard agency ad-serving rates.
// Impression and display rates are per deliverable; CPM-bought and
// bonus-audio inventory prices per thousand through the engine's
// allocation rules, not through different rates here.
func DefaultRateCard() RateCard {
	return RateCard{
		ID:   uuid.MustParse("6f1d2a34-9c55-4b87-a2f0-3f4f5c0f9a11"),
		Name: "Standard Ad Serving",
		Rates: engine.RateTable{
			engine.RateImpression: engine.MustMoney("0.25"),
			engine.RateVideo:      engine.MustMoney("0.45"),
			engine.RateAudio:      engine.MustMoney("5.50"),
			engine.RateDisplay:    engine.MustMoney("0.30"),
		},
	}
}

// AllocationInput bundles a rate card with the channel traits for the
// engine.
func AllocationInput(card RateCard) engine.AllocationInput {
	return engine.AllocationInput{Rates: card.Rates, Traits: Traits()}
}

// GSTMultiplier is the flat tax multiplier applied to invoice totals at
// the document/DTO boundary. Tax never enters the engine.
var GSTMultiplier = decimal.NewFromFloat(1.10)
