/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupled from the engine and
  plan types. Money crosses this boundary as float64 rounded to cents
  (engine.Display); inside the engine it stays full-precision decimal.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

SEE ALSO:
  - handlers.go: uses these types
  - engine/schedule.go: the source structures
*/
package api

import (
	"time"

	"github.com/planwell/billing-engine/engine"
	"github.com/planwell/billing-engine/plan"
)

// =============================================================================
// CAMPAIGN TYPES
// =============================================================================

// CampaignDTO represents a campaign in API responses.
type CampaignDTO struct {
	ID          string  `json:"id"`
	Client      string  `json:"client"`
	Name        string  `json:"name"`
	StartDate   string  `json:"start_date,omitempty"`
	EndDate     string  `json:"end_date,omitempty"`
	Budget      float64 `json:"budget"`
	PlanVersion int     `json:"plan_version"`
	LineItems   int     `json:"line_items"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// CreateCampaignRequest is the request to create a campaign.
type CreateCampaignRequest struct {
	Client    string  `json:"client"`
	Name      string  `json:"name"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Budget    float64 `json:"budget"`
}

// CreateLineItemRequest adds a line item with its raw burst records.
// Records pass through to the engine's normalizer untouched; the API
// does not care which form version spelled the keys.
type CreateLineItemRequest struct {
	Channel string             `json:"channel"`
	Name    string             `json:"name"`
	Records []engine.RawRecord `json:"records"`
}

// =============================================================================
// SCHEDULE TYPES
// =============================================================================

// ScheduleMonthDTO is one month of a schedule, rounded for display.
type ScheduleMonthDTO struct {
	MonthYear       string             `json:"month_year"`
	MediaCosts      map[string]float64 `json:"media_costs"`
	MediaTotal      float64            `json:"media_total"`
	FeeTotal        float64            `json:"fee_total"`
	AdServingTotal  float64            `json:"ad_serving_total"`
	ProductionTotal float64            `json:"production_total"`
	TotalAmount     float64            `json:"total_amount"`
}

// SchedulesDTO pairs the two schedule views with their grand totals.
type SchedulesDTO struct {
	Billing            []ScheduleMonthDTO `json:"billing"`
	Delivery           []ScheduleMonthDTO `json:"delivery"`
	BillingGrandTotal  float64            `json:"billing_grand_total"`
	DeliveryGrandTotal float64            `json:"delivery_grand_total"`
	Mode               string             `json:"mode"`
	Warnings           []string           `json:"warnings,omitempty"`
}

// LineBreakdownDTO is one editable line-item row in manual mode.
type LineBreakdownDTO struct {
	Channel        string             `json:"channel"`
	Index          int                `json:"index"`
	Header1        string             `json:"header1"`
	Header2        string             `json:"header2"`
	MonthlyAmounts map[string]float64 `json:"monthly_amounts"`
	TotalAmount    float64            `json:"total_amount"`
}

// ManualStateDTO is the editable schedule plus its breakdown rows.
type ManualStateDTO struct {
	Months    []ScheduleMonthDTO `json:"months"`
	Breakdown []LineBreakdownDTO `json:"breakdown"`
}

// SetCellRequest edits one cell of the manual schedule.
type SetCellRequest struct {
	Month   string  `json:"month"`
	Row     string  `json:"row"` // media | fee | adserving | production | line
	Channel string  `json:"channel,omitempty"`
	Index   int     `json:"index,omitempty"`
	Value   float64 `json:"value"`
}

// PreBillRequest toggles pre-billing on one row.
type PreBillRequest struct {
	Row     string `json:"row"`
	Channel string `json:"channel,omitempty"`
	Index   int    `json:"index,omitempty"`
	Checked bool   `json:"checked"`
}

// ValidationResultDTO reports a manual-save validation outcome.
type ValidationResultDTO struct {
	OK         bool    `json:"ok"`
	Difference float64 `json:"difference,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// =============================================================================
// PARTIAL INVOICE TYPES
// =============================================================================

// PartialInvoiceRequest selects the months and channel toggles.
type PartialInvoiceRequest struct {
	Months   []string        `json:"months"`
	Channels map[string]bool `json:"channels"`
}

// PartialInvoiceDTO is the reduced invoice, GST applied at this
// boundary only.
type PartialInvoiceDTO struct {
	MediaTotals  map[string]float64 `json:"media_totals"`
	GrossMedia   float64            `json:"gross_media"`
	AssembledFee float64            `json:"assembled_fee"`
	AdServing    float64            `json:"ad_serving"`
	Production   float64            `json:"production"`
	TotalExGST   float64            `json:"total_ex_gst"`
	TotalIncGST  float64            `json:"total_inc_gst"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toCampaignDTO(c *plan.Campaign) CampaignDTO {
	dto := CampaignDTO{
		ID:          c.ID.String(),
		Client:      c.Client,
		Name:        c.Name,
		Budget:      engine.Display(c.Budget),
		PlanVersion: c.PlanVersion,
		LineItems:   len(c.LineItems),
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
	if !c.Start.IsZero() {
		dto.StartDate = c.Start.String()
	}
	if !c.End.IsZero() {
		dto.EndDate = c.End.String()
	}
	return dto
}

func toScheduleMonthDTO(m engine.ScheduleMonth) ScheduleMonthDTO {
	costs := make(map[string]float64, len(m.MediaCosts))
	for channel, cost := range m.MediaCosts {
		costs[string(channel)] = engine.Display(cost)
	}
	return ScheduleMonthDTO{
		MonthYear:       string(m.Key),
		MediaCosts:      costs,
		MediaTotal:      engine.Display(m.MediaTotal()),
		FeeTotal:        engine.Display(m.FeeTotal),
		AdServingTotal:  engine.Display(m.AdServingTotal),
		ProductionTotal: engine.Display(m.ProductionTotal),
		TotalAmount:     engine.Display(m.TotalAmount),
	}
}

func toScheduleDTOs(s engine.Schedule) []ScheduleMonthDTO {
	dtos := make([]ScheduleMonthDTO, len(s))
	for i, m := range s {
		dtos[i] = toScheduleMonthDTO(m)
	}
	return dtos
}

func toManualStateDTO(state *engine.ManualState) ManualStateDTO {
	dto := ManualStateDTO{Months: toScheduleDTOs(state.Months)}
	for channel, lines := range state.LineItems {
		for i, lb := range lines {
			monthly := make(map[string]float64, len(lb.Monthly))
			for key, v := range lb.Monthly {
				monthly[string(key)] = engine.Display(v)
			}
			dto.Breakdown = append(dto.Breakdown, LineBreakdownDTO{
				Channel:        string(channel),
				Index:          i,
				Header1:        lb.Header1,
				Header2:        lb.Header2,
				MonthlyAmounts: monthly,
				TotalAmount:    engine.Display(lb.Total),
			})
		}
	}
	return dto
}

func toPartialInvoiceDTO(p engine.PartialInvoice) PartialInvoiceDTO {
	totals := make(map[string]float64, len(p.MediaTotals))
	for channel, total := range p.MediaTotals {
		totals[string(channel)] = engine.Display(total)
	}
	exGST := p.GrossMedia.Add(p.AssembledFee).Add(p.AdServing).Add(p.Production)
	return PartialInvoiceDTO{
		MediaTotals:  totals,
		GrossMedia:   engine.Display(p.GrossMedia),
		AssembledFee: engine.Display(p.AssembledFee),
		AdServing:    engine.Display(p.AdServing),
		Production:   engine.Display(p.Production),
		TotalExGST:   engine.Display(exGST),
		TotalIncGST:  engine.Display(exGST.Mul(plan.GSTMultiplier)),
	}
}

func warningsToStrings(warnings []engine.Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.String()
	}
	return out
}
