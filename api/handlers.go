/*
handlers.go - HTTP API handlers for the billing schedule engine

PURPOSE:
  Exposes campaign planning and schedule computation via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  the engine and plan packages.

ENDPOINTS:
  Campaigns:
    GET    /api/campaigns                    List campaigns
    POST   /api/campaigns                    Create campaign
    GET    /api/campaigns/{id}               Campaign details
    PUT    /api/campaigns/{id}               Update dates/budget/name
    POST   /api/campaigns/{id}/line-items    Add a line item
    PUT    /api/campaigns/{id}/line-items/{itemID}  Replace burst records

  Schedules:
    GET    /api/campaigns/{id}/schedules     Billing + delivery views
    POST   /api/campaigns/{id}/schedules/save  Persist as schedules of record

  Manual mode:
    POST   /api/campaigns/{id}/manual        Enter manual mode
    GET    /api/campaigns/{id}/manual        Editable state
    POST   /api/campaigns/{id}/manual/cell   Edit one cell
    POST   /api/campaigns/{id}/manual/prebill  Toggle pre-billing
    POST   /api/campaigns/{id}/manual/save   Validate against budget
    POST   /api/campaigns/{id}/manual/reset  Back to auto

  Invoicing:
    POST   /api/campaigns/{id}/partial-invoice  Reduced invoice totals

ARCHITECTURE:
  Handler holds the store, the logger, and a per-campaign Planner
  session map. Every schedule read recomputes from the persisted line
  items first, so sessions never serve stale numbers after an edit to
  the plan; the Planner keeps only the manual-mode working copy and
  the snapshot identity between requests.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Campaign or line item not found
  - 409: Wrong mode, budget mismatch on manual save
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - engine/planner.go: The orchestration these handlers drive
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/planwell/billing-engine/engine"
	"github.com/planwell/billing-engine/plan"
	"github.com/planwell/billing-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
	Log   *zap.Logger
	Rates plan.RateCard

	mu       sync.Mutex
	sessions map[uuid.UUID]*engine.Planner
}

// NewHandler creates a handler over the given store.
func NewHandler(store *sqlite.Store, log *zap.Logger) *Handler {
	return &Handler{
		Store:    store,
		Log:      log,
		Rates:    plan.DefaultRateCard(),
		sessions: make(map[uuid.UUID]*engine.Planner),
	}
}

// planner returns the campaign's planner session, creating one on first
// use. The store doubles as the snapshot store, so the frozen delivery
// schedule survives restarts.
func (h *Handler) planner(id uuid.UUID) *engine.Planner {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.sessions[id]
	if !ok {
		p = engine.NewPlanner(plan.AllocationInput(h.Rates), h.Store)
		h.sessions[id] = p
	}
	return p
}

// =============================================================================
// CAMPAIGN HANDLERS
// =============================================================================

// ListCampaigns returns all campaigns.
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Store.ListCampaigns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list campaigns", err)
		return
	}

	dtos := make([]CampaignDTO, len(campaigns))
	for i, c := range campaigns {
		dtos[i] = toCampaignDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCampaign creates a campaign.
func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Client == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "client and name are required", nil)
		return
	}

	start := engine.ParseDate(req.StartDate)
	end := engine.ParseDate(req.EndDate)
	if start.IsZero() || end.IsZero() {
		writeError(w, http.StatusBadRequest, "start_date and end_date are required", nil)
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date precedes start_date", nil)
		return
	}

	c := plan.NewCampaign(req.Client, req.Name, start, end, decimal.NewFromFloat(req.Budget))
	if err := h.Store.CreateCampaign(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create campaign", err)
		return
	}

	h.Log.Info("campaign created",
		zap.String("id", c.ID.String()),
		zap.String("client", c.Client))
	writeJSON(w, http.StatusCreated, toCampaignDTO(c))
}

// GetCampaign returns a single campaign.
func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCampaign(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCampaignDTO(c))
}

// UpdateCampaign changes a campaign's name, dates or budget. A date
// change alters the snapshot identity, so the frozen delivery schedule
// re-baselines on the next recompute.
func (h *Handler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCampaign(w, r)
	if !ok {
		return
	}

	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Name != "" {
		c.Name = req.Name
	}
	if req.Client != "" {
		c.Client = req.Client
	}
	if req.Budget != 0 {
		c.Budget = decimal.NewFromFloat(req.Budget)
	}
	if req.StartDate != "" {
		start := engine.ParseDate(req.StartDate)
		if start.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid start_date", nil)
			return
		}
		c.Start = start
	}
	if req.EndDate != "" {
		end := engine.ParseDate(req.EndDate)
		if end.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid end_date", nil)
			return
		}
		c.End = end
	}
	if c.End.Before(c.Start) {
		writeError(w, http.StatusBadRequest, "end_date precedes start_date", nil)
		return
	}
	c.UpdatedAt = time.Now().UTC()

	if err := h.Store.UpdateCampaign(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update campaign", err)
		return
	}
	writeJSON(w, http.StatusOK, toCampaignDTO(c))
}

// CreateLineItem adds a line item with its burst records. The plan
// version bumps so the delivery snapshot re-baselines: a restructured
// plan is a new agreement with the client.
func (h *Handler) CreateLineItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCampaign(w, r)
	if !ok {
		return
	}

	var req CreateLineItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	channel := engine.Channel(req.Channel)
	if !plan.Valid(channel) {
		writeError(w, http.StatusBadRequest, "unknown channel: "+req.Channel, nil)
		return
	}

	li := plan.NewLineItem(channel, req.Name)
	for _, rec := range req.Records {
		li.AddRecord(rec)
	}
	if err := h.Store.AddLineItem(r.Context(), c.ID, li); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add line item", err)
		return
	}

	c.PlanVersion++
	c.UpdatedAt = time.Now().UTC()
	if err := h.Store.UpdateCampaign(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to bump plan version", err)
		return
	}

	h.Log.Info("line item added",
		zap.String("campaign", c.ID.String()),
		zap.String("channel", string(channel)),
		zap.Int("records", len(req.Records)))
	writeJSON(w, http.StatusCreated, map[string]string{"id": li.ID.String()})
}

// UpdateLineItem replaces a line item's burst records. Like adding one,
// this restructures the plan and bumps its version.
func (h *Handler) UpdateLineItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCampaign(w, r)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid line item id", err)
		return
	}

	var req CreateLineItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	err = h.Store.UpdateLineItemRecords(r.Context(), itemID, req.Records)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "line item not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update line item", err)
		return
	}

	c.PlanVersion++
	c.UpdatedAt = time.Now().UTC()
	if err := h.Store.UpdateCampaign(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to bump plan version", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// GetSchedules recomputes and returns both schedule views.
func (h *Handler) GetSchedules(w http.ResponseWriter, r *http.Request) {
	_, p, warnings, ok := h.loadAndRecompute(w, r)
	if !ok {
		return
	}

	billing := p.Billing()
	delivery := p.Delivery()

	mode := "auto"
	if p.Mode() == engine.ModeManual {
		mode = "manual"
	}

	writeJSON(w, http.StatusOK, SchedulesDTO{
		Billing:            toScheduleDTOs(billing),
		Delivery:           toScheduleDTOs(delivery),
		BillingGrandTotal:  engine.Display(billing.GrandTotal()),
		DeliveryGrandTotal: engine.Display(delivery.GrandTotal()),
		Mode:               mode,
		Warnings:           warningsToStrings(warnings),
	})
}

// SaveSchedules persists the current billing and delivery views as the
// campaign's schedules of record.
func (h *Handler) SaveSchedules(w http.ResponseWriter, r *http.Request) {
	c, p, _, ok := h.loadAndRecompute(w, r)
	if !ok {
		return
	}

	if err := h.Store.SaveSchedule(r.Context(), c.ID, "billing", p.Billing()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save billing schedule", err)
		return
	}
	if err := h.Store.SaveSchedule(r.Context(), c.ID, "delivery", p.Delivery()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save delivery schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// =============================================================================
// MANUAL MODE HANDLERS
// =============================================================================

// EnterManualMode switches billing to the editable working copy.
func (h *Handler) EnterManualMode(w http.ResponseWriter, r *http.Request) {
	_, p, _, ok := h.loadAndRecompute(w, r)
	if !ok {
		return
	}
	state := p.EnterManualMode()
	writeJSON(w, http.StatusOK, toManualStateDTO(state))
}

// GetManualState returns the working copy, 409 in auto mode.
func (h *Handler) GetManualState(w http.ResponseWriter, r *http.Request) {
	_, p, _, ok := h.loadAndRecompute(w, r)
	if !ok {
		return
	}
	state := p.Manual()
	if state == nil {
		writeError(w, http.StatusConflict, "not in manual mode", nil)
		return
	}
	writeJSON(w, http.StatusOK, toManualStateDTO(state))
}

// SetManualCell edits one cell of the manual schedule.
func (h *Handler) SetManualCell(w http.ResponseWriter, r *http.Request) {
	_, p, _, ok := h.loadAndRecompute(w, r)
	if !ok {
		return
	}

	var req SetCellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	row, err := parseRowRef(req.Row, req.Channel, req.Index)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	err = p.SetCell(engine.MonthKey(req.Month), row, decimal.NewFromFloat(req.Value))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toManualStateDTO(p.Manual()))
}

// TogglePreBill collapses or restores one row's monthly series.
func (h *Handler) TogglePreBill(w http.ResponseWriter, r *http.Request) {
	_, p, _, ok := h.loadAndRecompute(w, r)
	if !ok {
		return
	}

	var req PreBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	row, err := parseRowRef(req.Row, req.Channel, req.Index)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := p.TogglePreBill(row, req.Checked); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toManualStateDTO(p.Manual()))
}

// SaveManual validates the working copy against the campaign budget.
// A mismatch keeps the edit state and reports the signed difference.
func (h *Handler) SaveManual(w http.ResponseWriter, r *http.Request) {
	c, p, _, ok := h.loadAndRecompute(w, r)
	if !ok {
		return
	}

	err := p.SaveManual(c.Budget)
	var mismatch *engine.BudgetMismatchError
	switch {
	case errors.As(err, &mismatch):
		writeJSON(w, http.StatusConflict, ValidationResultDTO{
			OK:         false,
			Difference: engine.Display(mismatch.Difference),
			Message:    mismatch.Error(),
		})
		return
	case err != nil:
		writeEngineError(w, err)
		return
	}

	if err := h.Store.SaveSchedule(r.Context(), c.ID, "billing", p.Billing()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save billing schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, ValidationResultDTO{OK: true})
}

// ResetManual discards the working copy and returns the auto schedule.
func (h *Handler) ResetManual(w http.ResponseWriter, r *http.Request) {
	_, p, _, ok := h.loadAndRecompute(w, r)
	if !ok {
		return
	}
	auto := p.Reset()
	writeJSON(w, http.StatusOK, toScheduleDTOs(auto))
}

// =============================================================================
// PARTIAL INVOICE
// =============================================================================

// PartialInvoice computes the reduced invoice over the selected months
// and enabled channels, always from the delivery view.
func (h *Handler) PartialInvoice(w http.ResponseWriter, r *http.Request) {
	_, p, _, ok := h.loadAndRecompute(w, r)
	if !ok {
		return
	}

	var req PartialInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Months) == 0 {
		writeError(w, http.StatusBadRequest, "at least one month must be selected", nil)
		return
	}

	months := make([]engine.MonthKey, len(req.Months))
	for i, m := range req.Months {
		months[i] = engine.MonthKey(m)
	}
	enabled := make(map[engine.Channel]bool, len(req.Channels))
	for channel, on := range req.Channels {
		enabled[engine.Channel(channel)] = on
	}

	result := p.PartialInvoice(months, enabled)
	writeJSON(w, http.StatusOK, toPartialInvoiceDTO(result))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadCampaign(w http.ResponseWriter, r *http.Request) (*plan.Campaign, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid campaign id", err)
		return nil, false
	}
	c, err := h.Store.GetCampaign(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "campaign not found", nil)
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load campaign", err)
		return nil, false
	}
	return c, true
}

// loadAndRecompute loads the campaign and rebuilds both schedules
// through its planner session. Normalization warnings are collected
// here: invalid records never reach the engine as bursts, so this is
// the only place their warnings exist.
func (h *Handler) loadAndRecompute(w http.ResponseWriter, r *http.Request) (*plan.Campaign, *engine.Planner, []engine.Warning, bool) {
	c, ok := h.loadCampaign(w, r)
	if !ok {
		return nil, nil, nil, false
	}
	bursts, warnings := c.Bursts()
	p := h.planner(c.ID)
	_, computeWarnings := p.Recompute(c.PlanID(), bursts, c.Start, c.End)
	return c, p, append(warnings, computeWarnings...), true
}

func parseRowRef(row, channel string, index int) (engine.RowRef, error) {
	ref := engine.RowRef{Channel: engine.Channel(channel), Index: index}
	switch row {
	case "media":
		ref.Kind = engine.RowMedia
	case "fee":
		ref.Kind = engine.RowFee
	case "adserving":
		ref.Kind = engine.RowAdServing
	case "production":
		ref.Kind = engine.RowProduction
	case "line":
		ref.Kind = engine.RowLineItem
	default:
		return engine.RowRef{}, errors.New("unknown row kind: " + row)
	}
	return ref, nil
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotInManualMode):
		writeError(w, http.StatusConflict, "not in manual mode", nil)
	case errors.Is(err, engine.ErrUnknownMonth), errors.Is(err, engine.ErrUnknownRow):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "schedule operation failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
