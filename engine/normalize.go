/*
normalize.go - Burst normalization from heterogeneous line-item records

PURPOSE:
  The persistence layer stores near-duplicate record shapes per channel:
  the same concept (start date, media amount, fee flag...) appears under
  a dozen differently spelled keys depending on which channel form wrote
  it. This file is the single place that knowledge lives. Each concept
  has a versioned list of accepted source keys; the first key present in
  a record wins. Everything downstream of Normalize sees only the
  canonical Burst value.

ACCEPTED VALUE SHAPES:
  Dates:    string in any ParseDate layout
  Numbers:  float64, int, json.Number, numeric string ("1,200.50" ok)
  Booleans: bool, "true"/"false"/"yes"/"no"/"1"/"0"

FAILURE MODE:
  A record missing dates, or with end before start, yields no Burst and
  one Warning. Normalization never returns an error.
*/
package engine

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// RawRecord is one line-item burst record as stored, before
// normalization. Keys vary by channel form version.
type RawRecord map[string]any

// sourceKeys is the versioned catalog of accepted spellings per concept.
// Order matters: earlier keys take precedence. New form versions add
// keys at the end; keys are never removed while old records exist.
var sourceKeys = map[string][]string{
	"startDate": {"startDate", "start_date", "burstStart", "burst_start", "start", "dateFrom", "date_from"},
	"endDate":   {"endDate", "end_date", "burstEnd", "burst_end", "end", "dateTo", "date_to"},
	"mediaAmount": {
		"mediaAmount", "media_amount", "amount", "budget", "cost",
		"grossAmount", "gross_amount", "spend", "mediaBudget", "media_budget",
	},
	"buyType":            {"buyType", "buy_type", "buyingType", "buying_type", "rateType", "rate_type"},
	"feePercentage":      {"feePercentage", "fee_percentage", "feePercent", "fee_percent", "fee", "serviceFeePercent"},
	"budgetIncludesFees": {"budgetIncludesFees", "budget_includes_fees", "feesIncluded", "fees_included", "grossBudget"},
	"clientPaysForMedia": {"clientPaysForMedia", "client_pays_for_media", "clientPaysMedia", "directClientBilling"},
	"noAdserving":        {"noAdserving", "noAdServing", "no_adserving", "adservingDisabled", "adserving_disabled"},
	"deliverables":       {"deliverables", "impressions", "spots", "insertions", "panels", "units", "quantity"},
}

// NormalizeBurst converts one raw record into a Burst. The boolean
// result reports whether the record produced a usable burst; warnings
// describe anything skipped or defaulted.
func NormalizeBurst(raw RawRecord, lineItemID string, channel Channel) (Burst, bool, []Warning) {
	var warnings []Warning

	b := Burst{
		LineItemID: lineItemID,
		Channel:    channel,
		Label:      lookupString(raw, []string{"name", "label", "header", "description"}),
		BuyType:    normalizeBuyType(lookupString(raw, sourceKeys["buyType"])),
	}

	b.Start = lookupDate(raw, sourceKeys["startDate"])
	b.End = lookupDate(raw, sourceKeys["endDate"])
	b.MediaAmount = lookupDecimal(raw, sourceKeys["mediaAmount"])
	b.FeePercentage = lookupDecimal(raw, sourceKeys["feePercentage"])
	b.BudgetIncludesFees = lookupBool(raw, sourceKeys["budgetIncludesFees"])
	b.ClientPaysForMedia = lookupBool(raw, sourceKeys["clientPaysForMedia"])
	b.NoAdServing = lookupBool(raw, sourceKeys["noAdserving"])
	b.Deliverables = lookupDecimal(raw, sourceKeys["deliverables"])

	if !b.Valid() {
		warnings = append(warnings, Warning{
			LineItemID: lineItemID,
			Field:      "dates",
			Message:    "burst skipped: missing or inverted dates",
		})
		return b, false, warnings
	}
	return b, true, warnings
}

// NormalizeAll converts a batch of records, keeping only usable bursts
// and collecting every warning.
func NormalizeAll(records []RawRecord, lineItemID string, channel Channel) ([]Burst, []Warning) {
	var bursts []Burst
	var warnings []Warning
	for _, raw := range records {
		b, ok, w := NormalizeBurst(raw, lineItemID, channel)
		warnings = append(warnings, w...)
		if ok {
			bursts = append(bursts, b)
		}
	}
	return bursts, warnings
}

// normalizeBuyType maps the buy-type spellings the channel forms produce
// onto the canonical enum. Unknown values fall back to standard.
func normalizeBuyType(s string) BuyType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpm", "c.p.m.", "cost per mille", "cost_per_mille":
		return BuyCPM
	case "bonus", "bonus activity", "value add", "value_add", "added value":
		return BuyBonus
	default:
		return BuyStandard
	}
}

// =============================================================================
// FIELD LOOKUPS
// =============================================================================

func lookupRaw(raw RawRecord, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func lookupString(raw RawRecord, keys []string) string {
	v, ok := lookupRaw(raw, keys)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func lookupDate(raw RawRecord, keys []string) Date {
	v, ok := lookupRaw(raw, keys)
	if !ok {
		return Date{}
	}
	if s, ok := v.(string); ok {
		return ParseDate(s)
	}
	return Date{}
}

func lookupDecimal(raw RawRecord, keys []string) decimal.Decimal {
	v, ok := lookupRaw(raw, keys)
	if !ok {
		return decimal.Zero
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case json.Number:
		if d, err := decimal.NewFromString(n.String()); err == nil {
			return d
		}
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(n)
		if d, err := decimal.NewFromString(cleaned); err == nil {
			return d
		}
	case decimal.Decimal:
		return n
	}
	return decimal.Zero
}

func lookupBool(raw RawRecord, keys []string) bool {
	v, ok := lookupRaw(raw, keys)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "1":
			return true
		}
	case float64:
		return b != 0
	case int:
		return b != 0
	}
	if s, ok := v.(json.Number); ok {
		if i, err := strconv.Atoi(s.String()); err == nil {
			return i != 0
		}
	}
	return false
}
