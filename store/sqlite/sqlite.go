/*
Package sqlite provides SQLite-backed persistence for campaigns,
line items and delivery snapshots.

PURPOSE:
  The engine itself is stateless per invocation; this package owns what
  survives between invocations: campaign records, the raw line-item
  burst records the normalizer consumes, and the frozen delivery
  snapshots. It also implements engine.SnapshotStore so the engine's
  snapshot manager can run against the database directly.

KEY TABLES:
  campaigns:          campaign identity, dates, budget, plan version
  line_items:         per-channel raw burst records (JSON)
  delivery_snapshots: one frozen delivery schedule per plan
  saved_schedules:    billing/delivery schedules of record (JSON)

SNAPSHOT SEMANTICS:
  PutSnapshot enforces first-write-wins per (plan, dates, version) key
  under a mutex: a held snapshot with the same key is kept, a held
  snapshot with a different key is replaced because the campaign
  identity changed.

WAL MODE:
  SQLite is opened with WAL for better read concurrency. Use ":memory:"
  for tests.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/planwell/billing-engine/engine"
	"github.com/planwell/billing-engine/plan"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store implements campaign persistence and engine.SnapshotStore.
type Store struct {
	db *sql.DB
	mu sync.Mutex // guards the snapshot check-and-set
}

// New creates a store backed by the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer anyway, and :memory:
	// databases are per-connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		client TEXT NOT NULL,
		name TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		budget TEXT NOT NULL DEFAULT '0',
		plan_version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS line_items (
		id TEXT PRIMARY KEY,
		campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		channel TEXT NOT NULL,
		name TEXT NOT NULL,
		records_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_line_items_campaign
		ON line_items(campaign_id);
	CREATE INDEX IF NOT EXISTS idx_line_items_campaign_channel
		ON line_items(campaign_id, channel);

	-- One frozen delivery schedule per plan. The key columns record the
	-- campaign identity the snapshot was taken under.
	CREATE TABLE IF NOT EXISTS delivery_snapshots (
		plan_id TEXT PRIMARY KEY,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		taken_at TEXT NOT NULL,
		months_json TEXT NOT NULL
	);

	-- Schedules of record, persisted on save for document generation.
	CREATE TABLE IF NOT EXISTS saved_schedules (
		campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		kind TEXT NOT NULL CHECK (kind IN ('billing', 'delivery')),
		months_json TEXT NOT NULL,
		saved_at TEXT NOT NULL,
		PRIMARY KEY (campaign_id, kind)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CAMPAIGNS
// =============================================================================

func (s *Store) CreateCampaign(ctx context.Context, c *plan.Campaign) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, client, name, start_date, end_date, budget, plan_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Client, c.Name,
		dateOrNull(c.Start), dateOrNull(c.End),
		c.Budget.String(), c.PlanVersion,
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) UpdateCampaign(ctx context.Context, c *plan.Campaign) error {
	c.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE campaigns SET client = ?, name = ?, start_date = ?, end_date = ?,
			budget = ?, plan_version = ?, updated_at = ?
		WHERE id = ?`,
		c.Client, c.Name, dateOrNull(c.Start), dateOrNull(c.End),
		c.Budget.String(), c.PlanVersion, c.UpdatedAt.Format(time.RFC3339),
		c.ID.String(),
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCampaign loads a campaign with its line items.
func (s *Store) GetCampaign(ctx context.Context, id uuid.UUID) (*plan.Campaign, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, client, name, start_date, end_date, budget, plan_version, created_at, updated_at
		FROM campaigns WHERE id = ?`, id.String())

	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := s.listLineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	c.LineItems = items
	return c, nil
}

func (s *Store) ListCampaigns(ctx context.Context) ([]*plan.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client, name, start_date, end_date, budget, plan_version, created_at, updated_at
		FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*plan.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCampaign(row scannable) (*plan.Campaign, error) {
	var (
		c          plan.Campaign
		idStr      string
		start, end sql.NullString
		budget     string
		created    string
		updated    string
	)
	err := row.Scan(&idStr, &c.Client, &c.Name, &start, &end, &budget, &c.PlanVersion, &created, &updated)
	if err != nil {
		return nil, err
	}

	c.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("bad campaign id %q: %w", idStr, err)
	}
	if start.Valid {
		c.Start = engine.ParseDate(start.String)
	}
	if end.Valid {
		c.End = engine.ParseDate(end.String)
	}
	c.Budget, err = decimal.NewFromString(budget)
	if err != nil {
		return nil, fmt.Errorf("bad campaign budget %q: %w", budget, err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, created)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &c, nil
}

func dateOrNull(d engine.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

// =============================================================================
// LINE ITEMS
// =============================================================================

func (s *Store) AddLineItem(ctx context.Context, campaignID uuid.UUID, li *plan.LineItem) error {
	records, err := json.Marshal(li.Records)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO line_items (id, campaign_id, channel, name, records_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		li.ID.String(), campaignID.String(), string(li.Channel), li.Name,
		string(records), li.Created.Format(time.RFC3339), li.Modified.Format(time.RFC3339),
	)
	return err
}

func (s *Store) UpdateLineItemRecords(ctx context.Context, id uuid.UUID, records []engine.RawRecord) error {
	encoded, err := json.Marshal(records)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE line_items SET records_json = ?, updated_at = ? WHERE id = ?`,
		string(encoded), time.Now().UTC().Format(time.RFC3339), id.String(),
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) listLineItems(ctx context.Context, campaignID uuid.UUID) ([]plan.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel, name, records_json, created_at, updated_at
		FROM line_items WHERE campaign_id = ? ORDER BY created_at`, campaignID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []plan.LineItem
	for rows.Next() {
		var (
			li       plan.LineItem
			idStr    string
			channel  string
			records  string
			created  string
			modified string
		)
		if err := rows.Scan(&idStr, &channel, &li.Name, &records, &created, &modified); err != nil {
			return nil, err
		}
		li.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("bad line item id %q: %w", idStr, err)
		}
		li.Channel = engine.Channel(channel)
		if err := json.Unmarshal([]byte(records), &li.Records); err != nil {
			return nil, fmt.Errorf("bad line item records for %s: %w", idStr, err)
		}
		li.Created, _ = time.Parse(time.RFC3339, created)
		li.Modified, _ = time.Parse(time.RFC3339, modified)
		items = append(items, li)
	}
	return items, rows.Err()
}

// =============================================================================
// DELIVERY SNAPSHOTS - engine.SnapshotStore implementation
// =============================================================================

var _ engine.SnapshotStore = (*Store)(nil)

// Get returns the snapshot held for a plan, if any.
func (s *Store) Get(planID string) (*engine.DeliverySnapshot, bool) {
	row := s.db.QueryRow(`
		SELECT start_date, end_date, taken_at, months_json
		FROM delivery_snapshots WHERE plan_id = ?`, planID)

	var start, end, taken, months string
	if err := row.Scan(&start, &end, &taken, &months); err != nil {
		return nil, false
	}

	snap := engine.DeliverySnapshot{
		Key: engine.SnapshotKey{
			PlanID:        planID,
			CampaignStart: engine.ParseDate(start),
			CampaignEnd:   engine.ParseDate(end),
		},
	}
	snap.TakenAt, _ = time.Parse(time.RFC3339, taken)
	if err := json.Unmarshal([]byte(months), &snap.Months); err != nil {
		return nil, false
	}
	return &snap, true
}

// Put stores the snapshot with first-write-wins-per-key semantics. The
// read-compare-write runs under the store mutex so concurrent captures
// for the same key cannot interleave.
func (s *Store) Put(snapshot engine.DeliverySnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.Get(snapshot.Key.PlanID); ok && existing.Key.Equal(snapshot.Key) {
		return false
	}

	months, err := json.Marshal(snapshot.Months)
	if err != nil {
		return false
	}
	_, err = s.db.Exec(`
		INSERT INTO delivery_snapshots (plan_id, start_date, end_date, taken_at, months_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(plan_id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			taken_at = excluded.taken_at,
			months_json = excluded.months_json`,
		snapshot.Key.PlanID,
		snapshot.Key.CampaignStart.String(), snapshot.Key.CampaignEnd.String(),
		snapshot.TakenAt.Format(time.RFC3339), string(months),
	)
	return err == nil
}

// =============================================================================
// SAVED SCHEDULES
// =============================================================================

// SaveSchedule persists a schedule of record for document generation.
func (s *Store) SaveSchedule(ctx context.Context, campaignID uuid.UUID, kind string, months engine.Schedule) error {
	encoded, err := json.Marshal(months)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO saved_schedules (campaign_id, kind, months_json, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(campaign_id, kind) DO UPDATE SET
			months_json = excluded.months_json,
			saved_at = excluded.saved_at`,
		campaignID.String(), kind, string(encoded), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// LoadSchedule returns a previously saved schedule of record.
func (s *Store) LoadSchedule(ctx context.Context, campaignID uuid.UUID, kind string) (engine.Schedule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT months_json FROM saved_schedules WHERE campaign_id = ? AND kind = ?`,
		campaignID.String(), kind)

	var months string
	if err := row.Scan(&months); errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	var schedule engine.Schedule
	if err := json.Unmarshal([]byte(months), &schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}
