package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/leadmail/internal/model"
)

var (
	_ model.ResultStore  = (*SQLiteStore)(nil)
	_ model.ProfileStore = (*SQLiteStore)(nil)
)

// SQLiteStore persists lead results and the sender profile in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS lead_results (
	lead_key       TEXT PRIMARY KEY,
	email          TEXT NOT NULL,
	phone          TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL,
	is_entry_level INTEGER NOT NULL,
	subject        TEXT NOT NULL DEFAULT '',
	body           TEXT NOT NULL DEFAULT '',
	reason         TEXT NOT NULL DEFAULT '',
	source         TEXT NOT NULL DEFAULT '',
	err            TEXT NOT NULL DEFAULT '',
	run_id         TEXT NOT NULL DEFAULT '',
	processed_at   DATETIME NOT NULL,
	inputs         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_lead_results_run ON lead_results (run_id);
CREATE TABLE IF NOT EXISTS run_leads (
	run_id   TEXT NOT NULL,
	position INTEGER NOT NULL,
	lead_key TEXT NOT NULL,
	added_at DATETIME NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE TABLE IF NOT EXISTS profile (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	name        TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	portfolio   TEXT NOT NULL DEFAULT '',
	linkedin    TEXT NOT NULL DEFAULT '',
	figma       TEXT NOT NULL DEFAULT '',
	resume_link TEXT NOT NULL DEFAULT '',
	bio         TEXT NOT NULL DEFAULT ''
);`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// lead_results and profile tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating tables: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// migrate upgrades databases created before results carried an inputs
// fingerprint and runs had their own membership table. Old results get an
// empty fingerprint, so they are reclassified on next use.
func migrate(db *sql.DB) error {
	var n int
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('lead_results') WHERE name = 'inputs'",
	).Scan(&n); err != nil {
		return fmt.Errorf("inspecting lead_results: %w", err)
	}
	if n == 0 {
		if _, err := db.Exec("ALTER TABLE lead_results ADD COLUMN inputs TEXT NOT NULL DEFAULT ''"); err != nil {
			return fmt.Errorf("adding inputs column: %w", err)
		}
	}

	_, err := db.Exec(`INSERT INTO run_leads (run_id, position, lead_key, added_at)
		SELECT run_id, rowid, lead_key, processed_at FROM lead_results
		WHERE run_id != '' AND NOT EXISTS (SELECT 1 FROM run_leads)`)
	if err != nil {
		return fmt.Errorf("backfilling run_leads: %w", err)
	}
	return nil
}

const resultColumns = `email, phone, description, is_entry_level, subject, body, reason, source, err, run_id, processed_at, inputs`

// qualifiedResultColumns is resultColumns prefixed with the lead_results alias r.
var qualifiedResultColumns = "r." + strings.ReplaceAll(resultColumns, ", ", ", r.")

// GetResult returns the stored result for key, or nil if none exists.
func (s *SQLiteStore) GetResult(key string) (*model.LeadResult, error) {
	row := s.db.QueryRow("SELECT "+resultColumns+" FROM lead_results WHERE lead_key = ?", key)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading result %s: %w", key, err)
	}
	return &r, nil
}

// SaveResult inserts or replaces the result stored under key.
func (s *SQLiteStore) SaveResult(key string, r model.LeadResult) error {
	processedAt := r.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now()
	}
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO lead_results (lead_key, "+resultColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		key,
		r.Lead.Email,
		r.Lead.Phone,
		r.Lead.Description,
		r.Classification.IsEntryLevel,
		r.Classification.EmailSubject,
		r.Classification.EmailBody,
		r.Classification.Reason,
		r.Source,
		r.Err,
		r.RunID,
		processedAt.UTC(),
		r.Inputs,
	)
	if err != nil {
		return fmt.Errorf("saving result %s: %w", key, err)
	}
	return nil
}

// AddRunLead records the lead stored under key as the position-th lead of runID.
func (s *SQLiteStore) AddRunLead(runID string, position int, key string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO run_leads (run_id, position, lead_key, added_at) VALUES (?, ?, ?, ?)",
		runID, position, key, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording lead %s in run %s: %w", key, runID, err)
	}
	return nil
}

// ListResults returns the current stored result of every lead in runID, in the
// run's input order, including leads the run reused from earlier runs. An empty
// runID lists every stored result in processing order.
func (s *SQLiteStore) ListResults(runID string) ([]model.LeadResult, error) {
	query := "SELECT " + resultColumns + " FROM lead_results ORDER BY processed_at, rowid"
	var args []any
	if runID != "" {
		query = "SELECT " + qualifiedResultColumns + ` FROM run_leads l
			JOIN lead_results r ON r.lead_key = l.lead_key
			WHERE l.run_id = ?
			ORDER BY l.position`
		args = append(args, runID)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()

	var results []model.LeadResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}
	return results, nil
}

// ListRuns returns one summary per stored run, most recent first.
func (s *SQLiteStore) ListRuns() ([]model.RunInfo, error) {
	rows, err := s.db.Query(`SELECT l.run_id,
		COUNT(*),
		SUM(CASE WHEN r.is_entry_level = 1 AND r.err = '' THEN 1 ELSE 0 END),
		SUM(CASE WHEN r.err != '' THEN 1 ELSE 0 END),
		MIN(l.added_at)
		FROM run_leads l
		JOIN lead_results r ON r.lead_key = l.lead_key
		GROUP BY l.run_id
		ORDER BY MIN(l.added_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunInfo
	for rows.Next() {
		var (
			ri      model.RunInfo
			started string
		)
		if err := rows.Scan(&ri.RunID, &ri.Leads, &ri.EntryLevel, &ri.Failed, &started); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		ri.StartedAt = parseTime(started)
		runs = append(runs, ri)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// Aggregates lose the DATETIME column type, so MIN(added_at) comes back as
// text in the driver's time.Time.String() form.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(sc scanner) (model.LeadResult, error) {
	var r model.LeadResult
	err := sc.Scan(
		&r.Lead.Email,
		&r.Lead.Phone,
		&r.Lead.Description,
		&r.Classification.IsEntryLevel,
		&r.Classification.EmailSubject,
		&r.Classification.EmailBody,
		&r.Classification.Reason,
		&r.Source,
		&r.Err,
		&r.RunID,
		&r.ProcessedAt,
		&r.Inputs,
	)
	return r, err
}

// Cleanup deletes results processed longer ago than olderThan, along with run
// membership rows left pointing at nothing.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) error {
	cutoff := s.now().Add(-olderThan).UTC()
	_, err := s.db.Exec("DELETE FROM lead_results WHERE processed_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("cleaning up results older than %v: %w", olderThan, err)
	}
	_, err = s.db.Exec("DELETE FROM run_leads WHERE lead_key NOT IN (SELECT lead_key FROM lead_results)")
	if err != nil {
		return fmt.Errorf("cleaning up run membership: %w", err)
	}
	return nil
}

// IsEmpty returns true if no lead results are stored.
func (s *SQLiteStore) IsEmpty() (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM lead_results").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking if store is empty: %w", err)
	}
	return count == 0, nil
}

// LoadProfile returns the saved profile, or the zero Profile if none was saved.
func (s *SQLiteStore) LoadProfile() (model.Profile, error) {
	var p model.Profile
	err := s.db.QueryRow(
		"SELECT name, email, phone, portfolio, linkedin, figma, resume_link, bio FROM profile WHERE id = 1",
	).Scan(&p.Name, &p.Email, &p.Phone, &p.Portfolio, &p.LinkedIn, &p.Figma, &p.ResumeLink, &p.Bio)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, nil
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("loading profile: %w", err)
	}
	return p, nil
}

// SaveProfile replaces the stored profile. Saving the zero Profile clears it.
func (s *SQLiteStore) SaveProfile(p model.Profile) error {
	if p.IsZero() {
		if _, err := s.db.Exec("DELETE FROM profile"); err != nil {
			return fmt.Errorf("clearing profile: %w", err)
		}
		return nil
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO profile (id, name, email, phone, portfolio, linkedin, figma, resume_link, bio)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Email, p.Phone, p.Portfolio, p.LinkedIn, p.Figma, p.ResumeLink, p.Bio,
	)
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
