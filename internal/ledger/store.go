// Package ledger is the durable run history: an append-only record of
// every completed run, queried by the dedupe gate and the asset resolver
// for exclusion windows. Writes are idempotent on run ID.
package ledger

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	scope         TEXT NOT NULL,
	primary_tag   TEXT NOT NULL,
	stat_hash     TEXT,
	takeaway      TEXT NOT NULL,
	takeaway_vec  BLOB,
	anchors_json  TEXT,
	script_pass   INTEGER NOT NULL,
	dropped_lines INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS asset_usage (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL REFERENCES runs(run_id),
	entry_id     TEXT NOT NULL,
	kind         TEXT NOT NULL,
	category     TEXT,
	window_start REAL NOT NULL,
	window_end   REAL NOT NULL,
	used_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_scope   ON runs(scope, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_usage_entry  ON asset_usage(kind, entry_id, used_at DESC);
`

// timeLayout is fixed-width so stored timestamps compare correctly as
// strings. RFC3339Nano trims trailing fractional zeros, which breaks
// lexicographic ordering in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the run history in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the ledger database and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append commits one run. The insert is idempotent on run ID: a duplicate
// commit leaves exactly one stored record and returns a LedgerWriteConflict
// marker the caller logs but does not treat as an error.
func (s *Store) Append(entry model.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	anchorsJSON, err := json.Marshal(entry.ProofAnchors)
	if err != nil {
		return fmt.Errorf("marshal anchors: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (run_id, scope, primary_tag, stat_hash, takeaway, takeaway_vec,
		                   anchors_json, script_pass, dropped_lines, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO NOTHING`,
		entry.RunID, entry.Scope, entry.PrimaryTag, nullable(entry.StatHash),
		entry.Takeaway, encodeVec(entry.TakeawayVec), string(anchorsJSON),
		boolInt(entry.ScriptPass), entry.DroppedLines,
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		// Run already committed. Usage rows from the first commit stand;
		// inserting them again would double-count future exclusion queries.
		return model.NewError(model.KindLedgerWriteConflict, "ledger",
			"run %s already committed", entry.RunID)
	}

	for _, u := range entry.Assets {
		if _, err := tx.Exec(
			`INSERT INTO asset_usage (run_id, entry_id, kind, category, window_start, window_end, used_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.RunID, u.EntryID, string(u.Kind), u.Category,
			u.WindowStart, u.WindowEnd,
			entry.CreatedAt.UTC().Format(timeLayout),
		); err != nil {
			return fmt.Errorf("insert usage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecentScopedTags returns the primary tags of the last n runs in scope,
// most recent first.
func (s *Store) RecentScopedTags(scope string, n int) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT primary_tag FROM runs WHERE scope = ? ORDER BY created_at DESC LIMIT ?`,
		scope, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query scoped tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// RecentStatHashes returns the stat hashes of the last m runs globally.
func (s *Store) RecentStatHashes(m int) (map[string]bool, error) {
	rows, err := s.db.Query(
		`SELECT stat_hash FROM runs WHERE stat_hash IS NOT NULL ORDER BY created_at DESC LIMIT ?`, m,
	)
	if err != nil {
		return nil, fmt.Errorf("query stat hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]bool)
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan stat hash: %w", err)
		}
		hashes[h] = true
	}
	return hashes, rows.Err()
}

// RecentTakeaways returns the last k takeaways with stored embeddings.
func (s *Store) RecentTakeaways(k int) ([]model.TakeawayRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, takeaway, takeaway_vec FROM runs ORDER BY created_at DESC LIMIT ?`, k,
	)
	if err != nil {
		return nil, fmt.Errorf("query takeaways: %w", err)
	}
	defer rows.Close()

	var records []model.TakeawayRecord
	for rows.Next() {
		var rec model.TakeawayRecord
		var vec []byte
		if err := rows.Scan(&rec.RunID, &rec.Takeaway, &vec); err != nil {
			return nil, fmt.Errorf("scan takeaway: %w", err)
		}
		rec.Vec = decodeVec(vec)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CoveredAnchors returns every paragraph ID a past run in scope has
// already claimed. The dedupe gate's micro-claim fallback avoids these.
func (s *Store) CoveredAnchors(scope string) (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT anchors_json FROM runs WHERE scope = ?`, scope)
	if err != nil {
		return nil, fmt.Errorf("query anchors: %w", err)
	}
	defer rows.Close()

	covered := make(map[string]bool)
	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan anchors: %w", err)
		}
		if !raw.Valid || raw.String == "" {
			continue
		}
		var anchors []string
		if err := json.Unmarshal([]byte(raw.String), &anchors); err != nil {
			continue // tolerate pre-schema rows
		}
		for _, a := range anchors {
			covered[a] = true
		}
	}
	return covered, rows.Err()
}

// UsageSince returns, per entry ID of the given kind, the most recent use
// time and the number of uses at or after the cutoff.
func (s *Store) UsageSince(kind model.MediaKind, since time.Time) (map[string]time.Time, map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT entry_id, used_at FROM asset_usage WHERE kind = ? AND used_at >= ?`,
		string(kind), since.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	last := make(map[string]time.Time)
	count := make(map[string]int)
	for rows.Next() {
		var id, usedAt string
		if err := rows.Scan(&id, &usedAt); err != nil {
			return nil, nil, fmt.Errorf("scan usage: %w", err)
		}
		t, err := time.Parse(timeLayout, usedAt)
		if err != nil {
			continue
		}
		if t.After(last[id]) {
			last[id] = t
		}
		count[id]++
	}
	return last, count, rows.Err()
}

// List returns the most recent runs, newest first, for inspection.
func (s *Store) List(limit int) ([]model.LedgerEntry, error) {
	rows, err := s.db.Query(
		`SELECT run_id, scope, primary_tag, COALESCE(stat_hash, ''), takeaway,
		        script_pass, dropped_lines, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var pass int
		var createdAt string
		if err := rows.Scan(&e.RunID, &e.Scope, &e.PrimaryTag, &e.StatHash,
			&e.Takeaway, &pass, &e.DroppedLines, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.SchemaVersion = model.SchemaVersion
		e.ScriptPass = pass != 0
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// encodeVec packs a float32 vector into a little-endian BLOB.
func encodeVec(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVec unpacks a BLOB written by encodeVec.
func decodeVec(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
