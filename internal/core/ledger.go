package core

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// SessionRecord is one append-only audit entry: the metadata of a completed
// analysis run. Records are never updated or deleted.
type SessionRecord struct {
	ID             int64   `json:"id"`
	CaseNumber     string  `json:"case_number"`
	InvestigatorID string  `json:"investigator_id"`
	Device         string  `json:"device"`
	Timestamp      string  `json:"timestamp"` // RFC 3339
	CSVPath        string  `json:"csv_path"`
	HashPath       string  `json:"hash_path"`
	Workflow       string  `json:"workflow"`
	FinalScore     float64 `json:"final_score"`
}

const createSessionsSQL = `CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	case_number TEXT,
	investigator_id TEXT,
	device TEXT,
	timestamp TEXT,
	csv_path TEXT,
	hash_path TEXT,
	workflow TEXT,
	final_score REAL
)`

// Ledger is the append-only session store. Each append is one row in one
// transaction; concurrent runs serialize on the database, nothing else.
type Ledger struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// OpenLedger opens (creating if missing) the session database and ensures the
// schema exists. Schema creation is idempotent.
func OpenLedger(path string, logger zerolog.Logger) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &PersistenceError{Op: "create dir", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &PersistenceError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "connect", Err: err}
	}
	if _, err := db.Exec(createSessionsSQL); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "create schema", Err: err}
	}

	return &Ledger{
		db:     db,
		path:   path,
		logger: logger.With().Str("component", "session_ledger").Logger(),
	}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Path returns the ledger database file path.
func (l *Ledger) Path() string { return l.path }

// Append inserts one session record. The record's ID and Timestamp are filled
// in; there is no update or delete counterpart.
func (l *Ledger) Append(rec *SessionRecord) error {
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().Format(time.RFC3339)
	}

	tx, err := l.db.Begin()
	if err != nil {
		return &PersistenceError{Op: "begin", Err: err}
	}

	res, err := tx.Exec(
		`INSERT INTO sessions
			(case_number, investigator_id, device, timestamp, csv_path, hash_path, workflow, final_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CaseNumber, rec.InvestigatorID, rec.Device, rec.Timestamp,
		rec.CSVPath, rec.HashPath, rec.Workflow, rec.FinalScore,
	)
	if err != nil {
		tx.Rollback()
		return &PersistenceError{Op: "insert", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit", Err: err}
	}

	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}

	l.logger.Info().
		Int64("id", rec.ID).
		Str("case", rec.CaseNumber).
		Str("investigator", rec.InvestigatorID).
		Str("workflow", rec.Workflow).
		Msg("session logged")

	return nil
}

// Query returns session records newest first, optionally filtered by
// investigator and/or workflow. Pass "" to skip a filter.
func (l *Ledger) Query(investigatorID, workflow string) ([]SessionRecord, error) {
	query := `SELECT id, case_number, investigator_id, device, timestamp,
		csv_path, hash_path, workflow, final_score FROM sessions`
	var (
		where []string
		args  []interface{}
	)
	if investigatorID != "" {
		where = append(where, "investigator_id = ?")
		args = append(args, investigatorID)
	}
	if workflow != "" {
		where = append(where, "workflow = ?")
		args = append(args, workflow)
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY id DESC"

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, &PersistenceError{Op: "query", Err: err}
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(
			&rec.ID, &rec.CaseNumber, &rec.InvestigatorID, &rec.Device,
			&rec.Timestamp, &rec.CSVPath, &rec.HashPath, &rec.Workflow, &rec.FinalScore,
		); err != nil {
			return nil, &PersistenceError{Op: "scan", Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "iterate", Err: err}
	}
	return records, nil
}

// ByID returns a single session record.
func (l *Ledger) ByID(id int64) (*SessionRecord, error) {
	var rec SessionRecord
	err := l.db.QueryRow(
		`SELECT id, case_number, investigator_id, device, timestamp,
			csv_path, hash_path, workflow, final_score
		 FROM sessions WHERE id = ?`, id,
	).Scan(
		&rec.ID, &rec.CaseNumber, &rec.InvestigatorID, &rec.Device,
		&rec.Timestamp, &rec.CSVPath, &rec.HashPath, &rec.Workflow, &rec.FinalScore,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %d not found", id)
	}
	if err != nil {
		return nil, &PersistenceError{Op: "query", Err: err}
	}
	return &rec, nil
}

// Count returns the number of recorded sessions.
func (l *Ledger) Count() (int64, error) {
	var n int64
	if err := l.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0, &PersistenceError{Op: "count", Err: err}
	}
	return n, nil
}
