package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rapid100/triage/internal/types"
)

// RecordDB is the queryable SQLite index of finalized call records.
type RecordDB struct {
	db *sql.DB
}

func NewRecordDB(dbPath string) (*RecordDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		call_id TEXT NOT NULL UNIQUE,
		predicted_class TEXT NOT NULL,
		severity TEXT NOT NULL,
		department TEXT NOT NULL,
		confidence REAL,
		finalized_at DATETIME NOT NULL,
		record_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_finalized_at ON calls(finalized_at);
	CREATE INDEX IF NOT EXISTS idx_predicted_class ON calls(predicted_class);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &RecordDB{db: db}, nil
}

// Append inserts one finalized record.
func (rdb *RecordDB) Append(snap types.CallSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal call record: %v", err)
	}

	finalizedAt := time.Now()
	if snap.FinalizedAt != nil {
		finalizedAt = *snap.FinalizedAt
	}

	query := `
	INSERT INTO calls (call_id, predicted_class, severity, department, confidence, finalized_at, record_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = rdb.db.Exec(query, snap.CallID, string(snap.PredictedClass), string(snap.Severity),
		snap.Routing.Department, snap.Confidence, finalizedAt, string(data))
	if err != nil {
		return fmt.Errorf("failed to save call record: %v", err)
	}
	return nil
}

// Get retrieves one finalized record by call id.
func (rdb *RecordDB) Get(callID string) (types.CallSnapshot, error) {
	var data string
	row := rdb.db.QueryRow(`SELECT record_json FROM calls WHERE call_id = ?`, callID)
	if err := row.Scan(&data); err != nil {
		return types.CallSnapshot{}, fmt.Errorf("failed to get call record: %v", err)
	}

	var snap types.CallSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return types.CallSnapshot{}, fmt.Errorf("failed to decode call record: %v", err)
	}
	return snap, nil
}

// List returns up to limit finalized records, most recent first.
func (rdb *RecordDB) List(limit int) ([]types.CallSnapshot, error) {
	rows, err := rdb.db.Query(`SELECT record_json FROM calls ORDER BY finalized_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list call records: %v", err)
	}
	defer rows.Close()

	var records []types.CallSnapshot
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}
		var snap types.CallSnapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			continue
		}
		records = append(records, snap)
	}
	return records, rows.Err()
}

// Close closes the database connection.
func (rdb *RecordDB) Close() error {
	return rdb.db.Close()
}
