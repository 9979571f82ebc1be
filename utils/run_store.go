package utils

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	ml "github.com/annolab-ml/annolab-go/pipelines/ML"
)

// RunStore persists pipeline runs, label mappings and evaluation metrics in
// SQLite. Label mappings must outlive the process because inference needs to
// invert dense labels back to the original category codes.
type RunStore struct {
	db   *sql.DB
	path string
}

// RunRecord describes one recorded pipeline run
type RunRecord struct {
	ID        string    `json:"id"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	RowsIn    int       `json:"rows_in"`
	RowsOut   int       `json:"rows_out"`
	ModelID   string    `json:"model_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.New().String()
}

// NewRunStore opens (creating if needed) the store at the given path
func NewRunStore(dbPath string) (*RunStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &RunStore{db: db, path: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// initSchema creates the tables if they do not exist
func (s *RunStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		stage TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		rows_in INTEGER NOT NULL DEFAULT 0,
		rows_out INTEGER NOT NULL DEFAULT 0,
		model_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS label_mappings (
		run_id TEXT NOT NULL,
		category TEXT NOT NULL,
		mapping TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, category)
	);
	CREATE TABLE IF NOT EXISTS metrics (
		run_id TEXT PRIMARY KEY,
		model_id TEXT NOT NULL DEFAULT '',
		metrics TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *RunStore) Close() error {
	return s.db.Close()
}

// RecordRun inserts a run record
func (s *RunStore) RecordRun(record RunRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, stage, status, error, rows_in, rows_out, model_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Stage, record.Status, record.Error,
		record.RowsIn, record.RowsOut, record.ModelID, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// GetRun fetches a run record by ID
func (s *RunStore) GetRun(id string) (*RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, stage, status, error, rows_in, rows_out, model_id, created_at
		 FROM runs WHERE id = ?`, id)

	var record RunRecord
	err := row.Scan(&record.ID, &record.Stage, &record.Status, &record.Error,
		&record.RowsIn, &record.RowsOut, &record.ModelID, &record.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run: %w", err)
	}
	return &record, nil
}

// SaveLabelMapping persists a label mapping for a run
func (s *RunStore) SaveLabelMapping(runID string, mapping *ml.LabelMapping) error {
	payload, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal label mapping: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO label_mappings (run_id, category, mapping, created_at)
		 VALUES (?, ?, ?, ?)`,
		runID, mapping.Category, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save label mapping: %w", err)
	}
	return nil
}

// LatestLabelMapping returns the most recently saved mapping for a category
func (s *RunStore) LatestLabelMapping(category string) (*ml.LabelMapping, error) {
	row := s.db.QueryRow(
		`SELECT mapping FROM label_mappings WHERE category = ?
		 ORDER BY created_at DESC LIMIT 1`, category)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no label mapping stored for category %s", category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch label mapping: %w", err)
	}

	var mapping ml.LabelMapping
	if err := json.Unmarshal([]byte(payload), &mapping); err != nil {
		return nil, fmt.Errorf("failed to unmarshal label mapping: %w", err)
	}
	return &mapping, nil
}

// SaveMetrics persists evaluation metrics for a run
func (s *RunStore) SaveMetrics(runID, modelID string, metrics *ml.EvaluationMetrics) error {
	payload, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO metrics (run_id, model_id, metrics, created_at)
		 VALUES (?, ?, ?, ?)`,
		runID, modelID, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save metrics: %w", err)
	}
	return nil
}

// GetMetrics fetches evaluation metrics for a run
func (s *RunStore) GetMetrics(runID string) (*ml.EvaluationMetrics, string, error) {
	row := s.db.QueryRow(`SELECT model_id, metrics FROM metrics WHERE run_id = ?`, runID)

	var modelID, payload string
	err := row.Scan(&modelID, &payload)
	if err == sql.ErrNoRows {
		return nil, "", fmt.Errorf("no metrics stored for run %s", runID)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch metrics: %w", err)
	}

	var metrics ml.EvaluationMetrics
	if err := json.Unmarshal([]byte(payload), &metrics); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	return &metrics, modelID, nil
}
