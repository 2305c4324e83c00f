// Package db keeps a history of served predictions in SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotInitialized = errors.New("database not initialized")

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symptoms TEXT NOT NULL,
    rf_prediction TEXT NOT NULL,
    nb_prediction TEXT NOT NULL,
    svm_prediction TEXT NOT NULL,
    final_prediction TEXT NOT NULL,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
`

type PredictionRecord struct {
	ID           int64     `json:"id"`
	Symptoms     string    `json:"symptoms"`
	RandomForest string    `json:"rf_model_prediction"`
	NaiveBayes   string    `json:"naive_bayes_prediction"`
	SVM          string    `json:"svm_model_prediction"`
	Final        string    `json:"final_prediction"`
	CreatedAt    time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema failed: %w", err)
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SavePrediction records one served prediction and returns its row id.
func (s *Store) SavePrediction(ctx context.Context, record PredictionRecord) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotInitialized
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO predictions (
            symptoms, rf_prediction, nb_prediction, svm_prediction, final_prediction, created_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		record.Symptoms, record.RandomForest, record.NaiveBayes, record.SVM, record.Final, record.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentPredictions returns up to limit records, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, symptoms, rf_prediction, nb_prediction, svm_prediction, final_prediction, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		if err := rows.Scan(&r.ID, &r.Symptoms, &r.RandomForest, &r.NaiveBayes, &r.SVM, &r.Final, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
