package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"skillup/pkg/schema"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		userId TEXT NOT NULL,
		type TEXT NOT NULL,
		topic TEXT NOT NULL,
		trainerName TEXT NOT NULL,
		report TEXT NOT NULL,
		createdAt INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS feedback_user ON feedback(userId, createdAt);
`

// SQLiteStore keeps records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec *schema.FeedbackRecord) error {
	if err := prepare(rec); err != nil {
		return err
	}
	report, err := json.Marshal(rec.Feedback)
	if err != nil {
		return fmt.Errorf("marshal feedback report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, userId, type, topic, trainerName, report, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, string(rec.Type), rec.Topic, rec.TrainerName, string(report), rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]schema.FeedbackRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, userId, type, topic, trainerName, report, createdAt
		FROM feedback
		WHERE userId = ?
		ORDER BY createdAt DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	recs := []schema.FeedbackRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, userID, id string) (*schema.FeedbackRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, userId, type, topic, trainerName, report, createdAt
		FROM feedback
		WHERE id = ? AND userId = ?
	`, id, userID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *SQLiteStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = ? AND userId = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*schema.FeedbackRecord, error) {
	var rec schema.FeedbackRecord
	var mode, report string
	var createdAt int64
	if err := row.Scan(&rec.ID, &rec.UserID, &mode, &rec.Topic, &rec.TrainerName, &report, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan feedback: %w", err)
	}
	rec.Type = schema.Mode(mode)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal([]byte(report), &rec.Feedback); err != nil {
		return nil, fmt.Errorf("decode feedback report %s: %w", rec.ID, err)
	}
	return &rec, nil
}
