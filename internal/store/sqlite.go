package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/phishplay/phishplay/internal/domain"
	"github.com/phishplay/phishplay/internal/shared"
	"github.com/phishplay/phishplay/internal/telemetry"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		theme TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		phase TEXT NOT NULL DEFAULT 'pre',
		total_points INTEGER NOT NULL DEFAULT 0,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		event_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		scenario_id TEXT NOT NULL,
		phase TEXT NOT NULL,
		action TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		risk_score REAL NOT NULL,
		correct INTEGER NOT NULL,
		selected_json TEXT NOT NULL,
		points INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id, created_at);

	CREATE TABLE IF NOT EXISTS phase_summaries (
		user_id TEXT NOT NULL,
		phase TEXT NOT NULL,
		click_rate REAL NOT NULL,
		avg_response_time REAL NOT NULL,
		accuracy REAL NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, phase)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, theme, difficulty, phase, total_points,
		       last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(
		&user.UserID, &user.Username, &user.Theme, &user.Difficulty,
		&user.Phase, &user.TotalPoints,
		&lastSeen, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, theme, difficulty, phase, total_points, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, string(user.Theme), string(user.Difficulty),
		string(user.EffectivePhase()), user.TotalPoints,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// UpdateProfile updates the user's training preferences.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, userID string, theme domain.Theme, difficulty domain.Difficulty, phase domain.Phase) error {
	query := `UPDATE users SET theme = ?, difficulty = ?, phase = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query,
		string(theme), string(difficulty), string(phase), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// AddPoints adds earned points to the user's running total.
// Retries on SQLite conflicts since scoring and event writes can race.
func (s *SQLiteStore) AddPoints(ctx context.Context, userID string, points int) error {
	query := `UPDATE users SET total_points = total_points + ?, updated_at = ? WHERE user_id = ?`

	maxRetries := 3
	baseDelay := 50 * time.Millisecond
	for i := 0; i < maxRetries; i++ {
		_, err := s.db.ExecContext(ctx, query, points, time.Now().Unix(), userID)
		if err == nil {
			return nil
		}
		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // exponential backoff: 50ms, 100ms, 200ms
			slog.Debug("AddPoints hit SQLite conflict, retrying",
				"user_id", userID, "attempt", i+1, "delay", delay)
			time.Sleep(delay)
			continue
		}
		return fmt.Errorf("add points: %w", err)
	}
	return nil
}

// SaveEvent persists one telemetry event.
func (s *SQLiteStore) SaveEvent(ctx context.Context, ev telemetry.Event) error {
	selected, err := json.Marshal(ev.SelectedElements)
	if err != nil {
		return fmt.Errorf("marshal selected elements: %w", err)
	}

	query := `
	INSERT INTO events (event_id, user_id, scenario_id, phase, action, elapsed_ms,
	                    risk_score, correct, selected_json, points, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		ev.EventID, ev.UserID, ev.ScenarioID, string(ev.Phase), string(ev.Action),
		ev.ElapsedMS, ev.RiskScore, ev.Correct, string(selected), ev.Points,
		ev.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent events for a user, newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, userID string, limit int) ([]telemetry.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT event_id, user_id, scenario_id, phase, action, elapsed_ms,
		       risk_score, correct, selected_json, points, created_at
		FROM events WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close event rows", "error", closeErr)
		}
	}()

	var events []telemetry.Event
	for rows.Next() {
		var ev telemetry.Event
		var selectedJSON string
		var createdAt int64

		if err := rows.Scan(
			&ev.EventID, &ev.UserID, &ev.ScenarioID, &ev.Phase, &ev.Action,
			&ev.ElapsedMS, &ev.RiskScore, &ev.Correct, &selectedJSON, &ev.Points,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		if err := json.Unmarshal([]byte(selectedJSON), &ev.SelectedElements); err != nil {
			return nil, fmt.Errorf("unmarshal selected elements: %w", err)
		}
		ev.Timestamp = time.Unix(createdAt, 0).UTC()
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// SavePhaseSummary records the aggregate of a completed session.
func (s *SQLiteStore) SavePhaseSummary(ctx context.Context, userID string, phase domain.Phase, summary domain.PhaseSummary) error {
	query := `
	INSERT INTO phase_summaries (user_id, phase, click_rate, avg_response_time, accuracy, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, phase) DO UPDATE SET
		click_rate = excluded.click_rate,
		avg_response_time = excluded.avg_response_time,
		accuracy = excluded.accuracy,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		userID, string(phase), summary.ClickRate, summary.AvgResponseTime,
		summary.Accuracy, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert phase summary: %w", err)
	}
	return nil
}

// GetPhaseSummary retrieves the summary for a phase.
func (s *SQLiteStore) GetPhaseSummary(ctx context.Context, userID string, phase domain.Phase) (*domain.PhaseSummary, error) {
	query := `
		SELECT click_rate, avg_response_time, accuracy
		FROM phase_summaries WHERE user_id = ? AND phase = ?`

	row := s.db.QueryRowContext(ctx, query, userID, string(phase))

	var summary domain.PhaseSummary
	err := row.Scan(&summary.ClickRate, &summary.AvgResponseTime, &summary.Accuracy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan phase summary: %w", err)
	}
	return &summary, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
