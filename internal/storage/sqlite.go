package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tazhate/pillbot/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

const (
	keyReminders      = "reminders"
	keyLastReschedule = "last_reschedule"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS triggers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT DEFAULT '',
			fire_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			delivered_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_triggers_fire_at ON triggers(fire_at)`,
		`CREATE INDEX IF NOT EXISTS idx_triggers_delivered ON triggers(delivered_at)`,
		// Delivery attempts for the dispatcher
		`ALTER TABLE triggers ADD COLUMN attempts INTEGER DEFAULT 0`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Settings ===

func (s *Storage) getSetting(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Storage) setSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	return err
}

func (s *Storage) deleteSetting(key string) error {
	_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// === Reminders ===

// LoadReminders returns the stored reminder list. A missing or unreadable
// list is logged and treated as empty.
func (s *Storage) LoadReminders() []domain.Reminder {
	reminders, err := s.ReadReminders()
	if err != nil {
		log.Printf("Error loading reminders: %v", err)
		return []domain.Reminder{}
	}
	return reminders
}

// ReadReminders is LoadReminders for callers that write the list back: a
// database error is returned instead of an empty list. A value that does
// not decode still counts as empty.
func (s *Storage) ReadReminders() ([]domain.Reminder, error) {
	value, ok, err := s.getSetting(keyReminders)
	if err != nil {
		return nil, fmt.Errorf("read reminders: %w", err)
	}
	if !ok {
		log.Printf("No stored reminders")
		return []domain.Reminder{}, nil
	}

	var reminders []domain.Reminder
	if err := json.Unmarshal([]byte(value), &reminders); err != nil {
		log.Printf("Error decoding reminders: %v", err)
		return []domain.Reminder{}, nil
	}
	if reminders == nil {
		return []domain.Reminder{}, nil
	}
	return reminders, nil
}

// SaveReminders replaces the stored reminder list
func (s *Storage) SaveReminders(reminders []domain.Reminder) error {
	if reminders == nil {
		reminders = []domain.Reminder{}
	}
	data, err := json.Marshal(reminders)
	if err != nil {
		return fmt.Errorf("encode reminders: %w", err)
	}
	if err := s.setSetting(keyReminders, string(data)); err != nil {
		return fmt.Errorf("save reminders: %w", err)
	}
	return nil
}

// LastReschedule returns when the pending triggers were last rebuilt
func (s *Storage) LastReschedule() (time.Time, bool) {
	value, ok, err := s.getSetting(keyLastReschedule)
	if err != nil {
		log.Printf("Error loading last reschedule: %v", err)
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		log.Printf("Error parsing last reschedule %q: %v", value, err)
		return time.Time{}, false
	}
	return t, true
}

func (s *Storage) SetLastReschedule(t time.Time) error {
	return s.setSetting(keyLastReschedule, t.UTC().Format(time.RFC3339Nano))
}

// ClearLastReschedule forgets the timestamp so the next staleness check resets
func (s *Storage) ClearLastReschedule() error {
	return s.deleteSetting(keyLastReschedule)
}

// === Triggers ===

// CreateTrigger stores a pending trigger; fire times are kept in UTC so they compare as text
func (s *Storage) CreateTrigger(t *domain.Trigger) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO triggers (id, title, body, fire_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Body, t.FireAt.UTC(), t.CreatedAt.UTC(),
	)
	return err
}

func (s *Storage) GetTrigger(id string) (*domain.Trigger, error) {
	t := &domain.Trigger{}
	err := s.db.QueryRow(
		`SELECT id, title, body, fire_at, created_at, delivered_at FROM triggers WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.Title, &t.Body, &t.FireAt, &t.CreatedAt, &t.DeliveredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ListPendingTriggers returns undelivered triggers ordered by fire time
func (s *Storage) ListPendingTriggers() ([]*domain.Trigger, error) {
	return s.queryTriggers(
		`SELECT id, title, body, fire_at, created_at, delivered_at FROM triggers
		 WHERE delivered_at IS NULL ORDER BY fire_at, created_at`,
	)
}

// ListDueTriggers returns undelivered triggers with fire time at or before now
func (s *Storage) ListDueTriggers(now time.Time) ([]*domain.Trigger, error) {
	return s.queryTriggers(
		`SELECT id, title, body, fire_at, created_at, delivered_at FROM triggers
		 WHERE delivered_at IS NULL AND fire_at <= ? ORDER BY fire_at, created_at`,
		now.UTC(),
	)
}

func (s *Storage) MarkTriggerDelivered(id string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE triggers SET delivered_at = ? WHERE id = ?`, at.UTC(), id)
	return err
}

// IncrementTriggerAttempts records a failed delivery and returns the new attempt count
func (s *Storage) IncrementTriggerAttempts(id string) (int, error) {
	if _, err := s.db.Exec(`UPDATE triggers SET attempts = attempts + 1 WHERE id = ?`, id); err != nil {
		return 0, err
	}
	var attempts int
	err := s.db.QueryRow(`SELECT attempts FROM triggers WHERE id = ?`, id).Scan(&attempts)
	return attempts, err
}

// DeletePendingTriggers removes every undelivered trigger and returns how many were removed
func (s *Storage) DeletePendingTriggers() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM triggers WHERE delivered_at IS NULL`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteDeliveredBefore prunes delivered triggers older than t
func (s *Storage) DeleteDeliveredBefore(t time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM triggers WHERE delivered_at IS NOT NULL AND delivered_at < ?`, t.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Storage) queryTriggers(query string, args ...any) ([]*domain.Trigger, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var triggers []*domain.Trigger
	for rows.Next() {
		t := &domain.Trigger{}
		if err := rows.Scan(&t.ID, &t.Title, &t.Body, &t.FireAt, &t.CreatedAt, &t.DeliveredAt); err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}
