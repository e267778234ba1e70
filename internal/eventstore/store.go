package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/borough-labs/concierge/internal/config"
	_ "modernc.org/sqlite"
)

// Event is one recorded step of an interaction: a stage transition, an
// outcome, or a failure. Detail never contains audio payloads or the
// credential, only operator-facing text.
type Event struct {
	ID            int64
	InteractionID string
	Stage         string
	Type          string
	Detail        string
	CreatedAt     time.Time
}

// Store is a SQLite-backed diagnostic timeline of pipeline interactions.
// With retention_mode=ephemeral it degrades to a no-op.
type Store struct {
	db    *sql.DB
	cfg   config.EventStoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the event store according to config.
func Open(ctx context.Context, cfg config.EventStoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("event store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("event store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS interactions (
    interaction_id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    interaction_id TEXT NOT NULL,
    stage TEXT,
    event_type TEXT,
    detail TEXT,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(interaction_id) REFERENCES interactions(interaction_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_events_interaction_created ON events(interaction_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginInteraction ensures an interaction row exists.
func (s *Store) BeginInteraction(ctx context.Context, interactionID string) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions(interaction_id, created_at)
		 VALUES(?, ?)
		 ON CONFLICT(interaction_id) DO NOTHING`,
		interactionID, s.clock().UTC())
	return err
}

// AppendEvent writes one timeline entry.
func (s *Store) AppendEvent(ctx context.Context, evt Event) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(interaction_id, stage, event_type, detail, created_at)
		 VALUES(?, ?, ?, ?, ?)`,
		evt.InteractionID, evt.Stage, evt.Type, evt.Detail, evt.CreatedAt)
	return err
}

// ListInteractionEvents retrieves up to limit events for one interaction,
// oldest first.
func (s *Store) ListInteractionEvents(ctx context.Context, interactionID string, limit int) ([]Event, error) {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, interaction_id, stage, event_type, detail, created_at
		 FROM events WHERE interaction_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`, interactionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var created string
		if err := rows.Scan(&e.ID, &e.InteractionID, &e.Stage, &e.Type, &e.Detail, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune applies configured retention; called on startup.
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM interactions WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxInteractions > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM interactions WHERE interaction_id IN (
			SELECT interaction_id FROM interactions ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxInteractions)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
