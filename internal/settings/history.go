package settings

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dictalabs/dicta-core/internal/config"
	_ "modernc.org/sqlite"
)

// Revision is one accepted settings write.
type Revision struct {
	ID         int64
	RevisionID string
	Surface    string
	Document   []byte
	CreatedAt  time.Time
}

// History keeps an append-only log of settings revisions in SQLite so a bad
// save can be traced to the surface that made it. When disabled it degrades
// to a no-op store.
type History struct {
	db    *sql.DB
	cfg   config.HistoryConfig
	log   *slog.Logger
	clock func() time.Time
}

// OpenHistory initializes the revision log according to config.
func OpenHistory(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (*History, error) {
	if !cfg.Enabled {
		return &History{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	h := &History{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := h.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := h.db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("history vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := h.Prune(ctx); err != nil {
		log.Warn("history prune on start failed", slog.String("error", err.Error()))
	}

	return h, nil
}

func (h *History) initSchema(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS revisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    revision_id TEXT NOT NULL,
    surface TEXT,
    document BLOB NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_revisions_created ON revisions(created_at);
`
	_, err := h.db.ExecContext(ctx, ddl)
	return err
}

// Close releases the underlying database.
func (h *History) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Append records one accepted write. No-op when history is disabled.
func (h *History) Append(ctx context.Context, rev Revision) error {
	if h.db == nil {
		return nil
	}
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = h.clock().UTC()
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO revisions(revision_id, surface, document, created_at)
		 VALUES(?, ?, ?, ?)`,
		rev.RevisionID, rev.Surface, rev.Document, rev.CreatedAt)
	return err
}

// List returns up to limit revisions, newest first.
func (h *History) List(ctx context.Context, limit int) ([]Revision, error) {
	if h.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, revision_id, surface, document, created_at
		 FROM revisions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		var r Revision
		var created string
		if err := rows.Scan(&r.ID, &r.RevisionID, &r.Surface, &r.Document, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = ts
		}
		revisions = append(revisions, r)
	}
	return revisions, rows.Err()
}

// Prune applies the configured retention: revisions older than
// retention_days are dropped, then the log is capped at max_revisions.
func (h *History) Prune(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if h.cfg.RetentionDays > 0 {
		cutoff := h.clock().Add(-time.Duration(h.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM revisions WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if h.cfg.MaxRevisions > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM revisions WHERE id IN (
			SELECT id FROM revisions ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?
		)`, h.cfg.MaxRevisions)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
