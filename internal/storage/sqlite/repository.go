package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"connections-exporter/internal/checksum"
	"connections-exporter/internal/observability"
	"connections-exporter/internal/storage"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS sessions (
	"id" TEXT NOT NULL PRIMARY KEY,
	"target_url" TEXT NOT NULL,
	"listing_url" TEXT NOT NULL DEFAULT '',
	"current_page" INTEGER NOT NULL DEFAULT 0,
	"status" TEXT NOT NULL,
	"reason" TEXT NOT NULL DEFAULT '',
	"auto_start" BOOLEAN NOT NULL DEFAULT 0,
	"started_at" TEXT NOT NULL,
	"updated_at" TEXT NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS connections (
	"session_id" TEXT NOT NULL,
	"seq" INTEGER NOT NULL,
	"profile_url" TEXT NOT NULL,
	"name" TEXT NOT NULL,
	"title" TEXT NOT NULL DEFAULT '',
	"location" TEXT NOT NULL DEFAULT '',
	"checksum" TEXT NOT NULL,
	PRIMARY KEY (session_id, profile_url)
);`,
}

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
	checksum       *checksum.Generator
	now            func() time.Time
}

func NewRepository(dsn string, commandTimeoutMS int, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Один писатель; для ":memory:" ещё и одна база на соединение
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Repository{
		db:             db,
		commandTimeout: time.Duration(commandTimeoutMS) * time.Millisecond,
		logger:         logger,
		checksum:       checksum.NewGenerator(),
		now:            time.Now,
	}, nil
}

func (r *Repository) Create(ctx context.Context, session *storage.Session) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer r.rollback(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM connections`); err != nil {
		return fmt.Errorf("failed to clear connections: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, target_url, listing_url, current_page, status, reason, auto_start, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.TargetURL, session.ListingURL, session.CurrentPageIndex,
		string(session.Status), session.Reason, session.AutoStart,
		formatTime(session.StartedAt), formatTime(r.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	if len(session.Records) > 0 {
		if _, err := r.insertRecords(ctx, tx, session.ID, session.Records); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) Load(ctx context.Context) (*storage.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var (
		s         storage.Session
		status    string
		startedAt string
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, target_url, listing_url, current_page, status, reason, auto_start, started_at, updated_at
		FROM sessions ORDER BY started_at DESC LIMIT 1`,
	).Scan(&s.ID, &s.TargetURL, &s.ListingURL, &s.CurrentPageIndex, &status, &s.Reason, &s.AutoStart, &startedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNoSession
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	s.Status = storage.Status(status)
	s.StartedAt = parseTime(startedAt)
	s.UpdatedAt = parseTime(updatedAt)

	rows, err := r.db.QueryContext(ctx, `
		SELECT name, title, location, profile_url, checksum
		FROM connections WHERE session_id = ? ORDER BY seq`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err.Error())
		}
	}()

	for rows.Next() {
		var (
			rec  storage.ConnectionRecord
			hash string
		)
		if err := rows.Scan(&rec.Name, &rec.Title, &rec.Location, &rec.ProfileURL, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		// Строка, изменённая в обход приложения, всё равно выгружается
		if !r.checksum.VerifyRecordHash(hash, rec.ProfileURL, rec.Name, rec.Title, rec.Location) {
			r.logger.Warn("Connection checksum mismatch", "profile_url", rec.ProfileURL)
		}
		s.Records = append(s.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read connections: %w", err)
	}

	return &s, nil
}

func (r *Repository) MergeRecords(ctx context.Context, records []storage.ConnectionRecord) (storage.MergeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.MergeResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer r.rollback(tx)

	id, err := sessionID(ctx, tx)
	if err != nil {
		return storage.MergeResult{}, err
	}

	result, err := r.insertRecords(ctx, tx, id, records)
	if err != nil {
		return storage.MergeResult{}, err
	}
	if err := touch(ctx, tx, id, r.now()); err != nil {
		return storage.MergeResult{}, err
	}

	return result, tx.Commit()
}

// insertRecords вставляет записи, пропуская уже известные profile_url.
func (r *Repository) insertRecords(ctx context.Context, tx *sql.Tx, id string, records []storage.ConnectionRecord) (storage.MergeResult, error) {
	var result storage.MergeResult

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), -1) + 1 FROM connections WHERE session_id = ?`, id).Scan(&next); err != nil {
		return result, fmt.Errorf("failed to query sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO connections (session_id, seq, profile_url, name, title, location, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, profile_url) DO NOTHING`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	for _, rec := range records {
		res, err := stmt.ExecContext(ctx, id, next, rec.ProfileURL, rec.Name, rec.Title, rec.Location,
			r.checksum.RecordHash(rec.ProfileURL, rec.Name, rec.Title, rec.Location))
		if err != nil {
			return result, fmt.Errorf("failed to insert connection: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected > 0 {
			result.Added++
			next++
		} else {
			result.Duplicates++
		}
	}

	return result, nil
}

func (r *Repository) AdvancePage(ctx context.Context, listingURL string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var page int
	err := r.db.QueryRowContext(ctx, `
		UPDATE sessions
		SET current_page = current_page + 1,
			listing_url = CASE WHEN ? <> '' THEN ? ELSE listing_url END,
			updated_at = ?
		RETURNING current_page`,
		listingURL, listingURL, formatTime(r.now()),
	).Scan(&page)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNoSession
		}
		return 0, fmt.Errorf("failed to advance page: %w", err)
	}
	return page, nil
}

func (r *Repository) SetStatus(ctx context.Context, status storage.Status, reason string) error {
	return r.update(ctx, `UPDATE sessions SET status = ?, reason = ?, updated_at = ?`,
		string(status), reason, formatTime(r.now()))
}

func (r *Repository) SetAutoStart(ctx context.Context, autoStart bool) error {
	return r.update(ctx, `UPDATE sessions SET auto_start = ?, updated_at = ?`,
		autoStart, formatTime(r.now()))
}

func (r *Repository) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM connections`); err != nil {
		return fmt.Errorf("failed to delete connections: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

// Close закрывает соединение с БД
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) update(ctx context.Context, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNoSession
	}
	return nil
}

func (r *Repository) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		r.logger.Error("Failed to rollback transaction", "error", err.Error())
	}
}

func sessionID(ctx context.Context, tx *sql.Tx) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM sessions ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNoSession
		}
		return "", fmt.Errorf("failed to query session: %w", err)
	}
	return id, nil
}

func touch(ctx context.Context, tx *sql.Tx, id string, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, formatTime(now), id); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
