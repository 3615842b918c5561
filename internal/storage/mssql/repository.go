package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"connections-exporter/internal/checksum"
	"connections-exporter/internal/observability"
	"connections-exporter/internal/storage"
)

var schema = []string{`
IF OBJECT_ID(N'dbo.TblSessions', N'U') IS NULL
CREATE TABLE dbo.TblSessions (
	[ID] NVARCHAR(64) NOT NULL PRIMARY KEY,
	[TargetURL] NVARCHAR(2048) NOT NULL,
	[ListingURL] NVARCHAR(2048) NOT NULL DEFAULT '',
	[CurrentPage] INT NOT NULL DEFAULT 0,
	[Status] NVARCHAR(16) NOT NULL,
	[Reason] NVARCHAR(64) NOT NULL DEFAULT '',
	[AutoStart] BIT NOT NULL DEFAULT 0,
	[StartedAt] DATETIME2 NOT NULL,
	[UpdatedAt] DATETIME2 NOT NULL
)`, `
IF OBJECT_ID(N'dbo.TblConnections', N'U') IS NULL
CREATE TABLE dbo.TblConnections (
	[SessionID] NVARCHAR(64) NOT NULL,
	[SequenceNum] INT NOT NULL,
	[ProfileURL] NVARCHAR(900) NOT NULL,
	[Name] NVARCHAR(512) NOT NULL,
	[Title] NVARCHAR(1024) NOT NULL DEFAULT '',
	[Location] NVARCHAR(512) NOT NULL DEFAULT '',
	[CheckSum] CHAR(64) NOT NULL,
	CONSTRAINT PK_TblConnections PRIMARY KEY ([SessionID], [ProfileURL])
)`,
}

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
	checksum       *checksum.Generator
}

func NewRepository(dsn string, commandTimeoutMS int, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Тестируем соединение
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
	}, nil
}

// Create заменяет текущую сессию новой
func (r *Repository) Create(ctx context.Context, session *storage.Session) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer r.rollback(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM TblConnections; DELETE FROM TblSessions;`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO TblSessions ([ID], [TargetURL], [ListingURL], [CurrentPage], [Status], [Reason], [AutoStart], [StartedAt], [UpdatedAt])
		VALUES (@ID, @TargetURL, @ListingURL, @CurrentPage, @Status, @Reason, @AutoStart, @StartedAt, SYSUTCDATETIME())`,
		sql.Named("ID", session.ID),
		sql.Named("TargetURL", session.TargetURL),
		sql.Named("ListingURL", session.ListingURL),
		sql.Named("CurrentPage", session.CurrentPageIndex),
		sql.Named("Status", string(session.Status)),
		sql.Named("Reason", session.Reason),
		sql.Named("AutoStart", session.AutoStart),
		sql.Named("StartedAt", session.StartedAt.UTC()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	if len(session.Records) > 0 {
		if _, err := r.mergeRecords(ctx, tx, session.ID, session.Records); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Load возвращает сессию вместе с записями в порядке обнаружения
func (r *Repository) Load(ctx context.Context) (*storage.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var (
		s      storage.Session
		status string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT TOP 1 [ID], [TargetURL], [ListingURL], [CurrentPage], [Status], [Reason], [AutoStart], [StartedAt], [UpdatedAt]
		FROM TblSessions ORDER BY [StartedAt] DESC`,
	).Scan(&s.ID, &s.TargetURL, &s.ListingURL, &s.CurrentPageIndex, &status, &s.Reason, &s.AutoStart, &s.StartedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNoSession
		}
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	s.Status = storage.Status(status)

	rows, err := r.db.QueryContext(ctx, `
		SELECT [Name], [Title], [Location], [ProfileURL]
		FROM TblConnections WHERE [SessionID] = @SessionID ORDER BY [SequenceNum]`,
		sql.Named("SessionID", s.ID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err.Error())
		}
	}()

	for rows.Next() {
		var rec storage.ConnectionRecord
		if err := rows.Scan(&rec.Name, &rec.Title, &rec.Location, &rec.ProfileURL); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		s.Records = append(s.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read connections: %w", err)
	}

	return &s, nil
}

// MergeRecords сохраняет новые записи, существующие не трогает
func (r *Repository) MergeRecords(ctx context.Context, records []storage.ConnectionRecord) (storage.MergeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.MergeResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer r.rollback(tx)

	var id string
	err = tx.QueryRowContext(ctx, `SELECT TOP 1 [ID] FROM TblSessions ORDER BY [StartedAt] DESC`).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MergeResult{}, storage.ErrNoSession
		}
		return storage.MergeResult{}, fmt.Errorf("failed to query database: %w", err)
	}

	result, err := r.mergeRecords(ctx, tx, id, records)
	if err != nil {
		return storage.MergeResult{}, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE TblSessions SET [UpdatedAt] = SYSUTCDATETIME() WHERE [ID] = @ID`, sql.Named("ID", id)); err != nil {
		return storage.MergeResult{}, fmt.Errorf("failed to update session: %w", err)
	}

	return result, tx.Commit()
}

func (r *Repository) mergeRecords(ctx context.Context, tx *sql.Tx, id string, records []storage.ConnectionRecord) (storage.MergeResult, error) {
	var result storage.MergeResult

	// MERGE statement для MS SQL: вставка только отсутствующих
	query := `
		MERGE INTO TblConnections WITH (HOLDLOCK) AS target
		USING (SELECT @SessionID AS SessionID, @ProfileURL AS ProfileURL) AS source
		ON target.[SessionID] = source.SessionID AND target.[ProfileURL] = source.ProfileURL
		WHEN NOT MATCHED THEN
			INSERT ([SessionID], [SequenceNum], [ProfileURL], [Name], [Title], [Location], [CheckSum])
			VALUES (@SessionID,
				(SELECT COALESCE(MAX([SequenceNum]), -1) + 1 FROM TblConnections WHERE [SessionID] = @SessionID),
				@ProfileURL, @Name, @Title, @Location, @CheckSum);
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return result, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	for _, rec := range records {
		res, err := stmt.ExecContext(ctx,
			sql.Named("SessionID", id),
			sql.Named("ProfileURL", rec.ProfileURL),
			sql.Named("Name", rec.Name),
			sql.Named("Title", rec.Title),
			sql.Named("Location", rec.Location),
			sql.Named("CheckSum", r.checksum.RecordHash(rec.ProfileURL, rec.Name, rec.Title, rec.Location)),
		)
		if err != nil {
			return result, fmt.Errorf("failed to execute merge: %w", err)
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("failed to get rows affected: %w", err)
		}

		// Если вставлена новая строка
		if rowsAffected > 0 {
			result.Added++
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
		UPDATE TblSessions
		SET [CurrentPage] = [CurrentPage] + 1,
			[ListingURL] = CASE WHEN @ListingURL <> '' THEN @ListingURL ELSE [ListingURL] END,
			[UpdatedAt] = SYSUTCDATETIME()
		OUTPUT inserted.[CurrentPage]`,
		sql.Named("ListingURL", listingURL),
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
	return r.update(ctx, `UPDATE TblSessions SET [Status] = @Status, [Reason] = @Reason, [UpdatedAt] = SYSUTCDATETIME()`,
		sql.Named("Status", string(status)),
		sql.Named("Reason", reason),
	)
}

func (r *Repository) SetAutoStart(ctx context.Context, autoStart bool) error {
	return r.update(ctx, `UPDATE TblSessions SET [AutoStart] = @AutoStart, [UpdatedAt] = SYSUTCDATETIME()`,
		sql.Named("AutoStart", autoStart),
	)
}

func (r *Repository) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM TblConnections; DELETE FROM TblSessions;`); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
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
