// Package entdriver implements storage.Driver on top of ent's SQL dialect
// builder. It is database-agnostic and is embedded by the sqlite and postgres
// drivers.
package entdriver

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/mentor/pkg/llm"
	"github.com/papercomputeco/mentor/pkg/storage"
)

const (
	tableSeen     = "notification_seen"
	tableProgress = "stage_progress"
	tableMessages = "chat_messages"
)

var (
	progressColumns = []string{"user_id", "stage_number", "current_step", "completed", "updated_at"}
	messageColumns  = []string{"id", "user_id", "context", "role", "content", "created_at"}
)

// EntDriver provides storage operations over an ent SQL driver.
type EntDriver struct {
	Driver *entsql.Driver
}

var _ storage.Driver = (*EntDriver)(nil)

// New wraps db for the given ent dialect and creates the schema.
func New(ctx context.Context, dialectName string, db *sql.DB) (*EntDriver, error) {
	ddl, ok := schemas[dialectName]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect: %s", dialectName)
	}

	ed := &EntDriver{Driver: entsql.OpenDB(dialectName, db)}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return ed, nil
}

func (ed *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(ed.Driver.Dialect())
}

func (ed *EntDriver) exec(ctx context.Context, query string, args []any) error {
	_, err := ed.Driver.DB().ExecContext(ctx, query, args...)
	return err
}

// MarkSeen records the notification for stage as seen.
func (ed *EntDriver) MarkSeen(ctx context.Context, userID string, stage int) error {
	if userID == "" {
		return storage.ErrEmptyUser
	}

	query, args := ed.builder().Insert(tableSeen).
		Columns("user_id", "stage_number", "seen_at").
		Values(userID, stage, time.Now().UTC()).
		OnConflict(
			entsql.ConflictColumns("user_id", "stage_number"),
			entsql.DoNothing(),
		).
		Query()

	if err := ed.exec(ctx, query, args); err != nil {
		return fmt.Errorf("failed to mark stage seen: %w", err)
	}
	return nil
}

// HasSeen reports whether the notification for stage was seen.
func (ed *EntDriver) HasSeen(ctx context.Context, userID string, stage int) (bool, error) {
	b := ed.builder()
	query, args := b.Select("stage_number").
		From(b.Table(tableSeen)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("stage_number", stage),
		)).
		Limit(1).
		Query()

	rows, err := ed.Driver.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to query seen stage: %w", err)
	}
	defer rows.Close()

	found := rows.Next()
	return found, rows.Err()
}

// SeenStages returns the seen stages in ascending order.
func (ed *EntDriver) SeenStages(ctx context.Context, userID string) ([]int, error) {
	b := ed.builder()
	query, args := b.Select("stage_number").
		From(b.Table(tableSeen)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("stage_number").
		Query()

	rows, err := ed.Driver.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen stages: %w", err)
	}
	defer rows.Close()

	stages := []int{}
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan seen stage: %w", err)
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// UpsertProgress marks stage as completed, inserting the row at step 1 when
// it does not exist yet.
func (ed *EntDriver) UpsertProgress(ctx context.Context, userID string, stage int, at time.Time) (*storage.StageProgress, error) {
	if userID == "" {
		return nil, storage.ErrEmptyUser
	}

	query, args := ed.builder().Insert(tableProgress).
		Columns(progressColumns...).
		Values(userID, stage, 1, true, at.UTC()).
		OnConflict(
			entsql.ConflictColumns("user_id", "stage_number"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("completed")
				u.SetExcluded("updated_at")
			}),
		).
		Query()

	if err := ed.exec(ctx, query, args); err != nil {
		return nil, fmt.Errorf("failed to upsert progress: %w", err)
	}

	return ed.GetProgress(ctx, userID, stage)
}

// GetProgress returns the progress row for stage.
func (ed *EntDriver) GetProgress(ctx context.Context, userID string, stage int) (*storage.StageProgress, error) {
	b := ed.builder()
	query, args := b.Select(progressColumns...).
		From(b.Table(tableProgress)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("stage_number", stage),
		)).
		Query()

	progress, err := ed.queryProgress(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(progress) == 0 {
		return nil, storage.NotFoundError{UserID: userID, Stage: stage}
	}
	return &progress[0], nil
}

// ListProgress returns the user's progress ordered by stage.
func (ed *EntDriver) ListProgress(ctx context.Context, userID string) ([]storage.StageProgress, error) {
	b := ed.builder()
	query, args := b.Select(progressColumns...).
		From(b.Table(tableProgress)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("stage_number").
		Query()

	return ed.queryProgress(ctx, query, args)
}

func (ed *EntDriver) queryProgress(ctx context.Context, query string, args []any) ([]storage.StageProgress, error) {
	rows, err := ed.Driver.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var result []storage.StageProgress
	for rows.Next() {
		var p storage.StageProgress
		if err := rows.Scan(&p.UserID, &p.Stage, &p.CurrentStep, &p.Completed, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		p.UpdatedAt = p.UpdatedAt.UTC()
		result = append(result, p)
	}
	return result, rows.Err()
}

// AppendMessages inserts msgs in a single statement so their order is kept.
func (ed *EntDriver) AppendMessages(ctx context.Context, msgs ...storage.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	prepared, err := storage.PrepareMessages(msgs, time.Now())
	if err != nil {
		return err
	}

	insert := ed.builder().Insert(tableMessages).Columns(messageColumns...)
	for _, m := range prepared {
		insert.Values(m.ID, m.UserID, string(m.Context), string(m.Role), m.Content, m.CreatedAt)
	}

	query, args := insert.Query()
	if err := ed.exec(ctx, query, args); err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}
	return nil
}

// ListMessages returns up to limit of the user's latest messages, oldest first.
func (ed *EntDriver) ListMessages(ctx context.Context, userID string, limit int) ([]storage.ChatMessage, error) {
	b := ed.builder()
	sel := b.Select(messageColumns...).
		From(b.Table(tableMessages)).
		Where(entsql.EQ("user_id", userID))

	if limit > 0 {
		sel.OrderBy(entsql.Desc("seq")).Limit(limit)
	} else {
		sel.OrderBy("seq")
	}

	query, args := sel.Query()
	rows, err := ed.Driver.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	result := []storage.ChatMessage{}
	for rows.Next() {
		var (
			m             storage.ChatMessage
			chatCtx, role string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &chatCtx, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Context = llm.ParseContext(chatCtx)
		m.Role = llm.Role(role)
		m.CreatedAt = m.CreatedAt.UTC()
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if limit > 0 {
		slices.Reverse(result)
	}
	return result, nil
}

// Close closes the underlying database.
func (ed *EntDriver) Close() error {
	return ed.Driver.Close()
}

var schemas = map[string][]string{
	dialect.SQLite: {
		`CREATE TABLE IF NOT EXISTS notification_seen (
			user_id TEXT NOT NULL,
			stage_number INTEGER NOT NULL,
			seen_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, stage_number)
		)`,
		`CREATE TABLE IF NOT EXISTS stage_progress (
			user_id TEXT NOT NULL,
			stage_number INTEGER NOT NULL,
			current_step INTEGER NOT NULL,
			completed BOOLEAN NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, stage_number)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			context TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS chat_messages_user_seq ON chat_messages (user_id, seq)`,
	},
	dialect.Postgres: {
		`CREATE TABLE IF NOT EXISTS notification_seen (
			user_id TEXT NOT NULL,
			stage_number INTEGER NOT NULL,
			seen_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, stage_number)
		)`,
		`CREATE TABLE IF NOT EXISTS stage_progress (
			user_id TEXT NOT NULL,
			stage_number INTEGER NOT NULL,
			current_step INTEGER NOT NULL,
			completed BOOLEAN NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, stage_number)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			context TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS chat_messages_user_seq ON chat_messages (user_id, seq)`,
	},
}
