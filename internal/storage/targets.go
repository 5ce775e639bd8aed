package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/raidbot/core/logger"
	"github.com/m3rciful/raidbot/internal/domain"
)

const targetColumns = `id, project_id, chat_id, link, lock_minutes, goals, created_at`

// InsertTarget stores t, assigning an id and creation time when unset.
func (s *Store) InsertTarget(ctx context.Context, t *domain.Target) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO targets (`+targetColumns+`)
		VALUES (:id, :project_id, :chat_id, :link, :lock_minutes, :goals, :created_at)`, t)
	if err != nil {
		return fmt.Errorf("insert target: %w", err)
	}
	logger.Debug(ctx, "store.targets", "target.insert",
		slog.String("status", "ok"),
		slog.Int64("chat_id", t.ChatID),
		slog.String("target_id", t.ID),
	)
	return nil
}

// FindTargetByID returns a target or domain.ErrNotFound.
func (s *Store) FindTargetByID(ctx context.Context, id string) (domain.Target, error) {
	var t domain.Target
	err := s.db.GetContext(ctx, &t, s.q(`SELECT `+targetColumns+` FROM targets WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Target{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Target{}, fmt.Errorf("find target: %w", err)
	}
	return t, nil
}

// ListTargetsByChat returns the chat's most recent targets first.
func (s *Store) ListTargetsByChat(ctx context.Context, chatID int64, limit int) ([]domain.Target, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []domain.Target
	err := s.db.SelectContext(ctx, &out,
		s.q(`SELECT `+targetColumns+` FROM targets WHERE chat_id = ? ORDER BY created_at DESC LIMIT ?`),
		chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	return out, nil
}

// UpdateTargetGoals replaces the goals of a target owned by chatID.
func (s *Store) UpdateTargetGoals(ctx context.Context, chatID int64, targetID string, goals domain.Goals) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE targets SET goals = ? WHERE id = ? AND chat_id = ?`), goals, targetID, chatID)
	if err != nil {
		return fmt.Errorf("update goals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update goals: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
