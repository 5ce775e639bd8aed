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

const projectColumns = `id, chat_id, name, description, x_handle, invite_link, website, tags, topics, created_at`

// Editable project columns. Anything else is refused by UpdateProjectField.
var projectFields = map[string]struct{}{
	"name":        {},
	"description": {},
	"x_handle":    {},
	"website":     {},
	"tags":        {},
	"topics":      {},
}

// InsertProject stores p, assigning an id and creation time when unset. A
// second project for the same chat fails with domain.ErrDuplicateProject.
func (s *Store) InsertProject(ctx context.Context, p *domain.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Tags == nil {
		p.Tags = domain.Tags{}
	}
	if p.Topics == nil {
		p.Topics = domain.EmptyTopics()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (:id, :chat_id, :name, :description, :x_handle, :invite_link, :website, :tags, :topics, :created_at)`, p)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateProject
	}
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	logger.Debug(ctx, "store.projects", "project.insert",
		slog.String("status", "ok"),
		slog.Int64("chat_id", p.ChatID),
		slog.String("project_id", p.ID),
	)
	return nil
}

// FindProjectByChat returns the chat's project or domain.ErrNotFound.
func (s *Store) FindProjectByChat(ctx context.Context, chatID int64) (domain.Project, error) {
	var p domain.Project
	err := s.db.GetContext(ctx, &p, s.q(`SELECT `+projectColumns+` FROM projects WHERE chat_id = ?`), chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Project{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

// FindProjectByID returns a project by id or domain.ErrNotFound.
func (s *Store) FindProjectByID(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	err := s.db.GetContext(ctx, &p, s.q(`SELECT `+projectColumns+` FROM projects WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Project{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

// DeleteProjectByChat removes the chat's project together with its targets.
// It reports whether a project existed.
func (s *Store) DeleteProjectByChat(ctx context.Context, chatID int64) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM targets WHERE chat_id = ?`), chatID); err != nil {
		return false, fmt.Errorf("delete targets: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM projects WHERE chat_id = ?`), chatID)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	logger.Debug(ctx, "store.projects", "project.delete",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.Int64("count", n),
	)
	return n > 0, nil
}

// UpdateProjectField sets one whitelisted column of the chat's project.
func (s *Store) UpdateProjectField(ctx context.Context, chatID int64, field string, value any) error {
	if _, ok := projectFields[field]; !ok {
		return fmt.Errorf("update project: field %q is not editable", field)
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE projects SET `+field+` = ? WHERE chat_id = ?`), value, chatID)
	if err != nil {
		return fmt.Errorf("update project %s: %w", field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update project %s: %w", field, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
