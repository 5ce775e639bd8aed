package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/raidbot/core/database"
	"github.com/m3rciful/raidbot/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, EnsureSchema(context.Background(), db))
	return New(db)
}

func sampleProject(chatID int64) *domain.Project {
	topics := domain.EmptyTopics()
	topics[domain.TopicProduct] = "A wallet."
	return &domain.Project{
		ChatID:      chatID,
		Name:        "MyProj",
		Description: "A project that does useful things.",
		XHandle:     "@myproj",
		InviteLink:  "https://t.me/+abcd",
		Website:     "myproj.io",
		Tags:        domain.Tags{"$MYP", "#myproj"},
		Topics:      topics,
	}
}

func TestProjectRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := sampleProject(-100)
	require.NoError(t, s.InsertProject(ctx, p))
	require.NotEmpty(t, p.ID)

	got, err := s.FindProjectByChat(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, domain.Tags{"$MYP", "#myproj"}, got.Tags)
	assert.Equal(t, "A wallet.", got.Topics[domain.TopicProduct])
	assert.Empty(t, got.Topics.Missing())
	assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Second)

	byID, err := s.FindProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), byID.ChatID)
}

func TestInsertProjectDuplicateChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertProject(ctx, sampleProject(-1)))
	err := s.InsertProject(ctx, sampleProject(-1))
	assert.ErrorIs(t, err, domain.ErrDuplicateProject)
}

func TestFindProjectMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FindProjectByChat(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateProjectField(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertProject(ctx, sampleProject(-2)))

	require.NoError(t, s.UpdateProjectField(ctx, -2, "website", "myproj.com"))
	require.NoError(t, s.UpdateProjectField(ctx, -2, "tags", domain.Tags{"#new"}))
	got, err := s.FindProjectByChat(ctx, -2)
	require.NoError(t, err)
	assert.Equal(t, "myproj.com", got.Website)
	assert.Equal(t, domain.Tags{"#new"}, got.Tags)

	assert.Error(t, s.UpdateProjectField(ctx, -2, "chat_id", 1))
	assert.ErrorIs(t, s.UpdateProjectField(ctx, -3, "name", "Other"), domain.ErrNotFound)
}

func TestTargetsAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := sampleProject(-5)
	require.NoError(t, s.InsertProject(ctx, p))

	target := &domain.Target{
		ProjectID:   p.ID,
		ChatID:      -5,
		Link:        "https://x.com/myproj/status/1",
		LockMinutes: 15,
		Goals:       domain.Goals{Comments: 1, Reposts: 2, Likes: 3, Bookmarks: 4},
	}
	require.NoError(t, s.InsertTarget(ctx, target))

	got, err := s.FindTargetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.Goals, got.Goals)
	assert.Equal(t, 15, got.LockMinutes)

	newGoals := domain.Goals{Comments: 9, Reposts: 9, Likes: 9, Bookmarks: 9}
	require.NoError(t, s.UpdateTargetGoals(ctx, -5, target.ID, newGoals))
	assert.ErrorIs(t, s.UpdateTargetGoals(ctx, -6, target.ID, newGoals), domain.ErrNotFound)

	list, err := s.ListTargetsByChat(ctx, -5, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newGoals, list[0].Goals)

	existed, err := s.DeleteProjectByChat(ctx, -5)
	require.NoError(t, err)
	assert.True(t, existed)
	_, err = s.FindTargetByID(ctx, target.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	existed, err = s.DeleteProjectByChat(ctx, -5)
	require.NoError(t, err)
	assert.False(t, existed)
}
