package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepLinkURL(t *testing.T) {
	d := DeepLink{ChatID: -1001234, TargetID: "abc-1"}
	assert.Equal(t, "-1001234_abc-1", d.String())
	assert.Equal(t, "https://t.me/raid_bot?start=-1001234_abc-1", d.URL("@raid_bot"))
}

func TestParseDeepLink(t *testing.T) {
	tests := []struct {
		payload string
		want    DeepLink
		ok      bool
	}{
		{payload: "-100_t1", want: DeepLink{ChatID: -100, TargetID: "t1"}, ok: true},
		{payload: " 42_a_b ", want: DeepLink{ChatID: 42, TargetID: "a_b"}, ok: true},
		{payload: ""},
		{payload: "42"},
		{payload: "_t1"},
		{payload: "42_"},
		{payload: "chat_t1"},
	}
	for _, tc := range tests {
		t.Run(tc.payload, func(t *testing.T) {
			got, ok := ParseDeepLink(tc.payload)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTagsColumn(t *testing.T) {
	v, err := Tags(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var tags Tags
	require.NoError(t, tags.Scan([]byte(`["$A","#b"]`)))
	assert.Equal(t, Tags{"$A", "#b"}, tags)
	assert.Error(t, tags.Scan(12))
}

func TestTopicsColumn(t *testing.T) {
	v, err := Topics(nil).Value()
	require.NoError(t, err)

	var topics Topics
	require.NoError(t, topics.Scan(v))
	assert.Equal(t, EmptyTopics(), topics)
	assert.Empty(t, topics.Missing())

	partial := Topics{TopicProduct: "x"}
	assert.Equal(t, TopicNames[1:], partial.Missing())
}

func TestGoalsColumn(t *testing.T) {
	g := Goals{Comments: 1, Reposts: 2, Likes: 3, Bookmarks: 4}
	v, err := g.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"comments":1,"reposts":2,"likes":3,"bookmarks":4}`, v)

	var back Goals
	require.NoError(t, back.Scan(v))
	assert.Equal(t, g, back)
}

func TestErrorTaxonomy(t *testing.T) {
	assert.NoError(t, Wrap(CollaboratorPersistence, "insert", nil))

	cause := errors.New("connection reset")
	err := fmt.Errorf("commit: %w", Wrap(CollaboratorPersistence, "insert project", cause))
	assert.True(t, IsCollaborator(err, CollaboratorPersistence))
	assert.False(t, IsCollaborator(err, CollaboratorTransport))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "commit: persistence insert project: connection reset", err.Error())

	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "persistence_error", ce.Code())

	ve := NewValidationError("name", "too_short", "name too short")
	assert.True(t, IsValidation(fmt.Errorf("step: %w", ve)))
	assert.Equal(t, "validation_too_short", ve.Code())
	assert.Equal(t, "name too short", ve.Error())
}
