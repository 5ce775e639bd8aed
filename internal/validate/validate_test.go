package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/raidbot/internal/domain"
)

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Reason
}

func TestName(t *testing.T) {
	_, err := Name("abc")
	require.Error(t, err)
	assert.Equal(t, "name too short", err.Error())

	v, err := Name("abcd")
	require.NoError(t, err)
	assert.Equal(t, "abcd", v)

	_, err = Name("  ab  ")
	require.Error(t, err)
}

func TestDescription(t *testing.T) {
	_, err := Description("0123456789012345678")
	require.Error(t, err)

	_, err = Description("01234567890123456789")
	require.NoError(t, err)
}

func TestSocialHandle(t *testing.T) {
	v, err := SocialHandle("example")
	require.NoError(t, err)
	assert.Equal(t, "@example", v)

	v, err = SocialHandle("  @already ")
	require.NoError(t, err)
	assert.Equal(t, "@already", v)

	_, err = SocialHandle("@ex")
	require.Error(t, err)

	_, err = SocialHandle("ex")
	require.Error(t, err, "@ex after prefixing is still too short")

	_, err = SocialHandle("my handle")
	require.Error(t, err)
}

func TestInviteLink(t *testing.T) {
	_, err := InviteLink("https://t.me/+AbCdEf", "")
	require.NoError(t, err)

	_, err = InviteLink("https://example.com/join", "t.me/")
	require.Error(t, err)

	_, err = InviteLink("t.", "t.")
	require.Error(t, err)
}

func TestWebsite(t *testing.T) {
	ok := []string{
		"www.example.com",
		"example.io",
		"https://www.example.com",
		"HTTP://Example.COM/path/to?x=1",
		"sub.domain.example.ai/",
	}
	for _, v := range ok {
		_, err := Website(v)
		assert.NoError(t, err, v)
	}

	bad := []string{
		"www.example.com:8080",
		"https://example.com:443/path",
		"example",
		"not a url",
		"ftp://example.com",
		"",
	}
	for _, v := range bad {
		_, err := Website(v)
		if assert.Error(t, err, v) {
			assert.Equal(t, "invalid url", err.Error())
		}
	}
}

func TestTagsFromFreeText(t *testing.T) {
	tags := TagsFromFreeText("Check out $BTC and #eth now")
	assert.Equal(t, domain.Tags{"$BTC", "#eth"}, tags)

	tags = TagsFromFreeText("$MYP #myproj $MYP")
	assert.Equal(t, domain.Tags{"$MYP", "#myproj"}, tags)

	assert.Empty(t, TagsFromFreeText("no tags here"))
}

func TestTags(t *testing.T) {
	_, err := Tags([]string{"$BTC", "$#ETH"}, false)
	require.Error(t, err)
	assert.Equal(t, "invalid_token", reasonOf(t, err))

	_, err = Tags([]string{"BTC"}, false)
	require.Error(t, err)

	_, err = Tags([]string{"#a b"}, false)
	require.Error(t, err)

	_, err = Tags(nil, false)
	require.Error(t, err)
	assert.Equal(t, "empty", reasonOf(t, err))

	tags, err := Tags(nil, true)
	require.NoError(t, err)
	assert.Empty(t, tags)

	_, err = TagsText("just words", false)
	require.Error(t, err)
}

func TestLockDuration(t *testing.T) {
	n, err := LockDuration(" 15 ")
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	for _, v := range []string{"0", "-3", "abc", "1.5", ""} {
		_, err := LockDuration(v)
		if assert.Error(t, err, v) {
			assert.Equal(t, "duration must be positive integer", err.Error())
		}
	}

	_, err = LockDuration("100000")
	require.Error(t, err)
}

func TestTargetLink(t *testing.T) {
	_, err := TargetLink("https://x.com/someone/status/1")
	require.NoError(t, err)
	_, err = TargetLink("http://a")
	require.NoError(t, err)
	_, err = TargetLink("x.com/someone")
	require.Error(t, err)
	_, err = TargetLink("https://")
	require.Error(t, err)
}

func TestGoals(t *testing.T) {
	g, err := Goals("1,2,3,4")
	require.NoError(t, err)
	assert.Equal(t, domain.Goals{Comments: 1, Reposts: 2, Likes: 3, Bookmarks: 4}, g)

	g, err = Goals(" 10, 20 ,30,40 ")
	require.NoError(t, err)
	assert.Equal(t, 40, g.Bookmarks)

	_, err = Goals("1,2,3")
	require.Error(t, err)
	assert.Equal(t, ReasonGoalsCount, reasonOf(t, err))

	_, err = Goals("a,2,3,4")
	require.Error(t, err)
	assert.Equal(t, ReasonGoalsNotInteger, reasonOf(t, err))

	_, err = Goals("0,2,3,4")
	require.Error(t, err)
	assert.Equal(t, ReasonGoalsNotPositive, reasonOf(t, err))
}

func TestGoalsFromMap(t *testing.T) {
	g, err := GoalsFromMap(map[string]int{"comments": 1, "reposts": 2, "likes": 3, "bookmarks": 4})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Likes)

	_, err = GoalsFromMap(map[string]int{"comments": 1, "reposts": 2, "likes": 3, "saves": 4})
	require.Error(t, err)
	assert.Equal(t, ReasonGoalsMissing, reasonOf(t, err))

	_, err = GoalsFromMap(map[string]int{"comments": 1})
	require.Error(t, err)
	assert.Equal(t, ReasonGoalsCount, reasonOf(t, err))
}

func TestEditableField(t *testing.T) {
	f, err := EditableField("Handle")
	require.NoError(t, err)
	assert.Equal(t, FieldXHandle, f)

	_, err = EditableField("topics")
	require.Error(t, err)

	v, err := Field(FieldTags, "$A #b")
	require.NoError(t, err)
	assert.Equal(t, domain.Tags{"$A", "#b"}, v.Tags)

	v, err = Field(FieldXHandle, "proj")
	require.NoError(t, err)
	assert.Equal(t, "@proj", v.Text)

	_, err = Field("topics", "x")
	require.Error(t, err)
}
