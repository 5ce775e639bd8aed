// Package validate checks and normalizes the values users type into setup
// flows. Every function is pure; failures are *domain.ValidationError.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/m3rciful/raidbot/internal/domain"
)

const (
	// MinNameLen is the shortest accepted project name.
	MinNameLen = 4
	// MinDescriptionLen is the shortest accepted project description.
	MinDescriptionLen = 20
	// MinHandleLen is the shortest accepted handle, '@' included.
	MinHandleLen = 4
	// MinInviteLinkLen is the shortest accepted invite link.
	MinInviteLinkLen = 4
	// MaxLockMinutes caps a single chat lock at one day.
	MaxLockMinutes = 24 * 60
	// DefaultInviteMarker identifies Telegram invite links.
	DefaultInviteMarker = "t.me/"
)

var (
	websiteRe = regexp.MustCompile(`(?i)^(https?://)?([a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}(/\S*)?$`)
	portRe    = regexp.MustCompile(`(?i)^(https?://)?[^/\s]+:\d+`)
	tagRe     = regexp.MustCompile(`[$#]\w+\b`)
	tagFullRe = regexp.MustCompile(`^[$#]\w+$`)
	linkRe    = regexp.MustCompile(`^https?://\S+$`)
)

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Name accepts a project name of at least MinNameLen characters.
func Name(v string) (string, error) {
	v = strings.TrimSpace(v)
	if runeLen(v) < MinNameLen {
		return "", domain.NewValidationError("name", "too_short", "name too short")
	}
	return v, nil
}

// Description accepts a project description of at least MinDescriptionLen characters.
func Description(v string) (string, error) {
	v = strings.TrimSpace(v)
	if runeLen(v) < MinDescriptionLen {
		return "", domain.NewValidationError("description", "too_short", "description too short")
	}
	return v, nil
}

// SocialHandle normalizes v so it always starts with '@'.
func SocialHandle(v string) (string, error) {
	v = strings.TrimSpace(v)
	if strings.IndexFunc(v, unicode.IsSpace) >= 0 {
		return "", domain.NewValidationError("x_handle", "whitespace", "handle must not contain spaces")
	}
	if !strings.HasPrefix(v, "@") {
		v = "@" + v
	}
	if runeLen(v) < MinHandleLen {
		return "", domain.NewValidationError("x_handle", "too_short", "handle too short")
	}
	return v, nil
}

// InviteLink accepts a link that carries the transport's invite marker.
func InviteLink(v, marker string) (string, error) {
	v = strings.TrimSpace(v)
	if marker == "" {
		marker = DefaultInviteMarker
	}
	if runeLen(v) < MinInviteLinkLen || !strings.Contains(v, marker) {
		return "", domain.NewValidationError("invite_link", "invalid", "invalid invite link")
	}
	return v, nil
}

// Website accepts a domain with optional scheme and path. Explicit ports are rejected.
func Website(v string) (string, error) {
	v = strings.TrimSpace(v)
	if portRe.MatchString(v) || !websiteRe.MatchString(v) {
		return "", domain.NewValidationError("website", "invalid", "invalid url")
	}
	return v, nil
}

// TagsFromFreeText extracts $/# tokens from text in order of appearance,
// dropping repeats.
func TagsFromFreeText(text string) domain.Tags {
	out := domain.Tags{}
	seen := make(map[string]struct{})
	for _, tok := range tagRe.FindAllString(text, -1) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// Tags validates supplied tokens. Each must start with exactly one of '$' or
// '#' and hold no whitespace. An empty result fails unless allowEmpty is set.
func Tags(tokens []string, allowEmpty bool) (domain.Tags, error) {
	out := domain.Tags{}
	seen := make(map[string]struct{})
	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		if !tagFullRe.MatchString(tok) {
			return nil, domain.NewValidationError("tags", "invalid_token", "invalid tag "+strconv.Quote(tok)+": use $TICKER or #hashtag")
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	if len(out) == 0 && !allowEmpty {
		return nil, domain.NewValidationError("tags", "empty", "supply at least one tag like $TICKER or #hashtag")
	}
	return out, nil
}

// TagsText extracts tags from free text and requires at least one unless allowEmpty.
func TagsText(text string, allowEmpty bool) (domain.Tags, error) {
	return Tags(TagsFromFreeText(text), allowEmpty)
}

// LockDuration parses a positive whole number of minutes.
func LockDuration(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, domain.NewValidationError("lock_duration", "not_positive_integer", "duration must be positive integer")
	}
	if n > MaxLockMinutes {
		return 0, domain.NewValidationError("lock_duration", "too_long", "duration must be at most "+strconv.Itoa(MaxLockMinutes)+" minutes")
	}
	return n, nil
}

// TargetLink accepts an http(s) URL.
func TargetLink(v string) (string, error) {
	v = strings.TrimSpace(v)
	if !linkRe.MatchString(v) {
		return "", domain.NewValidationError("link", "invalid", "link must start with http:// or https://")
	}
	return v, nil
}
