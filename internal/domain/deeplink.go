package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DeepLink is the /start payload pointing at a chat's raid target.
type DeepLink struct {
	ChatID   int64
	TargetID string
}

// String encodes the payload as <chatId>_<targetId>.
func (d DeepLink) String() string {
	return fmt.Sprintf("%d_%s", d.ChatID, d.TargetID)
}

// URL builds the t.me start link for the given bot username.
func (d DeepLink) URL(botUsername string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", strings.TrimPrefix(botUsername, "@"), d.String())
}

// ParseDeepLink splits payload once on the first '_'. Both parts are required
// and the chat part must be an integer; otherwise ok is false.
func ParseDeepLink(payload string) (DeepLink, bool) {
	payload = strings.TrimSpace(payload)
	chatPart, targetPart, found := strings.Cut(payload, "_")
	if !found || chatPart == "" || targetPart == "" {
		return DeepLink{}, false
	}
	chatID, err := strconv.ParseInt(chatPart, 10, 64)
	if err != nil {
		return DeepLink{}, false
	}
	return DeepLink{ChatID: chatID, TargetID: targetPart}, true
}
