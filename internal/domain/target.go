package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Target is one raid task tied to a project of the same chat.
type Target struct {
	ID          string    `db:"id"`
	ProjectID   string    `db:"project_id"`
	ChatID      int64     `db:"chat_id"`
	Link        string    `db:"link"`
	LockMinutes int       `db:"lock_minutes"`
	Goals       Goals     `db:"goals"`
	CreatedAt   time.Time `db:"created_at"`
}

// Goals holds the four engagement counters of a target.
type Goals struct {
	Comments  int `json:"comments"`
	Reposts   int `json:"reposts"`
	Likes     int `json:"likes"`
	Bookmarks int `json:"bookmarks"`
}

// Goal counter names in their positional order.
const (
	GoalComments  = "comments"
	GoalReposts   = "reposts"
	GoalLikes     = "likes"
	GoalBookmarks = "bookmarks"
)

// GoalNames lists the counters in the order a CSV goal string is read.
var GoalNames = []string{GoalComments, GoalReposts, GoalLikes, GoalBookmarks}

// Value stores goals as a JSON object.
func (g Goals) Value() (driver.Value, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a JSON object column.
func (g *Goals) Scan(src any) error {
	return scanJSON(src, g)
}
