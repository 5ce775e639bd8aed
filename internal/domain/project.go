// Package domain holds the records persisted by the bot: a chat's Project,
// its raid Targets and the value types stored inside them.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Topic names of the fixed topic map, in display order.
const (
	TopicProduct    = "product"
	TopicTechnology = "technology"
	TopicSecurity   = "security"
	TopicNarrative  = "narrative"
	TopicRoadmap    = "roadmap"
	TopicUseCase    = "use_case"
	TopicCommunity  = "community"
)

// TopicNames lists every topic slot of a project.
var TopicNames = []string{
	TopicProduct,
	TopicTechnology,
	TopicSecurity,
	TopicNarrative,
	TopicRoadmap,
	TopicUseCase,
	TopicCommunity,
}

// Project is a chat's registered campaign profile. One per chat.
type Project struct {
	ID          string    `db:"id"`
	ChatID      int64     `db:"chat_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	XHandle     string    `db:"x_handle"`
	InviteLink  string    `db:"invite_link"`
	Website     string    `db:"website"`
	Tags        Tags      `db:"tags"`
	Topics      Topics    `db:"topics"`
	CreatedAt   time.Time `db:"created_at"`
}

// Tags is an ordered set of $/# tokens.
type Tags []string

// Value stores tags as a JSON array.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a JSON array column.
func (t *Tags) Scan(src any) error {
	return scanJSON(src, (*[]string)(t))
}

// Topics maps each topic name to its descriptive text.
type Topics map[string]string

// EmptyTopics returns a map with every topic slot present and blank.
func EmptyTopics() Topics {
	t := make(Topics, len(TopicNames))
	for _, name := range TopicNames {
		t[name] = ""
	}
	return t
}

// Missing returns topic names absent from t, in display order.
func (t Topics) Missing() []string {
	var out []string
	for _, name := range TopicNames {
		if _, ok := t[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Value stores topics as a JSON object.
func (t Topics) Value() (driver.Value, error) {
	if t == nil {
		t = EmptyTopics()
	}
	b, err := json.Marshal(map[string]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a JSON object column.
func (t *Topics) Scan(src any) error {
	return scanJSON(src, (*map[string]string)(t))
}

func scanJSON(src any, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("domain: unsupported scan source %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
