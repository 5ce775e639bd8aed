// Package generate drafts project topic texts and promotional posts through
// a JSON-mode text completion service.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/m3rciful/raidbot/core/logger"
	"github.com/m3rciful/raidbot/internal/domain"
)

const component = "gen"

// Completer turns a prompt into a JSON reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Moods rotate the tone of generated posts.
var Moods = []string{"bullish", "excited", "informative", "confident", "playful"}

// ErrIncomplete reports a reply that lacks required keys.
var ErrIncomplete = errors.New("generate: reply is missing required keys")

// Generator builds prompts and checks replies.
type Generator struct {
	c       Completer
	retries int
}

// New wraps a Completer. Each call is retried once when the reply is
// unusable.
func New(c Completer) *Generator {
	return &Generator{c: c, retries: 1}
}

// PrefillTopics drafts a text for every topic slot from the description.
// Every topic name must be present in the reply; extra keys are dropped.
func (g *Generator) PrefillTopics(ctx context.Context, description string) (domain.Topics, error) {
	prompt := fmt.Sprintf(
		"Act as the project owner and based on the following project description:\"\n%s\"\n"+
			"Write descriptions (20 to 25 words each) for the following JSON keys: %s",
		description, strings.Join(domain.TopicNames, ", "))

	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		reply, err := g.c.Complete(ctx, prompt)
		if err != nil {
			lastErr = err
			continue
		}
		topics, err := parseTopics(reply)
		if err != nil {
			lastErr = err
			logger.Warn(ctx, component, "topics.parse",
				slog.String("status", "retry"),
				slog.Int("attempts", attempt+1),
				slog.String("err", err.Error()),
			)
			continue
		}
		return topics, nil
	}
	return nil, domain.Wrap(domain.CollaboratorGeneration, "prefill topics", lastErr)
}

func parseTopics(reply string) (domain.Topics, error) {
	raw := map[string]any{}
	if err := json.Unmarshal([]byte(reply), &raw); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	out := make(domain.Topics, len(domain.TopicNames))
	var missing []string
	for _, name := range domain.TopicNames {
		v, ok := raw[name].(string)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, name)
			continue
		}
		out[name] = strings.TrimSpace(v)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return out, nil
}

// GeneratePost drafts a promotional post about one topic of p.
func (g *Generator) GeneratePost(ctx context.Context, p domain.Project, mood, topic string) (string, error) {
	prompt := fmt.Sprintf(
		"Write a %s shill tweet about the project's %s in JSON format with one key 'post'. Use the following info:\n"+
			"Project Name: %s\nProject Description: %s\nTags: %s\nTweet Topic: %s\nTopic Details: %s",
		mood, topic, p.Name, p.Description, strings.Join(p.Tags, " "), topic, p.Topics[topic])

	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		reply, err := g.c.Complete(ctx, prompt)
		if err != nil {
			lastErr = err
			continue
		}
		var out struct {
			Post string `json:"post"`
		}
		if err := json.Unmarshal([]byte(reply), &out); err != nil {
			lastErr = fmt.Errorf("decode post: %w", err)
			continue
		}
		if strings.TrimSpace(out.Post) == "" {
			lastErr = fmt.Errorf("%w: post", ErrIncomplete)
			continue
		}
		return strings.TrimSpace(out.Post), nil
	}
	return "", domain.Wrap(domain.CollaboratorGeneration, "generate post", lastErr)
}

// PickAngle chooses a mood and a topic for seed. The same seed always picks
// the same pair; topics without text are skipped when possible.
func PickAngle(p domain.Project, seed string) (mood, topic string) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	n := h.Sum32()

	var filled []string
	for _, name := range domain.TopicNames {
		if strings.TrimSpace(p.Topics[name]) != "" {
			filled = append(filled, name)
		}
	}
	if len(filled) == 0 {
		filled = domain.TopicNames
	}
	moods := uint32(len(Moods))
	return Moods[n%moods], filled[(n/moods)%uint32(len(filled))]
}
