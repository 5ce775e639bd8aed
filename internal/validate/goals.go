package validate

import (
	"strconv"
	"strings"

	"github.com/m3rciful/raidbot/internal/domain"
)

// Goals reasons, distinct so callers and tests can tell failures apart.
const (
	ReasonGoalsCount       = "goals_count"
	ReasonGoalsNotInteger  = "goals_not_integer"
	ReasonGoalsNotPositive = "goals_not_positive"
	ReasonGoalsMissing     = "goals_missing"
)

// Goals parses "comments,reposts,likes,bookmarks" into four positive counters.
func Goals(csv string) (domain.Goals, error) {
	parts := strings.Split(strings.TrimSpace(csv), ",")
	if len(parts) != len(domain.GoalNames) {
		return domain.Goals{}, domain.NewValidationError("goals", ReasonGoalsCount,
			"expected 4 comma separated values (comments,reposts,likes,bookmarks), got "+strconv.Itoa(len(parts)))
	}
	vals := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return domain.Goals{}, domain.NewValidationError("goals", ReasonGoalsNotInteger,
				domain.GoalNames[i]+" must be an integer")
		}
		if n <= 0 {
			return domain.Goals{}, domain.NewValidationError("goals", ReasonGoalsNotPositive,
				domain.GoalNames[i]+" must be positive")
		}
		vals[i] = n
	}
	return domain.Goals{Comments: vals[0], Reposts: vals[1], Likes: vals[2], Bookmarks: vals[3]}, nil
}

// GoalsFromMap is the typed entry point: every named counter must be present and positive.
func GoalsFromMap(m map[string]int) (domain.Goals, error) {
	if len(m) != len(domain.GoalNames) {
		return domain.Goals{}, domain.NewValidationError("goals", ReasonGoalsCount, "expected exactly 4 goal counters")
	}
	vals := make([]int, len(domain.GoalNames))
	for i, name := range domain.GoalNames {
		n, ok := m[name]
		if !ok {
			return domain.Goals{}, domain.NewValidationError("goals", ReasonGoalsMissing, "missing goal "+name)
		}
		if n <= 0 {
			return domain.Goals{}, domain.NewValidationError("goals", ReasonGoalsNotPositive, name+" must be positive")
		}
		vals[i] = n
	}
	return domain.Goals{Comments: vals[0], Reposts: vals[1], Likes: vals[2], Bookmarks: vals[3]}, nil
}
