package core

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

var (
	titleVerbs = []string{
		"Implement", "Fix", "Refactor", "Document", "Test", "Optimize",
		"Review", "Migrate", "Deprecate", "Design",
	}
	titleNouns = []string{
		"login flow", "billing export", "search index", "session cache",
		"audit trail", "rate limiter", "CSV importer", "settings page",
		"notification queue", "API pagination", "dark mode", "error pages",
	}
)

// GenerateTasks returns n pseudo-random tasks created within the 90 days
// before now. The same seed yields the same tasks apart from their ids.
func GenerateTasks(n int, seed uint64, now time.Time) []Task {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	tasks := make([]Task, n)
	for i := range tasks {
		created := now.Add(-time.Duration(rng.Int64N(int64(90 * 24 * time.Hour)))).UTC().Truncate(time.Millisecond)
		tasks[i] = Task{
			ID:             uuid.NewString(),
			Code:           fmt.Sprintf("TASK-%04d", 1000+rng.IntN(9000)),
			Title:          fmt.Sprintf("%s %s", pick(rng, titleVerbs), pick(rng, titleNouns)),
			Status:         pick(rng, Statuses),
			Label:          pick(rng, Labels),
			Priority:       pick(rng, Priorities),
			EstimatedHours: math.Round(rng.Float64()*24*2) / 2,
			Archived:       rng.IntN(10) == 0,
			CreatedAt:      created,
			UpdatedAt:      created,
		}
	}
	return tasks
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.IntN(len(values))]
}
