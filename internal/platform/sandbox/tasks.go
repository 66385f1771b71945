package sandbox

import (
	"time"

	"github.com/ehr/burnout/internal/domain/workforce"
)

var (
	taskPriorities      = []workforce.TaskPriority{workforce.PriorityRoutine, workforce.PriorityUrgent, workforce.PrioritySTAT}
	taskPriorityWeights = []float64{0.70, 0.25, 0.05}
)

// GenerateTasks assigns 5-15 administrative tasks per provider per calendar
// day, weekends included. Tasks are independent of encounters; each is due
// 4 to 48 hours after assignment.
func (g *DataGenerator) GenerateTasks(providers []workforce.Provider, days int) []workforce.Task {
	var tasks []workforce.Task
	for _, p := range providers {
		for day := 0; day < days; day++ {
			assigned := g.now.AddDate(0, 0, day-days)

			n := g.intBetween(5, 15)
			for i := 0; i < n; i++ {
				priority := taskPriorities[g.weighted(taskPriorityWeights)]
				taskType := pick(g, workforce.TaskTypes)
				due := assigned.Add(time.Duration(g.intBetween(4, 48)) * time.Hour)

				tasks = append(tasks, workforce.Task{
					ID:               formatID("TASK", 8, len(tasks)),
					ProviderID:       p.ID,
					Type:             taskType,
					Priority:         priority,
					AssignedAt:       workforce.Timestamp{Time: assigned},
					DueAt:            workforce.Timestamp{Time: due},
					Status:           pick(g, workforce.TaskStatuses),
					EstimatedMinutes: g.inRange(taskType.EstimatedRange()),
				})
			}
		}
	}
	return tasks
}
