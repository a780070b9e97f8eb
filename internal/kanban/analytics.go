package kanban

import "github.com/kingrea/taskboard/internal/board"

// ColumnStats summarizes one column.
type ColumnStats struct {
	Name           string  `json:"name"`
	Tasks          int     `json:"tasks"`
	TimeSpentHours float64 `json:"timeSpent"`
}

// Analytics returns per-column task counts and tracked hours.
func Analytics(b board.Board) []ColumnStats {
	stats := make([]ColumnStats, 0, len(b))
	for _, col := range b {
		seconds := 0
		for _, task := range col.Tasks {
			seconds += task.TimeSpent
		}
		stats = append(stats, ColumnStats{
			Name:           col.Title,
			Tasks:          len(col.Tasks),
			TimeSpentHours: float64(seconds) / 3600,
		})
	}
	return stats
}
