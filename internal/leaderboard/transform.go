package leaderboard

import (
	"sort"

	"runcomp/internal/models"
)

// rank orders entries by total distance, highest first, and drops
// competitors without runs. Equal distances keep the procedure's order.
func rank(raw []models.LeaderboardEntry) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, len(raw))
	copy(entries, raw)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Distance() > entries[j].Distance()
	})

	kept := entries[:0]
	for _, e := range entries {
		if e.TotalRuns == 0 {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
