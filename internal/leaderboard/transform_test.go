package leaderboard

import (
	"testing"

	"runcomp/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRankDropsRunlessAndSortsByDistance(t *testing.T) {
	raw := []models.LeaderboardEntry{
		entry("A", 5.0, 2),
		entry("B", 8.0, 0),
		entry("C", 8.0, 1),
	}

	assert.Equal(t, []string{"C", "A"}, userIDs(rank(raw)))
}

func TestRankKeepsProcedureOrderOnTies(t *testing.T) {
	raw := []models.LeaderboardEntry{
		entry("first", 10.0, 3),
		entry("second", 10.0, 5),
		entry("leader", 12.5, 1),
	}

	assert.Equal(t, []string{"leader", "first", "second"}, userIDs(rank(raw)))
}

func TestRankTreatsMissingDistanceAsZero(t *testing.T) {
	missing := models.LeaderboardEntry{UserID: "nodistance", TotalRuns: 1}
	raw := []models.LeaderboardEntry{missing, entry("runner", 0.5, 1)}

	assert.Equal(t, []string{"runner", "nodistance"}, userIDs(rank(raw)))
}

func TestRankDoesNotMutateInput(t *testing.T) {
	raw := []models.LeaderboardEntry{entry("A", 1, 1), entry("B", 2, 0)}
	rank(raw)
	assert.Equal(t, []string{"A", "B"}, userIDs(raw))
}
