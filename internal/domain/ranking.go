package domain

import (
	"math"
	"sort"
	"time"
)

// CooldownWindow is how long a matric number is barred from another competition attempt.
const CooldownWindow = 7 * 24 * time.Hour

// Percentage returns 100*correct/total rounded to two decimals, or 0 when total is 0.
func Percentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(10000*float64(correct)/float64(total)) / 100
}

// RankResults returns a copy of records sorted by percentage, highest first.
// Equal percentages keep append order.
func RankResults(records []ResultRecord) []ResultRecord {
	ranked := make([]ResultRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Percentage > ranked[j].Percentage
	})
	return ranked
}

// OnCooldown reports whether now falls inside the window that starts at last.
// The stored instant itself is inside; last+CooldownWindow is outside.
func OnCooldown(last, now time.Time) bool {
	if last.IsZero() {
		return false
	}
	return now.Before(last.Add(CooldownWindow))
}

// BuildLeaderboard ranks records and keeps only those for field ("" or "all" keeps everything).
func BuildLeaderboard(records []ResultRecord, field string, now time.Time) Leaderboard {
	if field == "all" {
		field = ""
	}
	ranked := RankResults(records)
	entries := make([]LeaderboardEntry, 0, len(ranked))
	for _, rec := range ranked {
		if field != "" && rec.Category != field {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			Rank:       len(entries) + 1,
			Name:       rec.Identity.DisplayName,
			Matric:     rec.Identity.Matric,
			Field:      rec.Category,
			Score:      rec.Correct,
			Total:      rec.Total,
			Percentage: rec.Percentage,
			Date:       rec.Timestamp.Format("2006-01-02 15:04"),
		})
	}
	return Leaderboard{Field: field, Entries: entries, UpdatedAt: now}
}
