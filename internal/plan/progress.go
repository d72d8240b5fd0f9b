package plan

// Progress converts a partial plan snapshot into a completion percentage.
// The last received day counts fractionally by how many of its meals have
// arrived; earlier days count as whole. The result is clamped to [0, 100].
func Progress(p *GeneratedPlan, totalDays, mealsPerDay int) float64 {
	if p == nil || totalDays <= 0 || mealsPerDay <= 0 || len(p.Days) == 0 {
		return 0
	}

	received := len(p.Days)
	if received > totalDays {
		received = totalDays
	}
	completedDayIndex := received - 1

	mealFraction := float64(len(p.Days[received-1].Meals)) / float64(mealsPerDay)
	if mealFraction > 1 {
		mealFraction = 1
	}

	pct := (float64(completedDayIndex) + mealFraction) / float64(totalDays) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// IsComplete reports whether a snapshot contains the full requested
// structure: all days present and the last day's meals all received.
func IsComplete(p *GeneratedPlan, totalDays, mealsPerDay int) bool {
	if p == nil || len(p.Days) != totalDays || totalDays == 0 {
		return false
	}
	return len(p.Days[totalDays-1].Meals) == mealsPerDay
}
