package verify

func completedCount(items []ChecklistItem) int {
	n := 0

	for _, item := range items {
		if item.Completed {
			n++
		}
	}

	return n
}

// CompletionPercent is the whole-number percentage of completed checklist
// items, rounded down. A feature with no checklist reports 0.
func CompletionPercent(f Feature) int {
	if len(f.Checklist) == 0 {
		return 0
	}

	return completedCount(f.Checklist) * 100 / len(f.Checklist)
}

// DisplayStatus maps a feature to its reported status. Verified features
// report verified. Unverified features with some but not all checklist
// items completed report partial; otherwise unverified. Partial is purely
// a view over the checklist and never stored.
func DisplayStatus(f Feature) string {
	if f.Status == StatusVerified {
		return string(StatusVerified)
	}

	completed := completedCount(f.Checklist)
	if completed > 0 && completed < len(f.Checklist) {
		return StatusPartial
	}

	return string(StatusUnverified)
}
