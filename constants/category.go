package constants

import (
	"strings"
)

// ItemStatus is the condition recorded for an inspected item.
type ItemStatus string

const (
	StatusGood     ItemStatus = "Good"
	StatusFair     ItemStatus = "Fair"
	StatusObserved ItemStatus = "Observed"
	StatusDamaged  ItemStatus = "Damaged"
	StatusFailed   ItemStatus = "Failed"
)

var allStatuses = []ItemStatus{
	StatusGood,
	StatusFair,
	StatusObserved,
	StatusDamaged,
	StatusFailed,
}

func StatusesAsStringSlice() []string {
	result := make([]string, len(allStatuses))
	for i, s := range allStatuses {
		result[i] = string(s)
	}
	return result
}

// CanonicalStatus maps common spellings onto the known statuses. Unknown input is
// returned trimmed with ok=false; the wizard keeps free-form statuses as typed.
func CanonicalStatus(input string) (ItemStatus, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}

	normalized := strings.ToLower(trimmed)

	// synonyms map
	synonyms := map[string]ItemStatus{
		"ok":        StatusGood,
		"bueno":     StatusGood,
		"bien":      StatusGood,
		"regular":   StatusFair,
		"observado": StatusObserved,
		"obs":       StatusObserved,
		"dañado":    StatusDamaged,
		"danado":    StatusDamaged,
		"roto":      StatusDamaged,
		"falla":     StatusFailed,
		"fallado":   StatusFailed,
	}

	if s, ok := synonyms[normalized]; ok {
		return s, true
	}

	for _, s := range allStatuses {
		if normalized == strings.ToLower(string(s)) {
			return s, true
		}
	}

	return ItemStatus(trimmed), false
}
