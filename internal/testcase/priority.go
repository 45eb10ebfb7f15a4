package testcase

import "strings"

// DefaultPriority is the work-item tracker value for a medium priority.
const DefaultPriority = 3

var priorityValues = map[string]int{
	"critical": 1, "1": 1,
	"high": 2, "2": 2,
	"medium": 3, "3": 3,
	"low": 4, "4": 4,
}

// PriorityValue maps a generated priority label onto the work-item tracker's
// numeric scale. The mapping is total: matching is case-insensitive, numeric
// labels pass through, and anything unrecognized defaults to medium.
func PriorityValue(priority string) int {
	if v, ok := priorityValues[strings.ToLower(strings.TrimSpace(priority))]; ok {
		return v
	}
	return DefaultPriority
}
