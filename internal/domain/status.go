package domain

import "fmt"

// ReadingStatus is the reading state of a book.
type ReadingStatus string

// The three reading states. No other value is valid.
const (
	StatusPlanToRead ReadingStatus = "PLAN_TO_READ"
	StatusReading    ReadingStatus = "READING"
	StatusCompleted  ReadingStatus = "COMPLETED"
)

// AllStatuses lists the reading states in display order.
var AllStatuses = []ReadingStatus{StatusPlanToRead, StatusReading, StatusCompleted}

// Valid reports whether s is one of the three reading states.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusPlanToRead, StatusReading, StatusCompleted:
		return true
	default:
		return false
	}
}

// Label returns the display label.
func (s ReadingStatus) Label() string {
	switch s {
	case StatusReading:
		return "閱讀中"
	case StatusCompleted:
		return "已讀完"
	default:
		return "想讀"
	}
}

// ParseStatus converts an enum name or a display label into a ReadingStatus.
func ParseStatus(v string) (ReadingStatus, error) {
	s := ReadingStatus(v)
	if s.Valid() {
		return s, nil
	}
	for _, candidate := range AllStatuses {
		if candidate.Label() == v {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown reading status %q", v)
}
