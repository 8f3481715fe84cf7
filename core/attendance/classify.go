package attendance

import (
	"fmt"
	"math"
)

type Level string

const (
	LevelNone     Level = "none"
	LevelCaution  Level = "caution"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

var levelSeverity = map[Level]int{
	LevelNone:     0,
	LevelCaution:  1,
	LevelWarning:  2,
	LevelCritical: 3,
}

func (l Level) Severity() int { return levelSeverity[l] }

// AtRisk reports whether a course with this level counts as at-risk.
func (l Level) AtRisk() bool { return l == LevelWarning || l == LevelCritical }

// Worse reports whether l is more severe than other.
func (l Level) Worse(other Level) bool { return l.Severity() > other.Severity() }

// cushion above the warning threshold below which a course is flagged as caution
const cautionCushion = 5

type Thresholds struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

var DefaultThresholds = Thresholds{Warning: 75, Critical: 65}

// ClassifyWarningLevel maps an attendance percentage to a warning level.
// Each band is closed on its lower bound:
//   p >= warning+5           none
//   warning <= p < warning+5 caution
//   critical <= p < warning  warning
//   p < critical             critical
func ClassifyWarningLevel(percentage float64, t Thresholds) Level {
	switch {
	case percentage >= t.Warning+cautionCushion:
		return LevelNone
	case percentage >= t.Warning:
		return LevelCaution
	case percentage >= t.Critical:
		return LevelWarning
	default:
		return LevelCritical
	}
}

type RequirementStatus struct {
	Met         bool    `json:"met"`
	Percentage  float64 `json:"percentage"`
	MinRequired float64 `json:"min_required"`
	Needed      int     `json:"needed"` // percentage points, rounded up to a multiple of 5
	Message     string  `json:"message"`
}

// Requirement compares a percentage to the minimum attendance requirement.
func Requirement(percentage, minRequired float64) RequirementStatus {
	rs := RequirementStatus{Percentage: percentage, MinRequired: minRequired}
	if percentage >= minRequired {
		rs.Met = true
		rs.Message = fmt.Sprintf("You are meeting the minimum attendance requirement of %g%%.", minRequired)
		return rs
	}
	rs.Needed = int(math.Ceil((minRequired-percentage)/5) * 5)
	rs.Message = fmt.Sprintf(
		"You need to improve your attendance by %d%% to meet the minimum requirement of %g%%.",
		rs.Needed, minRequired,
	)
	return rs
}

// RequirementMessage returns the human readable form of Requirement.
func RequirementMessage(percentage, minRequired float64) string {
	return Requirement(percentage, minRequired).Message
}

// ToDisplayStatus maps a record status to its calendar vocabulary.
func ToDisplayStatus(s Status) DisplayStatus {
	switch s {
	case StatusPresent:
		return DisplayAttended
	case StatusAbsent:
		return DisplayMissed
	case StatusExcused:
		return DisplayExcused
	case StatusLate:
		return DisplayLate
	default:
		return DisplayStatus(s)
	}
}

// displayPriority orders statuses when a day holds several events: the highest wins.
var displayPriority = map[DisplayStatus]int{
	DisplayAttended: 1,
	DisplayExcused:  2,
	DisplayLate:     3,
	DisplayMissed:   4,
	DisplayUpcoming: 5,
}

// DayStatus picks the one status representing a day of events.
// upcoming > missed > late > excused > attended. No events yields "".
func DayStatus(events []CalendarEvent) DisplayStatus {
	var best DisplayStatus
	for _, ev := range events {
		if displayPriority[ev.Status] > displayPriority[best] {
			best = ev.Status
		}
	}
	return best
}
