package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/stemsi/smartexam/internal/model"
)

// VisibilityPolicy decides when a student may see per-question correctness.
// Schedules are interpreted in a single configured location.
type VisibilityPolicy struct {
	loc *time.Location
}

// NewVisibilityPolicy creates a policy for schedules authored in loc.
func NewVisibilityPolicy(loc *time.Location) *VisibilityPolicy {
	if loc == nil {
		loc = time.Local
	}
	return &VisibilityPolicy{loc: loc}
}

// CanViewDetails reports whether answer details of result may be shown at now.
// Aggregate scores are always visible; this only gates per-question review.
func (p *VisibilityPolicy) CanViewDetails(exam *model.ExamDefinition, result *model.ExamResult, now time.Time) bool {
	if exam.ShowResultsImmediately {
		return true
	}
	end, ok := p.EndInstant(exam)
	if !ok {
		return false
	}
	return now.After(end)
}

// EndInstant combines the exam's scheduled date with its end time of day.
// An unparsable hour or minute falls back to 23 or 59 respectively; an
// unparsable date yields ok=false.
func (p *VisibilityPolicy) EndInstant(exam *model.ExamDefinition) (end time.Time, ok bool) {
	day, err := time.ParseInLocation("2006-01-02", exam.ScheduledDate, p.loc)
	if err != nil {
		return time.Time{}, false
	}
	hour, minute := parseClock(exam.EndTime)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, p.loc), true
}

func parseClock(hhmm string) (hour, minute int) {
	hour, minute = 23, 59
	parts := strings.Split(hhmm, ":")
	if h, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil && h >= 0 && h < 24 {
		hour = h
	}
	if len(parts) > 1 {
		if m, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && m >= 0 && m < 60 {
			minute = m
		}
	}
	return hour, minute
}
