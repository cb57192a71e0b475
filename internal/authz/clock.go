package authz

import (
	"time"
)

// WorkingHours is the daily window, Monday through Friday, during which
// mutating actions are permitted.
type WorkingHours struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// Contains reports whether t falls inside the window on a weekday.
func (w WorkingHours) Contains(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= w.StartHour*60+w.StartMinute && minutes < w.EndHour*60+w.EndMinute
}

// ContextProvider computes the evaluation context for decisions. In
// production it reads the wall clock; tests inject a fixed now function.
type ContextProvider struct {
	hours WorkingHours
	now   func() time.Time
}

// NewContextProvider creates a provider for the given working-hours window.
// now may be nil, in which case time.Now is used.
func NewContextProvider(hours WorkingHours, now func() time.Time) *ContextProvider {
	if now == nil {
		now = time.Now
	}
	return &ContextProvider{hours: hours, now: now}
}

// Current returns the evaluation context. A non-nil override pins the
// after-hours flag regardless of the clock; it must always be passed
// explicitly so decisions stay reproducible.
func (p *ContextProvider) Current(override *bool) EvaluationContext {
	at := p.now()
	if override != nil {
		return EvaluationContext{At: at, AfterHours: *override}
	}
	return EvaluationContext{At: at, AfterHours: !p.hours.Contains(at)}
}
