package models

import (
	"bytes"
	"fmt"
	"sort"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar date without a time component. It marshals as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD as well as full RFC 3339 timestamps.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	y, m, d := t.Date()
	return NewDate(y, m, d), nil
}

// DatePtr converts a nullable time into a nullable Date.
func DatePtr(t *time.Time) *Date {
	if t == nil || t.IsZero() {
		return nil
	}
	y, m, d := t.Date()
	date := NewDate(y, m, d)
	return &date
}

// TimePtr converts a nullable Date into a nullable time.
func (d *Date) TimePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid date %s", data)
	}
	parsed, err := ParseDate(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// LifeEvent is a single dated occurrence in a person's life.
type LifeEvent struct {
	EventType        string  `json:"event_type"                  validate:"required"`
	EventTitle       string  `json:"event_title"`
	EventDescription *string `json:"event_description,omitempty"`
	StartDate        *Date   `json:"start_date,omitempty"`
	EndDate          *Date   `json:"end_date,omitempty"`
	PointInTime      *Date   `json:"point_in_time,omitempty"`
	Organization     *string `json:"organization,omitempty"`
	Location         *string `json:"location,omitempty"`
	RoleOrDegree     *string `json:"role_or_degree,omitempty"`
	FieldOrMajor     *string `json:"field_or_major,omitempty"`
}

// ChronologicalDate is the date used to order events: start date, then point
// in time, then end date. Nil when the event is undated.
func (e *LifeEvent) ChronologicalDate() *Date {
	switch {
	case e.StartDate != nil:
		return e.StartDate
	case e.PointInTime != nil:
		return e.PointInTime
	default:
		return e.EndDate
	}
}

// SortEventsChronologically orders events in place by ChronologicalDate.
// Undated events sort last and ties keep their input order.
func SortEventsChronologically(events []LifeEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		di, dj := events[i].ChronologicalDate(), events[j].ChronologicalDate()
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(dj.Time)
		}
	})
}

// NarrativeInput is the per-request input to narrative synthesis.
type NarrativeInput struct {
	Name        *string
	Description *string
	Events      []LifeEvent
}
