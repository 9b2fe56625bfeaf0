package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(year int, month time.Month, day int) *Date {
	d := NewDate(year, month, day)
	return &d
}

func TestSortEventsChronologically(t *testing.T) {
	events := []LifeEvent{
		{EventType: "award", EventTitle: "undated"},
		{EventType: "employment", EventTitle: "end only", EndDate: datePtr(1990, time.March, 1)},
		{EventType: "education", EventTitle: "start", StartDate: datePtr(1980, time.January, 1)},
		{EventType: "award", EventTitle: "point", PointInTime: datePtr(1985, time.June, 1)},
		{EventType: "award", EventTitle: "also undated"},
		{
			EventType:   "education",
			EventTitle:  "start wins over point",
			StartDate:   datePtr(1975, time.January, 1),
			PointInTime: datePtr(1999, time.January, 1),
		},
	}

	SortEventsChronologically(events)

	titles := make([]string, len(events))
	for i, e := range events {
		titles[i] = e.EventTitle
	}
	assert.Equal(t, []string{
		"start wins over point",
		"start",
		"point",
		"end only",
		"undated",
		"also undated",
	}, titles)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("1840-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1840, d.Year())

	d, err = ParseDate("2020-05-15T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2020-05-15", d.String())

	_, err = ParseDate("15/05/2020")
	assert.Error(t, err)
}

func TestLifeEventDecode(t *testing.T) {
	payload := `{
		"event_type": "education",
		"event_title": "PhD in Computer Science",
		"start_date": "2015-09-01",
		"end_date": null,
		"organization": "Stanford University"
	}`

	var event LifeEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &event))

	assert.Equal(t, "education", event.EventType)
	require.NotNil(t, event.StartDate)
	assert.Equal(t, "2015-09-01", event.StartDate.String())
	assert.Nil(t, event.EndDate)
	require.NotNil(t, event.Organization)
	assert.Equal(t, "Stanford University", *event.Organization)

	encoded, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"start_date":"2015-09-01"`)
	assert.NotContains(t, string(encoded), "end_date")
}

func TestLifeEventDecodeInvalidDate(t *testing.T) {
	var event LifeEvent
	err := json.Unmarshal([]byte(`{"event_type":"award","event_title":"x","start_date":"yesterday"}`), &event)
	assert.Error(t, err)
}
