// Package narrative turns structured life events into the natural-language text
// that is fed to the embedding provider.
package narrative

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lifeembedding/lifeembedding/internal"
	"github.com/lifeembedding/lifeembedding/pkg/models"
)

const (
	EventTypeEducation  = "education"
	EventTypeEmployment = "employment"
	EventTypeAward      = "award"
	EventTypeOther      = "other"

	FallbackNarrative = "This person has a diverse background with various life experiences."

	maxListedPositions = 3
	maxListedAwards    = 5
)

// Synthesize builds the narrative for a submitted biography. It never fails:
// when nothing can be said, FallbackNarrative is returned.
func Synthesize(input models.NarrativeInput) string {
	parts := make([]string, 0, 4)

	if bio := biographySentence(input.Name, input.Description); bio != "" {
		parts = append(parts, bio)
	}

	groups := groupByType(input.Events)

	if s := educationSentence(groups.get(EventTypeEducation)); s != "" {
		parts = append(parts, s)
	}
	if s := employmentSentence(groups.get(EventTypeEmployment)); s != "" {
		parts = append(parts, s)
	}
	if s := awardSentence(groups.get(EventTypeAward)); s != "" {
		parts = append(parts, s)
	}
	for _, eventType := range groups.order {
		switch eventType {
		case EventTypeEducation, EventTypeEmployment, EventTypeAward:
			continue
		}
		parts = append(
			parts,
			fmt.Sprintf("Notable %s events: %d.", eventType, len(groups.byType[eventType])),
		)
	}

	narrative := strings.Join(parts, " ")
	if strings.TrimSpace(narrative) == "" {
		return FallbackNarrative
	}
	return narrative
}

func biographySentence(name, description *string) string {
	if !internal.HasValue(name) && !internal.HasValue(description) {
		return ""
	}
	subject := "This person"
	if internal.HasValue(name) {
		subject = internal.StringValue(name)
	}
	if internal.HasValue(description) {
		return fmt.Sprintf("%s is %s.", subject, internal.StringValue(description))
	}
	return subject + "."
}

// eventGroups buckets events by type, remembering the order in which types
// were first seen.
type eventGroups struct {
	order  []string
	byType map[string][]models.LifeEvent
}

func groupByType(events []models.LifeEvent) *eventGroups {
	g := &eventGroups{byType: make(map[string][]models.LifeEvent)}
	for _, e := range events {
		eventType := strings.TrimSpace(e.EventType)
		if eventType == "" {
			eventType = EventTypeOther
		}
		if _, ok := g.byType[eventType]; !ok {
			g.order = append(g.order, eventType)
		}
		g.byType[eventType] = append(g.byType[eventType], e)
	}
	return g
}

func (g *eventGroups) get(eventType string) []models.LifeEvent {
	return g.byType[eventType]
}

// sortByStartDate returns a copy of events ordered by start date. Undated
// events are treated as the earliest possible date and come first.
func sortByStartDate(events []models.LifeEvent) []models.LifeEvent {
	sorted := make([]models.LifeEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := sorted[i].StartDate, sorted[j].StartDate
		switch {
		case dj == nil:
			return false
		case di == nil:
			return true
		default:
			return di.Before(dj.Time)
		}
	})
	return sorted
}

func educationSentence(events []models.LifeEvent) string {
	labels := make([]string, 0, len(events))
	for _, e := range sortByStartDate(events) {
		title := strings.TrimSpace(e.EventTitle)
		org := internal.StringValue(e.Organization)
		switch {
		case title != "" && org != "":
			labels = append(labels, title+" from "+org)
		case title != "":
			labels = append(labels, title)
		case org != "":
			labels = append(labels, org)
		}
	}

	switch len(labels) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("Studied %s.", labels[0])
	default:
		return fmt.Sprintf("Educational background includes %s.", joinWithAnd(labels))
	}
}

func employmentSentence(events []models.LifeEvent) string {
	labels := make([]string, 0, len(events))
	for _, e := range sortByStartDate(events) {
		title := strings.TrimSpace(e.EventTitle)
		org := internal.StringValue(e.Organization)
		switch {
		case title != "" && org != "":
			labels = append(labels, title+" at "+org)
		case org != "":
			labels = append(labels, "worked at "+org)
		case title != "":
			labels = append(labels, title)
		}
	}

	if len(labels) == 0 {
		return ""
	}
	if len(labels) <= maxListedPositions {
		return fmt.Sprintf("Career includes %s.", strings.Join(labels, ", "))
	}
	return fmt.Sprintf(
		"Career includes %s and %d other positions.",
		strings.Join(labels[:maxListedPositions], ", "),
		len(labels)-maxListedPositions,
	)
}

func awardSentence(events []models.LifeEvent) string {
	if len(events) == 0 {
		return ""
	}
	if len(events) > maxListedAwards {
		return fmt.Sprintf("Received %d awards and honors.", len(events))
	}

	titles := make([]string, 0, len(events))
	for _, e := range events {
		if title := strings.TrimSpace(e.EventTitle); title != "" {
			titles = append(titles, title)
		}
	}
	if len(titles) == 0 {
		return ""
	}
	return fmt.Sprintf("Received awards: %s.", strings.Join(titles, ", "))
}

// joinWithAnd joins items as "a, b and c".
func joinWithAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
