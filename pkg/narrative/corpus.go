package narrative

import (
	"fmt"
	"strings"
	"time"

	"github.com/lifeembedding/lifeembedding/internal"
	"github.com/lifeembedding/lifeembedding/pkg/models"
)

const (
	noDescription = "No description available"

	maxBioOccupations    = 3
	maxWorkNarratives    = 5
	maxResidences        = 3
	maxCareerSummarized  = 5
	maxCareerListed      = 4
	maxAwardsSummarized  = 6
	maxAwardsListed      = 4
	maxSchoolsListed     = 3
	individualEventLimit = 2
)

// FormatDate renders a date for prose: "March 1973", or just "1973" when the
// month is January, which is how year-only source dates are stored.
func FormatDate(d *models.Date) string {
	if d == nil {
		return ""
	}
	if d.Month() == time.January {
		return fmt.Sprintf("%d", d.Year())
	}
	return fmt.Sprintf("%s %d", d.Month(), d.Year())
}

// IsEventValid reports whether an event carries enough information to be
// narrated: some content (organization, title or location) and some date.
func IsEventValid(e *models.LifeEvent) bool {
	hasContent := internal.HasValue(e.Organization) ||
		strings.TrimSpace(e.EventTitle) != "" ||
		internal.HasValue(e.Location)
	hasTemporal := e.StartDate != nil || e.EndDate != nil || e.PointInTime != nil
	return hasContent && hasTemporal
}

// EventNarrative describes a single corpus event in one sentence. It returns ""
// when the event lacks the fields its type needs.
func EventNarrative(e *models.LifeEvent) string {
	if !IsEventValid(e) {
		return ""
	}

	var parts []string
	switch {
	case e.StartDate != nil && e.EndDate != nil:
		parts = append(parts, fmt.Sprintf("From %s to %s", FormatDate(e.StartDate), FormatDate(e.EndDate)))
	case e.StartDate != nil:
		parts = append(parts, "Starting in "+FormatDate(e.StartDate))
	case e.PointInTime != nil:
		parts = append(parts, "In "+FormatDate(e.PointInTime))
	case e.EndDate != nil:
		parts = append(parts, "Until "+FormatDate(e.EndDate))
	}

	org := internal.StringValue(e.Organization)
	title := strings.TrimSpace(e.EventTitle)
	location := internal.StringValue(e.Location)
	role := internal.StringValue(e.RoleOrDegree)
	field := internal.StringValue(e.FieldOrMajor)

	mentionsIn := func() bool {
		return strings.Contains(strings.Join(parts, " "), "in ")
	}

	switch strings.ToLower(strings.TrimSpace(e.EventType)) {
	case "education":
		if org == "" && location == "" {
			return ""
		}
		if field != "" {
			parts = append(parts, "studied "+field)
		} else {
			parts = append(parts, "studied")
		}
		if org != "" {
			parts = append(parts, "at "+org)
		} else {
			parts = append(parts, "in "+location)
		}
		if role != "" {
			parts = append(parts, "earning a "+role)
		}

	case "employment", "position":
		if org == "" && location == "" {
			return ""
		}
		if role != "" {
			parts = append(parts, "worked as "+role)
		} else {
			parts = append(parts, "worked")
		}
		if org != "" {
			parts = append(parts, "at "+org)
		} else {
			parts = append(parts, "in "+location)
		}
		if field != "" && role == "" {
			parts = append(parts, "in "+field)
		}

	case "work_location":
		if location == "" && org == "" {
			return ""
		}
		parts = append(parts, "worked in")
		if location != "" {
			parts = append(parts, location)
		} else {
			parts = append(parts, "the "+org+" area")
		}

	case "residence":
		if location == "" && org == "" {
			return ""
		}
		parts = append(parts, "lived in")
		if location != "" {
			parts = append(parts, location)
		} else {
			parts = append(parts, org)
		}

	case "award":
		if title == "" && org == "" {
			return ""
		}
		parts = append(parts, "received")
		if title != "" {
			parts = append(parts, title)
		} else {
			parts = append(parts, "an award from "+org)
		}
		if location != "" && !mentionsIn() {
			parts = append(parts, "in "+location)
		}

	case "notable_work":
		if title == "" && org == "" {
			return ""
		}
		parts = append(parts, "created")
		if title != "" {
			parts = append(parts, title)
		} else {
			parts = append(parts, org)
		}

	case "significant_event", "participant_in":
		if title == "" && org == "" {
			return ""
		}
		parts = append(parts, "participated in")
		if title != "" {
			parts = append(parts, title)
		} else {
			parts = append(parts, org)
		}
		if location != "" && !mentionsIn() {
			parts = append(parts, "in "+location)
		}

	case "sports_team":
		if org == "" {
			return ""
		}
		parts = append(parts, "played for "+org)
		if role != "" {
			parts = append(parts, "as "+role)
		}

	default:
		switch {
		case org != "":
			parts = append(parts, "was associated with "+org)
		case title != "":
			parts = append(parts, "was involved in "+title)
		case location != "":
			parts = append(parts, "was active in "+location)
		default:
			return ""
		}
	}

	narrative := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if narrative != "" && !strings.HasSuffix(narrative, ".") {
		narrative += "."
	}
	return narrative
}

// Biography is the opening paragraph for a corpus person built from their
// metadata, e.g. "Ada Lovelace was an English mathematician. born in London in 1815."
func Biography(p *models.Person) string {
	var parts []string

	if name := strings.TrimSpace(p.Name); name != "" {
		intro := name + " is"
		if p.DeathDate != nil {
			intro = name + " was"
		}
		description := internal.StringValue(p.Description)
		switch {
		case description != "" && description != noDescription:
			parts = append(parts, fmt.Sprintf("%s %s.", intro, description))
		case len(p.Occupation) > 0:
			occupations := p.Occupation
			if len(occupations) > maxBioOccupations {
				occupations = occupations[:maxBioOccupations]
			}
			parts = append(parts, fmt.Sprintf("%s a %s.", intro, strings.Join(occupations, ", ")))
		}
	}

	birthPlace := internal.StringValue(p.BirthPlace)
	if birthPlace != "" || p.BirthDate != nil {
		var birth []string
		if birthPlace != "" {
			birth = append(birth, "born in "+birthPlace)
		}
		if p.BirthDate != nil {
			if len(birth) > 0 {
				birth = append(birth, fmt.Sprintf("in %d", p.BirthDate.Year()))
			} else {
				birth = append(birth, fmt.Sprintf("born in %d", p.BirthDate.Year()))
			}
		}
		parts = append(parts, strings.Join(birth, " ")+".")
	}

	return strings.Join(parts, " ")
}

// CorpusStats counts how many of a person's events were usable.
type CorpusStats struct {
	TotalEvents   int
	ValidEvents   int
	SkippedEvents int
}

// LifeNarrative builds the corpus narrative for a person: biography, then
// education, career, notable works, awards and residences. Events are
// expected in chronological order.
func LifeNarrative(p *models.PersonWithEvents) (string, CorpusStats) {
	stats := CorpusStats{TotalEvents: len(p.Events)}
	var narratives []string

	if bio := Biography(&p.Person); bio != "" {
		narratives = append(narratives, bio)
	}

	var education, career, awards, works, residences []models.LifeEvent
	for i := range p.Events {
		e := p.Events[i]
		if !IsEventValid(&e) {
			stats.SkippedEvents++
			continue
		}
		stats.ValidEvents++

		switch strings.ToLower(strings.TrimSpace(e.EventType)) {
		case "education":
			education = append(education, e)
		case "employment", "position":
			career = append(career, e)
		case "award":
			awards = append(awards, e)
		case "notable_work", "participant_in", "significant_event", "sports_team":
			works = append(works, e)
		case "residence", "work_location":
			residences = append(residences, e)
		}
	}

	appendIf := func(s string) {
		if s != "" {
			narratives = append(narratives, s)
		}
	}

	appendIf(educationNarrative(education))
	appendIf(careerNarrative(career))
	for i := range works {
		if i == maxWorkNarratives {
			break
		}
		appendIf(EventNarrative(&works[i]))
	}
	appendIf(awardsNarrative(awards))
	for i := range residences {
		if i == maxResidences {
			break
		}
		appendIf(EventNarrative(&residences[i]))
	}

	narrative := strings.Join(narratives, " ")
	if strings.TrimSpace(narrative) == "" {
		narrative = FallbackNarrative
	}
	return narrative, stats
}

func individualNarratives(events []models.LifeEvent) string {
	var out []string
	for i := range events {
		if s := EventNarrative(&events[i]); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, " ")
}

func educationNarrative(events []models.LifeEvent) string {
	if len(events) == 0 {
		return ""
	}
	if len(events) <= individualEventLimit {
		return individualNarratives(events)
	}

	var schools []string
	for _, e := range events {
		org := internal.StringValue(e.Organization)
		if org == "" {
			continue
		}
		var details []string
		if degree := internal.StringValue(e.RoleOrDegree); degree != "" {
			details = append(details, degree)
		}
		if field := internal.StringValue(e.FieldOrMajor); field != "" {
			details = append(details, field)
		}
		if len(details) > 0 {
			org = fmt.Sprintf("%s (%s)", org, strings.Join(details, ", "))
		}
		schools = append(schools, org)
	}

	switch {
	case len(schools) == 0:
		return ""
	case len(schools) == 1:
		return fmt.Sprintf("Studied at %s.", schools[0])
	case len(schools) == 2:
		return fmt.Sprintf("Studied at %s and %s.", schools[0], schools[1])
	default:
		return fmt.Sprintf("Educated at %s.", strings.Join(schools[:maxSchoolsListed], ", "))
	}
}

func careerNarrative(events []models.LifeEvent) string {
	if len(events) == 0 {
		return ""
	}
	if len(events) <= individualEventLimit {
		return individualNarratives(events)
	}

	var positions []string
	for i, e := range events {
		if i == maxCareerSummarized {
			break
		}
		org := internal.StringValue(e.Organization)
		if org == "" {
			continue
		}
		if role := internal.StringValue(e.RoleOrDegree); role != "" {
			positions = append(positions, role+" at "+org)
		} else {
			positions = append(positions, org)
		}
	}

	switch {
	case len(positions) == 0:
		return ""
	case len(positions) == 1:
		return fmt.Sprintf("Worked as %s.", positions[0])
	case len(positions) == 2:
		return fmt.Sprintf("Career included positions at %s and %s.", positions[0], positions[1])
	default:
		listed := positions
		if len(listed) > maxCareerListed {
			listed = listed[:maxCareerListed]
		}
		return fmt.Sprintf("Career included positions at %s.", strings.Join(listed, ", "))
	}
}

func awardsNarrative(events []models.LifeEvent) string {
	if len(events) == 0 {
		return ""
	}
	if len(events) <= individualEventLimit {
		return individualNarratives(events)
	}

	var named []string
	for i, e := range events {
		if i == maxAwardsSummarized {
			break
		}
		title := strings.TrimSpace(e.EventTitle)
		if title == "" {
			continue
		}
		year := e.PointInTime
		if year == nil {
			year = e.StartDate
		}
		if year != nil {
			title = fmt.Sprintf("%s (%s)", title, FormatDate(year))
		}
		named = append(named, title)
	}

	switch {
	case len(named) == 0:
		return ""
	case len(named) <= 3:
		return fmt.Sprintf("Received honors including %s.", joinWithAnd(named))
	default:
		return fmt.Sprintf(
			"Received numerous honors including %s among others.",
			strings.Join(named[:maxAwardsListed], ", "),
		)
	}
}
