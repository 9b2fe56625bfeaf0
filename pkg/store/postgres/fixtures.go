package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dbfixture"
	"github.com/uptrace/bun/extra/bundebug"
	"gopkg.in/yaml.v3"

	"github.com/lifeembedding/lifeembedding/config"
)

type Row interface {
	PersonSchema | LifeEventSchema | CoordinateSchema
}

type FixtureModel[T Row] struct {
	Model string `yaml:"model"`
	Rows  []T    `yaml:"rows"`
}

type Fixtures[T Row] []FixtureModel[T]

var fixtureClusters = []string{
	"Scientists & Researchers",
	"Artists & Writers",
	"Politicians & Leaders",
	"Athletes",
	"Entrepreneurs",
}

var fixtureOccupations = [][]string{
	{"physicist", "chemist", "mathematician"},
	{"painter", "novelist", "poet"},
	{"politician", "diplomat", "lawyer"},
	{"footballer", "swimmer", "tennis player"},
	{"businessperson", "engineer", "investor"},
}

var fixtureEventTypes = []string{"education", "employment", "award", "residence"}

func fakeDate(minYear, maxYear int) *time.Time {
	t := gofakeit.DateRange(
		time.Date(minYear, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(maxYear, 12, 31, 0, 0, 0, 0, time.UTC),
	)
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &t
}

func fakeString(s string) *string {
	return &s
}

func fakeEvent(personID, eventType string, born time.Time) LifeEventSchema {
	start := fakeDate(born.Year()+18, born.Year()+60)
	event := LifeEventSchema{
		UUID:      uuid.New(),
		PersonID:  personID,
		EventType: eventType,
		CreatedAt: time.Now().UTC(),
	}
	switch eventType {
	case "education":
		event.EventTitle = gofakeit.Company() + " University"
		event.Organization = fakeString(event.EventTitle)
		event.RoleOrDegree = fakeString(gofakeit.RandomString([]string{"BSc", "MA", "PhD"}))
		event.FieldOrMajor = fakeString(gofakeit.JobDescriptor())
		event.StartDate = start
	case "employment":
		event.EventTitle = gofakeit.JobTitle()
		event.Organization = fakeString(gofakeit.Company())
		event.RoleOrDegree = fakeString(event.EventTitle)
		event.StartDate = start
	case "award":
		event.EventTitle = gofakeit.Adjective() + " " + gofakeit.Noun() + " Prize"
		event.PointInTime = start
	default:
		event.EventTitle = gofakeit.City()
		event.Location = fakeString(event.EventTitle)
		event.StartDate = start
	}
	return event
}

// GenerateFixtureData writes persons, life events and clustered coordinates
// as dbfixture YAML files into outputDir.
func GenerateFixtureData(fixtureCount int, outputDir string) error {
	fakerGlobal := gofakeit.NewUnlocked(0)
	gofakeit.SetGlobalFaker(fakerGlobal)

	persons := make([]PersonSchema, fixtureCount)
	coordinates := make([]CoordinateSchema, fixtureCount)
	var events []LifeEventSchema

	for i := 0; i < fixtureCount; i++ {
		clusterID := i % len(fixtureClusters)
		personID := fmt.Sprintf("Q%d", 1000+i)
		born := fakeDate(1850, 1990)
		description := gofakeit.Sentence(8)
		now := time.Now().UTC()

		persons[i] = PersonSchema{
			PersonID:    personID,
			WikidataID:  personID,
			Name:        gofakeit.Name(),
			Description: &description,
			Occupation:  fixtureOccupations[clusterID][:gofakeit.Number(1, 3)],
			BirthDate:   born,
			BirthPlace:  fakeString(gofakeit.City()),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		eventCount := gofakeit.Number(2, 8)
		for j := 0; j < eventCount; j++ {
			eventType := fixtureEventTypes[gofakeit.Number(0, len(fixtureEventTypes)-1)]
			events = append(events, fakeEvent(personID, eventType, *born))
		}

		// clusters sit on the x axis, 10 units apart
		coordinates[i] = CoordinateSchema{
			PersonID:        personID,
			X:               float64(clusterID*10) + gofakeit.Float64Range(-2, 2),
			Y:               gofakeit.Float64Range(-2, 2),
			Z:               gofakeit.Float64Range(-2, 2),
			ReductionMethod: "pca_umap",
			ClusterID:       clusterID,
			ClusterLabel:    fixtureClusters[clusterID],
		}
	}

	if outputDir == "" {
		outputDir = "./"
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("unable to create %s: %w", outputDir, err)
	}

	if err := writeFixtureToYAML(
		Fixtures[PersonSchema]{{Model: "PersonSchema", Rows: persons}},
		outputDir, "01_person_fixtures.yaml",
	); err != nil {
		return err
	}
	if err := writeFixtureToYAML(
		Fixtures[LifeEventSchema]{{Model: "LifeEventSchema", Rows: events}},
		outputDir, "02_life_event_fixtures.yaml",
	); err != nil {
		return err
	}
	return writeFixtureToYAML(
		Fixtures[CoordinateSchema]{{Model: "CoordinateSchema", Rows: coordinates}},
		outputDir, "03_coordinate_fixtures.yaml",
	)
}

func writeFixtureToYAML[T Row](fixtures Fixtures[T], outputDir, filename string) error {
	data, err := yaml.Marshal(&fixtures)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filename, err)
	}

	if err := os.WriteFile(filepath.Join(outputDir, filename), data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	log.Infof("fixtures generated successfully in %s", filename)
	return nil
}

// LoadFixtures recreates the schema and loads every YAML fixture in fixturePath,
// in file name order.
func LoadFixtures(
	ctx context.Context,
	cfg *config.Config,
	db *bun.DB,
	fixturePath string,
) error {
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))

	if err := DropSchema(ctx, db); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}

	if err := CreateSchema(ctx, cfg, db); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	db.RegisterModel(
		(*PersonSchema)(nil),
		(*LifeEventSchema)(nil),
		(*CoordinateSchema)(nil),
		(*EmbeddingSchema)(nil),
	)

	fixture := dbfixture.New(db)

	files, err := os.ReadDir(fixturePath)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(file.Name())) {
		case ".yaml", ".yml":
			if err := fixture.Load(ctx, os.DirFS(fixturePath), file.Name()); err != nil {
				return fmt.Errorf("failed to load fixture %s: %w", file.Name(), err)
			}
		}
	}

	return nil
}
