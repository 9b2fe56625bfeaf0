package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lifeembedding/lifeembedding/internal"
	"github.com/lifeembedding/lifeembedding/pkg/models"
	"github.com/lifeembedding/lifeembedding/pkg/store"
)

var log = internal.GetLogger()

var _ models.CorpusStore = &CorpusStore{}

// CorpusStore implements models.CorpusStore on SQLite.
type CorpusStore struct {
	db         *sql.DB
	dimensions int
}

// NewCorpusStore opens the database at path, creating the schema if needed.
// Use ":memory:" for a throwaway store.
func NewCorpusStore(path string, dimensions int) (*CorpusStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer. One connection also keeps an in-memory
	// database alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Debugf("opened sqlite corpus store at %s", path)
	return &CorpusStore{db: db, dimensions: dimensions}, nil
}

const summaryQuery = `
SELECT p.person_id, p.name, p.description, p.occupation,
       c.cluster_id, c.cluster_label, c.x, c.y, c.z
FROM persons p
LEFT JOIN coordinates_3d c ON c.person_id = p.person_id`

type summaryRow struct {
	PersonID     string
	Name         string
	Description  *string
	Occupation   []string
	ClusterID    *int
	ClusterLabel *string
}

func scanSummaries(rows *sql.Rows) ([]models.PersonSummary, error) {
	defer rows.Close()

	var summaries []models.PersonSummary
	for rows.Next() {
		var (
			row          summaryRow
			description  sql.NullString
			occupation   string
			clusterID    sql.NullInt64
			clusterLabel sql.NullString
			x, y, z      sql.NullFloat64
		)
		err := rows.Scan(
			&row.PersonID, &row.Name, &description, &occupation,
			&clusterID, &clusterLabel, &x, &y, &z,
		)
		if err != nil {
			return nil, store.NewStorageError("failed to scan person", err)
		}
		row.Description = nullString(description)
		row.ClusterLabel = nullString(clusterLabel)
		if clusterID.Valid {
			id := int(clusterID.Int64)
			row.ClusterID = &id
		}
		if row.Occupation, err = decodeStrings(occupation); err != nil {
			return nil, err
		}

		var summary models.PersonSummary
		if err := copier.Copy(&summary, &row); err != nil {
			return nil, fmt.Errorf("failed to copy person row: %w", err)
		}
		if x.Valid && y.Valid && z.Valid {
			summary.Coordinates = &models.Coordinate3D{X: x.Float64, Y: y.Float64, Z: z.Float64}
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStorageError("failed to read persons", err)
	}
	return summaries, nil
}

func (s *CorpusStore) ListPersons(
	ctx context.Context,
	limit, offset int,
) ([]models.PersonSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		summaryQuery+` ORDER BY p.name, p.person_id LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, store.NewStorageError("failed to list persons", err)
	}
	return scanSummaries(rows)
}

func (s *CorpusStore) GetPersonSummaries(
	ctx context.Context,
	personIDs []string,
) (map[string]models.PersonSummary, error) {
	result := make(map[string]models.PersonSummary, len(personIDs))
	if len(personIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(personIDs)), ",")
	args := make([]any, len(personIDs))
	for i, id := range personIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(
		ctx,
		summaryQuery+` WHERE p.person_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, store.NewStorageError("failed to get person summaries", err)
	}
	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, err
	}
	for _, summary := range summaries {
		result[summary.PersonID] = summary
	}
	return result, nil
}

func (s *CorpusStore) GetPerson(ctx context.Context, personID string) (*models.PersonDetail, error) {
	person, err := s.getPerson(ctx, personID)
	if err != nil {
		return nil, err
	}

	detail := &models.PersonDetail{EventTypes: map[string]int{}}
	if err := copier.Copy(detail, person); err != nil {
		return nil, fmt.Errorf("failed to copy person: %w", err)
	}

	var (
		x, y, z      float64
		clusterID    int
		clusterLabel string
	)
	err = s.db.QueryRowContext(
		ctx,
		`SELECT x, y, z, cluster_id, cluster_label FROM coordinates_3d WHERE person_id = ?`,
		personID,
	).Scan(&x, &y, &z, &clusterID, &clusterLabel)
	switch {
	case err == nil:
		detail.Coordinates = &models.Coordinate3D{X: x, Y: y, Z: z}
		detail.ClusterID = &clusterID
		detail.ClusterLabel = &clusterLabel
	case !errors.Is(err, sql.ErrNoRows):
		return nil, store.NewStorageError("failed to get person coordinates", err)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT event_type, COUNT(*) FROM life_events WHERE person_id = ? GROUP BY event_type`,
		personID,
	)
	if err != nil {
		return nil, store.NewStorageError("failed to count person events", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			eventType string
			count     int
		)
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, store.NewStorageError("failed to scan event count", err)
		}
		detail.EventTypes[eventType] = count
		detail.TotalEvents += count
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStorageError("failed to count person events", err)
	}

	return detail, nil
}

const personColumns = `person_id, wikidata_id, name, description, occupation, field_of_work,
       birth_date, death_date, birth_place, death_place`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (models.Person, error) {
	var (
		p                       models.Person
		description             sql.NullString
		occupation, fieldOfWork string
		birthDate, deathDate    sql.NullString
		birthPlace, deathPlace  sql.NullString
	)
	err := row.Scan(
		&p.PersonID, &p.WikidataID, &p.Name, &description, &occupation, &fieldOfWork,
		&birthDate, &deathDate, &birthPlace, &deathPlace,
	)
	if err != nil {
		return p, err
	}
	p.Description = nullString(description)
	p.BirthPlace = nullString(birthPlace)
	p.DeathPlace = nullString(deathPlace)
	if p.Occupation, err = decodeStrings(occupation); err != nil {
		return p, err
	}
	if p.FieldOfWork, err = decodeStrings(fieldOfWork); err != nil {
		return p, err
	}
	if p.BirthDate, err = nullDate(birthDate); err != nil {
		return p, err
	}
	if p.DeathDate, err = nullDate(deathDate); err != nil {
		return p, err
	}
	return p, nil
}

func (s *CorpusStore) getPerson(ctx context.Context, personID string) (models.Person, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+personColumns+` FROM persons WHERE person_id = ?`,
		personID,
	)
	person, err := scanPerson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return person, models.NewNotFoundError("person " + personID)
		}
		return person, store.NewStorageError("failed to get person", err)
	}
	return person, nil
}

func (s *CorpusStore) VisualizationPersons(ctx context.Context) ([]models.VisualizationPerson, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT p.person_id, p.name, p.description, p.occupation,
       c.x, c.y, c.z, c.cluster_id, c.cluster_label
FROM persons p
JOIN coordinates_3d c ON c.person_id = p.person_id
ORDER BY p.name, p.person_id`)
	if err != nil {
		return nil, store.NewStorageError("failed to get visualization data", err)
	}
	defer rows.Close()

	persons := []models.VisualizationPerson{}
	for rows.Next() {
		var (
			p           models.VisualizationPerson
			description sql.NullString
			occupation  string
		)
		err := rows.Scan(
			&p.PersonID, &p.Name, &description, &occupation,
			&p.X, &p.Y, &p.Z, &p.ClusterID, &p.ClusterLabel,
		)
		if err != nil {
			return nil, store.NewStorageError("failed to scan visualization row", err)
		}
		p.Description = nullString(description)
		if p.Occupation, err = decodeStrings(occupation); err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStorageError("failed to read visualization data", err)
	}
	return persons, nil
}

func (s *CorpusStore) ClustersInfo(ctx context.Context) ([]models.ClusterInfo, error) {
	occupationRows, err := s.clusterOccupations(ctx)
	if err != nil {
		return nil, err
	}
	topOccupations := store.TopOccupations(occupationRows, store.TopOccupationLimit)

	rows, err := s.db.QueryContext(ctx, `
SELECT cluster_id, cluster_label, COUNT(*), AVG(x), AVG(y), AVG(z)
FROM coordinates_3d
GROUP BY cluster_id, cluster_label
ORDER BY cluster_id`)
	if err != nil {
		return nil, store.NewStorageError("failed to get clusters", err)
	}
	defer rows.Close()

	clusters := []models.ClusterInfo{}
	for rows.Next() {
		var c models.ClusterInfo
		err := rows.Scan(
			&c.ClusterID, &c.ClusterLabel, &c.PersonCount,
			&c.AvgCoordinates.X, &c.AvgCoordinates.Y, &c.AvgCoordinates.Z,
		)
		if err != nil {
			return nil, store.NewStorageError("failed to scan cluster", err)
		}
		c.TopOccupations = topOccupations[c.ClusterID]
		if c.TopOccupations == nil {
			c.TopOccupations = []models.OccupationCount{}
		}
		clusters = append(clusters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStorageError("failed to read clusters", err)
	}
	return clusters, nil
}

func (s *CorpusStore) clusterOccupations(ctx context.Context) ([]store.ClusterOccupationRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.cluster_id, j.value, COUNT(*)
FROM coordinates_3d c
JOIN persons p ON p.person_id = c.person_id, json_each(p.occupation) j
GROUP BY c.cluster_id, j.value`)
	if err != nil {
		return nil, store.NewStorageError("failed to count cluster occupations", err)
	}
	defer rows.Close()

	var result []store.ClusterOccupationRow
	for rows.Next() {
		var r store.ClusterOccupationRow
		if err := rows.Scan(&r.ClusterID, &r.Occupation, &r.Count); err != nil {
			return nil, store.NewStorageError("failed to scan cluster occupation", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStorageError("failed to read cluster occupations", err)
	}
	return result, nil
}

func (s *CorpusStore) PersonsByCluster(
	ctx context.Context,
	clusterID int,
) ([]models.PersonSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		summaryQuery+` WHERE c.cluster_id = ? ORDER BY p.name, p.person_id`,
		clusterID,
	)
	if err != nil {
		return nil, store.NewStorageError("failed to get persons by cluster", err)
	}
	return scanSummaries(rows)
}

func (s *CorpusStore) FetchClusters(ctx context.Context) ([]models.ClusterDescriptor, error) {
	infos, err := s.ClustersInfo(ctx)
	if err != nil {
		return nil, err
	}
	clusters := make([]models.ClusterDescriptor, len(infos))
	for i := range infos {
		clusters[i] = infos[i].Descriptor()
	}
	if err := models.ValidateClusters(clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}

func (s *CorpusStore) FetchAllCoordinates(ctx context.Context) (*models.CorpusIndex, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT person_id, x, y, z FROM coordinates_3d ORDER BY person_id`,
	)
	if err != nil {
		return nil, store.NewStorageError("failed to fetch coordinates", err)
	}
	defer rows.Close()

	index := &models.CorpusIndex{}
	for rows.Next() {
		var (
			id string
			c  models.Coordinate3D
		)
		if err := rows.Scan(&id, &c.X, &c.Y, &c.Z); err != nil {
			return nil, store.NewStorageError("failed to scan coordinate", err)
		}
		index.PersonIDs = append(index.PersonIDs, id)
		index.Coordinates = append(index.Coordinates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStorageError("failed to read coordinates", err)
	}
	if err := index.Validate(); err != nil {
		return nil, err
	}
	return index, nil
}

func (s *CorpusStore) FetchAllEmbeddings(ctx context.Context) ([]string, [][]float32, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT person_id, embedding_vector FROM embeddings ORDER BY person_id`,
	)
	if err != nil {
		return nil, nil, store.NewStorageError("failed to fetch embeddings", err)
	}
	defer rows.Close()

	var (
		ids     []string
		vectors [][]float32
	)
	for rows.Next() {
		var (
			id      string
			encoded string
			vector  []float32
		)
		if err := rows.Scan(&id, &encoded); err != nil {
			return nil, nil, store.NewStorageError("failed to scan embedding", err)
		}
		if err := json.Unmarshal([]byte(encoded), &vector); err != nil {
			return nil, nil, fmt.Errorf("failed to decode embedding for %s: %w", id, err)
		}
		ids = append(ids, id)
		vectors = append(vectors, vector)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, store.NewStorageError("failed to read embeddings", err)
	}
	return ids, vectors, nil
}

func (s *CorpusStore) ListPersonsWithEvents(ctx context.Context) ([]models.PersonWithEvents, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+personColumns+` FROM persons ORDER BY person_id`)
	if err != nil {
		return nil, store.NewStorageError("failed to list persons", err)
	}
	var persons []models.PersonWithEvents
	positions := make(map[string]int)
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			rows.Close()
			return nil, store.NewStorageError("failed to scan person", err)
		}
		positions[person.PersonID] = len(persons)
		persons = append(persons, models.PersonWithEvents{Person: person, Events: []models.LifeEvent{}})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, store.NewStorageError("failed to read persons", err)
	}

	events, err := s.db.QueryContext(ctx, `
SELECT person_id, event_type, event_title, event_description, start_date, end_date,
       point_in_time, organization, location, role_or_degree, field_or_major
FROM life_events
ORDER BY person_id, seq`)
	if err != nil {
		return nil, store.NewStorageError("failed to list life events", err)
	}
	defer events.Close()
	for events.Next() {
		personID, event, err := scanEvent(events)
		if err != nil {
			return nil, err
		}
		if i, ok := positions[personID]; ok {
			persons[i].Events = append(persons[i].Events, event)
		}
	}
	if err := events.Err(); err != nil {
		return nil, store.NewStorageError("failed to read life events", err)
	}

	for i := range persons {
		models.SortEventsChronologically(persons[i].Events)
	}
	return persons, nil
}

func scanEvent(rows *sql.Rows) (string, models.LifeEvent, error) {
	var (
		personID                  string
		e                         models.LifeEvent
		description, organization sql.NullString
		location, role, field     sql.NullString
		start, end, pointInTime   sql.NullString
	)
	err := rows.Scan(
		&personID, &e.EventType, &e.EventTitle, &description, &start, &end,
		&pointInTime, &organization, &location, &role, &field,
	)
	if err != nil {
		return "", e, store.NewStorageError("failed to scan life event", err)
	}
	e.EventDescription = nullString(description)
	e.Organization = nullString(organization)
	e.Location = nullString(location)
	e.RoleOrDegree = nullString(role)
	e.FieldOrMajor = nullString(field)
	if e.StartDate, err = nullDate(start); err != nil {
		return "", e, err
	}
	if e.EndDate, err = nullDate(end); err != nil {
		return "", e, err
	}
	if e.PointInTime, err = nullDate(pointInTime); err != nil {
		return "", e, err
	}
	return personID, e, nil
}

// PutEmbeddings upserts embeddings keyed by person id.
func (s *CorpusStore) PutEmbeddings(ctx context.Context, records []models.PersonEmbedding) error {
	if len(records) == 0 {
		return nil
	}
	if err := store.ValidateEmbeddings(records, s.dimensions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO embeddings (person_id, embedding_vector, embedding_model, embedding_dim, embedding_text)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(person_id) DO UPDATE SET
	embedding_vector = excluded.embedding_vector,
	embedding_model = excluded.embedding_model,
	embedding_dim = excluded.embedding_dim,
	embedding_text = excluded.embedding_text,
	updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return store.NewStorageError("failed to prepare embedding insert", err)
	}
	defer stmt.Close()

	for _, r := range records {
		encoded, err := json.Marshal(r.Vector)
		if err != nil {
			return fmt.Errorf("failed to encode embedding for %s: %w", r.PersonID, err)
		}
		_, err = stmt.ExecContext(
			ctx, r.PersonID, string(encoded), r.EmbeddingModel, len(r.Vector), r.EmbeddingText,
		)
		if err != nil {
			return store.NewStorageError("failed to put embedding "+r.PersonID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return store.NewStorageError("failed to commit embeddings", err)
	}
	return nil
}

// PutPersons upserts persons and replaces their events.
func (s *CorpusStore) PutPersons(ctx context.Context, persons []models.PersonWithEvents) error {
	if len(persons) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range persons {
		p := &persons[i]
		occupation, err := encodeStrings(p.Occupation)
		if err != nil {
			return err
		}
		fieldOfWork, err := encodeStrings(p.FieldOfWork)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO persons (person_id, wikidata_id, name, description, occupation, field_of_work,
                     birth_date, death_date, birth_place, death_place)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(person_id) DO UPDATE SET
	wikidata_id = excluded.wikidata_id,
	name = excluded.name,
	description = excluded.description,
	occupation = excluded.occupation,
	field_of_work = excluded.field_of_work,
	birth_date = excluded.birth_date,
	death_date = excluded.death_date,
	birth_place = excluded.birth_place,
	death_place = excluded.death_place,
	updated_at = CURRENT_TIMESTAMP`,
			p.PersonID, p.WikidataID, p.Name, stringValue(p.Description), occupation, fieldOfWork,
			dateValue(p.BirthDate), dateValue(p.DeathDate), stringValue(p.BirthPlace), stringValue(p.DeathPlace),
		)
		if err != nil {
			return store.NewStorageError("failed to put person "+p.PersonID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM life_events WHERE person_id = ?`, p.PersonID); err != nil {
			return store.NewStorageError("failed to clear life events", err)
		}
		for seq, e := range p.Events {
			_, err := tx.ExecContext(ctx, `
INSERT INTO life_events (uuid, person_id, event_type, event_title, event_description,
                         start_date, end_date, point_in_time, organization, location,
                         role_or_degree, field_or_major, seq)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), p.PersonID, e.EventType, e.EventTitle, stringValue(e.EventDescription),
				dateValue(e.StartDate), dateValue(e.EndDate), dateValue(e.PointInTime),
				stringValue(e.Organization), stringValue(e.Location),
				stringValue(e.RoleOrDegree), stringValue(e.FieldOrMajor), seq,
			)
			if err != nil {
				return store.NewStorageError("failed to put life event", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return store.NewStorageError("failed to commit persons", err)
	}
	return nil
}

// PutCoordinates upserts projected coordinates.
func (s *CorpusStore) PutCoordinates(ctx context.Context, records []store.CoordinateRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range records {
		method := r.ReductionMethod
		if method == "" {
			method = "pca_umap"
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO coordinates_3d (person_id, x, y, z, reduction_method, cluster_id, cluster_label)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(person_id) DO UPDATE SET
	x = excluded.x,
	y = excluded.y,
	z = excluded.z,
	reduction_method = excluded.reduction_method,
	cluster_id = excluded.cluster_id,
	cluster_label = excluded.cluster_label`,
			r.PersonID, r.Coordinates.X, r.Coordinates.Y, r.Coordinates.Z,
			method, r.ClusterID, r.ClusterLabel,
		)
		if err != nil {
			return store.NewStorageError("failed to put coordinates "+r.PersonID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return store.NewStorageError("failed to commit coordinates", err)
	}
	return nil
}

func (s *CorpusStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CorpusStore) Close() error {
	return s.db.Close()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullDate(ns sql.NullString) (*models.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := models.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func stringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func dateValue(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode string list: %w", err)
	}
	return string(encoded), nil
}

func decodeStrings(encoded string) ([]string, error) {
	if encoded == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(encoded), &values); err != nil {
		return nil, fmt.Errorf("failed to decode string list: %w", err)
	}
	return values, nil
}
