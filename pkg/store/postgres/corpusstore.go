package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"github.com/lifeembedding/lifeembedding/pkg/models"
	"github.com/lifeembedding/lifeembedding/pkg/store"
)

var _ models.CorpusStore = &CorpusDAO{}

// CorpusDAO is the Postgres corpus store.
type CorpusDAO struct {
	db         *bun.DB
	dimensions int
}

// NewCorpusDAO returns a store over db. dimensions is the expected embedding
// width; 0 disables the check.
func NewCorpusDAO(db *bun.DB, dimensions int) *CorpusDAO {
	return &CorpusDAO{db: db, dimensions: dimensions}
}

// personSummaryRow is persons LEFT JOIN coordinates_3d.
type personSummaryRow struct {
	PersonID     string   `bun:"person_id"`
	Name         string   `bun:"name"`
	Description  *string  `bun:"description"`
	Occupation   []string `bun:"occupation,array"`
	ClusterID    *int     `bun:"cluster_id"`
	ClusterLabel *string  `bun:"cluster_label"`
	X            *float64 `bun:"x"`
	Y            *float64 `bun:"y"`
	Z            *float64 `bun:"z"`
}

func (r *personSummaryRow) toSummary() (models.PersonSummary, error) {
	var summary models.PersonSummary
	if err := copier.Copy(&summary, r); err != nil {
		return summary, fmt.Errorf("failed to copy person row: %w", err)
	}
	if r.X != nil && r.Y != nil && r.Z != nil {
		summary.Coordinates = &models.Coordinate3D{X: *r.X, Y: *r.Y, Z: *r.Z}
	}
	return summary, nil
}

func (dao *CorpusDAO) personSummaryQuery() *bun.SelectQuery {
	return dao.db.NewSelect().
		TableExpr("persons AS p").
		ColumnExpr("p.person_id, p.name, p.description, p.occupation").
		ColumnExpr("c.cluster_id, c.cluster_label, c.x, c.y, c.z").
		Join("LEFT JOIN coordinates_3d AS c ON c.person_id = p.person_id")
}

func rowsToSummaries(rows []personSummaryRow) ([]models.PersonSummary, error) {
	summaries := make([]models.PersonSummary, len(rows))
	for i := range rows {
		s, err := rows[i].toSummary()
		if err != nil {
			return nil, err
		}
		summaries[i] = s
	}
	return summaries, nil
}

// ListPersons returns persons ordered by name.
func (dao *CorpusDAO) ListPersons(
	ctx context.Context,
	limit, offset int,
) ([]models.PersonSummary, error) {
	var rows []personSummaryRow
	err := dao.personSummaryQuery().
		OrderExpr("p.name ASC, p.person_id ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx, &rows)
	if err != nil {
		return nil, store.NewStorageError("failed to list persons", err)
	}
	return rowsToSummaries(rows)
}

func (dao *CorpusDAO) GetPersonSummaries(
	ctx context.Context,
	personIDs []string,
) (map[string]models.PersonSummary, error) {
	result := make(map[string]models.PersonSummary, len(personIDs))
	if len(personIDs) == 0 {
		return result, nil
	}

	var rows []personSummaryRow
	err := dao.personSummaryQuery().
		Where("p.person_id IN (?)", bun.In(personIDs)).
		Scan(ctx, &rows)
	if err != nil {
		return nil, store.NewStorageError("failed to get person summaries", err)
	}
	for i := range rows {
		s, err := rows[i].toSummary()
		if err != nil {
			return nil, err
		}
		result[s.PersonID] = s
	}
	return result, nil
}

func (dao *CorpusDAO) GetPerson(ctx context.Context, personID string) (*models.PersonDetail, error) {
	person := new(PersonSchema)
	err := dao.db.NewSelect().Model(person).Where("person_id = ?", personID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("person " + personID)
		}
		return nil, store.NewStorageError("failed to get person", err)
	}

	detail := &models.PersonDetail{EventTypes: map[string]int{}}
	if err := copier.Copy(detail, personSchemaToPerson(person)); err != nil {
		return nil, fmt.Errorf("failed to copy person: %w", err)
	}

	coord := new(CoordinateSchema)
	err = dao.db.NewSelect().Model(coord).Where("person_id = ?", personID).Scan(ctx)
	switch {
	case err == nil:
		detail.Coordinates = &models.Coordinate3D{X: coord.X, Y: coord.Y, Z: coord.Z}
		detail.ClusterID = &coord.ClusterID
		detail.ClusterLabel = &coord.ClusterLabel
	case !errors.Is(err, sql.ErrNoRows):
		return nil, store.NewStorageError("failed to get person coordinates", err)
	}

	var counts []struct {
		EventType string `bun:"event_type"`
		Count     int    `bun:"count"`
	}
	err = dao.db.NewSelect().
		Model((*LifeEventSchema)(nil)).
		ColumnExpr("event_type, COUNT(*) AS count").
		Where("person_id = ?", personID).
		GroupExpr("event_type").
		Scan(ctx, &counts)
	if err != nil {
		return nil, store.NewStorageError("failed to count person events", err)
	}
	for _, c := range counts {
		detail.EventTypes[c.EventType] = c.Count
		detail.TotalEvents += c.Count
	}

	return detail, nil
}

func (dao *CorpusDAO) VisualizationPersons(ctx context.Context) ([]models.VisualizationPerson, error) {
	var rows []struct {
		PersonID     string   `bun:"person_id"`
		Name         string   `bun:"name"`
		Description  *string  `bun:"description"`
		Occupation   []string `bun:"occupation,array"`
		X            float64  `bun:"x"`
		Y            float64  `bun:"y"`
		Z            float64  `bun:"z"`
		ClusterID    int      `bun:"cluster_id"`
		ClusterLabel string   `bun:"cluster_label"`
	}
	err := dao.db.NewSelect().
		TableExpr("persons AS p").
		ColumnExpr("p.person_id, p.name, p.description, p.occupation").
		ColumnExpr("c.x, c.y, c.z, c.cluster_id, c.cluster_label").
		Join("JOIN coordinates_3d AS c ON c.person_id = p.person_id").
		OrderExpr("p.name ASC, p.person_id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, store.NewStorageError("failed to get visualization data", err)
	}

	persons := make([]models.VisualizationPerson, len(rows))
	for i := range rows {
		if err := copier.Copy(&persons[i], &rows[i]); err != nil {
			return nil, fmt.Errorf("failed to copy visualization row: %w", err)
		}
	}
	return persons, nil
}

// ClustersInfo returns clusters ordered by id with size, centroid and top occupations.
func (dao *CorpusDAO) ClustersInfo(ctx context.Context) ([]models.ClusterInfo, error) {
	var rows []struct {
		ClusterID    int     `bun:"cluster_id"`
		ClusterLabel string  `bun:"cluster_label"`
		PersonCount  int     `bun:"person_count"`
		AvgX         float64 `bun:"avg_x"`
		AvgY         float64 `bun:"avg_y"`
		AvgZ         float64 `bun:"avg_z"`
	}
	err := dao.db.NewSelect().
		Model((*CoordinateSchema)(nil)).
		ColumnExpr("cluster_id, cluster_label, COUNT(*) AS person_count").
		ColumnExpr("AVG(x) AS avg_x, AVG(y) AS avg_y, AVG(z) AS avg_z").
		GroupExpr("cluster_id, cluster_label").
		OrderExpr("cluster_id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, store.NewStorageError("failed to get clusters", err)
	}

	var occupationRows []store.ClusterOccupationRow
	err = dao.db.NewSelect().
		TableExpr("coordinates_3d AS c").
		ColumnExpr("c.cluster_id, u.occupation, COUNT(*) AS count").
		Join("JOIN persons AS p ON p.person_id = c.person_id").
		Join("CROSS JOIN LATERAL UNNEST(p.occupation) AS u(occupation)").
		GroupExpr("c.cluster_id, u.occupation").
		Scan(ctx, &occupationRows)
	if err != nil {
		return nil, store.NewStorageError("failed to count cluster occupations", err)
	}
	topOccupations := store.TopOccupations(occupationRows, store.TopOccupationLimit)

	clusters := make([]models.ClusterInfo, len(rows))
	for i, r := range rows {
		occupations := topOccupations[r.ClusterID]
		if occupations == nil {
			occupations = []models.OccupationCount{}
		}
		clusters[i] = models.ClusterInfo{
			ClusterID:      r.ClusterID,
			ClusterLabel:   r.ClusterLabel,
			PersonCount:    r.PersonCount,
			TopOccupations: occupations,
			AvgCoordinates: models.Coordinate3D{X: r.AvgX, Y: r.AvgY, Z: r.AvgZ},
		}
	}
	return clusters, nil
}

func (dao *CorpusDAO) PersonsByCluster(
	ctx context.Context,
	clusterID int,
) ([]models.PersonSummary, error) {
	var rows []personSummaryRow
	err := dao.personSummaryQuery().
		Where("c.cluster_id = ?", clusterID).
		OrderExpr("p.name ASC, p.person_id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, store.NewStorageError("failed to get persons by cluster", err)
	}
	return rowsToSummaries(rows)
}

func (dao *CorpusDAO) FetchClusters(ctx context.Context) ([]models.ClusterDescriptor, error) {
	infos, err := dao.ClustersInfo(ctx)
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

func (dao *CorpusDAO) FetchAllCoordinates(ctx context.Context) (*models.CorpusIndex, error) {
	var coords []CoordinateSchema
	err := dao.db.NewSelect().
		Model(&coords).
		Column("person_id", "x", "y", "z").
		OrderExpr("person_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, store.NewStorageError("failed to fetch coordinates", err)
	}

	index := &models.CorpusIndex{
		PersonIDs:   make([]string, len(coords)),
		Coordinates: make([]models.Coordinate3D, len(coords)),
	}
	for i, c := range coords {
		index.PersonIDs[i] = c.PersonID
		index.Coordinates[i] = models.Coordinate3D{X: c.X, Y: c.Y, Z: c.Z}
	}
	if err := index.Validate(); err != nil {
		return nil, err
	}
	return index, nil
}

func (dao *CorpusDAO) FetchAllEmbeddings(ctx context.Context) ([]string, [][]float32, error) {
	var embeddings []EmbeddingSchema
	err := dao.db.NewSelect().
		Model(&embeddings).
		Column("person_id", "embedding_vector").
		OrderExpr("person_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, nil, store.NewStorageError("failed to fetch embeddings", err)
	}

	ids := make([]string, len(embeddings))
	vectors := make([][]float32, len(embeddings))
	for i := range embeddings {
		ids[i] = embeddings[i].PersonID
		vectors[i] = embeddings[i].EmbeddingVector.Slice()
	}
	return ids, vectors, nil
}

// ListPersonsWithEvents returns every person with chronologically ordered events.
func (dao *CorpusDAO) ListPersonsWithEvents(ctx context.Context) ([]models.PersonWithEvents, error) {
	var persons []PersonSchema
	err := dao.db.NewSelect().
		Model(&persons).
		Relation("Events").
		OrderExpr("p.person_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, store.NewStorageError("failed to list persons with events", err)
	}

	result := make([]models.PersonWithEvents, len(persons))
	for i := range persons {
		result[i] = models.PersonWithEvents{
			Person: personSchemaToPerson(&persons[i]),
			Events: make([]models.LifeEvent, 0, len(persons[i].Events)),
		}
		for _, e := range persons[i].Events {
			result[i].Events = append(result[i].Events, lifeEventSchemaToEvent(e))
		}
		models.SortEventsChronologically(result[i].Events)
	}
	return result, nil
}

// PutEmbeddings upserts embeddings keyed by person id.
func (dao *CorpusDAO) PutEmbeddings(ctx context.Context, records []models.PersonEmbedding) error {
	if len(records) == 0 {
		return nil
	}
	if err := store.ValidateEmbeddings(records, dao.dimensions); err != nil {
		return err
	}

	rows := make([]EmbeddingSchema, len(records))
	for i, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		rows[i] = EmbeddingSchema{
			PersonID:        r.PersonID,
			EmbeddingVector: pgvector.NewVector(r.Vector),
			EmbeddingModel:  r.EmbeddingModel,
			EmbeddingDim:    len(r.Vector),
			EmbeddingText:   r.EmbeddingText,
			CreatedAt:       createdAt,
			UpdatedAt:       createdAt,
		}
	}

	_, err := dao.db.NewInsert().
		Model(&rows).
		On("CONFLICT (person_id) DO UPDATE").
		Set("embedding_vector = EXCLUDED.embedding_vector").
		Set("embedding_model = EXCLUDED.embedding_model").
		Set("embedding_dim = EXCLUDED.embedding_dim").
		Set("embedding_text = EXCLUDED.embedding_text").
		Set("updated_at = current_timestamp").
		Exec(ctx)
	if err != nil {
		return store.NewStorageError("failed to put embeddings", err)
	}
	return nil
}

// PutPersons upserts persons and replaces their events.
func (dao *CorpusDAO) PutPersons(ctx context.Context, persons []models.PersonWithEvents) error {
	if len(persons) == 0 {
		return nil
	}
	return dao.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		rows := make([]PersonSchema, len(persons))
		ids := make([]string, len(persons))
		var events []LifeEventSchema
		for i := range persons {
			rows[i] = personToPersonSchema(&persons[i].Person)
			ids[i] = persons[i].PersonID
			for _, e := range persons[i].Events {
				events = append(events, eventToLifeEventSchema(persons[i].PersonID, &e))
			}
		}

		_, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (person_id) DO UPDATE").
			Set("wikidata_id = EXCLUDED.wikidata_id").
			Set("name = EXCLUDED.name").
			Set("description = EXCLUDED.description").
			Set("occupation = EXCLUDED.occupation").
			Set("field_of_work = EXCLUDED.field_of_work").
			Set("birth_date = EXCLUDED.birth_date").
			Set("death_date = EXCLUDED.death_date").
			Set("birth_place = EXCLUDED.birth_place").
			Set("death_place = EXCLUDED.death_place").
			Set("updated_at = current_timestamp").
			Exec(ctx)
		if err != nil {
			return store.NewStorageError("failed to put persons", err)
		}

		_, err = tx.NewDelete().
			Model((*LifeEventSchema)(nil)).
			Where("person_id IN (?)", bun.In(ids)).
			Exec(ctx)
		if err != nil {
			return store.NewStorageError("failed to clear life events", err)
		}

		if len(events) > 0 {
			if _, err := tx.NewInsert().Model(&events).Exec(ctx); err != nil {
				return store.NewStorageError("failed to put life events", err)
			}
		}
		return nil
	})
}

// PutCoordinates upserts projected coordinates.
func (dao *CorpusDAO) PutCoordinates(ctx context.Context, records []store.CoordinateRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]CoordinateSchema, len(records))
	for i, r := range records {
		rows[i] = CoordinateSchema{
			PersonID:        r.PersonID,
			X:               r.Coordinates.X,
			Y:               r.Coordinates.Y,
			Z:               r.Coordinates.Z,
			ReductionMethod: r.ReductionMethod,
			ClusterID:       r.ClusterID,
			ClusterLabel:    r.ClusterLabel,
		}
	}
	_, err := dao.db.NewInsert().
		Model(&rows).
		On("CONFLICT (person_id) DO UPDATE").
		Set("x = EXCLUDED.x").
		Set("y = EXCLUDED.y").
		Set("z = EXCLUDED.z").
		Set("reduction_method = EXCLUDED.reduction_method").
		Set("cluster_id = EXCLUDED.cluster_id").
		Set("cluster_label = EXCLUDED.cluster_label").
		Exec(ctx)
	if err != nil {
		return store.NewStorageError("failed to put coordinates", err)
	}
	return nil
}

func (dao *CorpusDAO) Ping(ctx context.Context) error {
	return dao.db.PingContext(ctx)
}

func (dao *CorpusDAO) Close() error {
	return dao.db.Close()
}

func personSchemaToPerson(p *PersonSchema) models.Person {
	return models.Person{
		PersonID:    p.PersonID,
		WikidataID:  p.WikidataID,
		Name:        p.Name,
		Description: p.Description,
		Occupation:  p.Occupation,
		FieldOfWork: p.FieldOfWork,
		BirthDate:   models.DatePtr(p.BirthDate),
		DeathDate:   models.DatePtr(p.DeathDate),
		BirthPlace:  p.BirthPlace,
		DeathPlace:  p.DeathPlace,
	}
}

func personToPersonSchema(p *models.Person) PersonSchema {
	return PersonSchema{
		PersonID:    p.PersonID,
		WikidataID:  p.WikidataID,
		Name:        p.Name,
		Description: p.Description,
		Occupation:  p.Occupation,
		FieldOfWork: p.FieldOfWork,
		BirthDate:   p.BirthDate.TimePtr(),
		DeathDate:   p.DeathDate.TimePtr(),
		BirthPlace:  p.BirthPlace,
		DeathPlace:  p.DeathPlace,
	}
}

func lifeEventSchemaToEvent(e *LifeEventSchema) models.LifeEvent {
	return models.LifeEvent{
		EventType:        e.EventType,
		EventTitle:       e.EventTitle,
		EventDescription: e.EventDescription,
		StartDate:        models.DatePtr(e.StartDate),
		EndDate:          models.DatePtr(e.EndDate),
		PointInTime:      models.DatePtr(e.PointInTime),
		Organization:     e.Organization,
		Location:         e.Location,
		RoleOrDegree:     e.RoleOrDegree,
		FieldOrMajor:     e.FieldOrMajor,
	}
}

func eventToLifeEventSchema(personID string, e *models.LifeEvent) LifeEventSchema {
	return LifeEventSchema{
		PersonID:         personID,
		EventType:        e.EventType,
		EventTitle:       e.EventTitle,
		EventDescription: e.EventDescription,
		StartDate:        e.StartDate.TimePtr(),
		EndDate:          e.EndDate.TimePtr(),
		PointInTime:      e.PointInTime.TimePtr(),
		Organization:     e.Organization,
		Location:         e.Location,
		RoleOrDegree:     e.RoleOrDegree,
		FieldOrMajor:     e.FieldOrMajor,
	}
}
