package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunotel"

	"github.com/lifeembedding/lifeembedding/config"
	"github.com/lifeembedding/lifeembedding/internal"
	"github.com/lifeembedding/lifeembedding/pkg/store/postgres/migrations"
)

var log = internal.GetLogger()

const (
	dbName = "lifeembedding"

	embeddingsTable  = "embeddings"
	embeddingsColumn = "embedding_vector"
)

type PersonSchema struct {
	bun.BaseModel `bun:"table:persons,alias:p" yaml:"-"`

	PersonID    string             `bun:",pk"                                                         yaml:"person_id"`
	WikidataID  string             `bun:",notnull"                                                    yaml:"wikidata_id"`
	Name        string             `bun:",notnull"                                                    yaml:"name"`
	Description *string            `bun:","                                                           yaml:"description,omitempty"`
	Occupation  []string           `bun:",array"                                                      yaml:"occupation,omitempty"`
	FieldOfWork []string           `bun:",array"                                                      yaml:"field_of_work,omitempty"`
	BirthDate   *time.Time         `bun:"type:date"                                                   yaml:"birth_date,omitempty"`
	DeathDate   *time.Time         `bun:"type:date"                                                   yaml:"death_date,omitempty"`
	BirthPlace  *string            `bun:","                                                           yaml:"birth_place,omitempty"`
	DeathPlace  *string            `bun:","                                                           yaml:"death_place,omitempty"`
	CreatedAt   time.Time          `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp" yaml:"created_at,omitempty"`
	UpdatedAt   time.Time          `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp" yaml:"updated_at,omitempty"`
	Events      []*LifeEventSchema `bun:"rel:has-many,join:person_id=person_id"                       yaml:"-"`
}

var _ bun.BeforeAppendModelHook = (*PersonSchema)(nil)

func (s *PersonSchema) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

// BeforeCreateTable is a marker method to ensure uniform interface across all table models - used in table creation iterator
func (s *PersonSchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

type LifeEventSchema struct {
	bun.BaseModel `bun:"table:life_events,alias:le" yaml:"-"`

	UUID             uuid.UUID     `bun:",pk,type:uuid,default:gen_random_uuid()"                   yaml:"uuid"`
	PersonID         string        `bun:",notnull"                                                  yaml:"person_id"`
	EventType        string        `bun:",notnull"                                                  yaml:"event_type"`
	EventTitle       string        `bun:","                                                         yaml:"event_title"`
	EventDescription *string       `bun:","                                                         yaml:"event_description,omitempty"`
	StartDate        *time.Time    `bun:"type:date"                                                 yaml:"start_date,omitempty"`
	EndDate          *time.Time    `bun:"type:date"                                                 yaml:"end_date,omitempty"`
	PointInTime      *time.Time    `bun:"type:date"                                                 yaml:"point_in_time,omitempty"`
	Organization     *string       `bun:","                                                         yaml:"organization,omitempty"`
	Location         *string       `bun:","                                                         yaml:"location,omitempty"`
	RoleOrDegree     *string       `bun:","                                                         yaml:"role_or_degree,omitempty"`
	FieldOrMajor     *string       `bun:","                                                         yaml:"field_or_major,omitempty"`
	CreatedAt        time.Time     `bun:"type:timestamptz,notnull,default:current_timestamp"        yaml:"created_at,omitempty"`
	Person           *PersonSchema `bun:"rel:belongs-to,join:person_id=person_id,on_delete:cascade" yaml:"-"`
}

func (s *LifeEventSchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

// EmbeddingSchema stores a person's narrative embedding. The vector column is
// resized to embeddings.dimensions by CreateSchema.
type EmbeddingSchema struct {
	bun.BaseModel `bun:"table:embeddings,alias:e"`

	PersonID        string          `bun:",pk"`
	EmbeddingVector pgvector.Vector `bun:"type:vector(768),notnull"`
	EmbeddingModel  string          `bun:",notnull"`
	EmbeddingDim    int             `bun:",notnull"`
	EmbeddingText   string          `bun:","`
	CreatedAt       time.Time       `bun:"type:timestamptz,notnull,default:current_timestamp"`
	UpdatedAt       time.Time       `bun:"type:timestamptz,nullzero,default:current_timestamp"`
	Person          *PersonSchema   `bun:"rel:belongs-to,join:person_id=person_id,on_delete:cascade"`
}

var _ bun.BeforeAppendModelHook = (*EmbeddingSchema)(nil)

func (s *EmbeddingSchema) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (s *EmbeddingSchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

// CoordinateSchema is a person's position in the 3D space and their cluster.
type CoordinateSchema struct {
	bun.BaseModel `bun:"table:coordinates_3d,alias:c" yaml:"-"`

	PersonID        string        `bun:",pk"                                                       yaml:"person_id"`
	X               float64       `bun:"x,notnull"                                                 yaml:"x"`
	Y               float64       `bun:"y,notnull"                                                 yaml:"y"`
	Z               float64       `bun:"z,notnull"                                                 yaml:"z"`
	ReductionMethod string        `bun:",notnull,default:'pca_umap'"                               yaml:"reduction_method"`
	ClusterID       int           `bun:",notnull"                                                  yaml:"cluster_id"`
	ClusterLabel    string        `bun:",notnull"                                                  yaml:"cluster_label"`
	Person          *PersonSchema `bun:"rel:belongs-to,join:person_id=person_id,on_delete:cascade" yaml:"-"`
}

func (s *CoordinateSchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

var _ bun.AfterCreateTableHook = (*PersonSchema)(nil)
var _ bun.AfterCreateTableHook = (*LifeEventSchema)(nil)
var _ bun.AfterCreateTableHook = (*CoordinateSchema)(nil)

func (*PersonSchema) AfterCreateTable(
	ctx context.Context,
	query *bun.CreateTableQuery,
) error {
	_, err := query.DB().NewCreateIndex().
		Model((*PersonSchema)(nil)).
		Index("persons_name_idx").
		Column("name").
		IfNotExists().
		Exec(ctx)
	return err
}

func (*LifeEventSchema) AfterCreateTable(
	ctx context.Context,
	query *bun.CreateTableQuery,
) error {
	colsToIndex := []string{"person_id", "event_type"}
	for _, col := range colsToIndex {
		_, err := query.DB().NewCreateIndex().
			Model((*LifeEventSchema)(nil)).
			Index(fmt.Sprintf("life_events_%s_idx", col)).
			Column(col).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (*CoordinateSchema) AfterCreateTable(
	ctx context.Context,
	query *bun.CreateTableQuery,
) error {
	_, err := query.DB().NewCreateIndex().
		Model((*CoordinateSchema)(nil)).
		Index("coordinates_3d_cluster_id_idx").
		Column("cluster_id").
		IfNotExists().
		Exec(ctx)
	return err
}

// tableList is ordered parent first. Tables are created in this order and
// dropped in reverse.
var tableList = []bun.BeforeCreateTableHook{
	&PersonSchema{},
	&LifeEventSchema{},
	&EmbeddingSchema{},
	&CoordinateSchema{},
}

// NewPostgresConn creates a new bun.DB connection to a postgres database using the provided DSN.
// The connection is configured to pool connections based on the number of PROCs available.
// The initial ping is retried so the service can start alongside its database.
func NewPostgresConn(cfg *config.Config) (*bun.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	maxOpenConns := 4 * runtime.GOMAXPROCS(0)

	sqldb := sql.OpenDB(
		pgdriver.NewConnector(
			pgdriver.WithDSN(cfg.Store.Postgres.DSN),
			pgdriver.WithReadTimeout(10*time.Minute),
		),
	)
	sqldb.SetMaxOpenConns(maxOpenConns)
	sqldb.SetMaxIdleConns(maxOpenConns)

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(dbName)))

	pingRetryPolicy := retrypolicy.Builder[any]().
		WithBackoff(500*time.Millisecond, 5*time.Second).
		WithMaxRetries(5).
		Build()

	err := failsafe.Run(func() error {
		return db.PingContext(ctx)
	}, pingRetryPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := enablePgVectorExtension(ctx, db); err != nil {
		log.Print("error enabling pgvector extension: ", err)
		return nil, err
	}

	return db, nil
}

// enablePgVectorExtension creates the pgvector extension if it does not exist and updates it if it is out of date.
func enablePgVectorExtension(ctx context.Context, db *bun.DB) error {
	_, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("error creating pgvector extension: %w", err)
	}

	// this is a no-op if the extension is already up to date
	_, err = db.ExecContext(ctx, "ALTER EXTENSION vector UPDATE")
	if err != nil {
		return fmt.Errorf("error updating pgvector extension: %w", err)
	}

	return nil
}

// CreateSchema creates the db schema if it does not exist.
func CreateSchema(
	ctx context.Context,
	cfg *config.Config,
	db *bun.DB,
) error {
	for _, schema := range tableList {
		_, err := db.NewCreateTable().
			Model(schema).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx)
		if err != nil {
			// bun still trying to create indexes despite IfNotExists flag
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("error creating table for schema %T: %w", schema, err)
		}
	}

	if err := checkEmbeddingDims(ctx, cfg.Embeddings.Dimensions, db); err != nil {
		return fmt.Errorf("error checking embedding dimensions: %w", err)
	}

	isHNSW, err := isHNSWAvailable(ctx, db)
	if err != nil {
		return fmt.Errorf("error checking if hnsw indexes are available: %w", err)
	}
	if isHNSW {
		if err := createHNSWIndex(ctx, db, embeddingsTable, embeddingsColumn); err != nil {
			return fmt.Errorf("error creating hnsw index: %w", err)
		}
	}

	if err := migrations.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// DropSchema drops every corpus table.
func DropSchema(ctx context.Context, db *bun.DB) error {
	for i := len(tableList) - 1; i >= 0; i-- {
		_, err := db.NewDropTable().
			Model(tableList[i]).
			Cascade().
			IfExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("error dropping table for schema %T: %w", tableList[i], err)
		}
	}
	return nil
}

// isHNSWAvailable checks if the vector extension version is 0.5.0+.
func isHNSWAvailable(ctx context.Context, db *bun.DB) (bool, error) {
	const minVersion = "0.5.0"
	requiredVersion, err := semver.NewVersion(minVersion)
	if err != nil {
		return false, fmt.Errorf("error parsing required vector extension version: %w", err)
	}

	var version string
	err = db.NewSelect().
		Column("extversion").
		TableExpr("pg_extension").
		Where("extname = 'vector'").
		Scan(ctx, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("vector extension not installed")
			return false, nil
		}
		return false, fmt.Errorf("error checking vector extension version: %w", err)
	}

	return versionAtLeast(version, requiredVersion)
}

func versionAtLeast(version string, required *semver.Version) (bool, error) {
	thisVersion, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("error parsing vector extension version: %w", err)
	}
	return !thisVersion.LessThan(required), nil
}

// createHNSWIndex creates an HNSW index on the given table and column if it does not exist.
// Coordinates are searched in memory, so this only serves ad hoc similarity queries
// against the stored embeddings. Only vector_l2_ops is used.
func createHNSWIndex(ctx context.Context, db *bun.DB, table, column string) error {
	const (
		m              = 16
		efConstruction = 64
	)

	idx := table + "_" + column + "_hnsw_idx"

	log.Infof("creating hnsw index on %s.%s if it does not exist", table, column)

	_, err := db.ExecContext(
		ctx,
		"CREATE INDEX IF NOT EXISTS ? ON ? USING hnsw (? vector_l2_ops) WITH (M = ?, ef_construction = ?);",
		bun.Safe(idx),
		bun.Ident(table),
		bun.Ident(column),
		m,
		efConstruction,
	)
	if err != nil {
		return err
	}

	log.Infof("created hnsw index successfully on %s.%s if it did not exist", table, column)

	return nil
}

// checkEmbeddingDims compares the embedding column width with the configured
// dimensions. On mismatch the column is dropped and recreated, which discards
// stored vectors.
func checkEmbeddingDims(ctx context.Context, dimensions int, db *bun.DB) error {
	if dimensions <= 0 {
		return nil
	}
	width, err := getEmbeddingColumnWidth(ctx, db)
	if err != nil {
		return err
	}
	if width == dimensions {
		return nil
	}

	log.Warnf(
		"embedding dimensions are %d, expected %d. migrating embedding column width to %d. "+
			"existing embedding vectors will be lost",
		width,
		dimensions,
		dimensions,
	)
	return migrateEmbeddingDims(ctx, db, dimensions)
}

// getEmbeddingColumnWidth returns the width of the embedding column.
func getEmbeddingColumnWidth(ctx context.Context, db *bun.DB) (int, error) {
	var width int
	err := db.NewSelect().
		Table("pg_attribute").
		ColumnExpr("atttypmod"). // vector width is stored in atttypmod
		Where("attrelid = ?::regclass", embeddingsTable).
		Where("attname = ?", embeddingsColumn).
		Scan(ctx, &width)
	if err != nil {
		return 0, fmt.Errorf("error getting embedding column width: %w", err)
	}
	return width, nil
}

func migrateEmbeddingDims(ctx context.Context, db *bun.DB, dimensions int) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*EmbeddingSchema)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("error clearing embeddings: %w", err)
		}
		_, err := tx.ExecContext(
			ctx,
			"ALTER TABLE ? ALTER COLUMN ? TYPE vector(?)",
			bun.Ident(embeddingsTable),
			bun.Ident(embeddingsColumn),
			dimensions,
		)
		if err != nil {
			return fmt.Errorf("error resizing embedding column: %w", err)
		}
		return nil
	})
}
