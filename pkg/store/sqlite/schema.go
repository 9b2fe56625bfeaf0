// Package sqlite is an embedded corpus store for local runs and tests.
package sqlite

// Schema mirrors the Postgres tables. Arrays and vectors are stored as JSON
// text and dates as YYYY-MM-DD.
const Schema = `
CREATE TABLE IF NOT EXISTS persons (
	person_id     TEXT PRIMARY KEY,
	wikidata_id   TEXT NOT NULL,
	name          TEXT NOT NULL,
	description   TEXT,
	occupation    TEXT NOT NULL DEFAULT '[]',
	field_of_work TEXT NOT NULL DEFAULT '[]',
	birth_date    TEXT,
	death_date    TEXT,
	birth_place   TEXT,
	death_place   TEXT,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS persons_name_idx ON persons(name);

CREATE TABLE IF NOT EXISTS life_events (
	uuid              TEXT PRIMARY KEY,
	person_id         TEXT NOT NULL REFERENCES persons(person_id) ON DELETE CASCADE,
	event_type        TEXT NOT NULL,
	event_title       TEXT NOT NULL DEFAULT '',
	event_description TEXT,
	start_date        TEXT,
	end_date          TEXT,
	point_in_time     TEXT,
	organization      TEXT,
	location          TEXT,
	role_or_degree    TEXT,
	field_or_major    TEXT,
	seq               INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS life_events_person_id_idx ON life_events(person_id);
CREATE INDEX IF NOT EXISTS life_events_event_type_idx ON life_events(event_type);

CREATE TABLE IF NOT EXISTS embeddings (
	person_id        TEXT PRIMARY KEY REFERENCES persons(person_id) ON DELETE CASCADE,
	embedding_vector TEXT NOT NULL,
	embedding_model  TEXT NOT NULL,
	embedding_dim    INTEGER NOT NULL,
	embedding_text   TEXT,
	created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS embeddings_embedding_model_idx ON embeddings(embedding_model);

CREATE TABLE IF NOT EXISTS coordinates_3d (
	person_id        TEXT PRIMARY KEY REFERENCES persons(person_id) ON DELETE CASCADE,
	x                REAL NOT NULL,
	y                REAL NOT NULL,
	z                REAL NOT NULL,
	reduction_method TEXT NOT NULL DEFAULT 'pca_umap',
	cluster_id       INTEGER NOT NULL,
	cluster_label    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS coordinates_3d_cluster_id_idx ON coordinates_3d(cluster_id);
`
