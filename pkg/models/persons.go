package models

import "time"

// Person is a corpus person as stored.
type Person struct {
	PersonID    string   `json:"person_id"`
	WikidataID  string   `json:"wikidata_id"`
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Occupation  []string `json:"occupation"`
	FieldOfWork []string `json:"field_of_work"`
	BirthDate   *Date    `json:"birth_date"`
	DeathDate   *Date    `json:"death_date"`
	BirthPlace  *string  `json:"birth_place"`
	DeathPlace  *string  `json:"death_place"`
}

// PersonWithEvents pairs a person with their life events in chronological order.
type PersonWithEvents struct {
	Person
	Events []LifeEvent
}

type PersonSummary struct {
	PersonID     string        `json:"person_id"`
	Name         string        `json:"name"`
	Description  *string       `json:"description"`
	Occupation   []string      `json:"occupation"`
	ClusterID    *int          `json:"cluster_id"`
	ClusterLabel *string       `json:"cluster_label"`
	Coordinates  *Coordinate3D `json:"coordinates"`
}

type PersonDetail struct {
	PersonID     string         `json:"person_id"`
	WikidataID   string         `json:"wikidata_id"`
	Name         string         `json:"name"`
	Description  *string        `json:"description"`
	Occupation   []string       `json:"occupation"`
	FieldOfWork  []string       `json:"field_of_work"`
	BirthDate    *Date          `json:"birth_date"`
	DeathDate    *Date          `json:"death_date"`
	BirthPlace   *string        `json:"birth_place"`
	DeathPlace   *string        `json:"death_place"`
	Coordinates  *Coordinate3D  `json:"coordinates"`
	ClusterID    *int           `json:"cluster_id"`
	ClusterLabel *string        `json:"cluster_label"`
	TotalEvents  int            `json:"total_events"`
	EventTypes   map[string]int `json:"event_types"`
}

type VisualizationPerson struct {
	PersonID     string   `json:"person_id"`
	Name         string   `json:"name"`
	Description  *string  `json:"description"`
	Occupation   []string `json:"occupation"`
	X            float64  `json:"x"`
	Y            float64  `json:"y"`
	Z            float64  `json:"z"`
	ClusterID    int      `json:"cluster_id"`
	ClusterLabel string   `json:"cluster_label"`
}

type VisualizationMetadata struct {
	TotalPersons int       `json:"total_persons"`
	NumClusters  int       `json:"num_clusters"`
	GeneratedAt  time.Time `json:"generated_at"`
}

type VisualizationData struct {
	Persons  []VisualizationPerson `json:"persons"`
	Metadata VisualizationMetadata `json:"metadata"`
}

type OccupationCount struct {
	Occupation string `json:"occupation"`
	Count      int    `json:"count"`
}

// ClusterInfo is a cluster with its aggregate statistics. AvgCoordinates is the centroid.
type ClusterInfo struct {
	ClusterID      int               `json:"cluster_id"`
	ClusterLabel   string            `json:"cluster_label"`
	PersonCount    int               `json:"person_count"`
	TopOccupations []OccupationCount `json:"top_occupations"`
	AvgCoordinates Coordinate3D      `json:"avg_coordinates"`
}

func (ci ClusterInfo) Descriptor() ClusterDescriptor {
	return ClusterDescriptor{
		ClusterID:    ci.ClusterID,
		ClusterLabel: ci.ClusterLabel,
		Centroid:     ci.AvgCoordinates,
	}
}

type SimilarPerson struct {
	PersonID        string   `json:"person_id"`
	Name            string   `json:"name"`
	Description     *string  `json:"description"`
	Occupation      []string `json:"occupation"`
	Distance        float64  `json:"distance"`
	SimilarityScore float64  `json:"similarity_score"`
	ClusterID       *int     `json:"cluster_id"`
	ClusterLabel    *string  `json:"cluster_label"`
}

// UserEmbeddingRequest is a submitted biography.
type UserEmbeddingRequest struct {
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	LifeEvents  []LifeEvent `json:"life_events"           validate:"required,min=1,dive"`
}

func (r *UserEmbeddingRequest) NarrativeInput() NarrativeInput {
	return NarrativeInput{
		Name:        r.Name,
		Description: r.Description,
		Events:      r.LifeEvents,
	}
}

type UserEmbeddingResponse struct {
	UserCoordinates    Coordinate3D    `json:"user_coordinates"`
	NearestCluster     ClusterInfo     `json:"nearest_cluster"`
	SimilarPersons     []SimilarPerson `json:"similar_persons"`
	NarrativeText      string          `json:"narrative_text"`
	EmbeddingDimension int             `json:"embedding_dimension"`
	ProcessingTimeMs   float64         `json:"processing_time_ms"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

// PersonEmbedding is a stored corpus embedding.
type PersonEmbedding struct {
	PersonID       string    `json:"person_id"`
	Vector         []float32 `json:"embedding_vector"`
	EmbeddingModel string    `json:"embedding_model"`
	EmbeddingDim   int       `json:"embedding_dim"`
	EmbeddingText  string    `json:"embedding_text"`
	CreatedAt      time.Time `json:"created_at"`
}
