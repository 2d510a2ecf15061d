package models

import (
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Candidate is a local file discovered during the scan phase, paired with its
// content checksum once hashing has run.
type Candidate struct {
	Path     string `json:"path"`               // Absolute file path
	Size     int64  `json:"size"`               // File size in bytes
	Checksum string `json:"checksum,omitempty"` // Hex-encoded MD5 of the file contents
}

// Disposition classifies what happened to a candidate during an upload run.
type Disposition string

const (
	DispositionUploaded Disposition = "uploaded"
	DispositionSkipped  Disposition = "skipped"
	DispositionFailed   Disposition = "failed"
)

// UploadOutcome is the per-file result of an upload run.
type UploadOutcome struct {
	Candidate Candidate
	Result    Disposition
	TrackID   int64 // Remote track ID when Result is DispositionUploaded
	Err       error // Failure cause when Result is DispositionFailed
}
