package repositories

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"ibup/internal/models"
	"ibup/internal/shared"
)

// UploadRepository implements models.Repository[*models.PersistedUpload] for the history log.
//
// Rows are append-mostly: an upload run writes one row per file, and the
// history command reads them back. Soft deletes back the clear command.
type UploadRepository struct {
	db *sql.DB
}

// NewUploadRepository creates a new UploadRepository with the given database connection
func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Create inserts a new [models.PersistedUpload] into the database with generated ID and sequence
func (r *UploadRepository) Create(upload *models.PersistedUpload) error {
	sequence, err := NextSequence(r.db, "uploads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	upload.SetSequence(sequence)

	id := shared.GenerateID()
	upload.SetID(id)

	if err := upload.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO uploads (id, sequence, path, checksum, size, track_id, status, detail, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		upload.Sequence(),
		upload.Path(),
		upload.Checksum(),
		upload.Size(),
		upload.TrackID(),
		string(upload.Status()),
		upload.Detail(),
		upload.CreatedAt(),
		upload.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}

	return nil
}

// Get retrieves a history row by ID, excluding soft-deleted rows
func (r *UploadRepository) Get(id string) (*models.PersistedUpload, error) {
	query := `
		SELECT id, sequence, path, checksum, size, track_id, status, detail, created_at, updated_at, deleted_at
		FROM uploads
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByChecksum retrieves the most recent history row for a content checksum
func (r *UploadRepository) GetByChecksum(checksum string) (*models.PersistedUpload, error) {
	query := `
		SELECT id, sequence, path, checksum, size, track_id, status, detail, created_at, updated_at, deleted_at
		FROM uploads
		WHERE checksum = ? AND deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRow(query, checksum))
}

// Update modifies an existing history row in the database
func (r *UploadRepository) Update(upload *models.PersistedUpload) error {
	if err := upload.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	upload.SetUpdatedAt(now)

	query := `
		UPDATE uploads
		SET path = ?, checksum = ?, size = ?, track_id = ?, status = ?, detail = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		upload.Path(),
		upload.Checksum(),
		upload.Size(),
		upload.TrackID(),
		string(upload.Status()),
		upload.Detail(),
		now,
		upload.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update upload: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("upload not found or already deleted: %s", upload.ID())
	}

	return nil
}

// Delete soft-deletes a history row by ID
func (r *UploadRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE uploads
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("upload not found or already deleted: %s", id)
	}

	return nil
}

// Clear soft-deletes every history row and returns the number affected
func (r *UploadRepository) Clear() (int, error) {
	now := time.Now()

	result, err := r.db.Exec("UPDATE uploads SET deleted_at = ? WHERE deleted_at IS NULL", now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return int(rows), nil
}

// List retrieves history rows matching the given criteria, excluding soft-deleted rows.
//
// Supported criteria: "status" (uploaded/skipped/failed), "limit" (int).
// Rows come back newest first.
func (r *UploadRepository) List(criteria map[string]any) ([]*models.PersistedUpload, error) {
	query := `
		SELECT id, sequence, path, checksum, size, track_id, status, detail, created_at, updated_at, deleted_at
		FROM uploads
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var uploads []*models.PersistedUpload
	for rows.Next() {
		upload, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return uploads, nil
}

// scanOne scans a single [sql.Row] into a [models.PersistedUpload]
func (r *UploadRepository) scanOne(row *sql.Row) (*models.PersistedUpload, error) {
	var (
		id        string
		sequence  int
		path      string
		checksum  string
		size      int64
		trackID   int64
		status    string
		detail    string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &path, &checksum, &size, &trackID, &status, &detail, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("upload not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan upload: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestorePersistedUpload(id, sequence, path, checksum, size, trackID, models.Disposition(status), detail, createdAt, updatedAt, deleted), nil
}

// scanRow scans a row from [sql.Rows] into a [models.PersistedUpload]
func (r *UploadRepository) scanRow(rows *sql.Rows) (*models.PersistedUpload, error) {
	var (
		id        string
		sequence  int
		path      string
		checksum  string
		size      int64
		trackID   int64
		status    string
		detail    string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &path, &checksum, &size, &trackID, &status, &detail, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan upload: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestorePersistedUpload(id, sequence, path, checksum, size, trackID, models.Disposition(status), detail, createdAt, updatedAt, deleted), nil
}

// HistoryWriter adapts UploadRepository to the upload engine's history sink.
//
// Workers record outcomes concurrently; SQLite writes are serialized here
// rather than relying on driver-level locking.
type HistoryWriter struct {
	mu   sync.Mutex
	repo *UploadRepository
}

// NewHistoryWriter creates a HistoryWriter over the given repository
func NewHistoryWriter(repo *UploadRepository) *HistoryWriter {
	return &HistoryWriter{repo: repo}
}

// Record persists an upload outcome as a new history row
func (w *HistoryWriter) Record(outcome models.UploadOutcome) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.repo.Create(models.NewPersistedUpload(0, outcome))
}
