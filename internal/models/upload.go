package models

import (
	"fmt"
	"time"
)

// PersistedUpload is a row in the local upload history log.
//
// The remote library remains the state of record; history rows are written
// after the upload decision and never consulted when planning a run.
type PersistedUpload struct {
	id        string
	sequence  int
	path      string
	checksum  string
	size      int64
	trackID   int64
	status    Disposition
	detail    string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedUpload creates a history row from an upload outcome.
func NewPersistedUpload(sequence int, outcome UploadOutcome) *PersistedUpload {
	now := time.Now()

	detail := ""
	if outcome.Err != nil {
		detail = outcome.Err.Error()
	}

	return &PersistedUpload{
		sequence:  sequence,
		path:      outcome.Candidate.Path,
		checksum:  outcome.Candidate.Checksum,
		size:      outcome.Candidate.Size,
		trackID:   outcome.TrackID,
		status:    outcome.Result,
		detail:    detail,
		createdAt: now,
		updatedAt: now,
	}
}

// RestorePersistedUpload reconstructs a history row from database columns.
func RestorePersistedUpload(id string, sequence int, path, checksum string, size, trackID int64, status Disposition, detail string, createdAt, updatedAt time.Time, deletedAt *time.Time) *PersistedUpload {
	return &PersistedUpload{
		id:        id,
		sequence:  sequence,
		path:      path,
		checksum:  checksum,
		size:      size,
		trackID:   trackID,
		status:    status,
		detail:    detail,
		createdAt: createdAt,
		updatedAt: updatedAt,
		deletedAt: deletedAt,
	}
}

func (u *PersistedUpload) ID() string { return u.id }

func (u *PersistedUpload) Sequence() int { return u.sequence }

func (u *PersistedUpload) Path() string { return u.path }

func (u *PersistedUpload) Checksum() string { return u.checksum }

func (u *PersistedUpload) Size() int64 { return u.size }

func (u *PersistedUpload) TrackID() int64 { return u.trackID }

func (u *PersistedUpload) Status() Disposition { return u.status }

func (u *PersistedUpload) Detail() string { return u.detail }

func (u *PersistedUpload) CreatedAt() time.Time { return u.createdAt }

func (u *PersistedUpload) UpdatedAt() time.Time { return u.updatedAt }

func (u *PersistedUpload) DeletedAt() *time.Time { return u.deletedAt }

func (u *PersistedUpload) SetID(id string) { u.id = id }

func (u *PersistedUpload) SetSequence(sequence int) { u.sequence = sequence }

func (u *PersistedUpload) SetUpdatedAt(t time.Time) { u.updatedAt = t }

func (u *PersistedUpload) SetDeletedAt(t *time.Time) { u.deletedAt = t }

// Validate checks if the history row's data is valid.
func (u *PersistedUpload) Validate() error {
	if u.path == "" {
		return fmt.Errorf("upload record requires a path")
	}
	if u.checksum == "" {
		return fmt.Errorf("upload record requires a checksum")
	}
	switch u.status {
	case DispositionUploaded, DispositionSkipped, DispositionFailed:
	default:
		return fmt.Errorf("invalid upload status %q", u.status)
	}
	return nil
}
