package tasks

import (
	"fmt"

	"ibup/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	LoginPhase Phase = iota
	FetchStatus
	ScanFiles
	HashFiles
	FetchChecksums
	ResolveTargets
	UploadFiles
)

func (p Phase) String() string {
	switch p {
	case LoginPhase:
		return "login"
	case FetchStatus:
		return "fetch_status"
	case ScanFiles:
		return "scan_files"
	case HashFiles:
		return "hash_files"
	case FetchChecksums:
		return "fetch_checksums"
	case ResolveTargets:
		return "resolve_targets"
	case UploadFiles:
		return "upload_files"
	default:
		return ""
	}
}

func loginUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoginPhase,
		Step:    1,
		Total:   1,
		Message: "Logging in...",
	}
}

func loggedInUpdate(userID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoginPhase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Login successful (user %s)", userID),
	}
}

func fetchStatusUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchStatus,
		Step:    1,
		Total:   1,
		Message: "Fetching account info...",
	}
}

func scanUpdate(dir string, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Scanning %s...", dir),
	}
}

func scannedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanFiles,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d supported files", count),
	}
}

func hashUpdate(step, total int, c models.Candidate) ProgressUpdate {
	return ProgressUpdate{
		Phase:   HashFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Hashing %s", step, total, c.Path),
	}
}

func fetchChecksumsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchChecksums,
		Step:    1,
		Total:   1,
		Message: "Fetching library checksums...",
	}
}

func resolveTargetsUpdate(tags, playlists int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTargets,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving %d tags and %d playlists...", tags, playlists),
	}
}

func uploadStartUpdate(step, total int, c models.Candidate) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Uploading %s...", step, total, c.Path),
	}
}

func uploadDoneUpdate(step, total int, outcome models.UploadOutcome) ProgressUpdate {
	var message string
	switch outcome.Result {
	case models.DispositionUploaded:
		message = fmt.Sprintf("[%d/%d] ✓ %s (%d)", step, total, outcome.Candidate.Path, outcome.TrackID)
	case models.DispositionSkipped:
		message = fmt.Sprintf("[%d/%d] Skipping %s - already uploaded", step, total, outcome.Candidate.Path)
	case models.DispositionFailed:
		message = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, outcome.Candidate.Path, outcome.Err)
	}
	return ProgressUpdate{
		Phase:   UploadFiles,
		Step:    step,
		Total:   total,
		Message: message,
		Data:    outcome,
	}
}
