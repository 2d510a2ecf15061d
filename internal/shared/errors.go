package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrMissingToken  = fmt.Errorf("missing login token")

	// Authentication errors
	ErrLoginFailed      = fmt.Errorf("login failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// API and upload errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServerRejected     = fmt.Errorf("server rejected request")
	ErrUnexpectedResponse = fmt.Errorf("unexpected server response")
	ErrUploadFailed       = fmt.Errorf("upload failed")

	// Input validation errors
	ErrNoFiles         = fmt.Errorf("no supported files found")
	ErrAborted         = fmt.Errorf("aborted by user")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
