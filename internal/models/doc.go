// Package models defines domain entities and persistence interfaces for the uploader.
//
// The package contains two categories of types:
//
// 1. Ephemeral pipeline values:
//   - [Candidate] : A discovered local file with its content checksum
//   - [UploadOutcome] : The per-file result of an upload run
//
// 2. Persistent entities:
//   - [PersistedUpload] : A row in the local upload history log
//
// Persistent entities implement the [Model] interface providing ID generation,
// timestamps, validation, and soft delete support. The [Repository] interface
// defines standard CRUD operations for database access.
package models
