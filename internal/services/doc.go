// Package services defines the [MusicLibrary] interface for the remote music
// host and implements it for iBroadcast.
//
// # MusicLibrary Interface
//
// The upload engine depends only on the interface, so tests can substitute a
// fake library without network access.
//
// # iBroadcast Implementation
//
// [IBroadcastClient] wraps three endpoints:
//   - api.ibroadcast.com: a mode-based JSON RPC endpoint (login, account
//     status, tag and playlist mutations)
//   - library.ibroadcast.com: returns the library document with tags and
//     playlists; playlist rows are positional and decoded via the "map" field
//   - upload.ibroadcast.com: a bare form post returns the MD5 listing of the
//     library, a multipart post uploads one file
//
// Every JSON request carries the client identification payload plus, after
// Login, the user id and session token.
//
// # Error Handling
//
// The client wraps typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : Login() not called
//   - [shared.ErrLoginFailed] : token rejected
//   - [shared.ErrAPIRequest] : transport failure or bad HTTP status
//   - [shared.ErrServerRejected] : the server answered "result": false
//   - [shared.ErrUploadFailed] : an upload was not accepted
//   - [shared.ErrUnexpectedResponse] : a response did not match the known shape
package services
