// Package notewell is a Go client SDK for the Notewell backend, the REST
// API behind the Notewell productivity suite (documents, chat, notebooks,
// diagrams, workflows).
//
// The root package provides [Client], a typed HTTP client for the notebook
// notepad surface: fetching, overwriting and clearing a notebook's notepad
// draft, and creating and deleting notebook items. All requests are JSON
// over HTTP and authenticate with the backend's session cookie.
//
// # Draft synchronization
//
// The notepad draft has a nontrivial persistence lifecycle: debounced
// auto-save of local edits, additive merging of externally added items into
// an unsaved draft, reconciliation of removed embedded references, and
// compensating rollback when an item is created but cannot be linked into
// the draft. That machinery lives in
// [github.com/notewell/notewell.go/draftsync], built on the pure content
// model in [github.com/notewell/notewell.go/notepad].
//
// # Related packages
//
//   - [github.com/notewell/notewell.go/notepad]: draft content model and
//     reference extraction
//   - [github.com/notewell/notewell.go/draftsync]: draft store, edit
//     buffer, reconciler and create-then-link rollback
//   - [github.com/notewell/notewell.go/notify]: websocket listener for
//     notebook change events
//   - [github.com/notewell/notewell.go/notewelltesting]: in-memory fake
//     backend for tests
//
// # Usage
//
//	client := notewell.NewClient("https://app.example.com",
//		notewell.WithSessionCookie("session", token))
//
//	store, err := draftsync.NewStore(client, notebookID)
//	if err != nil {
//		return err
//	}
//	if err := store.Load(ctx); err != nil {
//		return err
//	}
package notewell
