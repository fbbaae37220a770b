// Package draftsync implements the notepad draft synchronization component:
// the persistence lifecycle between a user's in-progress notepad edits and
// the backend's draft endpoint.
//
// The component has four moving parts:
//
//   - [Store]: the single source of truth for the last-synced draft content
//     of one notebook. Its version counter advances only on operations that
//     represent a remote-truth update (load, save, clear), which is how the
//     edit buffer tells externally synced changes apart from its own echo.
//   - [Buffer]: the page-level edit buffer. It holds unsaved edits, arms a
//     debounced auto-save, merges externally added references into a dirty
//     draft without clobbering local work, and reconciles removed
//     references on explicit save.
//   - [Scheduler]: a cancellable debounce handle, deliberately decoupled
//     from any UI lifecycle so the auto-save policy is unit-testable.
//   - [Linker]: the two-phase create-then-link flow for adding items, with
//     best-effort compensation when the link step fails.
//
// A Store is constructed per notebook and passed to its consumers
// explicitly; there is no package-level state.
package draftsync
