// Package progress defines the progress-reporting collaborator: every
// mutating marketplace task runs inside a labelled scope so the UI (or, in
// this backend, the log/metrics pipeline) can show work in flight.
package progress
