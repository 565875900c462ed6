// Package ws provides WebSocket handling for the marketplace event stream.
//
// Clients connect once and receive push notifications whenever the
// extension model changes, instead of polling the REST surface.
//
// Message Types (Client -> Server):
//   - set-query: Update the search query
//   - ping: Keep-alive ping
//
// Message Types (Server -> Client):
//   - system: Connection established
//   - model-updated: Extension model changed
//   - search-results: Search finished, carries the result count
//   - query-accepted: Query update acknowledged
//   - error: Request rejected
//
// Example Usage:
//
//	handler := ws.NewHandler(model, logger, metrics)
//	router.GET("/stream", handler.HandleConnection)
package ws
