// Package openvsx implements the remote extension registry collaborator.
//
// The client wraps resty with a retrying transport, optional rate limiting,
// and a circuit breaker. It owns wire detail (search, version enumeration,
// raw asset fetches) and the engine-compatibility policy: picking the newest
// published version whose declared engine range matches the running editor
// engine.
//
// Domain errors:
//   - ErrNotFound: the registry does not know the extension (or no version
//     is engine-compatible)
//   - *ResponseError: a fetch failed with a specific HTTP status; 404s are
//     detectable via IsNotFound
package openvsx
