// Package middleware provides production-ready HTTP middleware for the
// marketplace backend.
//
// Middleware stack includes:
//   - RateLimit: Per-IP token bucket rate limiting
//   - GlobalRateLimit: One shared bucket for the whole API
//
// Rate Limiting:
//   - Per-IP tracking with automatic cleanup
//   - Token bucket algorithm
//   - Configurable RPS and burst capacity
//
// Example Usage:
//
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
