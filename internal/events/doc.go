// Package events provides a typed observer list for model notifications.
//
// Emitters deliver values synchronously and in subscription order to the
// subscribers present when Emit is called. Subscriptions return an
// unsubscribe function instead of requiring listener identity.
package events
