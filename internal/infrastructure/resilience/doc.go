/*
Package resilience provides a circuit breaker guarding the remote extension
registry client.

# States

- Closed: normal operation, requests pass through
- Open: registry unavailable, requests fail immediately with ErrCircuitOpen
- Half-Open: bounded number of probes decide whether the registry recovered

# Usage

	breaker := resilience.New("registry", resilience.Settings{
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	err := breaker.Do(func() error {
		return client.Call()
	})

Transitions:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience
