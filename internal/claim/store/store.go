// Package store persists claim tickets. Tickets are ephemeral: the memory
// store drops them through DeleteExpired, the Redis store through key TTLs.
package store

import "time"

// retention keeps consumed and expired tickets readable for a while so late
// redemptions fail with a precise reason instead of "not found".
const retention = time.Hour

const (
	ticketKeyPrefix     = "claim:ticket:"
	credentialKeyPrefix = "claim:credential:"
	tokenKeyPrefix      = "claim:token:"
)
