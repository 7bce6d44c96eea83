// Package store persists verification sessions. Sessions live until their
// ExpiresAt; late resolutions stay readable until then.
package store

const sessionKeyPrefix = "verification:session:"
