// Package tracer is a small span abstraction used around mint, chain
// submission and verification resolution.
//
// Implementations:
//   - NoopTracer: tests and deployments without a collector
//   - OTelTracer: OpenTelemetry adapter
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks it failed.
	// End must be called exactly once, typically via defer.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }

func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }

func Int(key string, value int) Attribute { return Attribute{Key: key, Value: int64(value)} }

func Int64(key string, value int64) Attribute { return Attribute{Key: key, Value: value} }

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanMint          = "anchor.mint"
	SpanChainSubmit   = "anchor.chain.submit"
	SpanRunSingle     = "anchor.run_single"
	SpanVerifyResolve = "verification.resolve"
)

// Attribute keys.
const (
	AttrAttemptID   = "mint.attempt_id"
	AttrMemberCount = "mint.member_count"
	AttrMerkleRoot  = "mint.merkle_root"
	AttrChainID     = "chain.id"
	AttrTxHash      = "chain.tx_hash"
	AttrAttempt     = "chain.attempt"
	AttrSessionID   = "verification.session_id"
	AttrReason      = "verification.reason"
)
