package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"vcanchor/internal/platform/tracer"
)

func TestNoopTracer_Start(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, tracer.SpanMint, tracer.String(tracer.AttrAttemptID, "mint_1"))

	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)
	span.SetAttributes(tracer.Int(tracer.AttrMemberCount, 3))
	span.AddEvent("lease.acquired")
	span.End(errors.New("boom"))
}

func TestOTelTracer_WithInjectedTracer(t *testing.T) {
	tr := tracer.NewOTel(tracer.WithOTelTracer(noop.NewTracerProvider().Tracer("test")))

	ctx, span := tr.Start(context.Background(), tracer.SpanChainSubmit,
		tracer.String(tracer.AttrChainID, "1337"),
		tracer.Bool("retry", true),
		tracer.Duration("backoff", 500*time.Millisecond),
	)
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.SetAttributes(tracer.String(tracer.AttrTxHash, "0xabc"))
	span.End(nil)
}

func TestNewOTel_DefaultsToGlobalProvider(t *testing.T) {
	tr := tracer.NewOTel()
	_, span := tr.Start(context.Background(), tracer.SpanVerifyResolve)
	span.End(nil)
}
