package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func searchInSpan(t *testing.T, e *Engine, req SearchRequest) sdktrace.ReadOnlySpan {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "GET /search/foods")
	e.Search(ctx, req)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	return ended[0]
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, a := range span.Attributes() {
		m[a.Key] = a.Value
	}
	return m
}

func TestSearch_AnnotatesRequestSpan(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		e := newTestEngine(t, newStubStore(t))

		span := searchInSpan(t, e, SearchRequest{Keyword: "pizza"})
		attrs := spanAttrs(span)
		assert.Equal(t, modeFull, attrs["search.mode"].AsString())
		assert.Equal(t, int64(2), attrs["search.results"].AsInt64())
		assert.False(t, attrs["search.partial"].AsBool())
		assert.Empty(t, span.Events())
	})

	t.Run("partial", func(t *testing.T) {
		store := newStubStore(t)
		store.failQuery = true
		e := newTestEngine(t, store)

		span := searchInSpan(t, e, SearchRequest{Keyword: "pizza", Predictive: true})
		attrs := spanAttrs(span)
		assert.Equal(t, modePredictive, attrs["search.mode"].AsString())
		assert.True(t, attrs["search.partial"].AsBool())
		require.Len(t, span.Events(), 1)
		assert.Equal(t, "search.partial", span.Events()[0].Name)
	})
}
