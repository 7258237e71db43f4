package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/engine"
	"github.com/hupe1980/viewflow/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordsEngineLifecycle(t *testing.T) {
	c := NewCollector("test")
	cm := engine.NewCallbackManager()
	c.Register(cm)

	e := engine.New(core.SessionContext{}, func(o *engine.Options) {
		o.Name = "search"
		o.Callbacks = cm
	})

	in := engine.DeclareInput[bool](e, "load")
	out := engine.DeclareOutput[int](e, "count", core.Replay)
	in.On(func(c *engine.Context, fail bool) {
		engine.Call(c, func(context.Context) (int, error) {
			if fail {
				return 0, errors.New("down")
			}
			return 3, nil
		}, engine.CallOptions[int]{Name: "fetch", OnSuccess: func(_ *engine.Context, n int) { out.Emit(n) }})
	})

	assert.Equal(t, 1.0, promtest.ToFloat64(c.enginesActive.WithLabelValues("search")))

	in.Push(false)
	in.Push(true)
	testutil.Settle(t, e)

	assert.Equal(t, 2.0, promtest.ToFloat64(c.inputsTotal.WithLabelValues("search", "load")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.emitsTotal.WithLabelValues("search", "count")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.emitsTotal.WithLabelValues("search", engine.ErrorOutput)))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.errorsTotal.WithLabelValues("search", "fetch")))
	assert.Equal(t, 0.0, promtest.ToFloat64(c.callsInFlight.WithLabelValues("search")))
	assert.Equal(t, 2, promtest.CollectAndCount(c.callLatency))

	require.NoError(t, e.Dispose())
	assert.Equal(t, 0.0, promtest.ToFloat64(c.enginesActive.WithLabelValues("search")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.enginesCreated.WithLabelValues("search")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("")
	c.debounceDrops.WithLabelValues("search", "query").Add(2)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `viewflow_input_debounce_dropped_total{input="query",screen="search"} 2`)
}
