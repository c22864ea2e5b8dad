package resultsink

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/cheese-connect4/internal/match"
)

func serve(t *testing.T, h fasthttp.RequestHandler) func(string) (net.Conn, error) {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return func(string) (net.Conn, error) { return ln.Dial() }
}

func TestWebhook_PostsResult(t *testing.T) {
	got := make(chan match.Result, 1)
	var header atomic.Value
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		var r match.Result
		if err := json.Unmarshal(ctx.PostBody(), &r); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		header.Store(string(ctx.Request.Header.Peek("X-Token")))
		got <- r
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	})

	w := NewWebhook("http://results.local/hook", WithDial(dial),
		WithHeaderProvider(func() map[string]string { return map[string]string{"X-Token": "t0k"} }))
	res := match.Result{MatchID: "m-1", Player1: "alice", Player2: "bob", Winner: "alice", Reason: match.ReasonConnect4}
	require.NoError(t, w.RecordMatchResult(context.Background(), res))

	select {
	case r := <-got:
		assert.Equal(t, "m-1", r.MatchID)
		assert.Equal(t, "alice", r.Winner)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not called")
	}
	assert.Equal(t, "t0k", header.Load())
}

func TestWebhook_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusOK)
	})
	w := NewWebhook("http://results.local/hook", WithDial(dial), WithRetry(2))
	require.NoError(t, w.RecordMatchResult(context.Background(), match.Result{MatchID: "m-2"}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhook_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusUnprocessableEntity)
	})
	w := NewWebhook("http://results.local/hook", WithDial(dial), WithRetry(3))
	err := w.RecordMatchResult(context.Background(), match.Result{MatchID: "m-3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=422")
	assert.Equal(t, int32(1), calls.Load())
}

type recorderFunc func(context.Context, match.Result) error

func (f recorderFunc) RecordMatchResult(ctx context.Context, r match.Result) error { return f(ctx, r) }

func TestFanout_CallsAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	var n atomic.Int32
	f := Fanout{
		recorderFunc(func(context.Context, match.Result) error { n.Add(1); return boom }),
		nil,
		recorderFunc(func(context.Context, match.Result) error { n.Add(1); return nil }),
	}
	err := f.RecordMatchResult(context.Background(), match.Result{MatchID: "m"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), n.Load())

	var empty *Webhook
	assert.NoError(t, empty.RecordMatchResult(context.Background(), match.Result{}))
}
