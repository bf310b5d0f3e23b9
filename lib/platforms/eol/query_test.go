package eol

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"gaokao-admissions/lib/platforms/eol/eoltest"
	"gaokao-admissions/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	testRetryInterval = 120 * time.Second
	testQueryInterval = 10 * time.Second
)

type engineFixture struct {
	server *eoltest.Server
	waiter *eoltest.RecordingWaiter
	engine *Engine
}

func newEngineFixture(t *testing.T, fn eoltest.QueryFunc) engineFixture {
	telemetry.SetupForTesting(t)

	server := eoltest.NewServer(t)
	server.HandleQuery(fn)
	waiter := &eoltest.RecordingWaiter{}
	engine := NewEngine(newTestTransport(server), EngineOptions{
		RetryInterval: testRetryInterval,
		QueryInterval: testQueryInterval,
		Waiter:        waiter,
	})
	return engineFixture{server: server, waiter: waiter, engine: engine}
}

func sequence(n int) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func pageSizes(queries []map[string]any) [][2]int {
	out := make([][2]int, len(queries))
	for i, q := range queries {
		out[i] = [2]int{eoltest.IntParam(q, "page"), eoltest.IntParam(q, "size")}
	}
	return out
}

func fetchInts(t *testing.T, q Querier, params Params) (int, []int, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return Fetch[int](ctx, q, params)
}

func TestQueryDirect(t *testing.T) {
	f := newEngineFixture(t, eoltest.Paged(sequence(5), nil))

	numFound, items, err := fetchInts(t, f.engine, Params{"uri": "list", "page": 1, "size": 30})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 5, numFound)
	require.Equal(t, []int{0, 1, 2, 3, 4}, items)
	require.Empty(t, f.waiter.Waits())
	require.Len(t, f.server.Queries(), 1)
}

func TestQueryRateLimitRetries(t *testing.T) {
	const limited = 4
	f := newEngineFixture(t, eoltest.RateLimited(limited, eoltest.Paged(sequence(3), nil)))

	var hookCalls []int
	f.engine.opts.OnRateLimited = func(_ context.Context, retries int) {
		hookCalls = append(hookCalls, retries)
	}

	params := Params{"uri": "list", "page": 1, "size": 30, "school_id": 42}
	numFound, items, err := fetchInts(t, f.engine, params)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 3, numFound)
	require.Equal(t, []int{0, 1, 2}, items)

	require.Equal(t, limited, f.waiter.Count(testRetryInterval))
	require.Len(t, f.waiter.Waits(), limited)
	require.Equal(t, []int{1, 2, 3, 4}, hookCalls)

	queries := f.server.Queries()
	require.Len(t, queries, limited+1)
	for _, q := range queries[1:] {
		if diff := cmp.Diff(queries[0], q); diff != "" {
			t.Fatalf("retried request differs (-first +retry):\n%s", diff)
		}
	}
}

func TestQueryRateLimitCanceled(t *testing.T) {
	f := newEngineFixture(t, eoltest.RateLimited(1000, eoltest.Paged(sequence(3), nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.engine.opts.OnRateLimited = func(_ context.Context, retries int) {
		if retries == 3 {
			cancel()
		}
	}

	_, err := f.engine.Query(ctx, Params{"uri": "list", "page": 1, "size": 30})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, f.server.Queries(), 3)
}

func TestQuerySplitMatchesBaseline(t *testing.T) {
	items := sequence(100)
	params := Params{"uri": "plan", "page": 2, "size": 30}

	baseline := newEngineFixture(t, eoltest.Paged(items, nil))
	expectedFound, expected, err := fetchInts(t, baseline.engine, params)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, expected, 30)

	// 30 -> 15 -> 5 -> 1
	limited := newEngineFixture(t, eoltest.Paged(items, eoltest.LargerThan(4)))
	numFound, got, err := fetchInts(t, limited.engine, params)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, expectedFound, numFound)
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("split result differs from baseline (-want +got):\n%s", diff)
	}

	queries := limited.server.Queries()
	require.Len(t, queries, 1+2+6+30)
	require.Equal(t, 2+6+30, limited.waiter.Count(testQueryInterval))
	require.Zero(t, limited.waiter.Count(testRetryInterval))

	// the original parameters ride along on every sub-request
	for _, q := range queries {
		require.Equal(t, "plan", q["uri"])
	}
}

func TestQuerySplitHalvesEvenPages(t *testing.T) {
	f := newEngineFixture(t, eoltest.Paged(sequence(65), eoltest.LargerThan(15)))

	numFound, items, err := fetchInts(t, f.engine, Params{"uri": "plan", "page": 2, "size": 30})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 65, numFound)
	require.Len(t, items, 30)
	require.Equal(t, 30, items[0])
	require.Equal(t, 59, items[29])

	require.Equal(t, [][2]int{{2, 30}, {3, 15}, {4, 15}}, pageSizes(f.server.Queries()))
}

func TestQuerySplitTerminates(t *testing.T) {
	for _, size := range []int{2, 3, 7, 20, 30, 32, 64, 97} {
		f := newEngineFixture(t, eoltest.Paged(sequence(200), func(int) bool { return true }))

		_, err := f.engine.Query(context.Background(), Params{"uri": "plan", "page": 1, "size": size})
		require.ErrorIs(t, err, ErrOversize, "size %d", size)

		sizes := pageSizes(f.server.Queries())
		require.Equal(t, 1, sizes[len(sizes)-1][1], "size %d", size)

		levels := len(sizes) - 1
		require.LessOrEqual(t, float64(levels), math.Log2(float64(size)), "size %d", size)
	}
}

func TestQuerySplitPaginationDrift(t *testing.T) {
	calls := 0
	f := newEngineFixture(t, func(params map[string]any) eoltest.Reply {
		calls++
		size := eoltest.IntParam(params, "size")
		if size > 10 {
			return eoltest.Code(CodeOversize, "too large")
		}
		// a new row shows up between the two halves
		return eoltest.OK(40+calls, sequence(size))
	})

	numFound, items, err := fetchInts(t, f.engine, Params{"uri": "plan", "page": 1, "size": 20})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 42, numFound)
	require.Len(t, items, 20)
}

func TestQueryProtocolError(t *testing.T) {
	f := newEngineFixture(t, func(map[string]any) eoltest.Reply {
		return eoltest.Code("2001", "参数错误")
	})

	_, err := f.engine.Query(context.Background(), Params{"uri": "plan", "page": 1, "size": 30})
	var protocolErr *ProtocolError
	require.True(t, errors.As(err, &protocolErr))
	require.Equal(t, "2001", protocolErr.Code)
	require.Equal(t, "参数错误", protocolErr.Message)
	require.Len(t, f.server.Queries(), 1)
	require.Empty(t, f.waiter.Waits())
}

func TestQueryDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "<html>busy</html>"},
		{name: "no code", raw: `{"message": "ok"}`},
		{name: "null data", raw: `{"code": "0000", "message": "ok", "data": null}`},
		{name: "wrong data shape", raw: `{"code": "0000", "message": "ok", "data": {"numFound": "many"}}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newEngineFixture(t, func(map[string]any) eoltest.Reply {
				return eoltest.Reply{Raw: []byte(c.raw)}
			})
			_, err := f.engine.Query(context.Background(), Params{"uri": "plan", "page": 1, "size": 30})
			require.ErrorIs(t, err, ErrDecode)
		})
	}
}

type school struct {
	SchoolID Int  `json:"school_id"`
	Name     Text `json:"name"`
}

func TestFetchDecodesItems(t *testing.T) {
	f := newEngineFixture(t, func(map[string]any) eoltest.Reply {
		return eoltest.OK(2, []any{
			map[string]any{"school_id": "31", "name": "郑州大学"},
			map[string]any{"school_id": 32, "name": nil},
		})
	})

	numFound, schools, err := Fetch[school](context.Background(), f.engine, Params{"uri": URISchoolList, "page": 1, "size": 20})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, numFound)
	require.Equal(t, []school{
		{SchoolID: 31, Name: "郑州大学"},
		{SchoolID: 32},
	}, schools)
}

func TestFetchRejectsMismatchedItems(t *testing.T) {
	f := newEngineFixture(t, func(map[string]any) eoltest.Reply {
		return eoltest.OK(1, []any{map[string]any{"school_id": "abc"}})
	})

	_, _, err := Fetch[school](context.Background(), f.engine, Params{"uri": URISchoolList, "page": 1, "size": 20})
	require.ErrorIs(t, err, ErrDecode)
}
