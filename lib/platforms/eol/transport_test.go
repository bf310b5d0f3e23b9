package eol

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"gaokao-admissions/lib/platforms/eol/eoltest"
	"gaokao-admissions/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func newTestTransport(server *eoltest.Server) *Transport {
	return NewTransport(TransportOptions{
		QueryURL:     server.QueryURL(),
		StaticURL:    server.StaticURL(),
		Timeout:      5 * time.Second,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 4 * time.Millisecond,
	})
}

func TestTransportRetriesBadGateway(t *testing.T) {
	telemetry.SetupForTesting(t)

	server := eoltest.NewServer(t)
	server.HandleQuery(func(map[string]any) eoltest.Reply {
		return eoltest.OK(1, []any{"a"})
	})
	server.FailNext(3, http.StatusBadGateway)
	transport := newTestTransport(server)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	raw, err := transport.Post(ctx, Params{"uri": "x", "page": 1, "size": 1})
	if err != nil {
		t.Fatal(err)
	}
	require.Contains(t, string(raw), `"0000"`)
	require.Equal(t, 4, server.Posts())
	require.Len(t, server.Queries(), 1)
}

func TestTransportGivesUpAfterTenAttempts(t *testing.T) {
	telemetry.SetupForTesting(t)

	server := eoltest.NewServer(t)
	server.FailNext(50, http.StatusInternalServerError)
	transport := newTestTransport(server)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := transport.Post(ctx, Params{"uri": "x"})
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, 10, server.Posts())
}

func TestTransportDoesNotRetryOtherStatuses(t *testing.T) {
	telemetry.SetupForTesting(t)

	server := eoltest.NewServer(t)
	server.FailNext(1, http.StatusBadRequest)
	transport := newTestTransport(server)

	_, err := transport.Post(context.Background(), Params{"uri": "x"})
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, 1, server.Posts())
}

func TestTransportHeaders(t *testing.T) {
	telemetry.SetupForTesting(t)

	server := eoltest.NewServer(t)
	server.HandleQuery(func(map[string]any) eoltest.Reply {
		return eoltest.OK(0, nil)
	})
	transport := newTestTransport(server)

	_, err := transport.Post(context.Background(), Params{"uri": "x"})
	if err != nil {
		t.Fatal(err)
	}
	header := server.LastHeader()
	require.Equal(t, "application/json, text/plain, */*", header.Get("accept"))
	require.Equal(t, "application/json;charset=UTF-8", header.Get("content-type"))
	require.Equal(t, "Mozilla/5.0", header.Get("user-agent"))
}

func TestTransportGet(t *testing.T) {
	telemetry.SetupForTesting(t)

	server := eoltest.NewServer(t)
	server.SetStatic("config/dicprovince/dic.json", map[string]string{"1": "理科"})
	server.SetStaticStatus("school/7/dic/provincescore.json", http.StatusForbidden)
	transport := newTestTransport(server)

	ctx := context.Background()
	{
		raw, err := transport.Get(ctx, "/config/dicprovince/dic.json")
		if err != nil {
			t.Fatal(err)
		}
		require.JSONEq(t, `{"data": {"1": "理科"}}`, string(raw))
	}
	{
		_, err := transport.Get(ctx, "/school/1/dic/provincescore.json")
		require.ErrorIs(t, err, ErrNotFound)
		require.False(t, errors.Is(err, ErrNetwork))
	}
	{
		_, err := transport.Get(ctx, "/school/7/dic/provincescore.json")
		require.ErrorIs(t, err, ErrNetwork)
	}
	require.Equal(t, []string{
		"config/dicprovince/dic.json",
		"school/1/dic/provincescore.json",
		"school/7/dic/provincescore.json",
	}, server.Gets())
}

func TestTransportCanceledContext(t *testing.T) {
	telemetry.SetupForTesting(t)

	server := eoltest.NewServer(t)
	transport := newTestTransport(server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := transport.Post(ctx, Params{"uri": "x"})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, server.Posts())
}

func TestBackoffFor(t *testing.T) {
	expected := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		20 * time.Second,
		20 * time.Second,
	}
	for i, wait := range expected {
		require.Equal(t, wait, backoffFor(time.Second, 20*time.Second, i+1), "attempt %d", i+1)
	}
}
