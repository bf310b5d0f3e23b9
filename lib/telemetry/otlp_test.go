package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOtlpProtocol(t *testing.T) {
	protocol, endpoint, err := OtlpConnConfig{
		GrpcEndpoint: "http://localhost:4317",
		HttpEndpoint: "http://localhost:4318",
	}.protocol()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "grpc", protocol)
	require.Equal(t, "http://localhost:4317", endpoint)

	protocol, endpoint, err = OtlpConnConfig{HttpEndpoint: "http://localhost:4318"}.protocol()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "http", protocol)
	require.Equal(t, "http://localhost:4318", endpoint)

	_, _, err = OtlpConnConfig{}.protocol()
	require.Error(t, err)
}

func TestMetricInterval(t *testing.T) {
	require.Equal(t, 15*time.Second, Config{}.metricInterval())
	require.Equal(t, time.Minute, Config{Otlp: OtlpConfig{MetricIntervalSeconds: 60}}.metricInterval())
}

func TestSetupWithoutEndpointFails(t *testing.T) {
	_, err := Setup(context.Background(), "admissions", Config{})
	require.ErrorContains(t, err, "trace exporter")
}
