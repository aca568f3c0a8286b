package telemetry

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"OTEL_ENABLED", "OTEL_LOGS_ENABLED", "OTEL_SERVICE_NAME", "OTEL_SERVICE_VERSION",
		"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "OTEL_EXPORTER_OTLP_LOGS_ENDPOINT",
		"OTEL_EXPORTER_OTLP_TRACES_TIMEOUT", "KUBERNETES_SERVICE_HOST", "FSM_ENVIRONMENT",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

//nolint:paralleltest // t.Setenv cannot be used with t.Parallel
func TestLoadConfigFromEnvEndpoints(t *testing.T) {
	tests := []struct {
		name           string
		kubernetesHost string
		customEndpoint string
		logsEndpoint   string
		wantEndpoint   string
		wantLogs       string
	}{
		{
			name:           "cluster collector detected",
			kubernetesHost: "10.0.0.1",
			wantEndpoint:   clusterCollector,
			wantLogs:       clusterCollector,
		},
		{
			name: "no endpoint outside a cluster",
		},
		{
			name:           "custom endpoint overrides cluster default",
			kubernetesHost: "10.0.0.1",
			customEndpoint: "http://custom-collector:4318",
			wantEndpoint:   "http://custom-collector:4318",
			wantLogs:       "http://custom-collector:4318",
		},
		{
			name:           "separate logs endpoint",
			customEndpoint: "http://traces:4318",
			logsEndpoint:   "http://logs:4318",
			wantEndpoint:   "http://traces:4318",
			wantLogs:       "http://logs:4318",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("KUBERNETES_SERVICE_HOST", tt.kubernetesHost)
			t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", tt.customEndpoint)
			t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", tt.logsEndpoint)

			config, err := LoadConfigFromEnv(t.Context())
			require.NoError(t, err)
			assert.Equal(t, tt.wantEndpoint, config.Endpoint)
			assert.Equal(t, tt.wantLogs, config.LogsEndpoint)
		})
	}
}

//nolint:paralleltest // t.Setenv cannot be used with t.Parallel
func TestLoadConfigFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	config, err := LoadConfigFromEnv(t.Context())
	require.NoError(t, err)

	assert.False(t, config.Enabled)
	assert.False(t, config.LogsEnabled)
	assert.NotEmpty(t, config.ServiceVersion)

	t.Setenv("OTEL_SERVICE_VERSION", "v2.0.0")

	config, err = LoadConfigFromEnv(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", config.ServiceVersion)
	assert.Equal(t, 5*time.Second, config.Timeout)

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_TIMEOUT", "soon")

	_, err = LoadConfigFromEnv(t.Context())
	require.Error(t, err)
}

//nolint:paralleltest // Test modifies global OTEL providers
func TestInitializeDisabled(t *testing.T) {
	ctx := t.Context()

	require.NoError(t, Initialize(ctx, &Config{}))
	require.NoError(t, Initialize(ctx, &Config{Enabled: true}))
	assert.Nil(t, LogHandler())
	require.NoError(t, Shutdown(ctx))
}

//nolint:paralleltest // Test modifies global OTEL providers
func TestInitializeAndShutdown(t *testing.T) {
	old := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(old) })

	ctx := t.Context()

	err := Initialize(ctx, &Config{
		ServiceName: "fsm-test",
		Enabled:     true,
		LogsEnabled: true,
		Endpoint:    "http://127.0.0.1:4318",
		// Nothing is exported, so the unreachable collector is never contacted.
		LogsEndpoint: "http://127.0.0.1:4318",
		Timeout:      time.Second,
	})
	require.NoError(t, err)
	assert.NotNil(t, LogHandler())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, Shutdown(shutdownCtx))
	assert.Nil(t, LogHandler())
}
