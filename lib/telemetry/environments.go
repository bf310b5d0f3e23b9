package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"gaokao-admissions/lib/configutil"
)

const configName = "telemetry.json5"

// SetupFromEnv searches up the filesystem from the cwd for telemetry.json5
// and exports traces and metrics according to it. A missing file leaves
// export disabled and is not an error.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config](configName)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no telemetry config found, export disabled", "name", configName)
		return Telemetry{}, nil
	}
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, config)
}

var setupTesting sync.Once

// SetupForTesting routes slog to stderr at debug level when tests run with -v.
// Export stays disabled so tests never reach for a collector.
func SetupForTesting(t testing.TB) {
	t.Helper()
	setupTesting.Do(func() {
		InitSlog(testing.Verbose())
	})
}
