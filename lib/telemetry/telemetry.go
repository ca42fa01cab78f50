package telemetry

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/pim97/scrappey-go/lib/configutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

func (t Telemetry) Shutdown(ctx context.Context) error {
	errlist := []error{}
	if t.TracerProvider != nil {
		err := t.TracerProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	if t.MeterProvider != nil {
		err := t.MeterProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}

var (
	setupTestEnvironments = map[string]bool{}
	setupTestLock         sync.Mutex
)

// sets up telemetry in a testing environment, ensuring that it isn't
// set up more than once. a missing telemetry.json5 leaves the global
// no-op providers in place.
func SetupForTesting(serviceName string) func() {
	setupTestLock.Lock()
	defer setupTestLock.Unlock()

	if setupTestEnvironments[serviceName] {
		return func() {}
	}
	setupTestEnvironments[serviceName] = true

	tel, err := SetupFromEnv(context.Background(), serviceName)
	if errors.Is(err, os.ErrNotExist) {
		return func() {}
	}
	if err != nil {
		panic(err)
	}

	return func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			panic(err)
		}
	}
}

// searches up the filesystem from the cwd to find a file
// called telemetry.json5, once found it will then use it
// as a config to setup telemetry
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, config)
}

func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	r, err := newResource(serviceName)
	if err != nil {
		return Telemetry{}, err
	}

	tracerProvider, err := newTraceProvider(ctx, r, config.Otlp.Traces)
	if err != nil {
		return Telemetry{}, err
	}
	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	meterProvider, err := newMetricProvider(ctx, r, config.Otlp.Metrics, config.metricInterval())
	if err != nil {
		if tracerProvider != nil {
			tracerProvider.Shutdown(ctx)
		}
		return Telemetry{}, err
	}
	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	}

	return Telemetry{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
	}, nil
}
