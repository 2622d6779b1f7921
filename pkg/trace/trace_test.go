package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
)

type exporterCalls struct {
	http, grpc int
	httpOpts   int
}

// stubExporters swaps the exporter constructors for ones that point at an
// unused local port and counts which protocol was picked.
func stubExporters(t *testing.T) *exporterCalls {
	t.Helper()
	calls := &exporterCalls{}
	prevRes, prevHTTP, prevGRPC := newResource, newOTLPTraceHTTP, newOTLPTraceGRPC
	t.Cleanup(func() {
		newResource, newOTLPTraceHTTP, newOTLPTraceGRPC = prevRes, prevHTTP, prevGRPC
	})

	newResource = func(context.Context, ...resource.Option) (*resource.Resource, error) {
		return resource.Default(), nil
	}
	newOTLPTraceHTTP = func(ctx context.Context, opts ...otlptracehttp.Option) (*otlptrace.Exporter, error) {
		calls.http++
		calls.httpOpts = len(opts)
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpoint("127.0.0.1:1"), otlptracehttp.WithInsecure())
	}
	newOTLPTraceGRPC = func(ctx context.Context, _ ...otlptracegrpc.Option) (*otlptrace.Exporter, error) {
		calls.grpc++
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint("127.0.0.1:1"), otlptracegrpc.WithInsecure())
	}
	return calls
}

func restoreProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestHeadersDecoding(t *testing.T) {
	type wrapper struct {
		Headers StringMap `yaml:"headers" toml:"headers"`
	}

	cases := map[string]struct {
		doc  string
		want StringMap
	}{
		"empty":    {"headers: ''\n", StringMap{}},
		"json":     {"headers: '{\"authorization\":\"Basic x\"}'\n", StringMap{"authorization": "Basic x"}},
		"csv":      {"headers: 'a=1, b = 2,broken'\n", StringMap{"a": "1", "b": "2"}},
		"yaml map": {"headers:\n  x-tenant: cat\n  retries: 3\n", StringMap{"x-tenant": "cat", "retries": "3"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var w wrapper
			require.NoError(t, yaml.Unmarshal([]byte(tc.doc), &w))
			assert.Equal(t, tc.want, w.Headers)
		})
	}

	var w wrapper
	assert.Error(t, yaml.Unmarshal([]byte("headers: '{broken'\n"), &w))
	assert.Error(t, yaml.Unmarshal([]byte("headers: [a, b]\n"), &w))

	var tw wrapper
	_, err := toml.Decode("[headers]\nx-tenant = \"cat\"\n", &tw)
	require.NoError(t, err)
	assert.Equal(t, StringMap{"x-tenant": "cat"}, tw.Headers)
}

func TestInitTracingProtocols(t *testing.T) {
	restoreProvider(t)

	t.Run("grpc by default", func(t *testing.T) {
		calls := stubExporters(t)
		shutdown, err := InitTracing(context.Background(), &Config{ServiceName: "mock-cat"}, zap.NewNop())
		require.NoError(t, err)
		_ = shutdown(context.Background())
		assert.Equal(t, 1, calls.grpc)
		assert.Zero(t, calls.http)
	})

	t.Run("http with endpoint url", func(t *testing.T) {
		calls := stubExporters(t)
		shutdown, err := InitTracing(context.Background(), &Config{
			ServiceName: "catctl",
			Protocol:    "http",
			Endpoint:    "https://collector.example.com:4318/v1/traces",
			Headers:     StringMap{"x-tenant": "cat"},
		}, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))
		assert.Equal(t, 1, calls.http)
		// endpoint url + headers, no insecure
		assert.Equal(t, 2, calls.httpOpts)
	})

	t.Run("http with host port", func(t *testing.T) {
		calls := stubExporters(t)
		shutdown, err := InitTracing(context.Background(), &Config{
			Protocol: "http",
			Endpoint: "localhost:4318",
			Insecure: true,
		}, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))
		assert.Equal(t, 2, calls.httpOpts)
	})
}

func TestInitTracingErrors(t *testing.T) {
	restoreProvider(t)

	t.Run("resource", func(t *testing.T) {
		stubExporters(t)
		newResource = func(context.Context, ...resource.Option) (*resource.Resource, error) {
			return nil, errors.New("no resource")
		}
		shutdown, err := InitTracing(context.Background(), &Config{}, zap.NewNop())
		assert.Nil(t, shutdown)
		assert.ErrorContains(t, err, "create resource")
	})

	for _, protocol := range []string{"http", "grpc"} {
		t.Run("exporter "+protocol, func(t *testing.T) {
			stubExporters(t)
			newOTLPTraceHTTP = func(context.Context, ...otlptracehttp.Option) (*otlptrace.Exporter, error) {
				return nil, errors.New("http exporter failed")
			}
			newOTLPTraceGRPC = func(context.Context, ...otlptracegrpc.Option) (*otlptrace.Exporter, error) {
				return nil, errors.New("grpc exporter failed")
			}
			shutdown, err := InitTracing(context.Background(), &Config{Protocol: protocol}, zap.NewNop())
			assert.Nil(t, shutdown)
			assert.ErrorContains(t, err, "create exporter")
			assert.ErrorContains(t, err, protocol+" exporter failed")
		})
	}
}

func TestInitTracingClampsSamplerRate(t *testing.T) {
	restoreProvider(t)

	for in, want := range map[float64]float64{-1.5: 0, 0.25: 0.25, 1: 1, 7: 1} {
		stubExporters(t)
		core, logs := observer.New(zapcore.DebugLevel)
		shutdown, err := InitTracing(context.Background(), &Config{SamplerRate: in}, zap.New(core))
		require.NoError(t, err)
		_ = shutdown(context.Background())

		entries := logs.FilterMessage("OpenTelemetry tracer initialized").All()
		require.Len(t, entries, 1)
		assert.Equal(t, want, entries[0].ContextMap()["sampler_rate"], "rate %v", in)
	}
}

func TestSpanScope(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr), sdktrace.WithResource(resource.Empty()))
	restoreProvider(t)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	scope := Tracer("catclient").Start(context.Background(), "GET /memory/collections")
	require.NotNil(t, scope.Ctx)
	same := scope.
		WithAttrs(attribute.String("http.method", "GET")).
		WithAttrs(attribute.Int("http.status_code", 200))
	assert.Same(t, scope, same)
	scope.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /memory/collections", spans[0].Name())
	assert.ElementsMatch(t, []attribute.KeyValue{
		attribute.String("http.method", "GET"),
		attribute.Int("http.status_code", 200),
	}, spans[0].Attributes())

	var nilScope *SpanScope
	assert.Nil(t, nilScope.WithAttrs(attribute.String("k", "v")))
	nilScope.End()
	(&SpanScope{Ctx: context.Background()}).End()
}
