package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/ducka/go-flow/config"
	"github.com/ducka/go-flow/instrumentation"
	"github.com/ducka/go-flow/observe"
	"github.com/ducka/go-flow/operator"
	"github.com/ducka/go-flow/store"
	"github.com/guptarohit/asciigraph"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var sensors = []string{"north", "south", "east", "west"}

type reading struct {
	Sensor string  `json:"sensor"`
	Value  float64 `json:"value"`
}

func (r reading) GetKey() []string {
	return []string{"sensor", r.Sensor}
}

type average struct {
	Sensor string  `json:"sensor"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
}

func foldReading(r reading, avg average) (*average, error) {
	avg.Sensor = r.Sensor
	avg.Count++
	avg.Mean += (r.Value - avg.Mean) / float64(avg.Count)
	return &avg, nil
}

var (
	demoCount int
	demoPlot  bool
	demoStore string
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Fold random sensor readings into per-sensor running means held in a state store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s := settings
		if cmd.Flags().Changed("count") {
			s.Demo.Count = demoCount
		}

		if s.Metrics.Enabled {
			shutdown, err := serveMetrics(s.Metrics)
			if err != nil {
				return err
			}
			defer shutdown()
		}

		st, closeStore, err := openStore(ctx, s, demoStore)
		if err != nil {
			return err
		}
		defer closeStore()

		averages, err := runDemo(ctx, s.Demo, st)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printSummary(out, averages)
		if demoPlot {
			fmt.Fprintln(out, plotMeans(averages, sensors[0]))
		}
		return nil
	},
}

func init() {
	demoCmd.Flags().IntVarP(&demoCount, "count", "n", 0, "number of readings to generate (overrides demo.count)")
	demoCmd.Flags().BoolVar(&demoPlot, "plot", false, "plot the running mean of the first sensor")
	demoCmd.Flags().StringVar(&demoStore, "store", "auto", "state store: memory, redis, postgres or auto")
}

// runDemo generates the readings, folds them through the store and returns every running mean in emission order.
func runDemo(ctx context.Context, s config.DemoSettings, st store.StateStore[average]) ([]average, error) {
	faker := gofakeit.New(s.Seed)
	readings := make([]reading, s.Count)
	for i := range readings {
		readings[i] = reading{
			Sensor: sensors[faker.IntRange(0, len(sensors)-1)],
			Value:  faker.Float64Range(0, 100),
		}
	}

	return operator.Pipe2(
		observe.Sequence(readings, observe.WithContext(ctx), observe.WithActivityName("Readings")),
		store.Stage[reading, average](
			store.DefaultSelector[reading](),
			foldReading,
			st,
			store.WithBatch(s.BatchSize, s.Window),
		),
		operator.Tap(operator.Hooks[average]{
			OnNext: func(avg average) {
				instrumentation.Metrics().Incr("Averages", "folded", 1, avg.Sensor)
			},
		}, observe.WithActivityName("Averages")),
	).ToValues()
}

func openStore(ctx context.Context, s config.Settings, kind string) (store.StateStore[average], func(), error) {
	if kind == "auto" {
		switch {
		case s.Postgres.DSN != "":
			kind = "postgres"
		case len(s.Redis.Addrs) > 0:
			kind = "redis"
		default:
			kind = "memory"
		}
	}

	switch kind {
	case "memory":
		st := store.NewInMemoryStore[average]()
		return st, st.Close, nil
	case "redis":
		if len(s.Redis.Addrs) == 0 {
			return nil, nil, errors.New("redis store needs redis.addrs or FLOW_REDIS_ADDR")
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: s.Redis.Addrs})
		st := store.NewRedisStore[average](client, store.WithKeyPrefix(s.Redis.Prefix))
		return st, func() { _ = client.Close() }, nil
	case "postgres":
		if s.Postgres.DSN == "" {
			return nil, nil, errors.New("postgres store needs postgres.dsn or FLOW_POSTGRES_DSN")
		}
		pool, err := pgxpool.New(ctx, s.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		st := store.NewPostgresStore[average](pool, store.WithTable(s.Postgres.Table))
		if err := st.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return st, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", kind)
	}
}

func serveMetrics(s config.MetricsSettings) (func(), error) {
	registry := prometheus.NewRegistry()
	measurer, err := instrumentation.NewPrometheusMeasurer(registry)
	if err != nil {
		return nil, err
	}
	instrumentation.SetMeasurer(measurer)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: s.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			instrumentation.Logging().Error("Metrics", "metrics server stopped: "+err.Error())
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
		instrumentation.SetMeasurer(&instrumentation.NilMeasurer{})
	}, nil
}

func printSummary(out io.Writer, averages []average) {
	final := make(map[string]average, len(sensors))
	for _, avg := range averages {
		final[avg.Sensor] = avg
	}
	for _, sensor := range sensors {
		if avg, ok := final[sensor]; ok {
			fmt.Fprintf(out, "%-6s readings=%-4d mean=%.2f\n", sensor, avg.Count, avg.Mean)
		}
	}
}

func plotMeans(averages []average, sensor string) string {
	series := make([]float64, 0, len(averages))
	for _, avg := range averages {
		if avg.Sensor == sensor {
			series = append(series, avg.Mean)
		}
	}
	if len(series) == 0 {
		return "no readings for " + sensor
	}
	return asciigraph.Plot(series, asciigraph.Height(10), asciigraph.Caption("running mean: "+sensor))
}
