package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const namespace = "pricetracker"

// Metrics collects tracker counters and gauges on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	fetchAttempts    prometheus.Counter
	fetchFailures    prometheus.Counter
	fetchExhausted   prometheus.Counter
	cycles           *prometheus.CounterVec
	alertsFired      prometheus.Counter
	alertsSuppressed *prometheus.CounterVec
	notifyFailures   prometheus.Counter
	checkpoints      *prometheus.CounterVec
	historyPoints    prometheus.Gauge
	lastFetchUnix    prometheus.Gauge
}

// New registers the tracker metrics on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		fetchAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Price fetch attempts, including retries.",
		}),
		fetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed price fetch attempts.",
		}),
		fetchExhausted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_exhausted_total",
			Help:      "Fetches that failed after all retries.",
		}),
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Tracking cycles by outcome.",
		}, []string{"status"}),
		alertsFired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Price drop alerts dispatched.",
		}),
		alertsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_suppressed_total",
			Help:      "Threshold breaches that did not alert, by reason.",
		}, []string{"reason"}),
		notifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Alert deliveries that failed.",
		}),
		checkpoints: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Session checkpoint saves by outcome.",
		}, []string{"status"}),
		historyPoints: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_points",
			Help:      "Price points currently held in memory.",
		}),
		lastFetchUnix: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_fetch_unix",
			Help:      "Unix time of the last successful fetch.",
		}),
	}
}

func (m *Metrics) FetchAttempt()   { m.fetchAttempts.Inc() }
func (m *Metrics) FetchFailure()   { m.fetchFailures.Inc() }
func (m *Metrics) FetchExhausted() { m.fetchExhausted.Inc() }

func (m *Metrics) CycleCompleted(status string) { m.cycles.WithLabelValues(status).Inc() }

func (m *Metrics) AlertFired() { m.alertsFired.Inc() }

func (m *Metrics) AlertSuppressed(reason string) {
	m.alertsSuppressed.WithLabelValues(reason).Inc()
}

func (m *Metrics) NotifyFailure() { m.notifyFailures.Inc() }

func (m *Metrics) CheckpointSaved()  { m.checkpoints.WithLabelValues("ok").Inc() }
func (m *Metrics) CheckpointFailed() { m.checkpoints.WithLabelValues("error").Inc() }

func (m *Metrics) SetHistoryPoints(n int)   { m.historyPoints.Set(float64(n)) }
func (m *Metrics) SetLastFetch(t time.Time) { m.lastFetchUnix.Set(float64(t.Unix())) }

// Handler serves the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server exposes /metrics and /health over HTTP.
type Server struct {
	metrics *Metrics
	logger  zerolog.Logger
}

// NewServer wraps metrics with an HTTP listener.
func NewServer(metrics *Metrics, logger zerolog.Logger) *Server {
	return &Server{
		metrics: metrics,
		logger:  logger.With().Str("component", "metrics_server").Logger(),
	}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info().Str("addr", addr).Msg("metrics listener started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
