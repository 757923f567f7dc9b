package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sha1graph"

// PrometheusRecorder keeps its collectors in its own registry so several
// recorders can coexist in one process.
type PrometheusRecorder struct {
	Registry *prometheus.Registry

	lookups      prometheus.Counter
	hits         prometheus.Counter
	expectedCost prometheus.Gauge
	optimizeTime prometheus.Histogram
	cacheAccess  *prometheus.CounterVec
	blockHeight  prometheus.Gauge
	trials       prometheus.Counter
	blockCost    prometheus.Histogram
	chainBlocks  *prometheus.GaugeVec
	chainCost    *prometheus.GaugeVec
}

func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		Registry: reg,
		lookups: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "lookups_total",
			Help:      "Candidate differences looked up in the database",
		}),
		hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "hits_total",
			Help:      "Candidate differences found in the database",
		}),
		expectedCost: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "expected_cost",
			Help:      "Expected remaining cost of the last optimized block",
		}),
		optimizeTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "duration_seconds",
			Help:      "Time spent optimizing one block",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		cacheAccess: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plancache",
			Name:      "access_total",
			Help:      "Plan cache lookups by result",
		}, []string{"hit"}),
		blockHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "block_height",
			Help:      "Index of the last simulated block",
		}),
		trials: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "trials_total",
			Help:      "Simulated near-collision trials",
		}),
		blockCost: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "block_cost",
			Help:      "Simulated cost per block in units of the cheapest continuation",
			Buckets:   prometheus.ExponentialBuckets(0.125, 2, 12),
		}),
		chainBlocks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "blocks",
			Help:      "Near-collision blocks in the finished chain",
		}, []string{"collided"}),
		chainCost: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "total_cost",
			Help:      "Total simulated cost of the finished chain",
		}, []string{"collided"}),
	}
}

func (pr *PrometheusRecorder) OptimizerRun(lookups int, hits int, expected float64, elapsed time.Duration) {
	pr.lookups.Add(float64(lookups))
	pr.hits.Add(float64(hits))
	pr.expectedCost.Set(expected)
	pr.optimizeTime.Observe(elapsed.Seconds())
}

func (pr *PrometheusRecorder) PlanCacheAccess(hit bool) {
	pr.cacheAccess.WithLabelValues(strconv.FormatBool(hit)).Inc()
}

func (pr *PrometheusRecorder) BlockFinished(block int, trials uint64, cost float64) {
	pr.blockHeight.Set(float64(block))
	pr.trials.Add(float64(trials))
	pr.blockCost.Observe(cost)
}

func (pr *PrometheusRecorder) ChainFinished(blocks int, totalCost float64, collided bool) {
	label := strconv.FormatBool(collided)
	pr.chainBlocks.WithLabelValues(label).Set(float64(blocks))
	pr.chainCost.WithLabelValues(label).Set(totalCost)
}

func (pr *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(pr.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (pr *PrometheusRecorder) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", pr.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		glog.Infof("PrometheusRecorder.Serve: Serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Errorf("PrometheusRecorder.Serve: %v", err)
		}
	}()
}
