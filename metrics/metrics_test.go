package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/deso-protocol/go-deadlock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeStatsd struct {
	statsd.ClientInterface

	mtx    deadlock.Mutex
	gauges map[string]float64
	counts map[string]int64
}

func newFakeStatsd() *fakeStatsd {
	return &fakeStatsd{gauges: make(map[string]float64), counts: make(map[string]int64)}
}

func (fs *fakeStatsd) Gauge(name string, value float64, tags []string, rate float64) error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()
	fs.gauges[name] = value
	return nil
}

func (fs *fakeStatsd) Count(name string, value int64, tags []string, rate float64) error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()
	fs.counts[name] += value
	return nil
}

func (fs *fakeStatsd) Incr(name string, tags []string, rate float64) error {
	return fs.Count(name, 1, tags, rate)
}

func (fs *fakeStatsd) Histogram(name string, value float64, tags []string, rate float64) error {
	return fs.Gauge(name, value, tags, rate)
}

func (fs *fakeStatsd) Timing(name string, value time.Duration, tags []string, rate float64) error {
	return fs.Gauge(name, value.Seconds(), tags, rate)
}

func TestStatsdRecorder(t *testing.T) {
	require := require.New(t)

	client := newFakeStatsd()
	rec := NewStatsdRecorder(client, "run-1")
	rec.OptimizerRun(100, 7, 12.5, time.Millisecond)
	rec.OptimizerRun(50, 3, 10, time.Millisecond)
	rec.PlanCacheAccess(true)
	rec.BlockFinished(2, 1<<20, 0.75)
	rec.ChainFinished(3, 4.5, true)

	require.Equal(int64(150), client.counts["OPTIMIZER.LOOKUPS"])
	require.Equal(int64(10), client.counts["OPTIMIZER.HITS"])
	require.Equal(10.0, client.gauges["OPTIMIZER.EXPECTED_COST"])
	require.Equal(int64(1), client.counts["PLANCACHE.ACCESS"])
	require.Equal(int64(1<<20), client.counts["SIMULATOR.TRIALS"])
	require.Equal(3.0, client.gauges["CHAIN.BLOCKS"])
	require.Equal(4.5, client.gauges["CHAIN.TOTAL_COST"])
}

func TestPrometheusRecorder(t *testing.T) {
	require := require.New(t)

	rec := NewPrometheusRecorder()
	// A second recorder must not collide with the first.
	other := NewPrometheusRecorder()

	var rr Recorder = Multi{rec, NopRecorder{}}
	rr.OptimizerRun(100, 7, 12.5, time.Millisecond)
	rr.PlanCacheAccess(false)
	rr.PlanCacheAccess(true)
	rr.PlanCacheAccess(true)
	rr.BlockFinished(1, 1000, 2)
	rr.ChainFinished(2, 3.5, true)

	require.Equal(100.0, testutil.ToFloat64(rec.lookups))
	require.Equal(7.0, testutil.ToFloat64(rec.hits))
	require.Equal(12.5, testutil.ToFloat64(rec.expectedCost))
	require.Equal(2.0, testutil.ToFloat64(rec.cacheAccess.WithLabelValues("true")))
	require.Equal(1000.0, testutil.ToFloat64(rec.trials))
	require.Equal(3.5, testutil.ToFloat64(rec.chainCost.WithLabelValues("true")))
	require.Equal(0.0, testutil.ToFloat64(other.lookups))

	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.Contains(string(body), "sha1graph_optimizer_lookups_total 100")
}

func TestOrNop(t *testing.T) {
	require.IsType(t, NopRecorder{}, OrNop(nil))
	rec := NewPrometheusRecorder()
	require.Equal(t, Recorder(rec), OrNop(rec))
}
