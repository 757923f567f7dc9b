package metrics

import (
	"strconv"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// StatsdRecorder reports to a DogStatsD agent. Send errors are logged and
// otherwise ignored; a missing agent must not stop a run.
type StatsdRecorder struct {
	client statsd.ClientInterface
	tags   []string
}

func NewStatsdRecorder(client statsd.ClientInterface, runID string) *StatsdRecorder {
	return &StatsdRecorder{
		client: client,
		tags:   []string{"run:" + runID},
	}
}

// DialStatsd creates a client for the agent at addr, e.g. "localhost:8125".
func DialStatsd(addr string, runID string) (*StatsdRecorder, error) {
	client, err := statsd.New(addr, statsd.WithNamespace("sha1graph."))
	if err != nil {
		return nil, errors.Wrapf(err, "DialStatsd: Problem connecting to %s", addr)
	}
	return NewStatsdRecorder(client, runID), nil
}

func (sr *StatsdRecorder) logErr(err error) {
	if err != nil {
		glog.V(2).Infof("StatsdRecorder: %v", err)
	}
}

func (sr *StatsdRecorder) OptimizerRun(lookups int, hits int, expected float64, elapsed time.Duration) {
	sr.logErr(sr.client.Count("OPTIMIZER.LOOKUPS", int64(lookups), sr.tags, 1))
	sr.logErr(sr.client.Count("OPTIMIZER.HITS", int64(hits), sr.tags, 1))
	sr.logErr(sr.client.Gauge("OPTIMIZER.EXPECTED_COST", expected, sr.tags, 1))
	sr.logErr(sr.client.Timing("OPTIMIZER.ELAPSED", elapsed, sr.tags, 1))
}

func (sr *StatsdRecorder) PlanCacheAccess(hit bool) {
	tags := append([]string{"hit:" + strconv.FormatBool(hit)}, sr.tags...)
	sr.logErr(sr.client.Incr("PLANCACHE.ACCESS", tags, 1))
}

func (sr *StatsdRecorder) BlockFinished(block int, trials uint64, cost float64) {
	sr.logErr(sr.client.Gauge("BLOCKS.HEIGHT", float64(block), sr.tags, 1))
	sr.logErr(sr.client.Count("SIMULATOR.TRIALS", int64(trials), sr.tags, 1))
	sr.logErr(sr.client.Histogram("BLOCKS.COST", cost, sr.tags, 1))
}

func (sr *StatsdRecorder) ChainFinished(blocks int, totalCost float64, collided bool) {
	tags := append([]string{"collided:" + strconv.FormatBool(collided)}, sr.tags...)
	sr.logErr(sr.client.Gauge("CHAIN.BLOCKS", float64(blocks), tags, 1))
	sr.logErr(sr.client.Gauge("CHAIN.TOTAL_COST", totalCost, tags, 1))
}

func (sr *StatsdRecorder) Close() error {
	return sr.client.Close()
}
