package sha1step

import (
	"context"
	"math"
	"math/rand"

	"github.com/deso-protocol/go-deadlock"
	"github.com/deso-protocol/sha1graph/catalog"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// SampleResult compares a continuation's catalogued probability with the
// frequency observed over Samples random trials.
type SampleResult struct {
	Continuation catalog.Continuation
	Count        uint64
	Samples      uint64
}

// Predicted is the catalogued log2 probability of the continuation.
func (sr SampleResult) Predicted() float64 {
	return -sr.Continuation.Raw
}

// Measured is the observed log2 frequency. It is -Inf when the continuation
// never occurred.
func (sr SampleResult) Measured() float64 {
	if sr.Samples == 0 {
		return math.Inf(-1)
	}
	return math.Log2(float64(sr.Count) / float64(sr.Samples))
}

func sampleStream(ctx context.Context, rr *rand.Rand, group *catalog.Group,
	samples uint64, batchSize int) ([]uint64, error) {

	counts := make([]uint64, len(group.Continuations))
	for done := uint64(0); done < samples; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for ii := 0; ii < batchSize && done < samples; ii++ {
			trial := DrawTrial(rr, group.Mask)
			st1, st2 := trial.Paths()
			out := OutputDiff(st1, st2)
			for jj := range group.Continuations {
				if group.Continuations[jj].Diff == out {
					counts[jj]++
				}
			}
			done++
		}
	}
	return counts, nil
}

// Sample runs samples random trials under group's conditions and counts how
// often each of its continuations occurs. The samples are split evenly over
// workers streams seeded from seed, so results are reproducible for a fixed
// seed and worker count.
func Sample(ctx context.Context, group *catalog.Group, samples uint64, workers int, seed int64) (
	[]SampleResult, error) {

	if workers < 1 {
		workers = 1
	}
	rr := rand.New(rand.NewSource(seed))
	seeds := make([]int64, workers)
	for ii := range seeds {
		seeds[ii] = rr.Int63()
	}

	var mtx deadlock.Mutex
	totals := make([]uint64, len(group.Continuations))

	g, gCtx := errgroup.WithContext(ctx)
	for ii, seed := range seeds {
		share := samples / uint64(workers)
		if uint64(ii) < samples%uint64(workers) {
			share++
		}
		seed := seed
		g.Go(func() error {
			counts, err := sampleStream(gCtx, rand.New(rand.NewSource(seed)), group, share, DefaultBatchSize)
			if err != nil {
				return err
			}
			mtx.Lock()
			defer mtx.Unlock()
			for jj := range counts {
				totals[jj] += counts[jj]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "Sample:")
	}
	glog.V(1).Infof("Sample: Ran %d trials for mask %#04x over %d streams", samples, uint16(group.Mask), workers)

	results := make([]SampleResult, len(group.Continuations))
	for ii, cont := range group.Continuations {
		results[ii] = SampleResult{Continuation: cont, Count: totals[ii], Samples: samples}
	}
	return results, nil
}
