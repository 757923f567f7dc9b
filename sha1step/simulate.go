package sha1step

import (
	"context"
	"math/rand"

	"github.com/deso-protocol/go-deadlock"
	"github.com/deso-protocol/sha1graph/catalog"
	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of trials a stream runs between checks for
// cancellation.
const DefaultBatchSize = 1 << 14

var ErrNoTargets = errors.New("no target differences to search for")

// Trial is one random near-collision attempt over the last round. Both paths
// start from the same window.
type Trial struct {
	Start State
	Msg   Message
}

// DrawTrial picks a random starting window and random message words, then
// forces the condition bits for mask.
func DrawTrial(rr *rand.Rand, mask catalog.Mask) Trial {
	var tt Trial
	for ii := range tt.Start {
		tt.Start[ii] = rr.Uint32()
	}
	for ii := range tt.Msg {
		tt.Msg[ii] = rr.Uint32()
	}
	ApplyConditions(&tt.Msg, mask)
	return tt
}

// Paths runs both paths of the trial and returns their final windows.
func (tt *Trial) Paths() (_st1 State, _st2 State) {
	msg2 := SecondPath(&tt.Msg)
	return Run(tt.Start, &tt.Msg), Run(tt.Start, &msg2)
}

// Hit is the first trial whose output difference was one of the targets.
type Hit struct {
	Index  int
	Output diffset.DiffVector
	// Misses counts the trials run across all streams before the hit.
	Misses uint64
	Path1  State
	Path2  State
}

func matchTarget(targets []diffset.DiffVector, out diffset.DiffVector) int {
	for ii := range targets {
		if targets[ii] == out {
			return ii
		}
	}
	return -1
}

func searchStream(ctx context.Context, rr *rand.Rand, mask catalog.Mask,
	targets []diffset.DiffVector, batchSize int) (_hit *Hit, _trials uint64, _err error) {

	trials := uint64(0)
	for {
		if err := ctx.Err(); err != nil {
			return nil, trials, err
		}
		for ii := 0; ii < batchSize; ii++ {
			trial := DrawTrial(rr, mask)
			st1, st2 := trial.Paths()
			out := OutputDiff(st1, st2)
			trials++
			if idx := matchTarget(targets, out); idx >= 0 {
				return &Hit{Index: idx, Output: out, Path1: st1, Path2: st2}, trials, nil
			}
		}
	}
}

// Simulator searches for a trial whose output difference is in Targets. It
// does not give up on its own; cancel ctx to stop it.
type Simulator struct {
	Mask    catalog.Mask
	Targets []diffset.DiffVector

	// Workers is the number of parallel trial streams. With one stream the
	// search consumes rr directly and is fully reproducible from its seed.
	Workers   int
	BatchSize int
}

func (sim *Simulator) Search(ctx context.Context, rr *rand.Rand) (*Hit, error) {
	if len(sim.Targets) == 0 {
		return nil, ErrNoTargets
	}
	batchSize := sim.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	if sim.Workers <= 1 {
		hit, trials, err := searchStream(ctx, rr, sim.Mask, sim.Targets, batchSize)
		if err != nil {
			return nil, errors.Wrapf(err, "Simulator.Search: Stopped after %d trials", trials)
		}
		hit.Misses = trials - 1
		return hit, nil
	}

	// Seeds are drawn up front so the stream layout only depends on rr.
	seeds := make([]int64, sim.Workers)
	for ii := range seeds {
		seeds[ii] = rr.Int63()
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mtx deadlock.Mutex
	var winner *Hit
	totalTrials := uint64(0)

	g, gCtx := errgroup.WithContext(searchCtx)
	for ii, seed := range seeds {
		ii, seed := ii, seed
		g.Go(func() error {
			hit, trials, err := searchStream(gCtx, rand.New(rand.NewSource(seed)), sim.Mask, sim.Targets, batchSize)

			mtx.Lock()
			defer mtx.Unlock()
			totalTrials += trials
			if err != nil {
				// Losing streams are cancelled by the winner.
				if ctx.Err() == nil {
					return nil
				}
				return err
			}
			if winner == nil {
				glog.V(2).Infof("Simulator.Search: Stream %d found a hit after %d trials", ii, trials)
				winner = hit
				cancel()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "Simulator.Search: Stopped after %d trials", totalTrials)
	}
	if winner == nil {
		return nil, errors.Wrapf(ctx.Err(), "Simulator.Search: Stopped after %d trials", totalTrials)
	}
	winner.Misses = totalTrials - 1
	return winner, nil
}
