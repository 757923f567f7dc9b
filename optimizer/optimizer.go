package optimizer

import (
	"context"
	"math"
	"time"

	"github.com/deso-protocol/sha1graph/catalog"
	"github.com/deso-protocol/sha1graph/collections"
	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/deso-protocol/sha1graph/metrics"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// pruneEpsilon keeps an edge whose remaining cost equals the running
// expectation up to rounding from being accepted.
const pruneEpsilon = 1e-10

// CostLookup resolves the precomputed remaining cost of a difference.
// *diffset.Database implements it.
type CostLookup interface {
	Lookup(key diffset.DiffVector) (_cost float64, _ok bool)
}

// PlanCache stores finished plans keyed by input difference.
type PlanCache interface {
	Get(input diffset.DiffVector) (_plan *Plan, _ok bool, _err error)
	Put(plan *Plan) error
}

type Optimizer struct {
	Catalog  *catalog.Catalog
	Database CostLookup

	// Workers is the number of goroutines the 32 alternative combinations
	// are split over. Values below 1 mean 1.
	Workers int
	Metrics metrics.Recorder
	Cache   PlanCache
}

type pairResult struct {
	combination int
	group       int
	expected    float64
	useful      []UsefulEdge
	lookups     int
	hits        int
}

// selectPrefix sorts edges by remaining cost and keeps the greedy prefix:
// an edge is taken while it is cheaper than the expected cost of the edges
// taken so far. The first edge is always taken.
func selectPrefix(edges []UsefulEdge) (_useful []UsefulEdge, _expected float64) {
	sorted := collections.SortStable(edges, func(aa UsefulEdge, bb UsefulEdge) bool {
		return aa.Remaining < bb.Remaining
	})
	sum, wsum := 0.0, 0.0
	count := 0
	for ii, edge := range sorted {
		if ii > 0 && edge.Remaining >= (wsum+1)/sum-pruneEpsilon {
			break
		}
		sum += edge.Probability
		wsum += float64(edge.Probability * edge.Remaining)
		count++
	}
	if count == 0 {
		return nil, math.Inf(1)
	}
	return sorted[:count], (wsum + 1) / sum
}

func (opt *Optimizer) evaluatePair(input diffset.DiffVector, alt catalog.AlternativeDifference,
	groupIndex int) *pairResult {

	group := &opt.Catalog.Groups[groupIndex]
	res := &pairResult{combination: alt.ID, group: groupIndex}
	edges := make([]UsefulEdge, 0, len(group.Continuations))
	for _, cont := range group.Continuations {
		remaining, ok := opt.Database.Lookup(catalog.Candidate(input, alt, cont))
		res.lookups++
		if ok {
			res.hits++
		} else {
			remaining = math.Inf(1)
		}
		edges = append(edges, UsefulEdge{
			Diff:        alt.Diff.Add(cont.Diff),
			Probability: cont.Probability,
			EdgeCost:    cont.EdgeCost(),
			Remaining:   remaining,
		})
	}
	res.useful, res.expected = selectPrefix(edges)
	return res
}

// evaluateCombination returns the best group for one alternative. Ties keep
// the lower group index.
func (opt *Optimizer) evaluateCombination(ctx context.Context, input diffset.DiffVector,
	alt catalog.AlternativeDifference) (*pairResult, error) {

	var best *pairResult
	lookups, hits := 0, 0
	for gg := range opt.Catalog.Groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := opt.evaluatePair(input, alt, gg)
		lookups += res.lookups
		hits += res.hits
		if best == nil || res.expected < best.expected {
			best = res
		}
	}
	best.lookups, best.hits = lookups, hits
	return best, nil
}

// Optimize finds the alternative and group minimizing the expected cost of
// finishing the chain from input. Pairs are compared in (combination, group)
// order and ties keep the earlier pair, independent of Workers.
func (opt *Optimizer) Optimize(ctx context.Context, input diffset.DiffVector) (*Plan, error) {
	recorder := metrics.OrNop(opt.Metrics)
	if opt.Cache != nil {
		plan, ok, err := opt.Cache.Get(input)
		if err != nil {
			glog.Errorf("Optimizer.Optimize: Ignoring plan cache error: %v", err)
		}
		recorder.PlanCacheAccess(ok)
		if ok {
			glog.V(1).Infof("Optimizer.Optimize: Plan for %v served from cache", input)
			return plan, nil
		}
	}

	start := time.Now()
	alts := catalog.Alternatives()
	results := make([]*pairResult, len(alts))

	workers := opt.Workers
	if workers < 1 {
		workers = 1
	}
	g, gCtx := errgroup.WithContext(ctx)
	for ww := 0; ww < workers; ww++ {
		ww := ww
		g.Go(func() error {
			for id := ww; id < len(alts); id += workers {
				res, err := opt.evaluateCombination(gCtx, input, alts[id])
				if err != nil {
					return err
				}
				results[id] = res
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "Optimizer.Optimize: input %v", input)
	}

	best := results[0]
	lookups, hits := 0, 0
	for _, res := range results {
		lookups += res.lookups
		hits += res.hits
		if res.expected < best.expected {
			best = res
		}
	}

	plan := &Plan{
		Input:       input,
		Combination: best.combination,
		Group:       best.group,
		Mask:        alts[best.combination].Mask | opt.Catalog.Groups[best.group].Mask,
		Expected:    best.expected,
		Useful:      best.useful,
	}
	elapsed := time.Since(start)
	recorder.OptimizerRun(lookups, hits, plan.Expected, elapsed)
	glog.V(1).Infof("Optimizer.Optimize: input %v combination %d group %d expected %f "+
		"(%d lookups, %d hits, %v)", input, plan.Combination, plan.Group, plan.Expected, lookups, hits, elapsed)

	if opt.Cache != nil {
		if err := opt.Cache.Put(plan); err != nil {
			glog.Errorf("Optimizer.Optimize: Problem caching plan: %v", err)
		}
	}
	return plan, nil
}
