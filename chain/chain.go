package chain

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/deso-protocol/sha1graph/catalog"
	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/deso-protocol/sha1graph/metrics"
	"github.com/deso-protocol/sha1graph/optimizer"
	"github.com/deso-protocol/sha1graph/pathtemplate"
	"github.com/deso-protocol/sha1graph/sha1step"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("input difference not found in the difference database")
	ErrTemplate = errors.New("problem rendering path template")
)

type OutcomeKind int

const (
	// Collided: the chaining values are equal. No block was added.
	Collided OutcomeKind = iota
	// Active: a block was simulated and Next holds the following state.
	Active
	// Stopped: a block was planned but simulation is off.
	Stopped
)

func (kk OutcomeKind) String() string {
	switch kk {
	case Collided:
		return "Collided"
	case Active:
		return "Active"
	case Stopped:
		return "Stopped"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(kk))
	}
}

// Block records one planned (and possibly simulated) near-collision block.
type Block struct {
	Index       int
	Input       diffset.DiffVector
	Precomputed float64
	Plan        *optimizer.Plan

	// Set once the block was simulated.
	Hit  *sha1step.Hit
	Cost float64
}

type Outcome struct {
	Kind  OutcomeKind
	Block *Block
	Next  State
}

// Chainer plans and optionally simulates near-collision blocks until the
// chaining values collide. All run state lives here; Step and Run must not be
// called concurrently.
type Chainer struct {
	Catalog   *catalog.Catalog
	Database  optimizer.CostLookup
	Optimizer *optimizer.Optimizer

	// Log receives the human-readable block log.
	Log io.Writer
	// Output receives the rendered path template, when TemplatePath is set.
	Output       io.Writer
	TemplatePath string

	Simulate   bool
	SimWorkers int
	Rand       *rand.Rand
	Metrics    metrics.Recorder
	RunID      string

	numBlocks int
	misses    uint64
}

// TotalCost is the simulated cost so far, in units of the cheapest
// continuation.
func (ch *Chainer) TotalCost() float64 {
	return float64(ch.misses) / ch.Catalog.Scale()
}

func (ch *Chainer) NumBlocks() int {
	return ch.numBlocks
}

func (ch *Chainer) logf(format string, args ...interface{}) {
	if ch.Log != nil {
		fmt.Fprintf(ch.Log, format, args...)
	}
}

func (ch *Chainer) renderTemplate(st State, mask catalog.Mask) error {
	tmpl, err := os.Open(ch.TemplatePath)
	if err != nil {
		return errors.Wrapf(ErrTemplate, "renderTemplate: %v", err)
	}
	defer tmpl.Close()
	if err := pathtemplate.Emit(ch.Output, tmpl, st.IV1, st.IV2, mask); err != nil {
		return errors.Wrapf(ErrTemplate, "renderTemplate: %s: %v", ch.TemplatePath, err)
	}
	return nil
}

// Step handles one block. It returns Collided without adding a block when the
// chaining values are already equal.
func (ch *Chainer) Step(ctx context.Context, st State) (*Outcome, error) {
	recorder := metrics.OrNop(ch.Metrics)
	input := st.Input()
	if input.IsZero() {
		ch.logf("Collision found!\n")
		ch.logf("Total cost: %f Cblock\n", ch.TotalCost())
		ch.logf("Number of near-collision blocks: %d\n", ch.numBlocks)
		glog.Info(CLog(Green, fmt.Sprintf("Chainer.Step: Run %s collided after %d blocks, total cost %f",
			ch.RunID, ch.numBlocks, ch.TotalCost())))
		return &Outcome{Kind: Collided}, nil
	}

	ch.numBlocks++
	block := &Block{Index: ch.numBlocks, Input: input}
	ch.logf("Block #%d\n", block.Index)
	ch.logf("  Input diff [%s]\n", input.Spaced())
	precomputed, ok := ch.Database.Lookup(input)
	if !ok {
		ch.logf("  Not found!\n")
		return nil, errors.Wrapf(ErrNotFound, "Chainer.Step: block %d input %v", block.Index, input)
	}
	block.Precomputed = precomputed
	ch.logf("  Cost %f (precomputed)\n", precomputed)

	plan, err := ch.Optimizer.Optimize(ctx, input)
	if err != nil {
		return nil, errors.Wrapf(err, "Chainer.Step: block %d", block.Index)
	}
	if err := optimizer.Check(plan); err != nil {
		return nil, errors.Wrapf(err, "Chainer.Step: block %d", block.Index)
	}
	block.Plan = plan
	if glog.V(2) {
		glog.Infof("Chainer.Step: Plan for block %d: %s", block.Index, spewConfig.Sdump(plan))
	}

	ch.logf("  Z conditions: %s\n", plan.Mask)
	ch.logf("  Useful output diffs:\n")
	for ii, edge := range plan.Useful {
		ch.logf("    %s: Edge cost=%f, Remaining cost=%f [=> %s]\n",
			edge.Diff.Spaced(), edge.EdgeCost, edge.Remaining, plan.Next(ii).Spaced())
	}
	ch.logf("  Cost %f (computed from useful diffs)\n", plan.Expected)

	if ch.TemplatePath != "" {
		if err := ch.renderTemplate(st, plan.Mask); err != nil {
			return nil, err
		}
	}
	if !ch.Simulate {
		return &Outcome{Kind: Stopped, Block: block}, nil
	}

	ch.logf("  Simulating near-collision block:\n")
	sim := &sha1step.Simulator{
		Mask:    plan.Mask,
		Targets: plan.Targets(),
		Workers: ch.SimWorkers,
	}
	hit, err := sim.Search(ctx, ch.Rand)
	if err != nil {
		return nil, errors.Wrapf(err, "Chainer.Step: block %d", block.Index)
	}
	block.Hit = hit
	block.Cost = float64(hit.Misses) / ch.Catalog.Scale()
	ch.misses += hit.Misses
	ch.logf("Block found!\n  Output diff [%s]\n", hit.Output.Spaced())
	ch.logf("  Simulated cost: %f Cblock\n\n", block.Cost)
	recorder.BlockFinished(block.Index, hit.Misses, block.Cost)

	return &Outcome{Kind: Active, Block: block, Next: st.Advance(hit.Path1, hit.Path2)}, nil
}

type Report struct {
	RunID     string
	Blocks    []*Block
	Misses    uint64
	TotalCost float64
	Collided  bool
}

func (ch *Chainer) finish(report *Report) *Report {
	report.Misses = ch.misses
	report.TotalCost = ch.TotalCost()
	metrics.OrNop(ch.Metrics).ChainFinished(len(report.Blocks), report.TotalCost, report.Collided)
	return report
}

// Run steps from st until the chain collides, a block is planned with
// simulation off, or an error occurs. The report is returned in every case.
func (ch *Chainer) Run(ctx context.Context, st State) (*Report, error) {
	report := &Report{RunID: ch.RunID}
	for {
		outcome, err := ch.Step(ctx, st)
		if err != nil {
			return ch.finish(report), err
		}
		if outcome.Block != nil {
			report.Blocks = append(report.Blocks, outcome.Block)
		}
		switch outcome.Kind {
		case Collided:
			report.Collided = true
			return ch.finish(report), nil
		case Stopped:
			return ch.finish(report), nil
		}
		st = outcome.Next
	}
}
