package cmd

import (
	"context"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/deso-protocol/sha1graph/catalog"
	"github.com/deso-protocol/sha1graph/chain"
	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/deso-protocol/sha1graph/metrics"
	"github.com/deso-protocol/sha1graph/optimizer"
	"github.com/deso-protocol/sha1graph/plancache"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Plan, and optionally simulate, near-collision blocks until the chain collides",
	Long: `Starts from an input difference (explicit or drawn from the database), picks
the cheapest characteristic for every block and logs the plan to stdout. With
--simulate each block is run until one of its useful output differences
occurs, and the chain continues from the resulting chaining values.`,
	PreRun: bindFlags,
	RunE:   Run,
}

func init() {
	SetupRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func Run(cmd *cobra.Command, args []string) error {
	// Parse the configuration (can use CLI flags, environment variables, or config file)
	config := LoadConfig()
	if err := config.Validate(); err != nil {
		return err
	}
	setupLogging(config.LogDirectory, config.GlogV, config.GlogVmodule)
	config.Print()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, err := RunChain(ctx, config, os.Stdout)
	return err
}

func SetupRunFlags(cmd *cobra.Command) {
	// Inputs
	cmd.Flags().String("diffset", "", "Path of the difference database: sorted 28-byte records "+
		"of five little-endian difference words followed by a float64 cost. Required")
	cmd.Flags().String("catalog", "", "Path of the characteristic catalog, as YAML or as a .h "+
		"initializer table. Required")
	cmd.Flags().String("template", "", "When set, a differential path file is rendered from this "+
		"template for every planned block")
	cmd.Flags().String("output", "", "Where rendered path files are written. Defaults to stdout")
	cmd.Flags().Bool("trust-db", false, "Skip the sort order check when opening the database. "+
		"Saves a pass over very large files")

	// Chain
	cmd.Flags().String("diff", "", "Start difference as five 8-digit hex words separated by '/', "+
		"e.g. ffffda04/fffffed4/fffffffc/fffffff8/00000000. Defaults to a random database entry")
	cmd.Flags().Bool("simulate", false, "Simulate each block and keep chaining until the chaining "+
		"values collide. Without it only the first block is planned")
	cmd.Flags().Int64("seed", 0, "Seed for every random choice of the run. Zero picks one from "+
		"the clock and pid; the seed used is always logged")
	cmd.Flags().Int("workers", 0, "Goroutines used by the optimizer. Defaults to the number of CPUs")
	cmd.Flags().Int("sim-workers", 1, "Parallel trial streams per simulated block. A single stream "+
		"makes the whole run reproducible from --seed")
	cmd.Flags().String("plan-cache-dir", "", "When set, optimizer plans are persisted in a badger "+
		"store in this directory and reused by later runs with the same catalog and database. "+
		"Plans computed for any other catalog or database contents are removed on open")
	cmd.Flags().Int("plan-cache-size", 4096, "Number of plans kept in memory. Zero disables the cache")
	cmd.Flags().Bool("reset-plan-cache", false, "Delete the store in --plan-cache-dir before the run")

	// Metrics
	cmd.Flags().String("statsd-addr", "", "When set, run metrics are sent to this statsd agent")
	cmd.Flags().String("metrics-addr", "", "When set, Prometheus metrics are served on this "+
		"address under /metrics")
}

func pickSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano() ^ int64(os.Getpid())<<32
}

// setupMetrics builds the recorders config asks for. The returned function
// flushes and closes them.
func setupMetrics(ctx context.Context, config *Config, runID string) (metrics.Recorder, func(), error) {
	var recorders metrics.Multi
	closeFn := func() {}
	if config.StatsdAddr != "" {
		sr, err := metrics.DialStatsd(config.StatsdAddr, runID)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "setupMetrics:")
		}
		recorders = append(recorders, sr)
		closeFn = func() {
			if err := sr.Close(); err != nil {
				glog.Errorf("setupMetrics: Problem closing statsd client: %v", err)
			}
		}
	}
	if config.MetricsAddr != "" {
		pr := metrics.NewPrometheusRecorder()
		pr.Serve(ctx, config.MetricsAddr)
		recorders = append(recorders, pr)
	}
	if len(recorders) == 0 {
		return metrics.NopRecorder{}, closeFn, nil
	}
	return recorders, closeFn, nil
}

// RunChain opens the inputs named by config and runs the chain. The block log
// goes to stdout.
func RunChain(ctx context.Context, config *Config, stdout io.Writer) (*chain.Report, error) {
	runID := uuid.New().String()
	seed := pickSeed(config.Seed)
	glog.Infof("RunChain: Run %s with seed %d", runID, seed)
	rr := rand.New(rand.NewSource(seed))

	db, err := diffset.Open(config.DiffsetPath, diffset.WithValidation(!config.TrustDB))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	cat, err := catalog.LoadFile(config.CatalogPath)
	if err != nil {
		return nil, err
	}

	var input diffset.DiffVector
	if config.StartDiff != nil {
		input = *config.StartDiff
	} else {
		input, err = db.RandomKey(rr)
		if err != nil {
			return nil, errors.Wrapf(err, "RunChain: %s", config.DiffsetPath)
		}
	}

	recorder, closeMetrics, err := setupMetrics(ctx, config, runID)
	if err != nil {
		return nil, err
	}
	defer closeMetrics()

	opt := &optimizer.Optimizer{
		Catalog:  cat,
		Database: db,
		Workers:  config.Workers,
		Metrics:  recorder,
	}
	if config.ResetPlanCache {
		if err := plancache.Reset(config.PlanCacheDir); err != nil {
			return nil, err
		}
	}
	if config.PlanCacheSize > 0 {
		cache, closeCache, err := plancache.Open(config.PlanCacheDir, config.PlanCacheSize,
			plancache.Namespace(cat, db.Fingerprint()))
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := closeCache(); err != nil {
				glog.Errorf("RunChain: Problem closing plan cache: %v", err)
			}
		}()
		opt.Cache = cache
	}

	output := stdout
	if config.OutputPath != "" && config.TemplatePath != "" {
		ff, err := os.Create(config.OutputPath)
		if err != nil {
			return nil, errors.Wrapf(ErrOutput, "RunChain: %v", err)
		}
		defer ff.Close()
		output = ff
	}

	ch := &chain.Chainer{
		Catalog:      cat,
		Database:     db,
		Optimizer:    opt,
		Log:          stdout,
		Output:       output,
		TemplatePath: config.TemplatePath,
		Simulate:     config.Simulate,
		SimWorkers:   config.SimWorkers,
		Rand:         rr,
		Metrics:      recorder,
		RunID:        runID,
	}
	report, err := ch.Run(ctx, chain.NewState(input, rr))
	if err != nil {
		glog.Error(chain.CLog(chain.Red, "RunChain: Run "+runID+" stopped: "+err.Error()))
		return report, err
	}
	glog.Infof("RunChain: Run %s finished after %d blocks, %d trials, total cost %f, collided: %v",
		runID, len(report.Blocks), report.Misses, report.TotalCost, report.Collided)
	return report, nil
}
