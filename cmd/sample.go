package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"

	"github.com/deso-protocol/sha1graph/catalog"
	"github.com/deso-protocol/sha1graph/sha1step"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Measure the continuation probabilities of one characteristic group",
	Long: `Runs many random last-round trials under the conditions of one catalog group
and compares how often each continuation occurs with its catalogued cost.`,
	PreRun: bindFlags,
	RunE:   Sample,
}

func init() {
	sampleCmd.Flags().String("catalog", "", "Path of the characteristic catalog. Required")
	sampleCmd.Flags().Int("group", -1, "Index of the group to sample. Defaults to a random group")
	sampleCmd.Flags().Uint64("samples", 1<<28, "Number of trials")
	sampleCmd.Flags().Int64("seed", 0, "Seed for the trials. Zero picks one from the clock and pid")
	sampleCmd.Flags().Int("sim-workers", 1, "Parallel trial streams")
	rootCmd.AddCommand(sampleCmd)
}

func Sample(cmd *cobra.Command, args []string) error {
	catalogPath := viper.GetString("catalog")
	if catalogPath == "" {
		return usageError("--catalog is required")
	}
	if viper.GetUint64("samples") == 0 {
		return usageError("--samples must be positive")
	}
	setupLogging(viper.GetString("log-dir"), viper.GetUint64("glog-v"), viper.GetString("glog-vmodule"))

	cat, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return SampleGroup(ctx, cat, viper.GetInt("group"), viper.GetUint64("samples"),
		viper.GetInt("sim-workers"), pickSeed(viper.GetInt64("seed")), os.Stdout)
}

// SampleGroup samples group groupIndex of cat, or a random group when
// groupIndex is negative, and prints one line per continuation.
func SampleGroup(ctx context.Context, cat *catalog.Catalog, groupIndex int, samples uint64,
	workers int, seed int64, out io.Writer) error {

	if groupIndex >= len(cat.Groups) {
		return usageError("--group %d is out of range, the catalog has %d groups", groupIndex, len(cat.Groups))
	}
	if groupIndex < 0 {
		groupIndex = rand.New(rand.NewSource(seed)).Intn(len(cat.Groups))
	}
	group := &cat.Groups[groupIndex]
	glog.Infof("SampleGroup: Sampling group %d (%s) with %d trials, seed %d", groupIndex, group.Mask, samples, seed)

	results, err := sha1step.Sample(ctx, group, samples, workers, seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Group %d\n", groupIndex)
	fmt.Fprintf(out, "  Z conditions: %s\n", group.Mask)
	for _, res := range results {
		fmt.Fprintf(out, "  %s: predicted %f, measured %f (%d/%d)\n",
			res.Continuation.Diff.Spaced(), res.Predicted(), res.Measured(), res.Count, res.Samples)
	}
	return nil
}
