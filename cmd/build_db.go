package cmd

import (
	"os"

	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var buildDBCmd = &cobra.Command{
	Use:   "build-db",
	Short: "Write a difference database from a text listing",
	Long: `Reads lines of the form

  ffffda04/fffffed4/fffffffc/fffffff8/00000000 71.25

and writes them as a sorted binary difference database. Blank lines and lines
starting with '#' are ignored.`,
	PreRun: bindFlags,
	RunE:   BuildDB,
}

func init() {
	buildDBCmd.Flags().String("input", "", "Text listing to read. Required")
	buildDBCmd.Flags().String("output", "", "Database file to write. Required")
	rootCmd.AddCommand(buildDBCmd)
}

func BuildDB(cmd *cobra.Command, args []string) error {
	inPath := viper.GetString("input")
	outPath := viper.GetString("output")
	if inPath == "" || outPath == "" {
		return usageError("--input and --output are required")
	}
	return BuildDatabase(inPath, outPath)
}

func BuildDatabase(inPath string, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return errors.Wrapf(err, "BuildDatabase:")
	}
	defer in.Close()

	recs, err := diffset.ReadTextRecords(in)
	if err != nil {
		return errors.Wrapf(err, "BuildDatabase: %s", inPath)
	}
	if err := diffset.WriteFile(outPath, recs); err != nil {
		if errors.Is(err, diffset.ErrDuplicateKey) {
			return err
		}
		return errors.Wrapf(ErrOutput, "BuildDatabase: %v", err)
	}
	glog.Infof("BuildDatabase: Wrote %d records to %s", len(recs), outPath)
	return nil
}
