package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/deso-protocol/sha1graph/chain"
	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var lookupCmd = &cobra.Command{
	Use:    "lookup",
	Short:  "Print the stored cost of a difference",
	PreRun: bindFlags,
	RunE:   Lookup,
}

func init() {
	lookupCmd.Flags().String("diffset", "", "Path of the difference database. Required")
	lookupCmd.Flags().String("diff", "", "Difference to look up, as five 8-digit hex words separated by '/'. Required")
	lookupCmd.Flags().Bool("trust-db", false, "Skip the sort order check when opening the database")
	rootCmd.AddCommand(lookupCmd)
}

func Lookup(cmd *cobra.Command, args []string) error {
	dbPath := viper.GetString("diffset")
	diffStr := viper.GetString("diff")
	if dbPath == "" || diffStr == "" {
		return usageError("--diffset and --diff are required")
	}
	diff, err := diffset.ParseDiffVector(diffStr)
	if err != nil {
		return usageError("--diff: %v", err)
	}
	return LookupDiff(dbPath, diff, !viper.GetBool("trust-db"), os.Stdout)
}

func LookupDiff(dbPath string, diff diffset.DiffVector, validate bool, out io.Writer) error {
	db, err := diffset.Open(dbPath, diffset.WithValidation(validate))
	if err != nil {
		return err
	}
	defer db.Close()

	cost, ok := db.Lookup(diff)
	if !ok {
		return errors.Wrapf(chain.ErrNotFound, "LookupDiff: %s in %s", diff, dbPath)
	}
	fmt.Fprintf(out, "%s %f\n", diff, cost)
	return nil
}
