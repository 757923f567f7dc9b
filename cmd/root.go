package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sha1graph",
	Short: "SHA-1 near-collision block chaining optimizer",
	Long: `Plans the cheapest sequence of near-collision blocks for the last round of
SHA-1 from a precomputed difference database and a catalog of characteristics,
and optionally simulates each block until the chaining values collide.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the selected command and exits with the status matching its
// error.
func Execute() {
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	code := exitCode(err)
	if code == exitUsage {
		cmd.Usage()
	}
	os.Exit(code)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sha1graph/sha1graph.yaml)")
	rootCmd.PersistentFlags().String("log-dir", "", "The directory for logs. When unset, logs only go to stderr")
	rootCmd.PersistentFlags().Uint64("glog-v", 0, "The log level. 0 = INFO, 1 = DEBUG, 2 = TRACE. Defaults to zero")
	rootCmd.PersistentFlags().String("glog-vmodule", "", "The syntax of the argument is a comma-separated list of pattern=N, "+
		"where pattern is a literal file name (minus the \".go\" suffix) or \"glob\" pattern and N is a V level. "+
		"For instance, *chain*=2 sets V to 2 in files whose names contain \"chain\"")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError("%v", err)
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Expand("~/.sha1graph")
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigName("sha1graph")
	}

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags hands the flags of the command being run to viper. Subcommands
// share flag names, so binding happens at run time rather than in init.
func bindFlags(cmd *cobra.Command, args []string) {
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		viper.BindPFlag(flag.Name, flag)
	})
}
