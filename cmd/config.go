package cmd

import (
	"runtime"

	"github.com/deso-protocol/sha1graph/chain"
	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/golang/glog"
	"github.com/spf13/viper"
)

type Config struct {
	// Inputs
	DiffsetPath  string
	CatalogPath  string
	TemplatePath string
	OutputPath   string
	TrustDB      bool

	// Chain
	StartDiff      *diffset.DiffVector
	Simulate       bool
	Seed           int64
	Workers        int
	SimWorkers     int
	PlanCacheDir   string
	PlanCacheSize  int
	ResetPlanCache bool

	// Metrics
	StatsdAddr  string
	MetricsAddr string

	// Logging
	LogDirectory string
	GlogV        uint64
	GlogVmodule  string
}

func LoadConfig() *Config {
	config := Config{}

	// Inputs
	config.DiffsetPath = viper.GetString("diffset")
	config.CatalogPath = viper.GetString("catalog")
	config.TemplatePath = viper.GetString("template")
	config.OutputPath = viper.GetString("output")
	config.TrustDB = viper.GetBool("trust-db")

	// Chain
	config.Simulate = viper.GetBool("simulate")
	config.Seed = viper.GetInt64("seed")
	config.Workers = viper.GetInt("workers")
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	config.SimWorkers = viper.GetInt("sim-workers")
	config.PlanCacheDir = viper.GetString("plan-cache-dir")
	config.PlanCacheSize = viper.GetInt("plan-cache-size")
	config.ResetPlanCache = viper.GetBool("reset-plan-cache")

	// Metrics
	config.StatsdAddr = viper.GetString("statsd-addr")
	config.MetricsAddr = viper.GetString("metrics-addr")

	// Logging
	config.LogDirectory = viper.GetString("log-dir")
	config.GlogV = viper.GetUint64("glog-v")
	config.GlogVmodule = viper.GetString("glog-vmodule")

	return &config
}

// Validate checks the required flags and parses the explicit start
// difference. Failures are usage errors.
func (config *Config) Validate() error {
	if config.DiffsetPath == "" {
		return usageError("--diffset is required")
	}
	if config.CatalogPath == "" {
		return usageError("--catalog is required")
	}
	if config.SimWorkers < 0 {
		return usageError("--sim-workers must not be negative")
	}
	if config.PlanCacheSize < 0 {
		return usageError("--plan-cache-size must not be negative")
	}
	if diffStr := viper.GetString("diff"); diffStr != "" {
		diff, err := diffset.ParseDiffVector(diffStr)
		if err != nil {
			return usageError("--diff: %v", err)
		}
		config.StartDiff = &diff
	}
	return nil
}

func (config *Config) Print() {
	if config.LogDirectory != "" {
		glog.Infof("Logging to directory %s", config.LogDirectory)
	}
	glog.Infof("Difference database: %s", config.DiffsetPath)
	glog.Infof("Characteristic catalog: %s", config.CatalogPath)

	if config.TemplatePath != "" {
		glog.Infof("Path template: %s", config.TemplatePath)
	}
	if config.OutputPath != "" {
		glog.Infof("Output: %s", config.OutputPath)
	}
	if config.StartDiff != nil {
		glog.Infof("Start difference: %s", config.StartDiff)
	}

	if config.TrustDB {
		glog.V(0).Infof(chain.CLog(chain.Red, "TrustDB: ON - The database is not checked for sort order. "+
			"A malformed file makes lookups silently miss."))
	}

	if config.Simulate {
		glog.Infof("Simulation: ON (%d streams)", max(config.SimWorkers, 1))
	} else {
		glog.Infof("Simulation: OFF")
	}
	glog.Infof("Optimizer workers: %d", config.Workers)

	if config.PlanCacheDir != "" {
		glog.Infof("Plan cache directory: %s", config.PlanCacheDir)
	}
	glog.Infof("Plan cache size: %d", config.PlanCacheSize)
	if config.ResetPlanCache {
		glog.Infof("Plan cache reset: ON")
	}

	if config.StatsdAddr != "" {
		glog.Infof("Statsd: %s", config.StatsdAddr)
	}
	if config.MetricsAddr != "" {
		glog.Infof("Prometheus metrics on %s", config.MetricsAddr)
	}
}
