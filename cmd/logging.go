package cmd

import (
	"flag"
	"fmt"

	"github.com/golang/glog"
)

// setupLogging hands the log settings to glog, which only reads them from the
// standard flag set.
func setupLogging(logDir string, verbosity uint64, vmodule string) {
	if logDir != "" {
		flag.Set("log_dir", logDir)
		flag.Set("alsologtostderr", "true")
	} else {
		flag.Set("logtostderr", "true")
	}
	flag.Set("v", fmt.Sprintf("%d", verbosity))
	flag.Set("vmodule", vmodule)
	flag.Parse()
	glog.CopyStandardLogTo("INFO")
}
