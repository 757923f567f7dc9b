package main

import (
	"github.com/deso-protocol/sha1graph/cmd"
)

func main() {
	// Flags, environment variables and the config file are all resolved by
	// viper inside the cmd package. For example
	// $ ./sha1graph run --diffset diffs.bin --catalog catalog.yaml --simulate
	// runs Run() in cmd/run.go.
	cmd.Execute()
}
