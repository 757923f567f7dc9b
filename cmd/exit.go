package cmd

import (
	"io/fs"

	"github.com/deso-protocol/sha1graph/catalog"
	"github.com/deso-protocol/sha1graph/chain"
	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/deso-protocol/sha1graph/optimizer"
	"github.com/deso-protocol/sha1graph/pathtemplate"
	"github.com/pkg/errors"
)

// Process exit statuses. The operating system reports the negative ones
// modulo 256.
const (
	exitOK           = 0
	exitFailure      = 1
	exitUsage        = -1
	exitOpen         = -2
	exitMap          = -3
	exitNotFound     = -4
	exitInconsistent = -5
	exitOutput       = -6
)

var (
	ErrUsage  = errors.New("usage error")
	ErrOutput = errors.New("cannot write output")
)

func usageError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrUsage, format, args...)
}

// exitCode classifies err. Checks run from the most specific cause outwards:
// a template failure wraps the underlying I/O error, for example.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrUsage), errors.Is(err, diffset.ErrBadDiffString):
		return exitUsage
	case errors.Is(err, chain.ErrNotFound):
		return exitNotFound
	case errors.Is(err, optimizer.ErrInconsistent):
		return exitInconsistent
	case errors.Is(err, ErrOutput), errors.Is(err, chain.ErrTemplate), errors.Is(err, pathtemplate.ErrMarkerNotFound):
		return exitOutput
	case errors.Is(err, diffset.ErrMap), errors.Is(err, diffset.ErrSize), errors.Is(err, diffset.ErrUnsorted):
		return exitMap
	case errors.Is(err, diffset.ErrOpen), errors.Is(err, catalog.ErrInvalidCatalog), errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission):
		return exitOpen
	default:
		return exitFailure
	}
}
