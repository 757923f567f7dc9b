//go:build !unix

package diffset

import (
	"io"
	"os"
)

// Platforms without mmap read the whole table into memory instead.
func mapFile(ff *os.File, size int64) ([]byte, func([]byte) error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(ff, data); err != nil {
		return nil, nil, err
	}
	return data, func([]byte) error { return nil }, nil
}
