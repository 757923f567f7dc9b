//go:build unix

package diffset

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(ff *os.File, size int64) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(int(ff.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	return data, unix.Munmap, nil
}
