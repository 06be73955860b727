//go:build !windows

package repl

import (
	"io"
	"os"
)

func OpenTTY() (io.ReadWriteCloser, error) {
	return os.OpenFile("/dev/tty", os.O_RDWR, 0)
}
