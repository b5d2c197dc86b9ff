//go:build !windows

package catalog

import "golang.org/x/sys/unix"

const checksExecuteBit = true

func writeable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}

func executable(path string) bool {
	return unix.Access(path, unix.X_OK) == nil
}
