//go:build windows

package catalog

import "os"

// Windows has no execute bit to check.
const checksExecuteBit = false

func writeable(path string) bool {
	f, err := os.CreateTemp(path, ".testdash-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

func executable(string) bool {
	return true
}
