package catalog

import (
	"os"
	"path/filepath"

	"github.com/ethereum-optimism/infra/op-testdash/types"
)

const (
	MsgLogNotSet       = "The Codeception Log is not set. Is the Codeception configuration set up?"
	MsgLogMissing      = "The Codeception Log directory does not exist. Please check the following path exists:"
	MsgLogNotWriteable = "The Codeception Log directory can not be written to yet. Please check the following path has 'chmod 777' set:"
	MsgExecMissing     = "The Codeception executable could not be found."
	MsgExecNotRunnable = "Codeception isn't executable. Have you set executable rights to the following (try chmod o+x)."
	MsgConfigNotLoaded = "The Codeception configuration could not be loaded."
	MsgTestNotFound    = "The test could not be found."
)

// CheckWriteable reports whether the runner can write to its log directory.
// config is echoed back so the caller can tell where path was set.
func CheckWriteable(path *string, config string) types.CheckResponse {
	resp := types.CheckResponse{Resource: path, Config: config}
	switch {
	case path == nil:
		resp.Error = MsgLogNotSet
	case !exists(*path):
		resp.Error = MsgLogMissing
	case !writeable(*path):
		resp.Error = MsgLogNotWriteable
	}
	resp.Ready = resp.Error == ""
	return resp
}

// CheckExecutable reports whether the runner executable exists and, off
// Windows, has an execute bit the process can use. config is resolved to
// its real path when possible.
func CheckExecutable(path, config string) types.CheckResponse {
	resp := types.CheckResponse{Resource: &path, Config: realPath(config)}
	switch {
	case !exists(path):
		resp.Error = MsgExecMissing
	case checksExecuteBit && !executable(path):
		resp.Error = MsgExecNotRunnable
	}
	resp.Ready = resp.Error == ""
	return resp
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func realPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return path
	}
	return real
}
