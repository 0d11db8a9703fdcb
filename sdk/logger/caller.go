package logger

import (
	"path/filepath"
	"runtime"
)

// runtimeCaller wraps runtime.Caller and keeps only the last directory of the file path.
func runtimeCaller(skip int) (pc uintptr, file string, line int, ok bool) {
	pc, file, line, ok = runtime.Caller(skip + 1)
	if !ok {
		return
	}
	file = filepath.Join(filepath.Base(filepath.Dir(file)), filepath.Base(file))
	return
}
