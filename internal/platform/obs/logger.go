package obs

import (
	"os"
	"sync"

	"github.com/go-kit/log"
)

var (
	mu     sync.RWMutex
	logger = newDefaultLogger()
)

func newDefaultLogger() log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	return log.With(l, "ts", log.DefaultTimestampUTC)
}

// Logger returns the process logger.
func Logger() log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the process logger. Tests use it to capture or silence output.
func SetLogger(l log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}
