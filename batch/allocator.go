package batch

import (
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// LoggingAllocator logs every allocation, reallocation and free of the
// allocator it wraps at debug level.
type LoggingAllocator struct {
	mem    memory.Allocator
	logger log.Logger
}

// NewLoggingAllocator wraps mem, or memory.DefaultAllocator when mem is nil.
func NewLoggingAllocator(mem memory.Allocator, logger log.Logger) *LoggingAllocator {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &LoggingAllocator{mem: mem, logger: logger}
}

func (a *LoggingAllocator) Allocate(size int) []byte {
	level.Debug(a.logger).Log("msg", "allocate", "size", size)
	return a.mem.Allocate(size)
}

func (a *LoggingAllocator) Reallocate(size int, b []byte) []byte {
	level.Debug(a.logger).Log("msg", "reallocate", "from", len(b), "size", size)
	return a.mem.Reallocate(size, b)
}

func (a *LoggingAllocator) Free(b []byte) {
	level.Debug(a.logger).Log("msg", "free", "size", len(b))
	a.mem.Free(b)
}
