package fetch

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/okian/stagerank/pkg/logger"
)

var _ retryablehttp.LeveledLogger = (*LeveledAdapter)(nil)

// LeveledAdapter exposes a logger.Logger as a retryablehttp.LeveledLogger.
type LeveledAdapter struct {
	log logger.Logger
}

// NewLeveledAdapter wraps log.
func NewLeveledAdapter(log logger.Logger) *LeveledAdapter {
	return &LeveledAdapter{log: log}
}

func (a *LeveledAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.log.Error(context.Background(), msg, fields(keysAndValues)...)
}

func (a *LeveledAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.log.Info(context.Background(), msg, fields(keysAndValues)...)
}

// Debug is used by retryablehttp for every request.
func (a *LeveledAdapter) Debug(msg string, keysAndValues ...interface{}) {
	a.log.Debug(context.Background(), msg, fields(keysAndValues)...)
}

func (a *LeveledAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.log.Warn(context.Background(), msg, fields(keysAndValues)...)
}

func fields(kv []interface{}) []logger.Field {
	out := make([]logger.Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		var val interface{}
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		out = append(out, logger.Any(key, val))
	}
	return out
}
