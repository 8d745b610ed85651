package actions

import (
	"reflect"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// ExecContext carries per-invocation collaborators. Nothing in it is shared
// mutable state; callers build one per call.
type ExecContext struct {
	Features map[string]bool
	Logger   zerolog.Logger
	Stats    Stats
}

// Enabled reports whether the feature flag is on.
func (ec ExecContext) Enabled(feature string) bool {
	return ec.Features[feature]
}

func (ec ExecContext) withDefaults() ExecContext {
	if ec.Stats == nil {
		ec.Stats = NopStats{}
	}
	if reflect.ValueOf(ec.Logger).IsZero() {
		ec.Logger = zerolog.Nop()
	}
	return ec
}

// Stats receives counters and timings emitted by actions.
type Stats interface {
	Incr(name string, value int64, tags ...string)
	Histogram(name string, value float64, tags ...string)
}

type NopStats struct{}

func (NopStats) Incr(string, int64, ...string)        {}
func (NopStats) Histogram(string, float64, ...string) {}

// LogStats writes every metric as a debug log line.
type LogStats struct {
	Logger zerolog.Logger
}

func (s LogStats) Incr(name string, value int64, tags ...string) {
	s.Logger.Debug().
		Str("metric", name).
		Int64("value", value).
		Str("tags", joinTags(tags)).
		Msg("stats incr")
}

func (s LogStats) Histogram(name string, value float64, tags ...string) {
	s.Logger.Debug().
		Str("metric", name).
		Float64("value", value).
		Str("tags", joinTags(tags)).
		Msg("stats histogram")
}

func joinTags(tags []string) string {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
