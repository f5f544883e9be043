// internal/logging/sampling.go
package logging

import (
	"go.uber.org/zap/zapcore"
)

// samplableLevels are the levels newSampledCore builds a distinct sampler
// for. Error and above bypass sampling entirely (see newSampledCore).
var samplableLevels = []zapcore.Level{TraceLevel, zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel}

// newSampledCore wraps core with level-aware sampling, per cfg.Levels: a
// sync engine's Trace level fires once per dispatched method call, so it
// needs its own (tighter) sampling rate rather than inheriting Info's —
// one zapcore.NewSamplerWithOptions per level, teed together, rather than
// a single sampler configured off Info and reused for every level below
// Error. Error and above always pass through unsampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	cores := make([]zapcore.Core, 0, len(samplableLevels)+1)
	cores = append(cores, &levelFilterCore{Core: core, minLevel: zapcore.ErrorLevel})

	for _, level := range samplableLevels {
		levelCfg, ok := cfg.Levels[level]
		if !ok {
			continue
		}
		filtered := &exactLevelCore{Core: core, level: level}
		cores = append(cores, zapcore.NewSamplerWithOptions(
			filtered,
			cfg.Tick.Duration(),
			levelCfg.Initial,
			levelCfg.Thereafter,
		))
	}

	return zapcore.NewTee(cores...)
}

// exactLevelCore only lets entries at exactly level through. Needed because
// levelFilterCore's range filtering treats 0 (zapcore.InfoLevel's value) as
// "no bound", which can't express "Info only".
type exactLevelCore struct {
	zapcore.Core
	level zapcore.Level
}

func (c *exactLevelCore) Enabled(lvl zapcore.Level) bool {
	return lvl == c.level && c.Core.Enabled(lvl)
}

func (c *exactLevelCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *exactLevelCore) With(fields []zapcore.Field) zapcore.Core {
	return &exactLevelCore{Core: c.Core.With(fields), level: c.level}
}

// levelFilterCore filters logs by level range.
type levelFilterCore struct {
	zapcore.Core
	minLevel zapcore.Level // only log >= minLevel (0 = no min)
	maxLevel zapcore.Level // only log <= maxLevel (0 = no max)
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	if c.minLevel != 0 && lvl < c.minLevel {
		return false
	}
	if c.maxLevel != 0 && lvl > c.maxLevel {
		return false
	}
	return c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child logger that preserves level filtering.
func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:     c.Core.With(fields),
		minLevel: c.minLevel,
		maxLevel: c.maxLevel,
	}
}
