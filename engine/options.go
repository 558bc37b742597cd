package engine

import (
	"go.uber.org/zap"
)

// ============================================================================
// CALCULATOR OPTIONS: Functional options for New()
// ============================================================================

// Option configures a Calculator via functional options pattern.
type Option func(*config)

type config struct {
	Rules  RuleConfiguration
	Logger *zap.Logger
}

// WithRules replaces the whole rule set.
func WithRules(rules RuleConfiguration) Option {
	return func(c *config) {
		c.Rules = rules
	}
}

// WithVoltageDropLimit sets the maximum voltage drop in percent.
func WithVoltageDropLimit(percent float64) Option {
	return func(c *config) {
		c.Rules.VoltageDropLimitPercent = percent
	}
}

// WithContinuousFactor sets the multiplier applied to continuous loads
// (1.25 under the 2023 tables).
func WithContinuousFactor(factor float64) Option {
	return func(c *config) {
		c.Rules.ContinuousFactor = factor
	}
}

// WithFaultMethod selects transformer-only or point-to-point fault current.
func WithFaultMethod(method FaultMethod) Option {
	return func(c *config) {
		c.Rules.FaultMethod = method
	}
}

// WithAlternatives sets how many larger sizes are reported beside the
// selection.
func WithAlternatives(n int) Option {
	return func(c *config) {
		c.Rules.Alternatives = n
	}
}

// WithLogger attaches a zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Rules:  DefaultRules(),
		Logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
