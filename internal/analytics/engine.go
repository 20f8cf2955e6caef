// Package analytics implements the cost analytics engine: trend aggregation,
// anomaly detection, forecasting, budget evaluation, and insight generation.
// Every computation is a pure function over (records, params); nothing is
// cached between requests.
package analytics

import (
	"log/slog"

	"github.com/costlens/backend/internal/config"
)

// Engine evaluates cost analytics under a fixed policy. It holds no request
// state and is safe for concurrent use.
type Engine struct {
	policy config.AnalyticsConfig
	logger *slog.Logger
}

// NewEngine creates an analytics engine with the given policy constants.
func NewEngine(policy config.AnalyticsConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{policy: policy, logger: logger}
}

// Policy returns the engine's policy constants.
func (e *Engine) Policy() config.AnalyticsConfig {
	return e.policy
}
