package automation

import (
	"context"
	"fmt"
	"strings"

	"github.com/afkcompanion/afkcli/settings"
	"github.com/afkcompanion/afkcli/types"
	"github.com/afkcompanion/afkcli/utils"
)

// StrategyKind tags one way of producing activity
type StrategyKind string

const (
	// StrategyCursor is the full cursor round trip plus optional key tap
	StrategyCursor StrategyKind = "cursor"
	// StrategyNudge is a one pixel move and restore
	StrategyNudge StrategyKind = "nudge"
)

var knownStrategies = map[StrategyKind]bool{
	StrategyCursor: true,
	StrategyNudge:  true,
}

// ParseStrategies turns config names into strategy kinds, preserving order
func ParseStrategies(names []string) ([]StrategyKind, error) {
	kinds := make([]StrategyKind, 0, len(names))
	for _, name := range names {
		kind := StrategyKind(strings.ToLower(strings.TrimSpace(name)))
		if kind == "" {
			continue
		}
		if !knownStrategies[kind] {
			return nil, fmt.Errorf("unknown automation strategy %q", name)
		}
		kinds = append(kinds, kind)
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("at least one automation strategy is required")
	}
	return kinds, nil
}

// Chain tries each strategy in order until one reports success
type Chain struct {
	executor   *Executor
	strategies []StrategyKind
}

func NewChain(executor *Executor, strategies []StrategyKind) *Chain {
	return &Chain{
		executor:   executor,
		strategies: strategies,
	}
}

func (c *Chain) Strategies() []StrategyKind {
	return append([]StrategyKind(nil), c.strategies...)
}

// Run returns the first successful outcome, or the last failure
func (c *Chain) Run(ctx context.Context, cfg settings.Configuration) types.ActionOutcome {
	var outcome types.ActionOutcome
	for _, strategy := range c.strategies {
		switch strategy {
		case StrategyCursor:
			outcome = c.executor.Execute(ctx, cfg)
		case StrategyNudge:
			outcome = c.executor.Nudge(ctx)
		}

		if outcome.Success {
			return outcome
		}

		utils.Verbose("%s strategy failed: %s", strategy, outcome.Message)
		if ctx.Err() != nil {
			break
		}
	}
	return outcome
}
