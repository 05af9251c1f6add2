package ingest

import (
	"fmt"
	"time"

	"github.com/aristath/stratbacktest/internal/backtest"
)

// buildSplitConfig parses the `splitConfig` input field into
// backtest.SplitConfig, converting the optional YYYY-MM-DD splitDate to
// epoch seconds.
func buildSplitConfig(p SplitConfigPayload) (backtest.SplitConfig, error) {
	cfg := backtest.SplitConfig{
		Enabled:              p.Enabled,
		ChronologicalPercent: p.ChronologicalPercent,
	}

	switch backtest.SplitStrategy(p.Strategy) {
	case backtest.SplitEvenOddMonth, backtest.SplitEvenOddYear, backtest.SplitChronological:
		cfg.Strategy = backtest.SplitStrategy(p.Strategy)
	case "":
		cfg.Strategy = backtest.SplitEvenOddMonth
	default:
		return cfg, fmt.Errorf("%w: unknown split strategy %q", backtest.ErrInvalidPayload, p.Strategy)
	}

	if p.SplitDate != nil && *p.SplitDate != "" {
		t, err := time.Parse("2006-01-02", *p.SplitDate)
		if err != nil {
			return cfg, fmt.Errorf("%w: malformed splitDate %q: %v", backtest.ErrInvalidPayload, *p.SplitDate, err)
		}
		epoch := t.UTC().Unix()
		cfg.SplitDate = &epoch
	}

	return cfg, nil
}
