package engine

import (
	"fmt"

	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/aristath/stratbacktest/internal/evalctx"
	"github.com/aristath/stratbacktest/internal/ingest"
)

// OverlaySeriesPayload is one indicator's (date, value?) array for charting:
// an array of {date, value?} for the left and (if applicable) right
// indicator, plus display metadata.
type OverlaySeriesPayload struct {
	ID     string         `json:"id"`
	Ticker string         `json:"ticker"`
	Metric string         `json:"metric"`
	Window int            `json:"window"`
	Points []OverlayPoint `json:"points"`
}

// OverlayPoint is one day's overlay sample; Value is omitted (null) where
// the underlying indicator is itself null for that day.
type OverlayPoint struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value,omitempty"`
}

// OverlayResultPayload bundles a requested overlay's left series with its
// optional right series (the comparator's other operand).
type OverlayResultPayload struct {
	ID         string                `json:"id"`
	Comparator string                `json:"comparator,omitempty"`
	Threshold  *float64              `json:"threshold,omitempty"`
	Left       OverlaySeriesPayload  `json:"left"`
	Right      *OverlaySeriesPayload `json:"right,omitempty"`
}

// buildOverlays resolves every requested indicatorOverlays[] entry against
// ctx's indicator dispatcher, starting from the warm-up-adjusted index so
// nulls before it are omitted rather than reported.
func buildOverlays(overlays []ingest.OverlayPayload, ctx *evalctx.Context, dates []int64, from int) ([]OverlayResultPayload, error) {
	if len(overlays) == 0 {
		return nil, nil
	}
	out := make([]OverlayResultPayload, 0, len(overlays))
	for _, ov := range overlays {
		left, err := domain.ParseTickerField(ov.Ticker, ov.ParentNodeID)
		if err != nil {
			return nil, fmt.Errorf("engine: overlay %s: %w", ov.ID, err)
		}
		leftSeries, err := overlaySeries(ctx, left, domain.Metric(ov.Metric), ov.Window, dates, from)
		if err != nil {
			return nil, fmt.Errorf("engine: overlay %s: %w", ov.ID, err)
		}
		leftSeries.ID, leftSeries.Ticker = ov.ID, string(left.Ticker)

		result := OverlayResultPayload{ID: ov.ID, Comparator: ov.Comparator, Left: leftSeries}
		if ov.Threshold != 0 {
			t := ov.Threshold
			result.Threshold = &t
		}

		if ov.Expanded && ov.RightTicker != "" {
			right, err := domain.ParseTickerField(ov.RightTicker, ov.ParentNodeID)
			if err != nil {
				return nil, fmt.Errorf("engine: overlay %s right side: %w", ov.ID, err)
			}
			rightSeries, err := overlaySeries(ctx, right, domain.Metric(ov.RightMetric), ov.RightWindow, dates, from)
			if err != nil {
				return nil, fmt.Errorf("engine: overlay %s right side: %w", ov.ID, err)
			}
			rightSeries.ID, rightSeries.Ticker = ov.ID+":right", string(right.Ticker)
			result.Right = &rightSeries
		}

		out = append(out, result)
	}
	return out, nil
}

func overlaySeries(ctx *evalctx.Context, in domain.Input, metric domain.Metric, window int, dates []int64, from int) (OverlaySeriesPayload, error) {
	points := make([]OverlayPoint, 0, len(dates)-from)
	for i := from; i < len(dates); i++ {
		v, err := ctx.MetricAt(in, metric, window, i)
		if err != nil {
			return OverlaySeriesPayload{}, err
		}
		p := OverlayPoint{Date: formatDate(dates[i])}
		if !domain.IsNull(v) {
			val := v
			p.Value = &val
		}
		points = append(points, p)
	}
	return OverlaySeriesPayload{Metric: string(metric), Window: window, Points: points}, nil
}
