// Package barsource provides a minimal CSV-backed engine.BarSource: one file
// per ticker under a data directory, columns date,open,high,low,close,
// adjClose,volume. A production bar loader would more likely be backed by a
// columnar or SQL store; this is the thin, runnable stand-in cmd/server
// wires by default.
package barsource

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/aristath/stratbacktest/internal/domain"
)

// CSVStore reads bars from "<dir>/<ticker>.csv".
type CSVStore struct {
	dir string
}

// NewCSVStore builds a CSVStore rooted at dir.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

// Load implements engine.BarSource.
func (s *CSVStore) Load(ticker domain.TickerKey) ([]domain.Bar, error) {
	path := filepath.Join(s.dir, string(ticker)+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("barsource: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("barsource: read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("barsource: %s is empty", path)
	}

	start := 0
	if len(rows[0]) > 0 && rows[0][0] == "date" {
		start = 1
	}

	bars := make([]domain.Bar, 0, len(rows)-start)
	for _, row := range rows[start:] {
		if len(row) < 7 {
			return nil, fmt.Errorf("barsource: %s: malformed row %v", path, row)
		}
		t, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, fmt.Errorf("barsource: %s: bad date %q: %w", path, row[0], err)
		}
		open, _ := strconv.ParseFloat(row[1], 64)
		high, _ := strconv.ParseFloat(row[2], 64)
		low, _ := strconv.ParseFloat(row[3], 64)
		close, _ := strconv.ParseFloat(row[4], 64)
		adjClose, _ := strconv.ParseFloat(row[5], 64)
		volume, _ := strconv.ParseFloat(row[6], 64)

		bars = append(bars, domain.Bar{
			EpochSeconds: t.UTC().Unix(),
			Open:         open, High: high, Low: low,
			Close: close, AdjClose: adjClose, Volume: volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].EpochSeconds < bars[j].EpochSeconds })
	return bars, nil
}
