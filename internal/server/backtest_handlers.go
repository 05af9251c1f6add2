package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stratbacktest/internal/backtest"
	"github.com/aristath/stratbacktest/internal/batch"
	"github.com/aristath/stratbacktest/internal/config"
	"github.com/aristath/stratbacktest/internal/engine"
	"github.com/aristath/stratbacktest/internal/ingest"
	"github.com/aristath/stratbacktest/internal/respcache"
)

// BacktestHandler serves single and batch backtest requests.
type BacktestHandler struct {
	log      zerolog.Logger
	cfg      *config.Config
	cache    *respcache.Cache
	pool     *batch.Pool
	bars     engine.BarSource
	formulas engine.CustomFormulaSource
}

// NewBacktestHandler wires engine.Run behind a response cache and worker pool.
func NewBacktestHandler(log zerolog.Logger, cfg *config.Config, cache *respcache.Cache, pool *batch.Pool, bars engine.BarSource, formulas engine.CustomFormulaSource) *BacktestHandler {
	return &BacktestHandler{log: log.With().Str("component", "backtest_handler").Logger(), cfg: cfg, cache: cache, pool: pool, bars: bars, formulas: formulas}
}

// RequestEnvelope wraps one backtest request payload with the cache-key
// metadata the response cache needs: bot id and dataset date, alongside
// the payload itself.
type RequestEnvelope struct {
	BotID    string                `json:"botId"`
	DataDate string                `json:"dataDate"`
	Payload  ingest.RequestPayload `json:"payload"`
}

// HandleRun serves POST /api/backtest: one request, cache-checked.
func (h *BacktestHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var env RequestEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, h.log, http.StatusBadRequest, err)
		return
	}

	out, err := h.run(env)
	if err != nil {
		writeError(w, h.log, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleBatch serves POST /api/backtest/batch: many independent requests,
// each run through its own Context, fanned out across the worker pool.
func (h *BacktestHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var envs []RequestEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envs); err != nil {
		writeError(w, h.log, http.StatusBadRequest, err)
		return
	}

	jobs := make([]batch.Job[batchResult], len(envs))
	for i, env := range envs {
		env := env
		jobs[i] = func() batchResult {
			out, err := h.run(env)
			if err != nil {
				return batchResult{Error: err.Error()}
			}
			return batchResult{Output: out}
		}
	}

	results := batch.Run(h.pool, jobs)
	writeJSON(w, http.StatusOK, results)
}

type batchResult struct {
	Output *engine.Output `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func (h *BacktestHandler) run(env RequestEnvelope) (*engine.Output, error) {
	key := respcache.Key{BotID: env.BotID, DataDate: env.DataDate, Payload: env.Payload}

	if h.cache != nil {
		var cached engine.Output
		if hit, err := h.cache.Get(key, &cached); err != nil {
			h.log.Warn().Err(err).Msg("response cache read failed, falling through to core")
		} else if hit {
			return &cached, nil
		}
	}

	out, err := engine.Run(env.Payload, h.bars, h.formulas)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Put(key, out, time.Now().Unix()); err != nil {
			h.log.Warn().Err(err).Msg("response cache write failed")
		}
	}
	return out, nil
}

// statusFor maps the backtest package's error taxonomy to an HTTP status.
// A null price input, a null/non-positive realization price, or a cost that
// exceeds equity are not request failures — they are silent within-run
// propagation rules (null in conditions/scaling/ranking, zero gross
// contribution, equity-floor clamp) and never escape backtest.Run as
// errors.
func statusFor(err error) int {
	switch {
	case errors.Is(err, backtest.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, backtest.ErrInsufficientData), errors.Is(err, backtest.ErrNoPositionTickers):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, log zerolog.Logger, status int, err error) {
	log.Error().Err(err).Msg("request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
