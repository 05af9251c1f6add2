package server

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// DiagnosticsHandler reports this process's own resource usage, so an
// operator can judge whether its memory footprint — which scales with the
// number of aligned dates times the number of distinct derived series in
// flight — is being respected under load.
type DiagnosticsHandler struct {
	log zerolog.Logger
}

// NewDiagnosticsHandler builds a DiagnosticsHandler.
func NewDiagnosticsHandler(log zerolog.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{log: log.With().Str("component", "diagnostics_handler").Logger()}
}

type diagnosticsPayload struct {
	PID             int32   `json:"pid"`
	MemoryRSSBytes  uint64  `json:"memoryRssBytes"`
	CPUPercent      float64 `json:"cpuPercent"`
	NumGoroutines   int32   `json:"numThreads"`
	OpenFileHandles int32   `json:"openFileHandles"`
}

// Handle serves GET /api/diagnostics.
func (h *DiagnosticsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		writeError(w, h.log, http.StatusInternalServerError, err)
		return
	}

	payload := diagnosticsPayload{PID: proc.Pid}

	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		payload.MemoryRSSBytes = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		payload.CPUPercent = cpu
	}
	if threads, err := proc.NumThreads(); err == nil {
		payload.NumGoroutines = threads
	}
	if files, err := proc.OpenFiles(); err == nil {
		payload.OpenFileHandles = int32(len(files))
	}

	writeJSON(w, http.StatusOK, payload)
}
