package main

import (
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/cwsl/ubersstv/sstv"
)

// StatusResponse is the /api/status payload
type StatusResponse struct {
	Version        string   `json:"version"`
	LatestVersion  string   `json:"latest_version,omitempty"`
	UptimeSeconds  float64  `json:"uptime_seconds"`
	Goroutines     int      `json:"goroutines"`
	CPUPercent     float64  `json:"cpu_percent"`
	LoadAvg1       float64  `json:"load_avg_1"`
	MemUsedPercent float64  `json:"mem_used_percent"`
	DecodesOK      int64    `json:"decodes_ok"`
	DecodesFailed  int64    `json:"decodes_failed"`
	Encodes        int64    `json:"encodes"`
	OpusInput      bool     `json:"opus_input"`
	Modes          []string `json:"modes"`
}

// handleStatus reports process and host health alongside codec
// counters
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Version:       Version,
		LatestVersion: GetLatestVersion(),
		UptimeSeconds: time.Since(StartTime).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		DecodesOK:     s.decodesOK.Load(),
		DecodesFailed: s.decodesFailed.Load(),
		Encodes:       s.encodesOK.Load(),
		OpusInput:     opusAvailable,
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		resp.CPUPercent = percents[0]
	} else if err != nil && DebugMode {
		log.Printf("[Status] CPU sample failed: %v", err)
	}
	if avg, err := load.Avg(); err == nil {
		resp.LoadAvg1 = avg.Load1
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.MemUsedPercent = vm.UsedPercent
	}

	for _, m := range sstv.Modes() {
		resp.Modes = append(resp.Modes, m.Key)
	}

	writeJSON(w, http.StatusOK, resp)
}
