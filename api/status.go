package api

import (
	"net/http"
	"time"

	"github.com/qrstudio/qrstudio/preview"
)

type statusResponse struct {
	State    string          `json:"state"`
	Request  preview.Request `json:"request"`
	Renders  int64           `json:"renders"`
	Failures int64           `json:"failures"`
	Exports  int64           `json:"exports"`
	Uptime   string          `json:"uptime"`
	Version  string          `json:"version"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	renders, failures := s.Controller.Stats()
	uptime := time.Since(s.Controller.StartTime()).Truncate(time.Second).String()

	var exports int64
	if s.Exports != nil {
		if n, err := s.Exports.Count(); err == nil {
			exports = n
		}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		State:    string(s.Controller.State()),
		Request:  s.Controller.Request(),
		Renders:  renders,
		Failures: failures,
		Exports:  exports,
		Uptime:   uptime,
		Version:  s.Version,
	})
}
