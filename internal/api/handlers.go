package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dewgenenny/gocoax-stats/internal/daemon"
	"github.com/dewgenenny/gocoax-stats/internal/moca"
	"github.com/dewgenenny/gocoax-stats/internal/models"
)

// HostSummary is one row of the host list
type HostSummary struct {
	Host        string `json:"host"`
	Polled      bool   `json:"polled"`
	OK          bool   `json:"ok"`
	LinkStatus  string `json:"link_status,omitempty"`
	ActiveNodes int    `json:"active_nodes"`
	Error       string `json:"error,omitempty"`
	Published   bool   `json:"published"`
}

// RatesResponse is the rate picture of one host
type RatesResponse struct {
	Host  string          `json:"host"`
	Nodes moca.NodeSet    `json:"nodes"`
	N     moca.RateMatrix `json:"rates"`
	VL    moca.RateMatrix `json:"vl_rates"`
	Gcd   moca.GcdRates   `json:"gcd_rates"`
}

// HealthHandler handles health check requests
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h := s.poller.CheckHealth()
	status := http.StatusOK
	if h.Status == daemon.HealthDegraded {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, h, status)
}

// HostsHandler lists every configured host with its latest poll outcome
func (s *Server) HostsHandler(w http.ResponseWriter, r *http.Request) {
	hosts := s.poller.Hosts()
	out := make([]HostSummary, 0, len(hosts))
	for _, host := range hosts {
		row := HostSummary{Host: host}
		if snap, ok := s.poller.LatestSnapshot(host); ok {
			row.Polled = true
			row.OK = snap.OK()
			row.Error = snap.Error
			row.Published = snap.Published
			if snap.OK() {
				row.LinkStatus = snap.Result.Status.LinkStatus
				row.ActiveNodes = len(snap.Result.Network.Nodes)
			}
		}
		out = append(out, row)
	}
	WriteJSONSuccess(w, out)
}

// HostHandler returns the latest snapshot of one host
func (s *Server) HostHandler(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	WriteJSONSuccess(w, snap)
}

// HostRatesHandler returns the PHY rate matrices of one host
func (s *Server) HostRatesHandler(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if !snap.OK() {
		WriteJSONError(w, "last poll failed: "+snap.Error, http.StatusBadGateway)
		return
	}

	rates := snap.Result.Rates
	WriteJSONSuccess(w, RatesResponse{
		Host:  snap.Host,
		Nodes: rates.Nodes,
		N:     rates.N,
		VL:    rates.VL,
		Gcd:   rates.Gcd,
	})
}

// PollHandler polls a configured host immediately
func (s *Server) PollHandler(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")

	snap, err := s.poller.PollConfiguredHost(r.Context(), host)
	switch {
	case errors.Is(err, daemon.ErrUnknownHost):
		WriteJSONError(w, err.Error(), http.StatusNotFound)
	case err != nil:
		WriteJSONError(w, err.Error(), http.StatusBadGateway)
	default:
		WriteJSONSuccess(w, snap)
	}
}

// PauseHandler pauses scheduled polling
func (s *Server) PauseHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.poller.Pause(); err != nil {
		WriteJSONError(w, err.Error(), http.StatusConflict)
		return
	}
	WriteJSONSuccess(w, map[string]bool{"paused": true})
}

// ResumeHandler resumes scheduled polling
func (s *Server) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.poller.Resume(); err != nil {
		WriteJSONError(w, err.Error(), http.StatusConflict)
		return
	}
	WriteJSONSuccess(w, map[string]bool{"paused": false})
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*models.HostSnapshot, bool) {
	host := chi.URLParam(r, "host")
	snap, ok := s.poller.LatestSnapshot(host)
	if !ok {
		WriteJSONError(w, "no snapshot for host "+host, http.StatusNotFound)
		return nil, false
	}
	return snap, true
}
