package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/docconvert/internal/core"
	"github.com/JonMunkholm/docconvert/internal/web/templates"
)

// KindInfo describes a source document kind.
type KindInfo struct {
	Name     string   `json:"name"`
	MIMEType string   `json:"mime_type"`
	Targets  []string `json:"targets"`
}

// FormatInfo describes an output format.
type FormatInfo struct {
	Name      string `json:"name"`
	MIMEType  string `json:"mime_type"`
	Extension string `json:"extension"`
}

// PairInfo is one registered conversion.
type PairInfo struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FormatsResponse is the body of GET /api/formats.
type FormatsResponse struct {
	Kinds   []KindInfo   `json:"kinds"`
	Formats []FormatInfo `json:"formats"`
	Pairs   []PairInfo   `json:"pairs"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Conversions core.LimiterStatus `json:"conversions"`
	Converters  int                `json:"converters"`
	History     bool               `json:"history"`
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Enabled bool                `json:"enabled"`
	Entries []core.HistoryEntry `json:"entries"`
}

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := templates.IndexData{MaxFileSize: s.cfg.Convert.MaxFileSize}
	for _, f := range core.Formats() {
		data.Formats = append(data.Formats, templates.FormatOption{Name: f.Name, Extension: f.Extension})
	}
	for _, k := range s.kinds() {
		data.Pairs = append(data.Pairs, templates.PairRow{Kind: k.Name, MIME: k.MIMEType, Targets: k.Targets})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index(data).Render(r.Context(), w); err != nil {
		respondError(w, r, err)
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

// handleFormats lists kinds, formats and registered pairs.
func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	resp := FormatsResponse{Kinds: s.kinds()}
	for _, f := range core.Formats() {
		resp.Formats = append(resp.Formats, FormatInfo{Name: f.Name, MIMEType: f.MIMEType, Extension: f.Extension})
	}
	for _, p := range s.registry.Pairs() {
		resp.Pairs = append(resp.Pairs, PairInfo{From: string(p.From), To: p.To.Name})
	}
	writeJSON(w, r, resp)
}

// handleStatus returns the conversion limiter state.
// Used for monitoring and to check if the system can accept more work.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, nop := s.history.(core.NopHistory)
	writeJSON(w, r, StatusResponse{
		Conversions: s.limiter.Status(),
		Converters:  s.registry.Len(),
		History:     !nop,
	})
}

// handleHistory returns recent conversions, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	resp := HistoryResponse{Entries: []core.HistoryEntry{}}
	if _, nop := s.history.(core.NopHistory); nop {
		writeJSON(w, r, resp)
		return
	}

	entries, err := s.history.Recent(r.Context(), parseIntParam(r, "limit", 50))
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp.Enabled = true
	if entries != nil {
		resp.Entries = entries
	}
	writeJSON(w, r, resp)
}

// kinds lists every source kind that has at least one target.
func (s *Server) kinds() []KindInfo {
	var out []KindInfo
	for _, k := range core.Kinds() {
		targets := s.registry.TargetsFor(k)
		if len(targets) == 0 {
			continue
		}
		info := KindInfo{Name: string(k), MIMEType: k.MIMEType()}
		for _, t := range targets {
			info.Targets = append(info.Targets, t.Name)
		}
		out = append(out, info)
	}
	return out
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
