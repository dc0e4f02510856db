// Package api exposes group state and the pattern catalog over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/lumanet/internal/app"
	"github.com/coreman2200/lumanet/internal/pattern"
	"github.com/coreman2200/lumanet/internal/system"
	"github.com/coreman2200/lumanet/internal/ws"
)

// MaxBody caps request bodies.
const MaxBody = 1024

type Server struct {
	Sys    *system.System
	Status func() app.Status
	Hub    *ws.Hub
	FPS    int
}

// Handler returns the routed control plane with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /groups/config", s.handleGroups)
	mux.HandleFunc("PUT /groups", s.handleUpdateGroup)
	mux.HandleFunc("GET /patterns", s.handlePatterns)
	mux.HandleFunc("PUT /groups/pattern", s.handleSwitchPattern)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.Hub != nil {
		mux.HandleFunc("GET /ws", s.Hub.HandleFramesWS)
		mux.HandleFunc("GET /diag", s.Hub.HandleDiagWS)
	}
	return WithCORS(mux)
}

type paramJSON struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Type     int     `json:"type"`
	MaxValue float64 `json:"maxValue"`
}

type groupJSON struct {
	ID              int         `json:"id"`
	Name            string      `json:"name"`
	PatternID       int         `json:"patternId"`
	BrightnessParam float64     `json:"brightnessParam"`
	SpeedParam      float64     `json:"speedParam"`
	Params          []paramJSON `json:"params"`
}

type patternJSON struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type groupUpdate struct {
	ID              *int     `json:"id"`
	BrightnessParam *float64 `json:"brightnessParam"`
	SpeedParam      *float64 `json:"speedParam"`
	Params          []struct {
		ID    int     `json:"id"`
		Value float64 `json:"value"`
	} `json:"params"`
}

type patternSwitch struct {
	GroupID   *int `json:"groupId"`
	PatternID *int `json:"patternId"`
}

func toJSON(v system.GroupView) groupJSON {
	g := groupJSON{
		ID:              v.ID,
		Name:            v.Name,
		PatternID:       v.PatternID,
		BrightnessParam: v.Brightness * 100,
		SpeedParam:      v.Speed * 100,
		Params:          make([]paramJSON, len(v.Params)),
	}
	for i, p := range v.Params {
		g.Params[i] = paramJSON{ID: p.ID, Name: p.Name, Value: p.Value, Type: int(p.Type), MaxValue: p.Max}
	}
	return g
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	views := s.Sys.Groups()
	out := make([]groupJSON, len(views))
	for i, v := range views {
		out[i] = toJSON(v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": out})
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	list := s.Sys.Registry().List()
	out := make([]patternJSON, len(list))
	for i, p := range list {
		out[i] = patternJSON{ID: p.ID, Name: p.Name}
	}
	writeJSON(w, http.StatusOK, map[string]any{"patterns": out})
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupUpdate
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validateUpdate(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := s.Sys.UpdateGroup(*req.ID, func(g *system.GroupState) {
		if req.BrightnessParam != nil {
			g.Brightness = *req.BrightnessParam / 100
		}
		if req.SpeedParam != nil {
			g.Speed = *req.SpeedParam / 100
		}
		for _, p := range req.Params {
			g.Params[p.ID] = p.Value
		}
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeGroup(w, *req.ID)
}

func (s *Server) validateUpdate(req groupUpdate) error {
	if req.ID == nil {
		return errors.New("missing id")
	}
	if *req.ID < 0 || *req.ID >= s.Sys.Len() {
		return fmt.Errorf("%w: %d", system.ErrGroupRange, *req.ID)
	}
	if b := req.BrightnessParam; b != nil && (!finite(*b) || *b < 0 || *b > 100) {
		return fmt.Errorf("brightnessParam %v outside 0..100", *b)
	}
	if sp := req.SpeedParam; sp != nil && (!finite(*sp) || *sp < 0) {
		return fmt.Errorf("speedParam %v must be >= 0", *sp)
	}
	for _, p := range req.Params {
		if p.ID < 0 || p.ID >= pattern.MaxParams {
			return fmt.Errorf("param id %d out of range", p.ID)
		}
		if !finite(p.Value) {
			return fmt.Errorf("param %d value is not finite", p.ID)
		}
	}
	return nil
}

func (s *Server) handleSwitchPattern(w http.ResponseWriter, r *http.Request) {
	var req patternSwitch
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.GroupID == nil || req.PatternID == nil {
		writeError(w, http.StatusBadRequest, errors.New("groupId and patternId are required"))
		return
	}
	err := s.Sys.SwitchPattern(*req.GroupID, *req.PatternID)
	switch {
	case errors.Is(err, system.ErrGroupRange), errors.Is(err, pattern.ErrUnknownPattern):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeGroup(w, *req.GroupID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"fps":    s.FPS,
		"groups": s.Sys.Len(),
	}
	if s.Status != nil {
		st := s.Status()
		resp["frame_id"] = st.FrameID
		resp["uptime_s"] = st.Uptime.Seconds()
		resp["connected"] = st.Connected
		resp["reconnects"] = st.Reconnects
		if st.LastError != "" {
			resp["last_error"] = st.LastError
		}
	}
	if s.Hub != nil {
		frames, diags := s.Hub.Clients()
		resp["ws_clients"] = frames
		resp["diag_clients"] = diags
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeGroup(w http.ResponseWriter, i int) {
	v, err := s.Sys.Group(i)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, toJSON(v))
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBody)).Decode(v); err != nil {
		return fmt.Errorf("malformed body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// WithCORS allows browser control panels served from elsewhere.
func WithCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
