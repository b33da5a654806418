// Package network exposes rooms over websockets and the coach over a small
// JSON API.
package network

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"mallathon/coach"
	"mallathon/logging"
	"mallathon/room"
)

const maxImageBytes = 8 << 20

type Server struct {
	rooms *room.Manager
	coach *coach.Coach
	log   *zap.Logger
	mux   *http.ServeMux
}

func NewServer(rooms *room.Manager, c *coach.Coach, log *zap.Logger) *Server {
	if c == nil {
		c = coach.New(nil, coach.Options{Logger: log})
	}
	s := &Server{
		rooms: rooms,
		coach: c,
		log:   logging.OrNop(log).Named("network"),
		mux:   http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /ws", s.wsHandler)
	s.mux.HandleFunc("GET /rooms", s.listRooms)
	s.mux.HandleFunc("POST /rooms", s.createRoom)
	s.mux.HandleFunc("POST /coach", s.coaching)
	s.mux.HandleFunc("POST /routes", s.routes)
	s.mux.HandleFunc("POST /food", s.food)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rooms.ListRooms())
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	code := s.rooms.CreateRoom()
	writeJSON(w, http.StatusCreated, map[string]string{"code": code})
}

type coachRequest struct {
	Message string       `json:"message"`
	History []coach.Turn `json:"history"`
}

func (s *Server) coaching(w http.ResponseWriter, r *http.Request) {
	var req coachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	reply := s.coach.Coaching(r.Context(), req.Message, req.History)
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

type routesRequest struct {
	Location  string `json:"location"`
	TimeOfDay string `json:"timeOfDay"`
}

func (s *Server) routes(w http.ResponseWriter, r *http.Request) {
	var req routesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, s.coach.SuggestRoutes(r.Context(), req.Location, req.TimeOfDay))
}

type foodRequest struct {
	Image string `json:"image"` // base64, optionally a data URL
}

func (s *Server) food(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scan := s.coach.AnalyzeFood(r.Context(), image)
	if scan == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis unavailable")
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

// readImage accepts either the raw image bytes or a JSON body carrying them
// base64 encoded.
func readImage(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImageBytes+1))
	if err != nil {
		return nil, errors.New("could not read image")
	}
	if len(body) > maxImageBytes {
		return nil, errors.New("image too large")
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if len(body) == 0 {
			return nil, errors.New("image is required")
		}
		return body, nil
	}

	var req foodRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.New("invalid request body")
	}
	data := req.Image
	if i := strings.Index(data, ","); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+1:]
	}
	image, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(image) == 0 {
		return nil, errors.New("image must be base64 encoded")
	}
	return image, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
