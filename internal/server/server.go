package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/audiolibrelab/rehearse/internal/capture"
	"github.com/audiolibrelab/rehearse/internal/config"
	"github.com/audiolibrelab/rehearse/internal/service"
	"github.com/audiolibrelab/rehearse/internal/session"
	"github.com/audiolibrelab/rehearse/internal/store"
	"github.com/gorilla/mux"
)

// Server is the web control surface for an interview session
type Server struct {
	service    service.Service
	configFile string
	port       string
	devices    func() capture.Inventory
}

// StatusResponse represents the JSON response for status endpoint
type StatusResponse struct {
	Status        string           `json:"status"`
	Message       string           `json:"message,omitempty"`
	Session       session.Snapshot `json:"session"`
	Elapsed       string           `json:"elapsed"`
	Remaining     string           `json:"remaining"`
	LastError     string           `json:"last_error,omitempty"`
	ActiveProfile string           `json:"active_profile"`
}

// SessionsResponse represents the JSON response for the history endpoint
type SessionsResponse struct {
	Sessions   []session.Summary `json:"sessions"`
	TotalCount int               `json:"total_count"`
}

// SourceInfo describes a capture device found on the host
type SourceInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Driver string `json:"driver,omitempty"`
	Status string `json:"status"`
}

// SourcesResponse represents the JSON response for sources endpoint
type SourcesResponse struct {
	Sources []SourceInfo `json:"sources"`
	Errors  []string     `json:"errors,omitempty"`
}

// GenericResponse represents a generic API response
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// New creates a new web server instance around a running service
func New(svc service.Service, configFile string, port string) *Server {
	return &Server{
		service:    svc,
		configFile: configFile,
		port:       port,
		devices:    capture.ListDevices,
	}
}

// Router returns the HTTP routes of the server
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	r.HandleFunc("/start", s.action("start", s.service.Start)).Methods(http.MethodPost)
	r.HandleFunc("/pause", s.action("pause", s.service.Pause)).Methods(http.MethodPost)
	r.HandleFunc("/resume", s.action("resume", s.service.Resume)).Methods(http.MethodPost)
	r.HandleFunc("/next", s.action("next", s.service.Next)).Methods(http.MethodPost)
	r.HandleFunc("/previous", s.action("previous", s.service.Previous)).Methods(http.MethodPost)
	r.HandleFunc("/stop", s.action("stop", s.service.Stop)).Methods(http.MethodPost)
	r.HandleFunc("/restart", s.action("restart", s.service.Restart)).Methods(http.MethodPost)

	r.HandleFunc("/device/retry", s.action("retry_device", s.service.RetryDevice)).Methods(http.MethodPost)
	r.HandleFunc("/device/toggle/{kind}", s.handleToggleTrack).Methods(http.MethodPost)
	r.HandleFunc("/recorder/retry", s.action("retry_recorder", s.service.RetryRecorder)).Methods(http.MethodPost)
	r.HandleFunc("/leave", s.handleLeave).Methods(http.MethodPost)
	r.HandleFunc("/sources", s.handleSources).Methods(http.MethodGet)

	r.HandleFunc("/api/sessions", s.handleSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", s.handleSession).Methods(http.MethodGet)

	r.HandleFunc("/config/profiles", s.handleProfiles).Methods(http.MethodGet)
	r.HandleFunc("/config/select", s.handleSelectProfile).Methods(http.MethodPost)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "path", r.URL.Path)
	})
	return r
}

// Start starts the web server
func (s *Server) Start() error {
	localIP := getLocalIP()

	slog.Info("Starting Rehearse Web Server",
		"port", s.port,
		"local_url", fmt.Sprintf("http://%s:%s", localIP, s.port),
		"localhost_url", fmt.Sprintf("http://localhost:%s", s.port))

	return http.ListenAndServe(":"+s.port, s.Router())
}

// handleIndex serves the control page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(indexHTML))
}

// handleStatus returns the current session state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()

	response := StatusResponse{
		Status:        snap.Status.String(),
		Message:       statusMessage(snap),
		Session:       snap,
		Elapsed:       session.FormatClock(snap.Elapsed),
		Remaining:     session.FormatClock(snap.Remaining),
		LastError:     s.service.GetLastError(),
		ActiveProfile: getActiveProfileName(s.configFile),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// action wraps a session operation into a POST handler
func (s *Server) action(name string, op func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Action request received", "action", name)

		if err := op(); err != nil {
			s.sendErrorResponse(w, errorStatus(err), err.Error(), "operation", name)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"status":  s.service.Snapshot().Status.String(),
		})
	}
}

// handleToggleTrack enables or disables the video or audio track
func (s *Server) handleToggleTrack(w http.ResponseWriter, r *http.Request) {
	kind := capture.TrackKind(mux.Vars(r)["kind"])
	if kind != capture.TrackVideo && kind != capture.TrackAudio {
		s.sendErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("Unknown track '%s' (valid: video, audio)", kind), "operation", "toggle_track")
		return
	}

	enabled, err := s.service.ToggleTrack(kind)
	if err != nil {
		s.sendErrorResponse(w, errorStatus(err), err.Error(), "operation", "toggle_track", "kind", kind)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"kind":    kind,
		"enabled": enabled,
	})
}

// handleLeave answers whether the page may be left
func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Failed to parse form", "operation", "leave")
		return
	}
	confirmed, _ := strconv.ParseBool(r.FormValue("confirmed"))
	allowed := s.service.RequestLeave(confirmed)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"allowed": allowed,
	})
}

// handleSources lists the cameras and microphones found on the host
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	inv := s.devices()

	var response SourcesResponse
	for _, cam := range inv.Cameras {
		response.Sources = append(response.Sources, SourceInfo{Name: cam, Type: "camera", Status: "available"})
	}
	for _, mic := range inv.Microphones {
		response.Sources = append(response.Sources, SourceInfo{
			Name:   mic.Name,
			Type:   "microphone",
			Driver: mic.Driver,
			Status: mic.State,
		})
	}
	if inv.CameraErr != nil {
		response.Errors = append(response.Errors, inv.CameraErr.Error())
	}
	if inv.MicrophoneErr != nil {
		response.Errors = append(response.Errors, inv.MicrophoneErr.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleSessions lists stored sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		InterviewType: q.Get("type"),
		SortBy:        q.Get("sort"),
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			s.sendErrorResponse(w, http.StatusBadRequest, "Invalid limit", "limit", limit)
			return
		}
		filter.Limit = n
	}

	sessions, err := s.service.History(r.Context(), filter)
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("Failed to list sessions: %v", err), "operation", "list_sessions")
		return
	}
	if sessions == nil {
		sessions = []session.Summary{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SessionsResponse{Sessions: sessions, TotalCount: len(sessions)})
}

// handleSession returns one stored session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sum, err := s.service.GetSession(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.sendErrorResponse(w, status, err.Error(), "operation", "get_session", "id", id)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sum)
}

// handleProfiles returns available configuration profiles
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, active, err := s.service.ListProfiles()
	if err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to read profiles: %v", err), "operation", "list_profiles")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"profiles": profiles,
		"active":   active,
	})
}

// handleSelectProfile switches the running session to another profile
func (s *Server) handleSelectProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Failed to parse form", "operation", "select_profile")
		return
	}
	profile := r.FormValue("profile")
	if profile == "" {
		s.sendErrorResponse(w, http.StatusBadRequest, "Profile name is required", "operation", "select_profile")
		return
	}

	if err := s.service.LoadProfile(profile); err != nil {
		s.sendErrorResponse(w, http.StatusConflict, err.Error(), "profile", profile, "operation", "select_profile")
		return
	}
	if err := config.UpdateActiveConfig(s.configFile, profile); err != nil {
		slog.Warn("Failed to persist active profile", "profile", profile, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GenericResponse{
		Success: true,
		Message: fmt.Sprintf("Profile '%s' loaded", profile),
	})
}

// errorStatus maps session errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrNoPermission),
		errors.Is(err, session.ErrNoQuestions):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, capture.ErrRecorderStartFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func statusMessage(snap session.Snapshot) string {
	switch {
	case snap.DeviceError != "":
		return snap.DeviceError
	case snap.RecorderError != "":
		return snap.RecorderError
	case snap.Acquiring:
		return "Requesting camera and microphone..."
	case snap.Status == session.StatusSetup && !snap.HasPermission():
		return "Waiting for camera and microphone access"
	case snap.Status == session.StatusSetup:
		return "Ready to start"
	case snap.Status == session.StatusRecording:
		return fmt.Sprintf("Question %d of %d", snap.QuestionIndex+1, snap.TotalQuestions)
	case snap.Status == session.StatusPaused:
		return "Paused"
	case snap.Persisting:
		return "Processing your interview..."
	case snap.PersistError != "":
		return "Interview complete, but saving failed: " + snap.PersistError
	default:
		return "Interview complete"
	}
}

func getActiveProfileName(configFile string) string {
	if configFile == "" {
		return ""
	}
	_, active, err := config.ListProfiles(configFile)
	if err != nil {
		slog.Debug("Could not read active profile", "error", err)
		return ""
	}
	if active == "" {
		return "default"
	}
	return active
}

// sendErrorResponse logs the error and sends a JSON error response to the client
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string, logContext ...interface{}) {
	logFields := []interface{}{"error_message", errorMsg, "status_code", statusCode}
	if len(logContext) > 0 {
		logFields = append(logFields, logContext...)
	}
	slog.Error("Sending error response to client", logFields...)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   errorMsg,
	})
}

func getLocalIP() string {
	// Dialing UDP sends nothing; it only resolves the outbound interface.
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
