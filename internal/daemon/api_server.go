package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"menuviz/internal/api"
	"menuviz/internal/config"
	"menuviz/internal/logging"
	"menuviz/internal/services"
)

const maxRequestBytes = 20 << 20

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, authMiddleware(s.token, withRequestID(h)))
	}

	handle("GET /api/status", s.handleStatus)
	handle("POST /api/scans", s.handleScan)
	handle("POST /api/scans/refresh", s.handleRefresh)
	handle("POST /api/reset", s.handleReset)
	handle("GET /api/items", s.handleItems)
	handle("POST /api/items/{id}/visible", s.handleVisible)
	handle("POST /api/items/{id}/image", s.handleImage)
	handle("POST /api/items/{id}/translation", s.handleTranslation)
	handle("POST /api/items/{id}/recipe", s.handleRecipe)
	handle("POST /api/translate-all", s.handleTranslateAll)
	handle("POST /api/chat", s.handleChat)
	handle("POST /api/restaurant/lookup", s.handleRestaurantLookup)
	handle("GET /api/history", s.handleHistory)
	handle("DELETE /api/history/{id}", s.handleHistoryDelete)
	handle("POST /api/history/{id}/load", s.handleHistoryLoad)
	handle("GET /api/preferences", s.handlePreferences)
	handle("PUT /api/preferences", s.handlePreferencesUpdate)
	handle("PUT /api/language", s.handleLanguage)
	handle("POST /api/favorites", s.handleFavorite)
	handle("POST /api/bill", s.handleBill)
	handle("GET /api/speech", s.handleSpeech)
	handle("POST /api/speech", s.handleSpeechToggle)
	handle("GET /api/cameras", s.handleCameras)
	handle("POST /api/cameras/capture", s.handleCameraCapture)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status()
	snap := status.Session
	count := len(snap.Dishes)
	if len(snap.Nutrition) > count {
		count = len(snap.Nutrition)
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		StorePath:    status.StorePath,
		LockFilePath: status.LockFilePath,
		State:        string(snap.State),
		Mode:         string(snap.Mode),
		Error:        snap.Error,
		ItemCount:    count,
		Language:     snap.Language,
		Dispatch:     snap.Dispatch,
		Cameras:      status.Cameras,
		CameraWatch:  status.CameraWatch,
	})
}

func (s *apiServer) handleScan(w http.ResponseWriter, r *http.Request) {
	var req api.ScanRequest
	if !s.decode(w, r, &req) {
		return
	}
	mode, err := req.ParsedMode()
	if err != nil {
		s.writeFailure(w, r, services.Wrap(services.ErrValidation, "api", "scan", err.Error(), nil))
		return
	}
	image, err := req.Image()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	sess := s.daemon.Session()
	if mode != "" {
		if err := sess.SetMode(mode); err != nil {
			s.writeFailure(w, r, err)
			return
		}
	}
	if err := sess.Capture(r.Context(), image, req.MimeType); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeItems(w)
}

func (s *apiServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.Session().Refresh(r.Context()); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeItems(w)
}

func (s *apiServer) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.daemon.Session().Reset()
	s.writeItems(w)
}

func (s *apiServer) handleItems(w http.ResponseWriter, _ *http.Request) {
	s.writeItems(w)
}

func (s *apiServer) handleVisible(w http.ResponseWriter, r *http.Request) {
	queued, err := s.daemon.Session().NotifyVisible(r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueuedResponse{Queued: queued})
}

func (s *apiServer) handleImage(w http.ResponseWriter, r *http.Request) {
	queued, err := s.daemon.Session().RequestImage(r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.QueuedResponse{Queued: queued})
}

func (s *apiServer) handleTranslation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tr, err := s.daemon.Session().Translate(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TranslationResponse{ItemID: id, Translation: tr})
}

func (s *apiServer) handleRecipe(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.daemon.Session().Recipe(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RecipeResponse{ItemID: id, Recipe: rec})
}

func (s *apiServer) handleTranslateAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.daemon.Session().TranslateAll(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TranslateAllResponse{Translated: n})
}

func (s *apiServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	reply, err := s.daemon.Session().Ask(r.Context(), req.Message)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ChatResponse{Reply: reply})
}

func (s *apiServer) handleRestaurantLookup(w http.ResponseWriter, r *http.Request) {
	details, err := s.daemon.Session().LookupRestaurant(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, details)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.FromHistory(s.daemon.State().History()))
}

func (s *apiServer) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.daemon.State().DeleteHistory(r.Context(), id) {
		s.writeFailure(w, r, services.Wrap(services.ErrNotFound, "api", "delete history", fmt.Sprintf("history %q not found", id), nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleHistoryLoad(w http.ResponseWriter, r *http.Request) {
	if _, err := s.daemon.Session().LoadHistory(r.PathValue("id")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeItems(w)
}

func (s *apiServer) handlePreferences(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.State().Preferences())
}

func (s *apiServer) handlePreferencesUpdate(w http.ResponseWriter, r *http.Request) {
	var req api.PreferencesRequest
	if !s.decode(w, r, &req) {
		return
	}
	prefs := req.Preferences()
	s.daemon.State().SetPreferences(r.Context(), prefs)
	s.writeJSON(w, http.StatusOK, prefs)
}

func (s *apiServer) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var req api.LanguageRequest
	if !s.decode(w, r, &req) {
		return
	}
	prev, err := s.daemon.Session().SetLanguage(r.Context(), req.Code)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LanguageResponse{Previous: prev, Current: s.daemon.State().Language()})
}

func (s *apiServer) handleFavorite(w http.ResponseWriter, r *http.Request) {
	var req api.FavoriteRequest
	if !s.decode(w, r, &req) {
		return
	}
	fav, err := s.daemon.Session().ToggleFavorite(r.Context(), req.ItemID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FavoriteResponse{ItemID: req.ItemID, Favorite: fav})
}

func (s *apiServer) handleBill(w http.ResponseWriter, r *http.Request) {
	var req api.BillRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess := s.daemon.Session()
	bill := sess.Bill()
	if err := req.Apply(bill); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromBill(bill, sess.SplitBill(bill)))
}

func (s *apiServer) handleSpeech(w http.ResponseWriter, _ *http.Request) {
	sess := s.daemon.Session()
	s.writeJSON(w, http.StatusOK, api.SpeechResponse{Text: sess.SpeechText(), Speaking: sess.Speaking()})
}

func (s *apiServer) handleSpeechToggle(w http.ResponseWriter, r *http.Request) {
	sess := s.daemon.Session()
	// Playback outlives the request.
	speaking, err := sess.ToggleSpeech(context.WithoutCancel(r.Context()))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SpeechResponse{Text: sess.SpeechText(), Speaking: speaking})
}

func (s *apiServer) handleCameras(w http.ResponseWriter, _ *http.Request) {
	devices := s.daemon.Cameras()
	if devices == nil {
		devices = []string{}
	}
	s.writeJSON(w, http.StatusOK, api.CamerasResponse{Devices: devices})
}

func (s *apiServer) handleCameraCapture(w http.ResponseWriter, r *http.Request) {
	var req api.CaptureRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Mode != "" {
		mode, err := (api.ScanRequest{Mode: req.Mode}).ParsedMode()
		if err == nil {
			err = s.daemon.Session().SetMode(mode)
		}
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
	}
	if err := s.daemon.CaptureCamera(r.Context(), req.Device); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeItems(w)
}

func (s *apiServer) writeItems(w http.ResponseWriter) {
	sess := s.daemon.Session()
	state := s.daemon.State()
	s.writeJSON(w, http.StatusOK, api.FromSnapshot(sess.Snapshot(), sess.SafetyAll(), state.IsFavorite))
}

// decode reads and validates a JSON body. An empty body decodes to the zero
// request so validation reports the missing fields.
func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeFailure(w, r, services.Wrap(services.ErrValidation, "api", "decode", "invalid JSON body", err))
		return false
	}
	if err := api.Validate(dst); err != nil {
		s.writeFailure(w, r, err)
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, services.ErrExternalTool), errors.Is(err, services.ErrMalformedPayload), errors.Is(err, services.ErrTransient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.log()), "api request failed", "api_request_failed",
			logging.Error(err),
			logging.String("route", r.Pattern),
			logging.Int("status", status),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "request returned an error"),
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
