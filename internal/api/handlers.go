package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"amp-monitor/internal/auth"
	"amp-monitor/internal/data"
	"amp-monitor/internal/ingest"
	"amp-monitor/internal/storage"
)

const maxBodyBytes = 64 << 10

// Notifier publishes and dismisses notifications.
type Notifier interface {
	Publish(msg data.NotificationMessage)
	Dismiss(id string) bool
}

// Ingester applies a raw topic/payload pair as if it arrived over MQTT.
type Ingester interface {
	Handle(topic string, payload []byte) ingest.Kind
}

type APIHandler struct {
	amps     *storage.AmplifierStore
	notes    *storage.NotificationStore
	notifier Notifier
	ingester Ingester
	auth     *auth.AuthManager
	logger   zerolog.Logger
}

func NewAPIHandler(amps *storage.AmplifierStore, notes *storage.NotificationStore, notifier Notifier, ingester Ingester, am *auth.AuthManager, logger zerolog.Logger) *APIHandler {
	return &APIHandler{
		amps:     amps,
		notes:    notes,
		notifier: notifier,
		ingester: ingester,
		auth:     am,
		logger:   logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *APIHandler) ListAmplifiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.amps.Snapshot())
}

func (h *APIHandler) GetAmplifier(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, ok := h.amps.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown amplifier "+name)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *APIHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.notes.List())
}

func (h *APIHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.notifier.Dismiss(id) {
		writeError(w, http.StatusNotFound, "unknown notification "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type notificationRequest struct {
	Title    string  `json:"title"`
	Message  string  `json:"message"`
	Type     string  `json:"type"`
	Duration *uint64 `json:"duration"`
}

// PublishNotification lets an operator post a notification directly.
func (h *APIHandler) PublishNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "title or message is required")
		return
	}
	if req.Type == "" {
		req.Type = data.TypeInfo
	}

	msg := data.NotificationMessage{
		ID:       "api-" + uuid.NewString(),
		Title:    req.Title,
		Message:  req.Message,
		Type:     req.Type,
		Duration: req.Duration,
	}
	h.notifier.Publish(msg)

	ev := h.logger.Info().Str("id", msg.ID)
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		ev = ev.Str("user", claims.Username)
	}
	ev.Msg("notification published via api")
	writeJSON(w, http.StatusCreated, msg)
}

type ingestRequest struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// HandleIngest accepts a topic/payload pair for sources that cannot speak
// MQTT.
func (h *APIHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	kind := h.ingester.Handle(req.Topic, []byte(req.Payload))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "received", "kind": kind.String()})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	role, err := h.auth.AuthenticateUser(req.Username, req.Password)
	if err != nil {
		h.logger.Warn().Str("user", req.Username).Msg("login failed")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.auth.GenerateJWT(req.Username, role)
	if err != nil {
		h.logger.Error().Err(err).Msg("error issuing token")
		writeError(w, http.StatusInternalServerError, "cannot issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return errors.New("invalid JSON: " + err.Error())
	}
	return nil
}
