package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kcolemangt/gemini-proxy/metrics"
	"github.com/kcolemangt/gemini-proxy/model"
	"github.com/kcolemangt/gemini-proxy/proxy"
	"github.com/kcolemangt/gemini-proxy/utils"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Client-visible error messages. Server configuration details never appear here.
const (
	msgInvalidJSON       = "Invalid JSON body."
	msgBodyTooLarge      = "Request body too large."
	msgInvalidAssistant  = "Invalid or missing assistant."
	msgMissingPayload    = "Missing payload."
	msgKeyNotConfigured  = "API key is not configured on the server."
	msgUpstreamError     = "An error occurred while communicating with the upstream API."
	msgInternalError     = "Internal Server Error."
	singleAssistantLabel = "default"
)

const defaultMaxBodyBytes = 1 << 20

// ErrorEnvelope is the JSON body of every error response the proxy builds itself.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// Generator performs one upstream generation call.
type Generator interface {
	Generate(ctx context.Context, key string, payload []byte) proxy.Result
}

// Handler serves the health check and the generate endpoint
type Handler struct {
	cfg      *model.Config
	upstream Generator
	metrics  *metrics.Metrics
	logger   *zap.Logger
	maxBody  int64
}

// New returns a Handler. m may be nil to disable metrics.
func New(cfg *model.Config, upstream Generator, m *metrics.Metrics) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Handler{cfg: cfg, upstream: upstream, metrics: m, logger: logger, maxBody: maxBody}
}

// Routes builds the HTTP router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, h.accessLog, h.metrics.Collect, allowAllOrigins)

	r.Get("/", h.Health)
	r.Post("/api/generate", h.Generate)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	return r
}

// Health reports liveness. It does not depend on configuration.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Proxy server is running.",
	})
}

// Generate resolves the credential for the request, forwards the payload
// upstream and relays the outcome.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(zap.String("requestId", middleware.GetReqID(r.Context())))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("Request body too large", zap.Int64("limit", tooLarge.Limit))
			h.writeJSON(w, http.StatusRequestEntityTooLarge, ErrorEnvelope{Error: msgBodyTooLarge})
			return
		}
		logger.Warn("Failed to read request body", zap.Error(err))
		h.writeJSON(w, http.StatusBadRequest, ErrorEnvelope{Error: msgInvalidJSON})
		return
	}
	if !gjson.ValidBytes(body) {
		logger.Warn("Rejected request with invalid JSON body", zap.Int("size", len(body)))
		h.writeJSON(w, http.StatusBadRequest, ErrorEnvelope{Error: msgInvalidJSON})
		return
	}

	sel, status, env := h.resolve(body)
	if env != nil {
		logger.Warn("Rejected generate request",
			zap.Int("status", status),
			zap.String("reason", env.Error),
			zap.String("profile", string(h.cfg.Profile)))
		h.writeJSON(w, status, *env)
		return
	}
	logger = logger.With(zap.String("assistant", sel.label))

	logger.Info("New user request received", zap.ByteString("body", body))

	start := time.Now()
	res := h.upstream.Generate(r.Context(), sel.key, sel.payload)
	h.metrics.ObserveUpstream(sel.label, res.Kind.String(), time.Since(start))

	switch res.Kind {
	case proxy.ResultSuccess:
		if err := utils.WriteRawJSON(w, res.Status, res.Body); err != nil {
			logger.Debug("Failed to write response", zap.Error(err))
		}
	case proxy.ResultUpstreamError:
		logger.Error("Error proxying to upstream API",
			zap.Int("status", res.Status),
			zap.ByteString("upstreamBody", res.Body))
		h.writeJSON(w, res.Status, ErrorEnvelope{Error: msgUpstreamError, Details: upstreamDetails(res.Body)})
	case proxy.ResultTransportError:
		logger.Error("Error proxying to upstream API", zap.Error(res.Err))
		h.writeJSON(w, http.StatusInternalServerError, ErrorEnvelope{Error: msgInternalError, Details: res.Err.Error()})
	default:
		logger.Error("Unhandled upstream result", zap.Stringer("result", res.Kind))
		h.writeJSON(w, http.StatusInternalServerError, ErrorEnvelope{Error: msgInternalError})
	}
}

type selection struct {
	label   string
	key     string
	payload []byte
}

// resolve picks the credential and outbound payload for body. On failure it
// returns the status and envelope to send; no upstream call may follow.
func (h *Handler) resolve(body []byte) (selection, int, *ErrorEnvelope) {
	switch h.cfg.Profile {
	case model.ProfileMulti:
		name := gjson.GetBytes(body, "assistant")
		if name.Type != gjson.String {
			return selection{}, http.StatusBadRequest, &ErrorEnvelope{Error: msgInvalidAssistant}
		}
		assistant, ok := model.ParseAssistant(name.Str)
		if !ok {
			return selection{}, http.StatusBadRequest, &ErrorEnvelope{Error: msgInvalidAssistant}
		}
		payload := gjson.GetBytes(body, "payload")
		if !payload.Exists() {
			return selection{}, http.StatusBadRequest, &ErrorEnvelope{Error: msgMissingPayload}
		}
		key := h.cfg.Credentials.For(assistant)
		if key == "" {
			return selection{}, http.StatusInternalServerError, &ErrorEnvelope{Error: msgKeyNotConfigured}
		}
		return selection{label: assistant.String(), key: key, payload: []byte(payload.Raw)}, 0, nil
	default:
		if h.cfg.Credentials.Single == "" {
			return selection{}, http.StatusInternalServerError, &ErrorEnvelope{Error: msgKeyNotConfigured}
		}
		return selection{label: singleAssistantLabel, key: h.cfg.Credentials.Single, payload: body}, 0, nil
	}
}

// upstreamDetails embeds a JSON upstream body as-is and anything else as a string.
func upstreamDetails(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	if gjson.ValidBytes(body) {
		return json.RawMessage(body)
	}
	return string(body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	if err := utils.WriteJSON(w, status, v); err != nil {
		h.logger.Debug("Failed to write response", zap.Error(err))
	}
}
