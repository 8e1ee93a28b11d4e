package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

// httpRuntime serves the handler over HTTP. POST / takes either a
// RuntimeRequest envelope or a bare payload.
type httpRuntime struct {
	handler ports.Handler
	logger  ports.Logger
	metrics ports.Metrics
	config  *config.HTTPConfig
	runtime *config.RuntimeConfig
}

func NewHTTPRuntime(cfg *config.HTTPConfig, rt *config.RuntimeConfig, handler ports.Handler, obs ports.Observability) (ports.Runtime, error) {
	if handler == nil {
		return nil, errors.New("failed to create runtime: handler is required")
	}
	logger, metrics, err := obs.ComponentsScoped("runtime.http")
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime: %w", err)
	}

	return &httpRuntime{
		handler: handler,
		logger:  logger,
		metrics: metrics,
		config:  cfg,
		runtime: rt,
	}, nil
}

// Start serves until ctx is done, then shuts the server down gracefully
func (h *httpRuntime) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         h.config.Addr,
		Handler:      h.routes(),
		ReadTimeout:  h.config.ReadTimeout,
		WriteTimeout: h.config.WriteTimeout,
	}

	h.logger.Info("Starting HTTP runtime", "address", h.config.Addr, "metrics_path", h.config.MetricsPath)
	h.metrics.IncrementCounter("http.starts", nil)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	h.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (h *httpRuntime) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleRequest)
	if h.runtime.EnableHealth {
		mux.HandleFunc("/health", h.handleHealth)
	}
	if h.config.MetricsPath != "" {
		mux.Handle(h.config.MetricsPath, promhttp.Handler())
	}
	return mux
}

func (h *httpRuntime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"status":"ok"}`)
}

func (h *httpRuntime) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.metrics.IncrementCounter("http.method_not_allowed", nil)
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed. Only POST is supported.", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	h.metrics.IncrementCounter("http.requests", nil)
	defer func() {
		h.metrics.RecordHistogram("http.request_duration_ms", float64(time.Since(start).Milliseconds()), nil)
	}()

	body, err := h.readBody(w, r)
	if err != nil {
		h.writeBadRequest(w, err)
		return
	}

	req, err := h.decode(body, r)
	if err != nil {
		h.writeBadRequest(w, err)
		return
	}

	resp, err := h.handler.Handle(r.Context(), req)
	if err != nil {
		h.logger.Error("Request processing failed", "request_id", req.ID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, ports.RuntimeResponse{Success: false, Error: err.Error()})
		return
	}

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusUnprocessableEntity
	}
	h.writeJSON(w, status, resp)
}

func (h *httpRuntime) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()

	reader := io.Reader(r.Body)
	if h.runtime.MaxRequestSize > 0 {
		reader = http.MaxBytesReader(w, r.Body, h.runtime.MaxRequestSize)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

// decode accepts an envelope with a payload field, otherwise the whole body
// is the payload
func (h *httpRuntime) decode(body []byte, r *http.Request) (ports.RuntimeRequest, error) {
	var req ports.RuntimeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if len(req.Payload) == 0 {
		req.Payload = json.RawMessage(body)
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Source == "" {
		req.Source = "http"
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}
	if req.Metadata == nil {
		req.Metadata = make(map[string]string)
	}
	req.Metadata["http_method"] = r.Method
	req.Metadata["http_path"] = r.URL.Path
	req.Metadata["http_remote_addr"] = r.RemoteAddr
	if ua := r.Header.Get("User-Agent"); ua != "" {
		req.Metadata["http_user_agent"] = ua
	}
	return req, nil
}

func (h *httpRuntime) writeBadRequest(w http.ResponseWriter, err error) {
	h.logger.Error("Bad request", "error", err)
	h.metrics.IncrementCounter("http.bad_request", nil)
	h.writeJSON(w, http.StatusBadRequest, ports.RuntimeResponse{Success: false, Error: err.Error()})
}

func (h *httpRuntime) writeJSON(w http.ResponseWriter, status int, resp ports.RuntimeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}
