package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pgmirror/shared/application/ports"
	"pgmirror/workers/resolver/internal/domain/book"
)

const resolutionMessageType = "resolution"

// ResolveHandler answers resolve requests from any runtime: it selects books
// from the catalog, resolves them and publishes each resolution to the
// fetch queue when one is configured.
type ResolveHandler struct {
	catalog     ports.Catalog
	resolver    *Resolver
	queue       ports.Queue
	fetchQueue  string
	concurrency int
	logger      ports.Logger
	metrics     ports.Metrics
}

// HandlerConfig holds the handler settings
type HandlerConfig struct {
	FetchQueue  string
	Concurrency int
}

// NewResolveHandler builds the handler. queue may be nil.
func NewResolveHandler(
	catalog ports.Catalog,
	resolver *Resolver,
	queue ports.Queue,
	cfg HandlerConfig,
	obs ports.Observability,
) (*ResolveHandler, error) {
	logger, metrics, err := obs.ComponentsScoped("usecase.resolve_handler")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	return &ResolveHandler{
		catalog:     catalog,
		resolver:    resolver,
		queue:       queue,
		fetchQueue:  cfg.FetchQueue,
		concurrency: cfg.Concurrency,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// ResolveResponse is the Data of a successful response
type ResolveResponse struct {
	RequestID   string       `json:"request_id"`
	Books       int          `json:"books"`
	Resolutions []Resolution `json:"resolutions"`
}

func (h *ResolveHandler) Handle(ctx context.Context, request ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	startTime := time.Now()
	defer h.recordDuration(startTime)

	logger := h.logger.WithFields(map[string]interface{}{
		"request_id": request.ID,
		"source":     request.Source,
	})

	var req ResolveRequest
	if err := request.Unmarshal(&req); err != nil {
		return h.handleInvalid(logger, fmt.Errorf("failed to parse resolve request: %w", err))
	}

	query, formats, err := req.Query()
	if err != nil {
		return h.handleInvalid(logger, err)
	}

	resolutions, err := h.Resolve(ctx, query, formats)
	if err != nil {
		logger.Error("resolve request failed", "error", err)
		h.metrics.IncrementCounter("resolve.failed", nil)
		return ports.RuntimeResponse{}, err
	}

	if err := h.publish(ctx, request.ID, resolutions); err != nil {
		logger.Error("failed to publish resolutions", "error", err)
		h.metrics.IncrementCounter("resolve.failed", map[string]string{"stage": "publish"})
		return ports.RuntimeResponse{}, err
	}

	data, err := json.Marshal(ResolveResponse{
		RequestID:   request.ID,
		Books:       len(resolutions),
		Resolutions: resolutions,
	})
	if err != nil {
		return ports.RuntimeResponse{}, fmt.Errorf("failed to encode response: %w", err)
	}

	logger.Info("resolve request completed", "books", len(resolutions))
	h.metrics.IncrementCounter("resolve.success", nil)
	return ports.RuntimeResponse{Success: true, Data: data}, nil
}

// Resolve loads the selected books from the catalog and resolves them
func (h *ResolveHandler) Resolve(ctx context.Context, query ports.BookQuery, formats []book.Format) ([]Resolution, error) {
	books, err := h.catalog.Books(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load catalog books: %w", err)
	}

	refs := make([]book.Ref, len(books))
	for i, b := range books {
		refs[i] = ToRef(b, formats...)
	}
	return h.resolver.ResolveAll(ctx, refs, h.concurrency)
}

func (h *ResolveHandler) publish(ctx context.Context, requestID string, resolutions []Resolution) error {
	if h.queue == nil || len(resolutions) == 0 {
		return nil
	}

	messages := make([]*ports.QueueMessage, len(resolutions))
	for i := range resolutions {
		messages[i] = &ports.QueueMessage{
			Target: h.fetchQueue,
			Body:   resolutions[i],
			Attributes: map[string]string{
				"type":       resolutionMessageType,
				"request_id": requestID,
			},
		}
	}

	if err := h.queue.PublishBatch(ctx, messages); err != nil {
		return fmt.Errorf("publish to %s: %w", h.fetchQueue, err)
	}
	h.metrics.IncrementCounter("resolve.published", nil)
	return nil
}

func (h *ResolveHandler) handleInvalid(logger ports.Logger, err error) (ports.RuntimeResponse, error) {
	logger.Error("invalid resolve request", "error", err)
	h.metrics.IncrementCounter("resolve.invalid", nil)
	return ports.RuntimeResponse{Success: false, Error: err.Error()}, nil
}

func (h *ResolveHandler) recordDuration(startTime time.Time) {
	h.metrics.RecordHistogram("resolve.duration_ms", float64(time.Since(startTime).Milliseconds()), nil)
}
