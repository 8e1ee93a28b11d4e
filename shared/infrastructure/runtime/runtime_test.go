package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pgmirror/shared/application/mocks"
	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

func newTestHTTP(t *testing.T, handler ports.Handler) http.Handler {
	t.Helper()
	rt, err := NewHTTPRuntime(
		&config.HTTPConfig{Addr: ":0", MetricsPath: "/metrics"},
		&config.RuntimeConfig{MaxRequestSize: 64, EnableHealth: true},
		handler, mocks.NewNopObservability(),
	)
	require.NoError(t, err)
	return rt.(*httpRuntime).routes()
}

func TestHTTPRuntime_BarePayload(t *testing.T) {
	handler := &mocks.MockHandler{}
	handler.On("Handle", mock.Anything, mock.MatchedBy(func(req ports.RuntimeRequest) bool {
		return string(req.Payload) == `{"book_ids":[11]}` && req.Source == "http" && req.ID != ""
	})).Return(ports.RuntimeResponse{Success: true, Data: json.RawMessage(`[]`)}, nil)

	rec := httptest.NewRecorder()
	newTestHTTP(t, handler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"book_ids":[11]}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())
	handler.AssertExpectations(t)
}

func TestHTTPRuntime_Envelope(t *testing.T) {
	handler := &mocks.MockHandler{}
	handler.On("Handle", mock.Anything, mock.MatchedBy(func(req ports.RuntimeRequest) bool {
		return req.ID == "abc" && string(req.Payload) == `{"book_ids":[1]}`
	})).Return(ports.RuntimeResponse{Success: false, Error: "no books"}, nil)

	body := `{"id":"abc","payload":{"book_ids":[1]}}`
	rec := httptest.NewRecorder()
	newTestHTTP(t, handler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHTTPRuntime_HandlerError(t *testing.T) {
	handler := &mocks.MockHandler{}
	handler.On("Handle", mock.Anything, mock.Anything).Return(ports.RuntimeResponse{}, errors.New("catalog down"))

	rec := httptest.NewRecorder()
	newTestHTTP(t, handler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog down")
}

func TestHTTPRuntime_Rejections(t *testing.T) {
	h := newTestHTTP(t, &mocks.MockHandler{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"book_ids":[`+strings.Repeat("1,", 64)+`1]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPRuntime_HealthAndMetrics(t *testing.T) {
	h := newTestHTTP(t, &mocks.MockHandler{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPRuntime_StartStopsWithContext(t *testing.T) {
	rt, err := NewHTTPRuntime(&config.HTTPConfig{Addr: "127.0.0.1:0"}, &config.RuntimeConfig{}, &mocks.MockHandler{}, mocks.NewNopObservability())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, rt.Start(ctx))
}

func newTestLambda(t *testing.T, handler ports.Handler, partial bool) *lambdaRuntime {
	t.Helper()
	rt, err := NewLambdaRuntime(&config.LambdaConfig{EnablePartialBatchFailure: partial}, handler, mocks.NewNopObservability())
	require.NoError(t, err)
	return rt.(*lambdaRuntime)
}

func sqsEvent(t *testing.T, ids ...string) json.RawMessage {
	t.Helper()
	event := events.SQSEvent{}
	for _, id := range ids {
		event.Records = append(event.Records, events.SQSMessage{MessageId: id, Body: `{"book_ids":[11]}`})
	}
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func TestLambdaRuntime_PartialBatchFailure(t *testing.T) {
	handler := &mocks.MockHandler{}
	handler.On("Handle", mock.Anything, mock.MatchedBy(func(req ports.RuntimeRequest) bool { return req.ID == "m1" })).
		Return(ports.RuntimeResponse{Success: true}, nil)
	handler.On("Handle", mock.Anything, mock.MatchedBy(func(req ports.RuntimeRequest) bool { return req.ID == "m2" })).
		Return(ports.RuntimeResponse{}, errors.New("catalog down"))

	out, err := newTestLambda(t, handler, true).handleEvent(context.Background(), sqsEvent(t, "m1", "m2"))
	require.NoError(t, err)

	resp := out.(events.SQSEventResponse)
	assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "m2"}}, resp.BatchItemFailures)
}

func TestLambdaRuntime_BatchFailsWithoutPartialReporting(t *testing.T) {
	handler := &mocks.MockHandler{}
	handler.On("Handle", mock.Anything, mock.Anything).Return(ports.RuntimeResponse{Success: false}, nil)

	_, err := newTestLambda(t, handler, false).handleEvent(context.Background(), sqsEvent(t, "m1"))
	assert.ErrorContains(t, err, "1/1 messages failed")
}

func TestLambdaRuntime_DirectAndUnsupported(t *testing.T) {
	handler := &mocks.MockHandler{}
	handler.On("Handle", mock.Anything, mock.MatchedBy(func(req ports.RuntimeRequest) bool { return req.ID == "direct" })).
		Return(ports.RuntimeResponse{Success: true}, nil)
	rt := newTestLambda(t, handler, true)

	out, err := rt.handleEvent(context.Background(), json.RawMessage(`{"id":"direct","payload":{"book_ids":[11]}}`))
	require.NoError(t, err)
	assert.Equal(t, ports.RuntimeResponse{Success: true}, out)

	_, err = rt.handleEvent(context.Background(), json.RawMessage(`{"unexpected":true}`))
	assert.ErrorIs(t, err, errUnsupportedEvent)
}

func TestMessageBody(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(messageBody(`{"a":1}`)))
	assert.Equal(t, `"plain text"`, string(messageBody("plain text")))
}

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error { f.acked = true; return nil }

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked, f.requeue = true, requeue
	return nil
}

func (f *fakeAcknowledger) Reject(uint64, bool) error { return nil }

func TestRabbitMQRuntime_ProcessMessage(t *testing.T) {
	tests := []struct {
		name        string
		resp        ports.RuntimeResponse
		err         error
		redelivered bool
		wantAck     bool
		wantRequeue bool
	}{
		{name: "success", resp: ports.RuntimeResponse{Success: true}, wantAck: true},
		{name: "error requeued", err: errors.New("catalog down"), wantRequeue: true},
		{name: "redelivered error dropped", err: errors.New("catalog down"), redelivered: true},
		{name: "final failure dropped", resp: ports.RuntimeResponse{Success: false, Error: "invalid payload"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &mocks.MockHandler{}
			handler.On("Handle", mock.Anything, mock.MatchedBy(func(req ports.RuntimeRequest) bool {
				return req.ID == "rmq-7" && req.Source == "rabbitmq" && req.Metadata["type"] == "resolve"
			})).Return(tt.resp, tt.err)

			rt, err := NewRabbitMQRuntime(&config.RabbitMQConfig{}, handler, mocks.NewNopObservability())
			require.NoError(t, err)

			ack := &fakeAcknowledger{}
			rt.(*rabbitmqRuntime).processMessage(context.Background(), amqp.Delivery{
				Acknowledger: ack,
				DeliveryTag:  7,
				Redelivered:  tt.redelivered,
				Headers:      amqp.Table{"type": "resolve"},
				Body:         []byte(`{"book_ids":[11]}`),
			})

			assert.Equal(t, tt.wantAck, ack.acked)
			assert.Equal(t, !tt.wantAck, ack.nacked)
			assert.Equal(t, tt.wantRequeue, ack.requeue)
		})
	}
}

func TestCreate_Unsupported(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Adapters.Runtime = "openfaas"

	_, err := Create(cfg, &mocks.MockHandler{}, mocks.NewNopObservability())
	assert.ErrorContains(t, err, "openfaas")
}
