package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equipoapa2-hub/autopic/assistant"
)

type fakeAssistant struct {
	result   *assistant.TurnResult
	err      error
	clearErr error

	gotMessage string
	gotSession string
	cleared    []string
}

func (f *fakeAssistant) HandleMessage(_ context.Context, message, sessionID string) (*assistant.TurnResult, error) {
	f.gotMessage, f.gotSession = message, sessionID
	return f.result, f.err
}

func (f *fakeAssistant) ClearSession(_ context.Context, sessionID string) error {
	f.cleared = append(f.cleared, sessionID)
	return f.clearErr
}

func newTestServer(t *testing.T, a Assistant, opts RouterOptions) *httptest.Server {
	t.Helper()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewRouter(NewHandler(a, opts.Logger), opts))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestChat_DirectAnswer(t *testing.T) {
	fake := &fakeAssistant{result: &assistant.TurnResult{
		ID:         "turn-1",
		AnswerText: "¡Hola! Soy AutoPic IA.",
	}}
	srv := newTestServer(t, fake, RouterOptions{})

	resp, body := post(t, srv, "/api/ai/chat", `{"message":"Hola","sessionId":"s1"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hola", fake.gotMessage)
	assert.Equal(t, "s1", fake.gotSession)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "¡Hola! Soy AutoPic IA.", body["response"])
	assert.Equal(t, false, body["needsDatabase"])
	assert.Nil(t, body["sqlQuery"])
	assert.Nil(t, body["results"])
	assert.Equal(t, "turn-1", body["turnId"])
}

func TestChat_DatabaseAnswer(t *testing.T) {
	fake := &fakeAssistant{result: &assistant.TurnResult{
		ID:           "turn-2",
		UsedDatabase: true,
		AnswerText:   "Hay 2 vehículos disponibles.",
		Query:        `SELECT COUNT(*) AS count FROM "Vehicles" WHERE status = 'disponible';`,
		Rows:         []map[string]any{{"count": 2}},
	}}
	srv := newTestServer(t, fake, RouterOptions{})

	resp, body := post(t, srv, "/api/ai/chat", `{"message":"¿Cuántos vehículos hay disponibles?"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", fake.gotSession)
	assert.Equal(t, true, body["needsDatabase"])
	assert.Equal(t, fake.result.Query, body["sqlQuery"])
	assert.Equal(t, []any{map[string]any{"count": float64(2)}}, body["results"])
}

func TestChat_EmptyResultsSerialiseAsArray(t *testing.T) {
	fake := &fakeAssistant{result: &assistant.TurnResult{UsedDatabase: true, Query: "SELECT 1"}}
	srv := newTestServer(t, fake, RouterOptions{})

	_, body := post(t, srv, "/api/ai/chat", `{"message":"x"}`)

	assert.Equal(t, []any{}, body["results"])
}

func TestChat_ErrorStatus(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
	}{
		{
			name:    "validation",
			err:     &assistant.Error{Kind: assistant.KindValidation, Op: "handle", Err: assistant.ErrEmptyMessage},
			status:  http.StatusBadRequest,
			kind:    "validation",
			message: "el mensaje es requerido",
		},
		{
			name:    "synthesis",
			err:     &assistant.Error{Kind: assistant.KindSynthesis, Op: "synthesize", Err: assistant.ErrNotReadOnly},
			status:  http.StatusUnprocessableEntity,
			kind:    "synthesis",
			message: "solo se permiten consultas SELECT por seguridad",
		},
		{
			name:    "oracle",
			err:     &assistant.Error{Kind: assistant.KindOracle, Op: "narrate", Err: errors.New("api key sk-123 rejected")},
			status:  http.StatusBadGateway,
			kind:    "oracle",
			message: "el servicio de IA no está disponible",
		},
		{
			name:    "execution",
			err:     &assistant.Error{Kind: assistant.KindExecution, Op: "execute", Err: errors.New(`relation "Vehicle" does not exist`)},
			status:  http.StatusInternalServerError,
			kind:    "execution",
			message: "error al consultar la base de datos",
		},
		{
			name:    "session",
			err:     &assistant.Error{Kind: assistant.KindSession, Op: "append", Err: errors.New("nats: timeout")},
			status:  http.StatusServiceUnavailable,
			kind:    "session",
			message: "el contexto de la sesión no está disponible",
		},
		{
			name:    "unclassified",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			message: "error interno del servidor",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeAssistant{err: tc.err}, RouterOptions{})

			resp, body := post(t, srv, "/api/ai/chat", `{"message":"x"}`)

			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.message, body["error"])
			if tc.kind == "" {
				assert.NotContains(t, body, "kind")
			} else {
				assert.Equal(t, tc.kind, body["kind"])
			}
		})
	}
}

func TestChat_BadBody(t *testing.T) {
	fake := &fakeAssistant{}
	srv := newTestServer(t, fake, RouterOptions{})

	resp, body := post(t, srv, "/api/ai/chat", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "cuerpo JSON inválido", body["error"])
	assert.Empty(t, fake.gotMessage)

	huge := fmt.Sprintf(`{"message":%q}`, strings.Repeat("a", maxBodyBytes+1))
	rec := httptest.NewRecorder()
	NewHandler(fake, nil).chat(rec, httptest.NewRequest(http.MethodPost, "/api/ai/chat", strings.NewReader(huge)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "el cuerpo de la solicitud es demasiado grande")
	assert.Empty(t, fake.gotMessage)
}

func TestClearContext(t *testing.T) {
	fake := &fakeAssistant{}
	srv := newTestServer(t, fake, RouterOptions{})

	resp, body := post(t, srv, "/api/ai/clear-context", `{"sessionId":"s1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Contexto limpiado correctamente", body["message"])

	resp, _ = post(t, srv, "/api/ai/clear-context", ``)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"s1", ""}, fake.cleared)
}

func TestClearContext_StoreFailure(t *testing.T) {
	fake := &fakeAssistant{clearErr: &assistant.Error{Kind: assistant.KindSession, Op: "clear", Err: errors.New("down")}}
	srv := newTestServer(t, fake, RouterOptions{})

	resp, body := post(t, srv, "/api/ai/clear-context", `{"sessionId":"s1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "session", body["kind"])
}

func TestActiveAndHealth(t *testing.T) {
	srv := newTestServer(t, &fakeAssistant{}, RouterOptions{})

	resp, err := http.Get(srv.URL + "/active")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]bool{"active": true}, body)

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	assistant.RegisterSessionGauge(reg, func() int { return 3 })

	srv := newTestServer(t, &fakeAssistant{}, RouterOptions{Gatherer: reg})
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "autopic_session_active 3")

	bare := newTestServer(t, &fakeAssistant{}, RouterOptions{})
	resp, err = http.Get(bare.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, &fakeAssistant{}, RouterOptions{AllowedOrigins: []string{"https://app.autopic.mx"}})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/ai/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.autopic.mx")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://app.autopic.mx", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	wild := newTestServer(t, &fakeAssistant{}, RouterOptions{AllowedOrigins: []string{"*"}})
	req, err = http.NewRequest(http.MethodOptions, wild.URL+"/api/ai/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8081")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:8081", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
}
