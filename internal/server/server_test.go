package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"devops-gpt/config"
	"devops-gpt/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(llmURL string) config.Config {
	return config.Config{
		Env:               "test",
		HTTPPort:          0,
		ShutdownTimeout:   time.Second,
		ReadHeaderTimeout: time.Second,
		SwaggerHost:       "localhost:8080",
		StoreBackend:      config.StoreMemory,
		ConversationTTL:   time.Hour,
		LLMBaseURL:        llmURL,
		LLMModel:          "test-model",
		LLMTimeout:        5 * time.Second,
		LLMTemperature:    0.7,
		LLMMaxTokens:      -1,
		RetentionInterval: time.Minute,
	}
}

func newFakeLLM(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			w.Write([]byte(`{"data": [{"id": "test-model"}]}`))
		case "/v1/chat/completions":
			w.Write([]byte(`{"model": "test-model", "choices": [{"message": {"role": "assistant", "content": "Try terraform plan first."}, "finish_reason": "stop"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_Home(t *testing.T) {
	var logs bytes.Buffer
	srv := New(testConfig("http://127.0.0.1:1/v1"), log.New(&logs, "[TEST] ", 0))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var home models.HomeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&home))
	assert.Equal(t, "DevOpsGpt", home.Service)
	assert.Equal(t, "test-model", home.Model)

	assert.Contains(t, logs.String(), "GET / 200")
}

func TestServer_Preflight(t *testing.T) {
	srv := New(testConfig("http://127.0.0.1:1/v1"), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestServer_Health(t *testing.T) {
	srv := New(testConfig("http://127.0.0.1:1/v1"), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/llm/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_ChatRoundTrip(t *testing.T) {
	llm := newFakeLLM(t)
	srv := New(testConfig(llm.URL+"/v1"), nil)

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"message": "terraform apply keeps timing out on AWS"}`)
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/chat", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Try terraform plan first.", resp.Message)
	assert.Contains(t, resp.Topics, "terraform")
	assert.Contains(t, resp.Topics, "aws")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/"+resp.ConversationID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/llm/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Swagger(t *testing.T) {
	srv := New(testConfig("http://127.0.0.1:1/v1"), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RedisFallback(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1/v1")
	cfg.StoreBackend = config.StoreRedis
	cfg.RedisHost = "127.0.0.1"
	cfg.RedisPort = 1 // nothing listens here

	var logs bytes.Buffer
	srv := New(cfg, log.New(&logs, "", 0))

	assert.Nil(t, srv.redis)
	assert.Contains(t, logs.String(), "Falling back to in-memory conversation store")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Shutdown(t *testing.T) {
	srv := New(testConfig("http://127.0.0.1:1/v1"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, srv.workers.StartAll(ctx))
	require.NoError(t, srv.Shutdown(ctx))
	for _, stats := range srv.workers.GetAllStats() {
		assert.False(t, stats.IsRunning)
	}
}

func TestServer_ShutdownStopsWorkersAfterHTTPError(t *testing.T) {
	srv := New(testConfig("http://127.0.0.1:1/v1"), nil)
	require.NoError(t, srv.workers.StartAll(context.Background()))

	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	srv.server.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.server.Serve(ln)
	go http.Get("http://" + ln.Addr().String() + "/")

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the handler")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = srv.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	for _, stats := range srv.workers.GetAllStats() {
		assert.False(t, stats.IsRunning)
	}
}
