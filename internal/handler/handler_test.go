package handler

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hotel-insights-go/internal/analytics"
	"hotel-insights-go/internal/middleware"
	"hotel-insights-go/internal/rag"
	"hotel-insights-go/internal/repository"
	"hotel-insights-go/internal/service"
	"hotel-insights-go/internal/vectorindex"
	"hotel-insights-go/pkg/database"
	"hotel-insights-go/pkg/llm"
	"hotel-insights-go/pkg/token"
)

type wordEmbedder struct{}

func (wordEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 8)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%8]++
	}
	v[0] += 0.1
	return v, nil
}

type replyLLM struct{}

func (replyLLM) Chat(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	return "reply to " + messages[len(messages)-1].Content, nil
}

func (l replyLLM) StreamChat(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, onChunk llm.ChunkHandler) error {
	answer, _ := l.Chat(ctx, messages, gen)
	for _, part := range strings.SplitAfter(answer, " ") {
		if err := onChunk(part); err != nil {
			return err
		}
	}
	return nil
}

type countingNotifier struct {
	calls atomic.Int32
	full  bool
}

func (n *countingNotifier) Notify(string) bool {
	n.calls.Add(1)
	return !n.full
}

type testServer struct {
	router   *gin.Engine
	bookings service.BookingService
	insights service.InsightService
	sessions *token.SessionManager
	notifier *countingNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	bookingRepo := repository.NewBookingRepository(db)
	require.NoError(t, bookingRepo.AutoMigrate())

	insights := service.NewInsightService(bookingRepo, wordEmbedder{}, replyLLM{},
		vectorindex.NewLocalBuilder(t.TempDir(), nil), rag.Options{TopK: 2})
	chat := service.NewChatService(insights, repository.NewMemoryConversationRepository(0))
	bookings := service.NewBookingService(bookingRepo, rand.New(rand.NewSource(3)))
	sessions := token.NewSessionManager("test-secret", 1)
	notifier := &countingNotifier{}

	router := NewRouter(Dependencies{
		Analytics: service.NewAnalyticsService(bookingRepo),
		Bookings:  bookings,
		Chat:      chat,
		Health:    service.NewHealthService(bookingRepo, insights),
		Insights:  insights,
		Sessions:  sessions,
		Notifier:  notifier,
	})
	return &testServer{router: router, bookings: bookings, insights: insights, sessions: sessions, notifier: notifier}
}

func (s *testServer) seedAndRefresh(t *testing.T, n int) {
	t.Helper()
	_, err := s.bookings.GenerateN(context.Background(), n)
	require.NoError(t, err)
	_, err = s.insights.Refresh(context.Background())
	require.NoError(t, err)
}

func (s *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) bearer(t *testing.T, sessionID string) map[string]string {
	t.Helper()
	tok, _, err := s.sessions.Issue(sessionID)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + tok}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAnalytics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/analytics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No data found", decode(t, w)["error"])

	w = s.do(http.MethodPost, "/generate-data", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "New data record generated successfully.", decode(t, w)["message"])
	assert.Equal(t, int32(0), s.notifier.calls.Load())

	w = s.do(http.MethodPost, "/analytics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Len(t, body, len(analytics.ChartKeys))
	for _, key := range analytics.ChartKeys {
		raw, ok := body[key].(string)
		require.True(t, ok, key)
		var chart map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &chart), key)
		assert.Contains(t, chart, "title")
		assert.Contains(t, chart, "series")
	}
}

func TestAsk_NotReady(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/ask", `{"question":"What was the revenue?"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Service not initialized", decode(t, w)["error"])
}

func TestAsk_BadRequests(t *testing.T) {
	s := newTestServer(t)
	s.seedAndRefresh(t, 10)

	w := s.do(http.MethodPost, "/ask", `{"question":"  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "question must not be empty", decode(t, w)["error"])

	w = s.do(http.MethodPost, "/ask", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAsk_SessionResolution(t *testing.T) {
	s := newTestServer(t)
	s.seedAndRefresh(t, 20)

	// 没有任何会话信息时生成新的 ID
	w := s.do(http.MethodPost, "/ask", `{"question":"revenue in July?"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "reply to revenue in July?", body["answer"])
	generated, _ := body["session_id"].(string)
	assert.NotEmpty(t, generated)

	w = s.do(http.MethodPost, "/ask", `{"question":"q","session_id":"from-body"}`, nil)
	assert.Equal(t, "from-body", decode(t, w)["session_id"])

	w = s.do(http.MethodPost, "/ask", `{"question":"q","session_id":"from-body"}`,
		map[string]string{middleware.SessionHeader: "from-header"})
	assert.Equal(t, "from-header", decode(t, w)["session_id"])

	tok, _, err := s.sessions.Issue("from-token")
	require.NoError(t, err)
	w = s.do(http.MethodPost, "/ask", `{"question":"q"}`,
		map[string]string{"Authorization": "Bearer " + tok, middleware.SessionHeader: "from-header"})
	assert.Equal(t, "from-token", decode(t, w)["session_id"])

	w = s.do(http.MethodPost, "/ask", `{"question":"q"}`, map[string]string{"Authorization": "Bearer broken"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConversationIsolation(t *testing.T) {
	s := newTestServer(t)
	s.seedAndRefresh(t, 20)

	w := s.do(http.MethodPost, "/session", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sess := decode(t, w)
	tok := sess["token"].(string)
	auth := map[string]string{"Authorization": "Bearer " + tok}
	assert.NotEmpty(t, sess["session_id"])
	assert.NotEmpty(t, sess["expires_at"])

	s.do(http.MethodPost, "/ask", `{"question":"first question"}`, auth)
	s.do(http.MethodPost, "/ask", `{"question":"other question"}`, map[string]string{middleware.SessionHeader: "other"})

	w = s.do(http.MethodGet, "/conversation", "", auth)
	require.Equal(t, http.StatusOK, w.Code)
	messages := decode(t, w)["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "first question", messages[0].(map[string]interface{})["content"])

	w = s.do(http.MethodDelete, "/conversation", "", auth)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/conversation", "", auth)
	assert.Empty(t, decode(t, w)["messages"])

	w = s.do(http.MethodGet, "/conversation", "", s.bearer(t, "other"))
	assert.Len(t, decode(t, w)["messages"], 2)

	// 只知道会话 ID 不能读取或清空历史
	w = s.do(http.MethodGet, "/conversation", "", map[string]string{middleware.SessionHeader: "other"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodDelete, "/conversation", "", map[string]string{middleware.SessionHeader: "other"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodGet, "/conversation", "", s.bearer(t, "other"))
	assert.Len(t, decode(t, w)["messages"], 2)

	w = s.do(http.MethodGet, "/conversation", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthAndInsights(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.HealthDegraded, decode(t, w)["status"])

	w = s.do(http.MethodGet, "/insights", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	s.seedAndRefresh(t, 5)

	w = s.do(http.MethodGet, "/health", "", nil)
	body := decode(t, w)
	assert.Equal(t, service.HealthOK, body["status"])
	deps := body["dependencies"].(map[string]interface{})
	assert.Equal(t, "Connected", deps["database"])

	w = s.do(http.MethodGet, "/insights", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.EqualValues(t, 1, body["version"])
	assert.NotEmpty(t, body["insights"])
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/refresh", "", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "Refresh scheduled.", decode(t, w)["message"])

	s.notifier.full = true
	w = s.do(http.MethodPost, "/refresh", "", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "Refresh already pending.", decode(t, w)["message"])
	assert.Equal(t, int32(2), s.notifier.calls.Load())
}

func TestChatWebSocket(t *testing.T) {
	s := newTestServer(t)
	s.seedAndRefresh(t, 10)

	srv := httptest.NewServer(s.router)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(base+"/chat/not-a-token", nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	tok, _, err := s.sessions.Issue("ws-session")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(base+"/chat/"+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("cancellation rate?")))

	var answer strings.Builder
	for {
		var frame map[string]interface{}
		require.NoError(t, conn.ReadJSON(&frame))
		if frame["type"] == "completion" {
			break
		}
		answer.WriteString(frame["chunk"].(string))
	}
	assert.Equal(t, "reply to cancellation rate?", answer.String())

	w := s.do(http.MethodGet, "/conversation", "", s.bearer(t, "ws-session"))
	assert.Len(t, decode(t, w)["messages"], 2)
}
