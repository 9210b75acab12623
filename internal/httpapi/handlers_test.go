package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mesh-intelligence/twentyq/internal/dataset"
	"github.com/mesh-intelligence/twentyq/internal/game"
	"github.com/mesh-intelligence/twentyq/internal/learning"
	"github.com/mesh-intelligence/twentyq/internal/metrics"
	"github.com/mesh-intelligence/twentyq/internal/tree"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	met := metrics.New()

	data, err := dataset.Open(dataset.NewMemory(dataset.Seed()), log)
	require.NoError(t, err)
	coord, err := learning.Bootstrap(data, tree.NewCART(types.TrainerConfig{}), log, met)
	require.NoError(t, err)
	sessions := game.NewManager(coord.Models(), coord, log, met)

	h := NewHandler(sessions, coord.Models(), log)
	return NewRouter(h, Options{Metrics: met, Logger: log})
}

func do(t *testing.T, r http.Handler, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

// playToGuess answers "no" until a guess is shown.
func playToGuess(t *testing.T, r http.Handler, session string) types.Response {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/start", session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[types.Response](t, w)
	for !resp.IsGuess {
		w = do(t, r, http.MethodPost, "/api/answer", session, answerRequest{Answer: "no"})
		require.Equal(t, http.StatusOK, w.Code)
		resp = decode[types.Response](t, w)
	}
	return resp
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)
	w := do(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestPlayAndConfirm(t *testing.T) {
	r := setupRouter(t)

	guess := playToGuess(t, r, "")
	assert.Equal(t, game.DefaultSessionID, guess.SessionID)
	assert.Equal(t, types.PhasePlaying, guess.Phase)
	assert.NotEmpty(t, guess.Character)

	w := do(t, r, http.MethodPost, "/api/confirm", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.PhaseIdle, decode[types.Response](t, w).Phase)
}

func TestBackToFirstQuestion(t *testing.T) {
	r := setupRouter(t)

	first := decode[types.Response](t, do(t, r, http.MethodPost, "/api/start", "", nil))
	w := do(t, r, http.MethodPost, "/api/answer", "", answerRequest{Answer: "yes"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/api/back", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	back := decode[types.Response](t, w)
	assert.Equal(t, first.Question, back.Question)
	assert.False(t, back.CanGoBack)
}

func TestErrorStatuses(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodPost, "/api/answer", "", answerRequest{Answer: "yes"})
	assert.Equal(t, http.StatusConflict, w.Code, "answer before start")

	do(t, r, http.MethodPost, "/api/start", "", nil)

	w = do(t, r, http.MethodPost, "/api/answer", "", answerRequest{Answer: "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[ErrorResponse](t, w)
	assert.NotEmpty(t, body.Error)
	require.NotNil(t, body.State)
	assert.Equal(t, types.PhasePlaying, body.State.Phase)

	w = do(t, r, http.MethodPost, "/api/back", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "back with no history")

	w = do(t, r, http.MethodPost, "/api/start", "no-such-session", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/answer", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code, "malformed body")
}

func TestOpenedSessionsAreIndependent(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodPost, "/api/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]string](t, w)["session_id"]
	require.NotEmpty(t, id)

	w = do(t, r, http.MethodPost, "/api/start", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode[types.Response](t, w).SessionID)

	w = do(t, r, http.MethodPost, "/api/answer", "", answerRequest{Answer: "yes"})
	assert.Equal(t, http.StatusConflict, w.Code, "default session was never started")

	w = do(t, r, http.MethodDelete, "/api/sessions/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, r, http.MethodPost, "/api/start", id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLearnNewEntity(t *testing.T) {
	r := setupRouter(t)
	guess := playToGuess(t, r, "")

	w := do(t, r, http.MethodPost, "/api/learn", "", learnRequest{CorrectAnswer: "Wolf"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[types.Response](t, w)
	require.True(t, resp.IsFilling)
	assert.Equal(t, "Wolf", resp.Character)

	for !resp.Learned {
		w = do(t, r, http.MethodPost, "/api/attribute_answer", "", answerRequest{Answer: "yes"})
		require.Equal(t, http.StatusOK, w.Code)
		resp = decode[types.Response](t, w)
	}
	assert.Equal(t, types.PhaseIdle, resp.Phase)

	entities := decode[[]EntityView](t, do(t, r, http.MethodGet, "/api/entities", "", nil))
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "Wolf")
	assert.Contains(t, names, guess.Character)
}

func TestLearnExistingNeedsQuestion(t *testing.T) {
	r := setupRouter(t)
	guess := playToGuess(t, r, "")
	other := "Dog"
	if guess.Character == other {
		other = "Cat"
	}

	w := do(t, r, http.MethodPost, "/api/learn", "", learnRequest{CorrectAnswer: other})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[types.Response](t, w)
	assert.True(t, resp.NeedsQuestion)
	assert.Equal(t, guess.Character, resp.Character)

	w = do(t, r, http.MethodPost, "/api/learn", "", learnRequest{
		CorrectAnswer: other, NewQuestion: "What colour is it?", NewQuestionAnswer: "yes",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "malformed question")

	w = do(t, r, http.MethodPost, "/api/learn", "", learnRequest{
		CorrectAnswer: other, NewQuestion: "Does it have a tail?", NewQuestionAnswer: "yes",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[types.Response](t, w).Learned)

	mv := decode[ModelView](t, do(t, r, http.MethodGet, "/api/model", "", nil))
	var found bool
	for _, f := range mv.Features {
		found = found || f.Name == "HasATail"
	}
	assert.True(t, found, "new column appears in the model")
}

func TestModelAndMetrics(t *testing.T) {
	r := setupRouter(t)
	playToGuess(t, r, "")

	mv := decode[ModelView](t, do(t, r, http.MethodGet, "/api/model", "", nil))
	assert.NotEmpty(t, mv.Version)
	assert.Equal(t, 8, mv.Entities)
	assert.Positive(t, mv.Depth)
	assert.Len(t, mv.Features, len(dataset.Seed().Columns()))

	w := do(t, r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "twentyq_games_started_total 1")
}

func TestCORSPreflight(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/start", nil)
	req.Header.Set("Origin", defaultOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, defaultOrigin, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.ErrInvalidInput, http.StatusBadRequest},
		{types.ErrMalformedQuestion, http.StatusBadRequest},
		{types.ErrInvalidName, http.StatusBadRequest},
		{types.ErrInvalidState, http.StatusConflict},
		{types.ErrNoHistory, http.StatusConflict},
		{types.ErrSessionNotFound, http.StatusNotFound},
		{types.ErrUnknownEntity, http.StatusNotFound},
		{types.ErrSessionLimit, http.StatusTooManyRequests},
		{types.ErrTraversalInconsistency, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
