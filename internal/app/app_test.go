package app

import (
	"bytes"
	"encoding/json"
	"learning_progress/internal/config"
	"learning_progress/internal/model"
	"learning_progress/internal/testutil"
	"learning_progress/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-test-secret-test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t     *testing.T
	app   *App
	db    *gorm.DB
	clock *testutil.Clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	clock := testutil.NewClock(testutil.Date(2024, 3, 13))

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		JWT:       config.JWTConfig{Secret: testSecret},
		RateLimit: config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1, SubmissionsPerMinute: 100},
		Engine:    config.EngineConfig{PointsPerCorrect: 10, MasteryThreshold: 3, ReviewMaxRetries: 3},
		Leaderboard: config.LeaderboardConfig{
			DefaultLimit: 100,
			MaxLimit:     500,
		},
		Gamification: config.GamificationConfig{DailyTasks: []config.DailyTaskConfig{
			{Type: "LOGIN", Title: "每日登录", Target: 1, XPReward: 50, AutoComplete: true},
			{Type: "QUIZ_SCORE", Title: "完成 1 次测验", Target: 1, XPReward: 80},
		}},
	}

	a, err := New(cfg, db, nil, clock)
	require.NoError(t, err)
	return &harness{t: t, app: a, db: db, clock: clock}
}

func (h *harness) token(userID uint) string {
	h.t.Helper()
	tok, err := util.GenerateJWT(userID, model.Student, testSecret, time.Hour)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(method, path string, userID uint, body interface{}) (int, envelope) {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+h.token(userID))
	}
	w := httptest.NewRecorder()
	h.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func TestSubmitQuizEndpoint(t *testing.T) {
	h := newHarness(t)
	user := testutil.CreateUser(t, h.db, "alice")
	q1 := testutil.CreateQuestion(t, h.db, model.SingleChoice, "A")
	q2 := testutil.CreateQuestion(t, h.db, model.MultipleChoice, []string{"B", "C"})

	code, _ := h.do(http.MethodPost, "/api/quiz/submit", 0, answersBody(q1.ID, "A"))
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := h.do(http.MethodPost, "/api/quiz/submit", user.ID, map[string]interface{}{
		"answers": []map[string]interface{}{
			{"questionId": q1.ID, "userAnswer": "A"},
			{"questionId": q2.ID, "userAnswer": []string{"C", "B"}},
		},
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	var result struct {
		Score        float64         `json:"score"`
		CorrectCount int             `json:"correctCount"`
		Results      map[string]bool `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, float64(100), result.Score)
	assert.Equal(t, 2, result.CorrectCount)
	assert.True(t, result.Results[q1.ID])

	code, env = h.do(http.MethodPost, "/api/quiz/submit", user.ID, answersBody("unknown", "A"))
	assert.Equal(t, http.StatusNotFound, code, env.Message)

	code, _ = h.do(http.MethodPost, "/api/quiz/submit", user.ID, map[string]interface{}{"answers": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(http.MethodPost, "/api/quiz/submit", user.ID, answersBody(q1.ID, map[string]int{"x": 1}))
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = h.do(http.MethodPost, "/api/quiz/submit", user.ID, answersBody(q1.ID, true))
	assert.Equal(t, http.StatusBadRequest, code)
	var records int64
	require.NoError(t, h.db.Model(&model.ExamRecord{}).Count(&records).Error)
	assert.EqualValues(t, 1, records)

	code, env = h.do(http.MethodGet, "/api/leaderboard/me?period=weekly", user.ID, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var rank struct {
		Rank  int `json:"rank"`
		Score int `json:"score"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rank))
	assert.Equal(t, 1, rank.Rank)
	assert.Equal(t, 20, rank.Score)
}

func answersBody(questionID string, answer interface{}) map[string]interface{} {
	return map[string]interface{}{
		"answers": []map[string]interface{}{{"questionId": questionID, "userAnswer": answer}},
	}
}

func TestErrorBookEndpoints(t *testing.T) {
	h := newHarness(t)
	alice := testutil.CreateUser(t, h.db, "alice")
	bob := testutil.CreateUser(t, h.db, "bob")
	q := testutil.CreateQuestion(t, h.db, model.SingleChoice, "A")
	entry := testutil.CreateErrorBookEntry(t, h.db, alice.ID, q.ID, 2)

	code, env := h.do(http.MethodGet, "/api/error-book", alice.ID, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Total)

	// 既没有 correct 也没有 answer：拒绝且不改动等级
	code, _ = h.do(http.MethodPost, "/api/error-book/"+entry.ID+"/review", alice.ID, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, code)
	var stored model.ErrorBookEntry
	require.NoError(t, h.db.First(&stored, "id = ?", entry.ID).Error)
	assert.Equal(t, 2, stored.MasteryLevel)

	code, _ = h.do(http.MethodPost, "/api/error-book/"+entry.ID+"/review", alice.ID, map[string]interface{}{"answer": map[string]int{"x": 1}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(http.MethodPost, "/api/error-book/"+entry.ID+"/review", bob.ID, map[string]interface{}{"correct": true})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = h.do(http.MethodPost, "/api/error-book/"+entry.ID+"/review", alice.ID, map[string]interface{}{"answer": "A"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var review struct {
		Mastered bool `json:"mastered"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &review))
	assert.True(t, review.Mastered)

	code, _ = h.do(http.MethodDelete, "/api/error-book/"+entry.ID, alice.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDailyTaskEndpoints(t *testing.T) {
	h := newHarness(t)
	user := testutil.CreateUser(t, h.db, "alice")

	code, env := h.do(http.MethodGet, "/api/tasks/daily", user.ID, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var body struct {
		Tasks []model.DailyTask `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.Len(t, body.Tasks, 2)
	login, quiz := body.Tasks[0], body.Tasks[1]

	code, _ = h.do(http.MethodPost, "/api/tasks/daily/"+quiz.ID+"/claim", user.ID, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = h.do(http.MethodPost, "/api/tasks/daily/"+login.ID+"/claim", user.ID, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = h.do(http.MethodPost, "/api/tasks/daily/"+login.ID+"/claim", user.ID, nil)
	assert.Equal(t, http.StatusConflict, code)

	other := testutil.CreateUser(t, h.db, "bob")
	code, _ = h.do(http.MethodPost, "/api/tasks/daily/"+quiz.ID+"/claim", other.ID, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = h.do(http.MethodGet, "/api/progress/summary", user.ID, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var summary struct {
		XP int `json:"xp"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 50, summary.XP)
}

func TestRefreshStreakEndpointCreatesDailyTasks(t *testing.T) {
	h := newHarness(t)
	user := testutil.CreateUser(t, h.db, "alice")

	code, env := h.do(http.MethodPost, "/api/progress/streak", user.ID, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var state struct {
		Streak int `json:"streak"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Equal(t, 1, state.Streak)

	var tasks []model.DailyTask
	require.NoError(t, h.db.Where("user_id = ?", user.ID).Order("type").Find(&tasks).Error)
	require.Len(t, tasks, 2)
	assert.Equal(t, model.TaskLogin, tasks[0].Type)
	assert.True(t, tasks[0].IsCompleted())
}

func TestLeaderboardEndpoint(t *testing.T) {
	h := newHarness(t)

	code, _ := h.do(http.MethodGet, "/api/leaderboard?period=yearly", 0, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := h.do(http.MethodGet, "/api/leaderboard", 0, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var body struct {
		Period      string        `json:"period"`
		PeriodStart string        `json:"periodStart"`
		Rows        []interface{} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "WEEKLY", body.Period)
	assert.Equal(t, "2024-03-11", body.PeriodStart)
	assert.Empty(t, body.Rows)

	user := testutil.CreateUser(t, h.db, "alice")
	code, _ = h.do(http.MethodGet, "/api/leaderboard/me", user.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestConfigCallbacksUpdatePoints(t *testing.T) {
	h := newHarness(t)
	cfg := *h.app.Config
	cfg.Engine.PointsPerCorrect = 40
	h.app.applyConfig(&cfg)

	assert.Equal(t, 40, h.app.services.quiz.PointsPerCorrect())
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	code, env := h.do(http.MethodGet, "/api/health", 0, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), `"redis":"disabled"`)
}
