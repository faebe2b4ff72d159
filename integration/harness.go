package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/mistveil/textrpg/server/api/rest"
	"github.com/mistveil/textrpg/server/api/sse"
	"github.com/mistveil/textrpg/server/audit"
	"github.com/mistveil/textrpg/server/cache"
	"github.com/mistveil/textrpg/server/config"
	"github.com/mistveil/textrpg/server/game/mission"
	"github.com/mistveil/textrpg/server/game/player"
	mw "github.com/mistveil/textrpg/server/middleware"
	"github.com/mistveil/textrpg/server/resource"
	"github.com/mistveil/textrpg/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// TestServer wraps a real HTTP server with all subsystems wired together,
// mirroring the dependency wiring in main.go.
type TestServer struct {
	DB     *gorm.DB
	Cache  cache.Cache
	PubSub cache.PubSub
	Engine *mission.Engine
	Store  mission.Store
	Res    *resource.Loader
	Server *httptest.Server
	URL    string
	Sec    config.SecurityConfig
}

const testMissions = `{
  "placeVisit": {
    "objectives": [3, 5, 8],
    "expirations": [24, 48, 72],
    "gems": [0, 0, 1],
    "xp": [50, 100, 200],
    "money": [100, 250, 500],
    "points": [10, 25, 50],
    "daily": true
  },
  "earnMoney": {
    "objectives": [200, 500, 1200],
    "expirations": [24, 48, 72],
    "gems": [0, 1, 1],
    "xp": [40, 90, 180],
    "money": [0, 0, 0],
    "points": [10, 20, 45]
  },
  "reachLevel": {
    "objectives": [2, 5, 10],
    "expirations": [168, 168, 168],
    "gems": [0, 1, 2],
    "xp": [0, 0, 0],
    "money": [100, 300, 800],
    "points": [15, 40, 90]
  },
  "dailyStreak": {
    "objectives": [5, 5, 5],
    "expirations": [0, 0, 0],
    "gems": [2, 2, 2],
    "xp": [100, 100, 100],
    "money": [400, 400, 400],
    "points": [60, 60, 60]
  }
}`

const testCampaign = `[
  {"mission_id": "earnMoney", "objective": 100, "gems": 1, "xp": 100, "money": 200, "points": 20},
  {"mission_id": "reachLevel", "objective": 1, "gems": 1, "xp": 50, "money": 100, "points": 10},
  {"mission_id": "placeVisit", "variant": 1, "objective": 2, "gems": 2, "xp": 200, "money": 300, "points": 40, "pet_type_id": 7}
]`

// NewTestServer creates a fully wired server for integration testing.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTLH:        72 * time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}
	missionCfg := config.MissionsConfig{
		SlotCount:             3,
		DailyMoneyMultiplier:  4,
		DailyPointsMultiplier: 2,
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "missions.json"), []byte(testMissions), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "campaign.json"), []byte(testCampaign), 0o644))
	res := resource.NewLoader(dir)
	require.NoError(t, res.Load())

	registry := mission.DefaultRegistry()
	store := mission.NewStore(db, c, res, registry, logger)
	engine := mission.NewEngine(store, registry, res, missionCfg, logger)
	engine.SetPubSub(pubsub)
	missionSvc := mission.NewService(store, res, registry, missionCfg, logger)

	playerSvc := player.NewService(db, logger)
	playerSvc.SetUpdater(engine)
	engine.SetRewardApplier(playerSvc)
	locks := player.NewLockManager()

	auditSvc := audit.New(db, logger)
	t.Cleanup(func() { auditSvc.Stop(nil) })

	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	authH := apirest.NewAuthHandler(db, c, sec)
	playerH := apirest.NewPlayerHandler(playerSvc, missionSvc, logger)
	missionH := apirest.NewMissionHandler(engine, missionSvc, playerSvc, locks, auditSvc, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(sec, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(sec, c), authH.Refresh)

		playersG := api.Group("/players")
		playersG.Use(mw.Auth(sec, c))
		playersG.POST("", playerH.Create)
		playersG.GET("/me", playerH.Me)

		missionsG := api.Group("/missions")
		missionsG.Use(mw.Auth(sec, c))
		missionsG.GET("", missionH.List)
		missionsG.GET("/status", missionH.Status)
		missionsG.POST("/give", missionH.Give)
		missionsG.POST("/event", missionH.Event)
	}

	sseH := sse.NewHandler(pubsub, c, sec, logger)
	r.GET("/sse", sseH.ServeSSE)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &TestServer{
		DB:     db,
		Cache:  c,
		PubSub: pubsub,
		Engine: engine,
		Store:  store,
		Res:    res,
		Server: server,
		URL:    server.URL,
		Sec:    sec,
	}
}

// --- HTTP helpers ---

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest("POST", ts.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// --- Auth helpers ---

// Login logs in (auto-registers on first call) and returns the token and account ID.
func (ts *TestServer) Login(t *testing.T, username, password string) (token string, accountID int64) {
	t.Helper()
	resp := ts.PostJSON(t, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	token = result["token"].(string)
	accountID = int64(result["account_id"].(float64))
	return
}

// CreatePlayer creates the account's character and returns its ID.
func (ts *TestServer) CreatePlayer(t *testing.T, token, name string) int64 {
	t.Helper()
	resp := ts.PostJSON(t, "/api/players", map[string]string{"name": name}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Player struct {
			ID int64 `json:"id"`
		} `json:"player"`
	}
	ReadJSON(t, resp, &result)
	return result.Player.ID
}

// ReportEvent posts one mission event and returns the decoded response body.
func (ts *TestServer) ReportEvent(t *testing.T, token string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	resp := ts.PostJSON(t, "/api/missions/event", body, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	return result
}

// UniqueID returns a short unique string suitable for usernames/player names.
var testCounter uint64

func UniqueID(prefix string) string {
	n := atomic.AddUint64(&testCounter, 1)
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano()%100000, n)
}
