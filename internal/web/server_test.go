package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sparky/internal/app"
	"sparky/internal/scheduler"
	"sparky/internal/settings"
)

func newTestServer(t *testing.T, store settings.Store) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sched := scheduler.New(zap.NewNop())
	sched.Start()
	t.Cleanup(sched.Stop)

	m := app.NewManager(app.Options{
		ThinkingDelay: time.Millisecond,
		BuildDelay:    time.Hour,
		Scheduler:     sched,
		Settings:      store,
	})
	t.Cleanup(m.Close)
	return NewServer(":0", m, zap.NewNop())
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func newSession(t *testing.T, s *Server) string {
	t.Helper()
	rr := do(t, s, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	sid, _ := decode(t, rr)["session_id"].(string)
	require.NotEmpty(t, sid)
	return sid
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, nil)
	newSession(t, s)

	rr := do(t, s, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp statusResp
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.Sessions)
}

func TestUnknownSession(t *testing.T) {
	s := newTestServer(t, nil)
	rr := do(t, s, http.MethodGet, "/api/sessions/nope/messages", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSendMessage(t *testing.T) {
	s := newTestServer(t, nil)
	sid := newSession(t, s)
	base := "/api/sessions/" + sid

	rr := do(t, s, http.MethodPost, base+"/messages", sendReq{Content: "   "})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr)["ignored"])

	rr = do(t, s, http.MethodPost, base+"/messages", sendReq{Content: "Create a React e-commerce website"})
	require.Equal(t, http.StatusAccepted, rr.Code)

	require.Eventually(t, func() bool {
		msgs, _ := decode(t, do(t, s, http.MethodGet, base+"/messages", nil))["messages"].([]interface{})
		return len(msgs) == 3
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		projects, _ := decode(t, do(t, s, http.MethodGet, base+"/projects", nil))["projects"].([]interface{})
		return len(projects) == 3
	}, 2*time.Second, 5*time.Millisecond)

	body := decode(t, do(t, s, http.MethodGet, base+"/projects", nil))
	first := body["projects"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "E-commerce Platform", first["name"])
	assert.Equal(t, "building", first["status"])
	assert.Equal(t, first["id"], body["selected"])
}

func TestProjectsAndFiles(t *testing.T) {
	s := newTestServer(t, nil)
	base := "/api/sessions/" + newSession(t, s)

	rr := do(t, s, http.MethodPost, base+"/projects", createProjectReq{Name: " "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, s, http.MethodPost, base+"/projects", createProjectReq{Name: "Notes", Description: "d"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, s, http.MethodPost, base+"/projects/2/select", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, base+"/projects/404/select", nil).Code)

	rr = do(t, s, http.MethodGet, base+"/projects/1/files", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	tree := decode(t, rr)["tree"].(map[string]interface{})
	assert.Equal(t, "Sample E-commerce App", tree["name"])
	assert.Len(t, tree["children"], 2)

	rr = do(t, s, http.MethodGet, base+"/projects/1/files/App.js", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	file := decode(t, rr)["file"].(map[string]interface{})
	assert.Equal(t, "javascript", file["type"])

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, base+"/projects/1/files/missing.js", nil).Code)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, nil)
	base := "/api/sessions/" + newSession(t, s)

	rr := do(t, s, http.MethodGet, base+"/projects/2/preview/index.html", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")

	rr = do(t, s, http.MethodGet, base+"/projects/1/preview/App.js", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
}

func TestNestedFileIsReachable(t *testing.T) {
	s := newTestServer(t, nil)
	base := "/api/sessions/" + newSession(t, s)

	rr := do(t, s, http.MethodPost, base+"/messages", sendReq{Content: "generate a nav/bar component"})
	require.Equal(t, http.StatusAccepted, rr.Code)

	const name = "generate-a-nav/bar-component.js"
	require.Eventually(t, func() bool {
		return do(t, s, http.MethodGet, base+"/projects/1/files/"+name, nil).Code == http.StatusOK
	}, 2*time.Second, 5*time.Millisecond)

	tree := decode(t, do(t, s, http.MethodGet, base+"/projects/1/files", nil))["tree"].(map[string]interface{})
	var dir map[string]interface{}
	for _, child := range tree["children"].([]interface{}) {
		if n := child.(map[string]interface{}); n["name"] == "generate-a-nav" {
			dir = n
		}
	}
	require.NotNil(t, dir, "directory node missing from tree")
	leaf := dir["children"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, name, leaf["path"])

	file := decode(t, do(t, s, http.MethodGet, base+"/projects/1/files/"+name, nil))["file"].(map[string]interface{})
	assert.Equal(t, name, file["name"])

	rr = do(t, s, http.MethodGet, base+"/projects/1/files/generate-a-nav%2Fbar-component.js", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, s, http.MethodGet, base+"/projects/1/preview/"+name, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, base+"/projects/1/files/", nil).Code)
}

func TestSuggestions(t *testing.T) {
	s := newTestServer(t, nil)
	base := "/api/sessions/" + newSession(t, s)
	rr := do(t, s, http.MethodGet, base+"/suggestions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["suggestions"], 3)
}

func TestEndSession(t *testing.T) {
	s := newTestServer(t, nil)
	base := "/api/sessions/" + newSession(t, s)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodDelete, base, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, base+"/messages", nil).Code)
}

func TestAPIKey(t *testing.T) {
	store, err := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	s := newTestServer(t, store)

	body := decode(t, do(t, s, http.MethodGet, "/api/settings/api-key", nil))
	assert.Equal(t, false, body["configured"])

	rr := do(t, s, http.MethodPut, "/api/settings/api-key", apiKeyReq{APIKey: "sk-secret-1234"})
	require.Equal(t, http.StatusOK, rr.Code)

	body = decode(t, do(t, s, http.MethodGet, "/api/settings/api-key", nil))
	assert.Equal(t, true, body["configured"])
	assert.Equal(t, "**********1234", body["api_key"])

	require.Equal(t, http.StatusOK, do(t, s, http.MethodDelete, "/api/settings/api-key", nil).Code)
	body = decode(t, do(t, s, http.MethodGet, "/api/settings/api-key", nil))
	assert.Equal(t, false, body["configured"])
}

func TestAPIKey_NoStore(t *testing.T) {
	s := newTestServer(t, nil)
	rr := do(t, s, http.MethodGet, "/api/settings/api-key", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil)
	req, err := http.NewRequest(http.MethodOptions, "/api/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
