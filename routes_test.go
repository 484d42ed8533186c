package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DBDriver:              config.DriverSQLite,
		SQLitePath:            ":memory:",
		StaticDir:             t.TempDir(),
		SessionStore:          config.SessionStoreMemory,
		SessionTTL:            time.Hour,
		SessionCookieName:     "taskboard_session",
		AuthzPolicy:           config.PolicyOwner,
		TaskPriorities:        []string{"Low", "Med", "High"},
		DefaultPriority:       "Med",
		PersonalScopeFallback: config.FallbackEmpty,
		BcryptCost:            4,
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.StaticDir, "app.css"), []byte("body{}"), 0o644))

	a, err := newApplication(context.Background(), cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(NewRouter(a.handler(), cfg.StaticDir, nil))
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close()
	})
	return srv
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	c.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (c *client) form(path string, values url.Values) (*http.Response, map[string]interface{}) {
	c.t.Helper()
	resp, err := c.http.Post(c.base+path, "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (c *client) registerAndLogin(email string) {
	c.t.Helper()
	resp, _ := c.do("POST", "/register", map[string]string{"email": email, "password": "pw", "confirm": "pw"})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	resp, _ = c.do("POST", "/login", map[string]string{"email": email, "password": "pw"})
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
}

func titlesOf(body map[string]interface{}) []string {
	var out []string
	list, _ := body["tasks"].([]interface{})
	for _, item := range list {
		out = append(out, item.(map[string]interface{})["title"].(string))
	}
	return out
}

func TestGatedRoutesRedirectToLogin(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	for _, path := range []string{"/", "/tasks", "/gantt", "/tasks/1"} {
		resp, _ := c.do("GET", path, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
	resp, _ := c.do("POST", "/tasks", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp, _ = c.do("GET", "/login", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := c.http.Get(srv.URL + "/static/app.css")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterAndLoginErrors(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	resp, body := c.form("/register", url.Values{"email": {"a@x.com"}, "password": {"pw"}, "password2": {"other"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "confirm", body["field"])

	resp, _ = c.form("/register", url.Values{"email": {"a@x.com"}, "password": {"pw"}, "password2": {"pw"}})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = c.do("POST", "/register", map[string]string{"email": "a@x.com", "password": "pw", "confirm": "pw"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "email already registered", body["error"])

	resp, body = c.form("/login", url.Values{"email": {"a@x.com"}, "password": {"bad"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid email or password", body["error"])

	resp, body = c.form("/login", url.Values{"email": {"a@x.com"}, "password": {"pw"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["user_id"])
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	alice := newClient(t, srv)
	alice.registerAndLogin("alice@x.com")
	bob := newClient(t, srv)
	bob.registerAndLogin("bob@x.com")

	resp, body := alice.do("POST", "/tasks", map[string]string{"title": "T", "priority": "Low", "due_date": "2025-05-02"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := int(body["id"].(float64))
	assert.Equal(t, "todo", body["status"])
	path := "/tasks/" + strconv.Itoa(id)

	resp, body = alice.do("POST", "/tasks", map[string]string{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "title", body["field"])

	_, body = alice.do("GET", "/tasks?priority=Low", nil)
	assert.Equal(t, []string{"T"}, titlesOf(body))
	_, body = alice.do("GET", "/tasks?priority=High", nil)
	assert.Empty(t, titlesOf(body))

	_, body = bob.do("GET", "/", nil)
	assert.Empty(t, titlesOf(body))
	_, body = bob.do("GET", "/?view_mode=all", nil)
	assert.Equal(t, []string{"T"}, titlesOf(body))

	resp, _ = bob.form(path+"/status", url.Values{"status": {"done"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = bob.do("DELETE", path, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = alice.form(path+"/status", url.Values{"status": {"finished"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "status", body["field"])

	resp, _ = alice.form(path+"/status", url.Values{"status": {"doing"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = alice.do("PUT", path, map[string]string{"title": "T2", "detail": "more", "priority": "High"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "T2", body["title"])
	assert.Equal(t, "doing", body["status"])

	resp, body = alice.do("GET", path, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "High", body["priority"])

	resp, body = alice.do("GET", "/gantt", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	bars := body["bars"].([]interface{})
	require.Len(t, bars, 1)
	assert.Equal(t, "rgb(255, 165, 0)", bars[0].(map[string]interface{})["color"])

	resp, _ = alice.form(path+"/delete", url.Values{})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = alice.do("GET", path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = alice.do("GET", "/gantt", nil)
	assert.Equal(t, true, body["empty"])
}

func TestLogoutEndsSession(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.registerAndLogin("carol@x.com")

	resp, _ := c.do("GET", "/tasks", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.do("POST", "/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.do("GET", "/tasks", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestLoginPageLogsOut(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.registerAndLogin("dave@x.com")

	resp, _ := c.do("GET", "/login", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.do("GET", "/tasks", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}
