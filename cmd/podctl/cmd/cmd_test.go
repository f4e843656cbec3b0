package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/podclient/internal/domain"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes podctl with args against the given backend and returns stdout
// and stderr.
func run(t *testing.T, apiURL string, args ...string) (string, string, error) {
	t.Helper()
	return runWith(t, map[string]string{"API_URL": apiURL}, args...)
}

// runWith is run with extra environment overrides.
func runWith(t *testing.T, env map[string]string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("WS_URL", "ws://127.0.0.1:1/ws")
	t.Setenv("TOKEN_DIR", "/tokens")
	t.Setenv("LOG_LEVEL", "error")
	for k, v := range env {
		t.Setenv(k, v)
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	outputFormat = "table"
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	e := echo.New()
	e.HideBanner = true
	e.POST("/api/auth/login", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"token": "t1",
			"user":  map[string]any{"id": "u1", "fullName": "Ann", "role": "pod_owner"},
		})
	})
	e.POST("/api/auth/logout", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "bye"})
	})
	e.GET("/api/auth/me", func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") != "Bearer t1" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
		}
		return c.JSON(http.StatusOK, map[string]any{"user": map[string]any{"id": "u1", "fullName": "Ann", "role": "pod_owner"}})
	})
	e.GET("/api/pods/joined", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"pods": []map[string]any{{"id": "p1", "name": "Alpha", "type": "vc"}}})
	})
	e.GET("/api/posts", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"posts":      []map[string]any{{"id": "post1", "content": "Demo day recap", "likesCount": 4, "author": map[string]string{"id": "u2", "fullName": "Bo"}}},
			"pagination": map[string]any{"page": 1, "hasMore": false},
		})
	})
	e.POST("/api/posts/:id/like", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "liked"})
	})
	e.GET("/api/rooms/:id/messages", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"messages": []map[string]any{
			{"id": "m1", "roomId": c.Param("id"), "content": "Welcome aboard", "sender": map[string]string{"id": "u2", "fullName": "Bo"}},
		}})
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	prev := fs
	fs = afero.NewMemMapFs()
	t.Cleanup(func() { fs = prev })
	return fs
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "http://localhost:5000", "version")
	require.NoError(t, err)
	assert.Equal(t, "podctl v"+version+"\n", out)
}

func TestLoginWhoamiLogout(t *testing.T) {
	srv := newBackend(t)
	mem := useMemFs(t)

	out, banners, err := run(t, srv.URL, "login", "ann@example.com", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ann (1 joined pods)")
	assert.Contains(t, banners, "Logged in successfully")

	token, err := afero.ReadFile(mem, "/tokens/auth_token")
	require.NoError(t, err)
	assert.Equal(t, "t1", string(token))

	out, _, err = run(t, srv.URL, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Pod Owner")
	assert.Contains(t, out, "Joined pods")

	out, _, err = run(t, srv.URL, "pods", "joined")
	require.NoError(t, err)
	assert.Regexp(t, `p1\s+Alpha\s+vc\s+0\s+\*`, out)

	_, _, err = run(t, srv.URL, "logout")
	require.NoError(t, err)
	exists, _ := afero.Exists(mem, "/tokens/auth_token")
	assert.False(t, exists)

	_, _, err = run(t, srv.URL, "whoami")
	assert.ErrorContains(t, err, "not logged in")
}

func TestFeedAndLike(t *testing.T) {
	srv := newBackend(t)
	mem := useMemFs(t)
	require.NoError(t, afero.WriteFile(mem, "/tokens/auth_token", []byte("t1"), 0o600))

	out, _, err := run(t, srv.URL, "feed")
	require.NoError(t, err)
	assert.Contains(t, out, "Demo day recap")
	assert.Contains(t, out, "Bo")

	out, _, err = run(t, srv.URL, "like", "post1")
	require.NoError(t, err)
	assert.Equal(t, "Liked post1 (5 likes)\n", out)

	_, _, err = run(t, srv.URL, "like", "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := run(t, "http://localhost:5000", "pods", "joined", "--format", "yaml")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestRoomTail_ConnectionLost(t *testing.T) {
	srv := newBackend(t)
	mem := useMemFs(t)
	require.NoError(t, afero.WriteFile(mem, "/tokens/auth_token", []byte("t1"), 0o600))

	var dials atomic.Int32
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ws := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad token"),
			time.Now().Add(time.Second))
	}))
	defer ws.Close()

	out, _, err := runWith(t, map[string]string{
		"API_URL":              srv.URL,
		"WS_URL":               "ws" + strings.TrimPrefix(ws.URL, "http"),
		"REALTIME_MAX_RETRIES": "2",
		"REALTIME_MIN_DELAY":   "200ms",
		"REALTIME_MAX_DELAY":   "300ms",
	}, "room", "tail", "r1")

	assert.ErrorContains(t, err, "realtime connection lost after 2 attempts")
	assert.Contains(t, out, "Bo: Welcome aboard")
	assert.Equal(t, int32(2), dials.Load())
}

type fakeSource struct {
	msgs []domain.RoomMessage
}

func (f *fakeSource) Messages() []domain.RoomMessage {
	return append([]domain.RoomMessage(nil), f.msgs...)
}

func TestTimeline_HoldsLiveMessagesUntilHistoryIsPrinted(t *testing.T) {
	var out bytes.Buffer
	tl := &timeline{out: &out}
	msg := func(id, text string) domain.RoomMessage {
		return domain.RoomMessage{ID: id, RoomID: "r1", Content: text, Sender: domain.Ref{ID: "u2", FullName: "Bo"}}
	}

	// A live message lands while the room is still opening.
	tl.flush()
	assert.Empty(t, out.String())

	src := &fakeSource{msgs: []domain.RoomMessage{msg("h1", "history"), msg("l1", "live one")}}
	tl.attach(src)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "history")
	assert.Contains(t, lines[1], "live one")

	src.msgs = append(src.msgs, msg("l2", "live two"))
	tl.flush()
	tl.flush()
	lines = strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "live two")
}
