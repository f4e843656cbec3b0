package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/podclient/internal/api"
	"github.com/nfrund/podclient/internal/domain"
	"github.com/nfrund/podclient/internal/notify"
	"github.com/nfrund/podclient/internal/tokenstore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockBackend implements Backend for testing
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Login(ctx context.Context, identifier, password string) (*api.AuthResponse, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.AuthResponse), args.Error(1)
}

func (m *mockBackend) Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.AuthResponse), args.Error(1)
}

func (m *mockBackend) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockBackend) CurrentUser(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockBackend) JoinedPods(ctx context.Context) ([]domain.Pod, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Pod), args.Error(1)
}

func (m *mockBackend) JoinPod(ctx context.Context, podID string) (*domain.Pod, error) {
	args := m.Called(ctx, podID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Pod), args.Error(1)
}

func (m *mockBackend) LeavePod(ctx context.Context, podID string) error {
	return m.Called(ctx, podID).Error(0)
}

var errBoom = &api.Error{Status: http.StatusInternalServerError, Message: "Server unavailable"}

func newTokens(t *testing.T, token string) *tokenstore.FileStore {
	t.Helper()
	store := tokenstore.NewFileStore(afero.NewMemMapFs(), "/tokens")
	if token != "" {
		require.NoError(t, store.Save(token))
	}
	return store
}

// signedIn returns a store already holding user u1 with the given pods.
func signedIn(t *testing.T, backend *mockBackend, pods ...domain.Pod) (*Store, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	store := New(backend, newTokens(t, "t1"), rec)
	backend.On("CurrentUser", mock.Anything).Return(&domain.User{ID: "u1", FullName: "Ann"}, nil).Once()
	backend.On("JoinedPods", mock.Anything).Return(pods, nil).Once()
	store.Restore(context.Background())
	require.Equal(t, Authenticated, store.State())
	return store, rec
}

func TestRestore_NoTokenMakesNoCalls(t *testing.T) {
	backend := &mockBackend{}
	store := New(backend, newTokens(t, ""), nil)

	store.Restore(context.Background())

	assert.Equal(t, Anonymous, store.State())
	assert.False(t, store.IsLoading())
	backend.AssertNotCalled(t, "CurrentUser", mock.Anything)
	backend.AssertNotCalled(t, "JoinedPods", mock.Anything)
}

func TestRestore_FailureEndsAnonymousAndKeepsToken(t *testing.T) {
	backend := &mockBackend{}
	tokens := newTokens(t, "t1")
	store := New(backend, tokens, nil)
	backend.On("CurrentUser", mock.Anything).Return(nil, errBoom)

	assert.NotPanics(t, func() { store.Restore(context.Background()) })

	assert.Equal(t, Anonymous, store.State())
	assert.False(t, store.IsLoading())
	_, ok := store.CurrentUser()
	assert.False(t, ok)
	token, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "t1", token)
	backend.AssertNotCalled(t, "JoinedPods", mock.Anything)
}

func TestRestore_Success(t *testing.T) {
	backend := &mockBackend{}
	store, _ := signedIn(t, backend, domain.Pod{ID: "p1"}, domain.Pod{ID: "p1"}, domain.Pod{ID: "p2"})

	user, ok := store.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)
	assert.Len(t, store.JoinedPods(), 2, "duplicate pods from the server are collapsed")
	assert.Equal(t, "t1", store.Token())
}

func TestLogin_AgainstBackend(t *testing.T) {
	var meAuth string
	e := echo.New()
	e.HideBanner = true
	e.POST("/api/auth/login", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"token": "t1",
			"user":  map[string]any{"id": "u1", "fullName": "Ann", "email": "a@b.com"},
		})
	})
	e.GET("/api/pods/joined", func(c echo.Context) error {
		assert.Equal(t, "Bearer t1", c.Request().Header.Get("Authorization"))
		return c.JSON(http.StatusOK, map[string]any{"pods": []map[string]any{{"id": "p1", "name": "Alpha"}}})
	})
	e.GET("/api/auth/me", func(c echo.Context) error {
		meAuth = c.Request().Header.Get("Authorization")
		return c.JSON(http.StatusOK, map[string]any{"user": map[string]any{"id": "u1", "fullName": "Ann"}})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	tokens := newTokens(t, "")
	client := api.New(srv.URL, time.Second, tokens)
	rec := &notify.Recorder{}
	store := New(client, tokens, rec)

	require.NoError(t, store.Login(context.Background(), "a@b.com", "secret"))

	user, ok := store.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, Authenticated, store.State())
	assert.True(t, store.IsJoined("p1"))
	assert.Equal(t, []string{"Logged in successfully"}, rec.Successes())

	require.NoError(t, store.RefreshUser(context.Background()))
	assert.Equal(t, "Bearer t1", meAuth)
}

func TestLogin_FailureNotifiesAndReturns(t *testing.T) {
	backend := &mockBackend{}
	rec := &notify.Recorder{}
	store := New(backend, newTokens(t, ""), rec)
	badCreds := &api.Error{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	backend.On("Login", mock.Anything, "a@b.com", "wrong").Return(nil, badCreds)

	err := store.Login(context.Background(), "a@b.com", "wrong")

	assert.ErrorIs(t, err, badCreds)
	assert.Equal(t, Anonymous, store.State())
	assert.False(t, store.IsLoading())
	assert.Equal(t, []string{"Invalid credentials"}, rec.Errors())
}

func TestLogin_JoinedPodsFailureClearsToken(t *testing.T) {
	backend := &mockBackend{}
	tokens := newTokens(t, "")
	store := New(backend, tokens, nil)
	backend.On("Login", mock.Anything, "ann", "secret").Return(&api.AuthResponse{Token: "t1", User: domain.User{ID: "u1"}}, nil)
	backend.On("JoinedPods", mock.Anything).Return(nil, errBoom)

	err := store.Login(context.Background(), "ann", "secret")

	require.Error(t, err)
	assert.Equal(t, Anonymous, store.State())
	_, ok := store.CurrentUser()
	assert.False(t, ok)
	_, loadErr := tokens.Load()
	assert.ErrorIs(t, loadErr, tokenstore.ErrNoToken)
}

func TestLogin_LoadingFlagDuringCall(t *testing.T) {
	backend := &mockBackend{}
	store := New(backend, newTokens(t, ""), nil)
	backend.On("Login", mock.Anything, "ann", "secret").
		Run(func(mock.Arguments) {
			assert.True(t, store.IsLoading())
			assert.Equal(t, Authenticating, store.State())
		}).
		Return(nil, errBoom)

	_ = store.Login(context.Background(), "ann", "secret")
	assert.False(t, store.IsLoading())
}

func TestSignup_UsesSelectedRoleAndSkipsPods(t *testing.T) {
	backend := &mockBackend{}
	tokens := newTokens(t, "")
	store := New(backend, tokens, nil)
	store.SetSelectedRole(domain.RolePodOwner)
	backend.On("Signup", mock.Anything, mock.MatchedBy(func(req api.SignupRequest) bool {
		return req.Role == domain.RolePodOwner
	})).Return(&api.AuthResponse{Token: "t2", User: domain.User{ID: "u2", Role: domain.RolePodOwner}}, nil)

	err := store.Signup(context.Background(), api.SignupRequest{FullName: "Bo", Email: "bo@b.com", Password: "longenough"})

	require.NoError(t, err)
	assert.Equal(t, Authenticated, store.State())
	assert.Empty(t, store.JoinedPods())
	token, _ := tokens.Load()
	assert.Equal(t, "t2", token)
	backend.AssertNotCalled(t, "JoinedPods", mock.Anything)
}

func TestLogout_AlwaysClears(t *testing.T) {
	tests := []struct {
		name      string
		logoutErr error
	}{
		{"server succeeds", nil},
		{"server fails", errBoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{}
			store, _ := signedIn(t, backend, domain.Pod{ID: "p1"})
			store.SetSelectedRole(domain.RolePodOwner)
			store.SetPendingPodOwnerDraft(domain.PodDraft{Name: "Alpha"})
			backend.On("Logout", mock.Anything).Return(tt.logoutErr)

			store.Logout(context.Background())

			_, hasUser := store.CurrentUser()
			_, hasDraft := store.PendingPodOwnerDraft()
			assert.False(t, hasUser)
			assert.False(t, hasDraft)
			assert.Equal(t, domain.Role(""), store.SelectedRole())
			assert.Empty(t, store.JoinedPods())
			assert.Equal(t, Anonymous, store.State())
			assert.Empty(t, store.Token())
		})
	}
}

func TestLogout_RejectedTokenShowsNoExpiryBanner(t *testing.T) {
	var logoutCalls atomic.Int32
	e := echo.New()
	e.HideBanner = true
	e.GET("/api/auth/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"user": map[string]any{"id": "u1", "fullName": "Ann"}})
	})
	e.GET("/api/pods/joined", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"pods": []map[string]any{}})
	})
	e.POST("/api/auth/logout", func(c echo.Context) error {
		logoutCalls.Add(1)
		assert.Equal(t, "Bearer t1", c.Request().Header.Get("Authorization"))
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	tokens := newTokens(t, "t1")
	client := api.New(srv.URL, time.Second, tokens)
	rec := &notify.Recorder{}
	store := New(client, tokens, rec)
	client.SetUnauthorizedHandler(store.Expire)

	store.Restore(context.Background())
	require.Equal(t, Authenticated, store.State())

	store.Logout(context.Background())

	assert.Equal(t, int32(1), logoutCalls.Load())
	assert.Equal(t, Anonymous, store.State())
	assert.Empty(t, rec.Errors())
	token, err := tokens.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestJoinPod_IdempotentUnderConcurrency(t *testing.T) {
	backend := &mockBackend{}
	store, rec := signedIn(t, backend)
	pod := domain.Pod{ID: "p1", Name: "Alpha"}
	backend.On("JoinPod", mock.Anything, "p1").Return(&pod, nil)
	backend.On("CurrentUser", mock.Anything).Return(nil, errBoom)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.JoinPod(context.Background(), pod))
		}()
	}
	wg.Wait()

	count := 0
	for _, p := range store.JoinedPods() {
		if p.ID == "p1" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Empty(t, rec.Errors(), "side refresh failures are not surfaced")
}

func TestJoinPod_FailureLeavesStateUntouched(t *testing.T) {
	backend := &mockBackend{}
	store, rec := signedIn(t, backend)
	backend.On("JoinPod", mock.Anything, "p9").Return(nil, &api.Error{Status: http.StatusForbidden, Message: "Pod is private"})

	err := store.JoinPod(context.Background(), domain.Pod{ID: "p9"})

	require.Error(t, err)
	assert.False(t, store.IsJoined("p9"))
	assert.Equal(t, []string{"Pod is private"}, rec.Errors())
}

func TestLeavePod_RemovesEntry(t *testing.T) {
	backend := &mockBackend{}
	store, _ := signedIn(t, backend, domain.Pod{ID: "p1"}, domain.Pod{ID: "p2"})
	backend.On("LeavePod", mock.Anything, "p1").Return(nil)
	backend.On("CurrentUser", mock.Anything).Return(&domain.User{ID: "u1", FullName: "Ann B"}, nil)

	require.NoError(t, store.LeavePod(context.Background(), "p1"))

	assert.False(t, store.IsJoined("p1"))
	assert.True(t, store.IsJoined("p2"))
	user, _ := store.CurrentUser()
	assert.Equal(t, "Ann B", user.FullName, "profile refreshed after leaving")
}

func TestLeavePod_FailureKeepsEntry(t *testing.T) {
	backend := &mockBackend{}
	store, rec := signedIn(t, backend, domain.Pod{ID: "p1"})
	backend.On("LeavePod", mock.Anything, "p1").Return(errBoom)

	require.Error(t, store.LeavePod(context.Background(), "p1"))
	assert.True(t, store.IsJoined("p1"))
	assert.Equal(t, []string{"Server unavailable"}, rec.Errors())
}

func TestUpdateUserProfile_ShallowMerge(t *testing.T) {
	backend := &mockBackend{}
	store, _ := signedIn(t, backend)
	before, _ := store.CurrentUser()

	ceo := "CEO"
	store.UpdateUserProfile(domain.ProfileUpdate{Designation: &ceo})

	after, _ := store.CurrentUser()
	assert.Equal(t, "CEO", after.Designation)
	before.Designation = "CEO"
	assert.Equal(t, before, after)
}

func TestRefreshUser(t *testing.T) {
	t.Run("no-op without user", func(t *testing.T) {
		backend := &mockBackend{}
		store := New(backend, newTokens(t, ""), nil)
		require.NoError(t, store.RefreshUser(context.Background()))
		backend.AssertNotCalled(t, "CurrentUser", mock.Anything)
	})

	t.Run("overwrites user and pods", func(t *testing.T) {
		backend := &mockBackend{}
		store, _ := signedIn(t, backend, domain.Pod{ID: "p1"})
		backend.On("CurrentUser", mock.Anything).Return(&domain.User{ID: "u1", Bio: "new"}, nil)
		backend.On("JoinedPods", mock.Anything).Return([]domain.Pod{{ID: "p3"}}, nil)

		require.NoError(t, store.RefreshUser(context.Background()))

		user, _ := store.CurrentUser()
		assert.Equal(t, "new", user.Bio)
		assert.Empty(t, user.FullName)
		assert.False(t, store.IsJoined("p1"))
		assert.True(t, store.IsJoined("p3"))
	})
}

func TestExpire(t *testing.T) {
	backend := &mockBackend{}
	store, rec := signedIn(t, backend, domain.Pod{ID: "p1"})
	backend.On("JoinPod", mock.Anything, "p2").Return(nil, api.ErrSessionExpired).Run(func(mock.Arguments) {
		store.Expire()
	})

	err := store.JoinPod(context.Background(), domain.Pod{ID: "p2"})

	assert.True(t, errors.Is(err, api.ErrSessionExpired))
	assert.Equal(t, Anonymous, store.State())
	assert.Empty(t, store.JoinedPods())
	assert.Len(t, rec.Errors(), 1, "expiry is reported once")

	store.Expire()
	assert.Len(t, rec.Errors(), 1)
}

func TestPendingPodOwnerDraft(t *testing.T) {
	store := New(&mockBackend{}, newTokens(t, ""), nil)

	_, ok := store.PendingPodOwnerDraft()
	assert.False(t, ok)

	store.SetPendingPodOwnerDraft(domain.PodDraft{Name: "Alpha", Type: domain.PodIncubator})
	draft, ok := store.PendingPodOwnerDraft()
	require.True(t, ok)
	assert.Equal(t, "Alpha", draft.Name)

	store.ClearPendingPodOwnerDraft()
	_, ok = store.PendingPodOwnerDraft()
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "unknown", State(42).String())
}
