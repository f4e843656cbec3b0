// Package session owns the in-memory state of the signed-in user: the profile,
// the pods they joined and the onboarding selections. All mutation goes
// through Store methods.
package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/nfrund/podclient/internal/api"
	"github.com/nfrund/podclient/internal/domain"
	"github.com/nfrund/podclient/internal/notify"
)

// State is the lifecycle state of a session.
type State int

const (
	Anonymous State = iota
	Restoring
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Restoring:
		return "restoring"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Backend is the subset of the API client the session depends on.
type Backend interface {
	Login(ctx context.Context, identifier, password string) (*api.AuthResponse, error)
	Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*domain.User, error)
	JoinedPods(ctx context.Context) ([]domain.Pod, error)
	JoinPod(ctx context.Context, podID string) (*domain.Pod, error)
	LeavePod(ctx context.Context, podID string) error
}

// TokenStore persists the auth token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Store is the session cache. The zero value is not usable; call New.
type Store struct {
	api      Backend
	tokens   TokenStore
	notifier notify.Notifier

	mu      sync.RWMutex
	state   State
	loading bool
	token   string
	user    *domain.User
	role    domain.Role
	draft   *domain.PodDraft
	pods    []domain.Pod
}

// New creates an anonymous session.
func New(backend Backend, tokens TokenStore, notifier notify.Notifier) *Store {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Store{
		api:      backend,
		tokens:   tokens,
		notifier: notifier,
	}
}

// Restore loads the session for a stored token. Without a token it makes no
// network call. Failures leave the session anonymous and the token in place.
func (s *Store) Restore(ctx context.Context) {
	token, err := s.tokens.Load()
	if err != nil || token == "" {
		s.mu.Lock()
		s.state = Anonymous
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.state = Restoring
	s.loading = true
	s.mu.Unlock()

	user, pods, err := s.fetchProfile(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.state = Anonymous
		slog.WarnContext(ctx, "Failed to restore session", "event", "session_restore_failed", "error", err)
		return
	}
	s.token = token
	s.user = user
	s.pods = uniquePods(pods)
	s.state = Authenticated
	slog.InfoContext(ctx, "Session restored", "event", "session_restored", "user_id", user.ID)
}

// Login signs in with an email or username and loads the joined pods.
func (s *Store) Login(ctx context.Context, identifier, password string) error {
	prev := s.beginAuth()
	defer s.endAuth()

	resp, err := s.api.Login(ctx, identifier, password)
	if err != nil {
		return s.failAuth(ctx, prev, err, false)
	}
	if err := s.tokens.Save(resp.Token); err != nil {
		return s.failAuth(ctx, prev, err, false)
	}
	pods, err := s.api.JoinedPods(ctx)
	if err != nil {
		return s.failAuth(ctx, prev, err, true)
	}

	user := resp.User
	s.mu.Lock()
	s.token = resp.Token
	s.user = &user
	s.pods = uniquePods(pods)
	s.state = Authenticated
	s.mu.Unlock()

	slog.InfoContext(ctx, "User logged in", "event", "login_success", "user_id", resp.User.ID)
	s.notifier.Success("Logged in successfully")
	return nil
}

// Signup creates an account and signs it in. A new account has no joined pods.
func (s *Store) Signup(ctx context.Context, req api.SignupRequest) error {
	prev := s.beginAuth()
	defer s.endAuth()

	if req.Role == "" {
		s.mu.RLock()
		req.Role = s.role
		s.mu.RUnlock()
	}

	resp, err := s.api.Signup(ctx, req)
	if err != nil {
		return s.failAuth(ctx, prev, err, false)
	}
	if err := s.tokens.Save(resp.Token); err != nil {
		return s.failAuth(ctx, prev, err, false)
	}

	user := resp.User
	s.mu.Lock()
	s.token = resp.Token
	s.user = &user
	s.pods = nil
	s.state = Authenticated
	s.mu.Unlock()

	slog.InfoContext(ctx, "User signed up", "event", "signup_success", "user_id", resp.User.ID)
	s.notifier.Success("Account created successfully")
	return nil
}

func (s *Store) beginAuth() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state = Authenticating
	s.loading = true
	return prev
}

func (s *Store) endAuth() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *Store) failAuth(ctx context.Context, prev State, err error, clearToken bool) error {
	if clearToken {
		if cerr := s.tokens.Clear(); cerr != nil {
			slog.WarnContext(ctx, "Failed to clear token", "error", cerr)
		}
	}
	s.mu.Lock()
	s.state = prev
	s.mu.Unlock()

	slog.WarnContext(ctx, "Authentication failed", "event", "auth_failed", "error", err)
	s.reportError(err)
	return err
}

// Logout ends the session. Local state and the stored token are cleared
// whatever the server answers. The in-memory session is dropped before the
// server call so a rejected token does not raise the expiry banner.
func (s *Store) Logout(ctx context.Context) {
	s.reset()
	if err := s.api.Logout(ctx); err != nil {
		slog.WarnContext(ctx, "Server logout failed", "event", "logout_failed", "error", err)
	}
	if err := s.tokens.Clear(); err != nil {
		slog.WarnContext(ctx, "Failed to clear token", "error", err)
	}
	slog.InfoContext(ctx, "User logged out", "event", "logout")
}

// Expire drops the in-memory session after the server rejected the token.
// The API client has already cleared the stored token.
func (s *Store) Expire() {
	s.mu.RLock()
	hadUser := s.user != nil
	s.mu.RUnlock()

	s.reset()
	if hadUser {
		slog.Info("Session expired", "event", "session_expired")
		s.notifier.Error("Your session has expired. Please log in again.")
	}
}

func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Anonymous
	s.loading = false
	s.token = ""
	s.user = nil
	s.role = ""
	s.draft = nil
	s.pods = nil
}

// JoinPod joins pod on the server and records it locally. The pod is stored
// at most once.
func (s *Store) JoinPod(ctx context.Context, pod domain.Pod) error {
	joined, err := s.api.JoinPod(ctx, pod.ID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to join pod", "event", "pod_join_failed", "pod_id", pod.ID, "error", err)
		s.reportError(err)
		return err
	}
	if joined != nil && joined.ID != "" {
		pod = *joined
	}

	s.mu.Lock()
	if !containsPod(s.pods, pod.ID) {
		s.pods = append(s.pods, pod)
	}
	s.mu.Unlock()

	s.notifier.Success("Joined " + pod.Name)
	s.refreshUserOnly(ctx)
	return nil
}

// LeavePod leaves podID on the server and forgets it locally.
func (s *Store) LeavePod(ctx context.Context, podID string) error {
	if err := s.api.LeavePod(ctx, podID); err != nil {
		slog.WarnContext(ctx, "Failed to leave pod", "event", "pod_leave_failed", "pod_id", podID, "error", err)
		s.reportError(err)
		return err
	}

	s.mu.Lock()
	s.pods = slices.DeleteFunc(s.pods, func(p domain.Pod) bool { return p.ID == podID })
	s.mu.Unlock()

	s.notifier.Success("Left pod")
	s.refreshUserOnly(ctx)
	return nil
}

// refreshUserOnly re-reads the profile after a membership change. Failures
// are logged and ignored.
func (s *Store) refreshUserOnly(ctx context.Context) {
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to refresh user after membership change", "error", err)
		return
	}
	s.mu.Lock()
	if s.user != nil {
		s.user = user
	}
	s.mu.Unlock()
}

// UpdateUserProfile merges upd into the current user without a network call.
func (s *Store) UpdateUserProfile(upd domain.ProfileUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	merged := s.user.Apply(upd)
	s.user = &merged
}

// RefreshUser re-fetches the user and joined pods and overwrites local state.
// It does nothing when no user is loaded.
func (s *Store) RefreshUser(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.user != nil
	s.mu.RUnlock()
	if !loaded {
		return nil
	}

	user, pods, err := s.fetchProfile(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to refresh user", "event", "refresh_failed", "error", err)
		s.reportError(err)
		return err
	}

	s.mu.Lock()
	s.user = user
	s.pods = uniquePods(pods)
	s.mu.Unlock()
	return nil
}

func (s *Store) fetchProfile(ctx context.Context) (*domain.User, []domain.Pod, error) {
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	pods, err := s.api.JoinedPods(ctx)
	if err != nil {
		return nil, nil, err
	}
	return user, pods, nil
}

// State returns the lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsLoading reports whether a restore, login or signup is in flight.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Token returns the token of the current session, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser returns a copy of the signed-in user.
func (s *Store) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// JoinedPods returns a copy of the joined pods.
func (s *Store) JoinedPods() []domain.Pod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.pods)
}

// IsJoined reports whether podID is among the joined pods.
func (s *Store) IsJoined(podID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return containsPod(s.pods, podID)
}

func (s *Store) SelectedRole() domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *Store) SetSelectedRole(role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = role
}

// PendingPodOwnerDraft returns the pod a new pod owner is setting up during
// onboarding.
func (s *Store) PendingPodOwnerDraft() (domain.PodDraft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.draft == nil {
		return domain.PodDraft{}, false
	}
	return *s.draft, true
}

func (s *Store) SetPendingPodOwnerDraft(d domain.PodDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = &d
}

func (s *Store) ClearPendingPodOwnerDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
}

// reportError shows err to the user. Expired sessions are reported once by
// Expire instead.
func (s *Store) reportError(err error) {
	if errors.Is(err, api.ErrSessionExpired) {
		return
	}
	s.notifier.Error(api.Message(err))
}

func containsPod(pods []domain.Pod, id string) bool {
	return slices.ContainsFunc(pods, func(p domain.Pod) bool { return p.ID == id })
}

func uniquePods(pods []domain.Pod) []domain.Pod {
	out := make([]domain.Pod, 0, len(pods))
	for _, p := range pods {
		if !containsPod(out, p.ID) {
			out = append(out, p)
		}
	}
	return out
}
