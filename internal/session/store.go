package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	apperrors "github.com/taskup/taskup-client/internal/errors"
	"github.com/taskup/taskup-client/internal/ports"
	"github.com/taskup/taskup-client/internal/transport"
	"github.com/taskup/taskup-client/internal/util"
)

// Default durable slot keys.
const (
	DefaultTokenKey   = "taskup_token"
	DefaultProfileKey = "taskup_auth_v2"
)

const (
	pathLogin    = "/api/auth/login"
	pathRegister = "/api/auth/register"
	pathMe       = "/api/auth/me"
	pathForgot   = "/api/auth/forgot-password"
	pathReset    = "/api/auth/reset-password"
)

// Login and register responses differ between backend versions.
const (
	tokenExpr   = "access_token || token || data.access_token || data.token"
	userExpr    = "user || data.user || @"
	messageExpr = "message || data.message"
)

const (
	invalidRoleMessage = "Choose either client or tasker."
	resetSentMessage   = "If an account exists for this email, a reset link has been sent."
	resetDoneMessage   = "Your password has been updated. You can sign in now."
)

var errNoProfile = errors.New("response carries no user profile")

// Options configures a Store.
type Options struct {
	API     ports.APIDoer
	Storage ports.KVStore
	// Translator localizes friendly messages; nil uses English defaults.
	Translator apperrors.Translator
	Logger     *slog.Logger
	Telemetry  Tracker
	TokenKey   string
	ProfileKey string
}

// Store is the session state machine. All methods are safe for concurrent
// use; overlapping auth actions resolve last-writer-wins.
type Store struct {
	api        ports.APIDoer
	storage    ports.KVStore
	translate  apperrors.Translator
	logger     *slog.Logger
	telemetry  Tracker
	tokenKey   string
	profileKey string

	mu        sync.Mutex
	state     Session
	gen       uint64
	listeners map[uint64]func(Session)
	nextID    uint64
}

var _ oauth2.TokenSource = (*Store)(nil)

// New builds a Store in the loading state. Call Restore or Start to settle it.
func New(opts Options) (*Store, error) {
	if opts.API == nil {
		return nil, errors.New("session: API is required")
	}
	if opts.Storage == nil {
		return nil, errors.New("session: Storage is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var tracker Tracker = nopTracker{}
	if opts.Telemetry != nil {
		tracker = opts.Telemetry
	}

	return &Store{
		api:        opts.API,
		storage:    opts.Storage,
		translate:  opts.Translator,
		logger:     logger.With("component", "session"),
		telemetry:  tracker,
		tokenKey:   keyOrDefault(opts.TokenKey, DefaultTokenKey),
		profileKey: keyOrDefault(opts.ProfileKey, DefaultProfileKey),
		state:      Session{Status: StatusLoading},
		listeners:  make(map[uint64]func(Session)),
	}, nil
}

func keyOrDefault(key, def string) string {
	if k := strings.TrimSpace(key); k != "" {
		return k
	}
	return def
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Session {
	st := s.state
	st.User = cloneProfile(st.User)
	return st
}

// Token implements oauth2.TokenSource for the transport. It returns
// transport.ErrNoToken while signed out.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	tok := s.state.Token
	s.mu.Unlock()

	if tok == "" {
		return nil, transport.ErrNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// Subscribe registers fn for every state change. Listeners run on the
// goroutine that caused the change, outside the store lock.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// apply installs a new state when cond accepts the current one. It is the
// only writer of s.state and keeps Token and User set or cleared together.
func (s *Store) apply(cond func(Session, uint64) bool, token string, user *UserProfile, status Status) (uint64, bool) {
	token = strings.TrimSpace(token)
	if token == "" || user == nil {
		token, user = "", nil
		if status == StatusAuthenticated {
			status = StatusAnonymous
		}
	}

	s.mu.Lock()
	if cond != nil && !cond(s.state, s.gen) {
		gen := s.gen
		s.mu.Unlock()
		return gen, false
	}
	s.gen++
	gen := s.gen
	s.state = Session{Status: status, Token: token, User: cloneProfile(user)}
	snap := s.snapshotLocked()
	listeners := make([]func(Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return gen, true
}

func (s *Store) set(token string, user *UserProfile, status Status) {
	s.apply(nil, token, user, status)
}

// setIf applies only if nothing else changed the session since gen.
func (s *Store) setIf(gen uint64, token string, user *UserProfile, status Status) (uint64, bool) {
	return s.apply(func(_ Session, current uint64) bool { return current == gen }, token, user, status)
}

// demote drops to anonymous unless a signed-in session exists.
func (s *Store) demote() {
	s.apply(func(st Session, _ uint64) bool { return st.Status != StatusAuthenticated }, "", nil, StatusAnonymous)
}

// Start runs Restore in the background. The channel yields the settled
// session and is then closed.
func (s *Store) Start(ctx context.Context) <-chan Session {
	done := make(chan Session, 1)
	go func() {
		defer close(done)
		done <- s.Restore(ctx)
	}()
	return done
}

// Restore reads the durable token and revalidates it with the backend. A
// cached profile makes the session authenticated while the check runs. Any
// rejection clears memory and storage. Results are dropped when a login or
// logout happened in the meantime.
func (s *Store) Restore(ctx context.Context) Session {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	token, ok, err := s.storage.Get(ctx, s.tokenKey)
	if err != nil {
		s.logger.WarnContext(ctx, "read stored token failed", "error", err)
	}
	token = strings.TrimSpace(token)
	if err != nil || !ok || token == "" {
		s.setIf(gen, "", nil, StatusAnonymous)
		return s.Snapshot()
	}

	if cached := s.cachedProfile(ctx); cached != nil {
		var applied bool
		if gen, applied = s.setIf(gen, token, cached, StatusAuthenticated); !applied {
			return s.Snapshot()
		}
	}

	user, cerr := s.whoami(ctx, token)
	if cerr != nil {
		s.logger.InfoContext(ctx, "stored session rejected", "code", cerr.Code, "http_status", cerr.HTTPStatus)
		if _, applied := s.setIf(gen, "", nil, StatusAnonymous); applied {
			s.clearStorage(ctx)
		}
		return s.Snapshot()
	}

	if _, applied := s.setIf(gen, token, user, StatusAuthenticated); applied {
		s.persistProfile(ctx, user)
	}
	return s.Snapshot()
}

func (s *Store) whoami(ctx context.Context, token string) (*UserProfile, *apperrors.CanonicalError) {
	resp, err := s.api.Do(ctx, transport.Request{Method: http.MethodGet, Path: pathMe, Token: token})
	if err != nil {
		return nil, apperrors.Normalize(err)
	}
	user, err := profileFrom(resp.Body)
	if err != nil {
		return nil, apperrors.Internal(resp.Status)
	}
	return user, nil
}

// Login signs in with email and password.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	email = strings.TrimSpace(email)
	resp, err := s.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   pathLogin,
		Body:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return s.fail(ctx, "auth.login_failed", pathLogin, apperrors.Normalize(err))
	}

	user, cerr := s.adopt(ctx, resp, UserProfile{Email: email})
	if cerr != nil {
		return s.fail(ctx, "auth.login_failed", pathLogin, cerr)
	}

	s.telemetry.Event(ctx, "auth.login_success", map[string]string{"role": string(user.Role)})
	return Result{OK: true}
}

// Signup registers a new account and signs it in.
func (s *Store) Signup(ctx context.Context, in SignupInput) Result {
	role, ok := ParseSignupRole(string(in.Role))
	if !ok {
		return s.fail(ctx, "auth.signup_failed", pathRegister, apperrors.Validation("role", invalidRoleMessage))
	}
	lang := strings.ToLower(strings.TrimSpace(in.Language))
	if lang == "" {
		lang = "en"
	}
	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.FullName)

	resp, err := s.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   pathRegister,
		Body: map[string]string{
			"email":     email,
			"password":  in.Password,
			"full_name": name,
			"name":      name,
			"role":      string(role),
			"language":  lang,
		},
	})
	if err != nil {
		return s.fail(ctx, "auth.signup_failed", pathRegister, apperrors.Normalize(err))
	}

	user, cerr := s.adopt(ctx, resp, UserProfile{Email: email, FullName: name, Role: role, Language: lang})
	if cerr != nil {
		return s.fail(ctx, "auth.signup_failed", pathRegister, cerr)
	}

	s.telemetry.Event(ctx, "auth.signup_success", map[string]string{"role": string(user.Role)})
	return Result{OK: true}
}

// adopt installs the token and profile from an auth response. Profile fields
// the backend omitted are taken from input.
func (s *Store) adopt(ctx context.Context, resp *transport.Response, input UserProfile) (*UserProfile, *apperrors.CanonicalError) {
	token, ok := util.ExtractString(tokenExpr, resp.Body)
	if !ok {
		s.logger.WarnContext(ctx, "auth response carried no token", "http_status", resp.Status)
		return nil, apperrors.Internal(0)
	}

	user, err := profileFrom(resp.Body)
	if err != nil {
		s.logger.DebugContext(ctx, "auth response profile unusable", "error", err)
		user = &UserProfile{}
	}
	if user.Email == "" {
		user.Email = input.Email
	}
	if user.FullName == "" {
		user.FullName = input.FullName
	}
	if user.Role == "" {
		user.Role = input.Role
	}
	if user.Language == "" {
		user.Language = input.Language
	}

	s.set(token, user, StatusAuthenticated)

	if err := s.storage.Set(ctx, s.tokenKey, token); err != nil {
		s.logger.WarnContext(ctx, "persist token failed", "error", err)
	}
	s.persistProfile(ctx, user)
	return user, nil
}

func (s *Store) fail(ctx context.Context, event, endpoint string, cerr *apperrors.CanonicalError) Result {
	s.demote()

	s.telemetry.Event(ctx, event, map[string]string{"code": string(cerr.Code)})
	s.telemetry.Error(ctx, cerr, map[string]string{"endpoint": endpoint, "method": http.MethodPost})
	s.logger.InfoContext(ctx, "auth request failed",
		"endpoint", endpoint,
		"code", cerr.Code,
		"http_status", cerr.HTTPStatus,
		"correlation_id", cerr.CorrelationID,
	)

	return Result{OK: false, Message: apperrors.FriendlyMessage(cerr, s.translate), Error: cerr}
}

// Logout clears the session locally. It never fails and makes no network
// call; storage errors are logged.
func (s *Store) Logout(ctx context.Context) Result {
	s.set("", nil, StatusAnonymous)
	s.clearStorage(ctx)
	s.telemetry.Event(ctx, "auth.logout", nil)
	return Result{OK: true}
}

func (s *Store) clearStorage(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	err := errors.Join(
		s.storage.Delete(ctx, s.tokenKey),
		s.storage.Delete(ctx, s.profileKey),
	)
	if err != nil {
		s.logger.WarnContext(ctx, "clear stored session failed", "error", err)
	}
}

// ForgotPassword asks the backend to mail a reset link.
func (s *Store) ForgotPassword(ctx context.Context, email string) Result {
	resp, err := s.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   pathForgot,
		Body:   map[string]string{"email": strings.TrimSpace(email)},
	})
	if err != nil {
		return s.failPassive(ctx, pathForgot, err)
	}
	return Result{OK: true, Message: messageOr(resp.Body, resetSentMessage)}
}

// ResetPassword completes a reset with the mailed token.
func (s *Store) ResetPassword(ctx context.Context, token, newPassword string) Result {
	resp, err := s.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   pathReset,
		Body:   map[string]string{"token": strings.TrimSpace(token), "new_password": newPassword},
	})
	if err != nil {
		return s.failPassive(ctx, pathReset, err)
	}
	return Result{OK: true, Message: messageOr(resp.Body, resetDoneMessage)}
}

// failPassive reports a failure without touching the session.
func (s *Store) failPassive(ctx context.Context, endpoint string, err error) Result {
	cerr := apperrors.Normalize(err)
	s.telemetry.Error(ctx, cerr, map[string]string{"endpoint": endpoint, "method": http.MethodPost})
	return Result{OK: false, Message: apperrors.FriendlyMessage(cerr, s.translate), Error: cerr}
}

func messageOr(body any, def string) string {
	if msg, ok := util.ExtractString(messageExpr, body); ok {
		return msg
	}
	return def
}

func (s *Store) cachedProfile(ctx context.Context) *UserProfile {
	raw, ok, err := s.storage.Get(ctx, s.profileKey)
	if err != nil {
		s.logger.WarnContext(ctx, "read cached profile failed", "error", err)
		return nil
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	var p UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.WarnContext(ctx, "cached profile is corrupt", "error", err)
		return nil
	}
	return &p
}

func (s *Store) persistProfile(ctx context.Context, user *UserProfile) {
	raw, err := json.Marshal(user)
	if err != nil {
		s.logger.WarnContext(ctx, "encode profile failed", "error", err)
		return
	}
	if err := s.storage.Set(ctx, s.profileKey, string(raw)); err != nil {
		s.logger.WarnContext(ctx, "persist profile failed", "error", err)
	}
}

// profileFrom pulls the user object out of an auth or whoami body.
func profileFrom(body any) (*UserProfile, error) {
	m, ok := util.Extract(userExpr, body).(map[string]any)
	if !ok {
		return nil, errNoProfile
	}
	if id, isNum := m["id"].(float64); isNum {
		m = maps.Clone(m)
		m["id"] = strconv.FormatFloat(id, 'f', -1, 64)
	}
	var p UserProfile
	if err := util.Remarshal(m, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}
