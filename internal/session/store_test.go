package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/taskup/taskup-client/internal/adapters/memstore"
	apperrors "github.com/taskup/taskup-client/internal/errors"
	"github.com/taskup/taskup-client/internal/mocks"
	"github.com/taskup/taskup-client/internal/transport"
)

type recordedEvent struct {
	name  string
	props map[string]string
}

type fakeTracker struct {
	mu     sync.Mutex
	events []recordedEvent
	errs   []error
}

func (f *fakeTracker) Event(_ context.Context, name string, props map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{name: name, props: props})
}

func (f *fakeTracker) Error(_ context.Context, err error, _ map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *fakeTracker) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.name)
	}
	return out
}

func jsonResponse(body any) *transport.Response {
	raw, _ := json.Marshal(body)
	var decoded any
	_ = json.Unmarshal(raw, &decoded)
	return &transport.Response{Status: http.StatusOK, Body: decoded, Raw: raw}
}

func newStore(t *testing.T, api *mocks.MockAPIDoer, kv *memstore.Store, tracker Tracker) *Store {
	t.Helper()
	s, err := New(Options{API: api, Storage: kv, Telemetry: tracker})
	require.NoError(t, err)
	return s
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{Storage: memstore.New(nil)})
	require.Error(t, err)

	ctrl := gomock.NewController(t)
	_, err = New(Options{API: mocks.NewMockAPIDoer(ctrl)})
	require.Error(t, err)
}

func TestNew_StartsLoading(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newStore(t, mocks.NewMockAPIDoer(ctrl), memstore.New(nil), nil)

	snap := s.Snapshot()
	assert.Equal(t, StatusLoading, snap.Status)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	kv := memstore.New(nil)
	tracker := &fakeTracker{}
	s := newStore(t, api, kv, tracker)

	api.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req transport.Request) (*transport.Response, error) {
			assert.Equal(t, http.MethodPost, req.Method)
			assert.Equal(t, "/api/auth/login", req.Path)
			assert.Equal(t, map[string]string{"email": "a@b.com", "password": "pw"}, req.Body)
			return jsonResponse(map[string]any{
				"user":         map[string]any{"email": "a@b.com", "role": "client"},
				"access_token": "T1",
			}), nil
		})

	res := s.Login(context.Background(), " a@b.com ", "pw")

	assert.True(t, res.OK)
	assert.Empty(t, res.Message)
	snap := s.Snapshot()
	assert.Equal(t, StatusAuthenticated, snap.Status)
	assert.Equal(t, "T1", snap.Token)
	require.NotNil(t, snap.User)
	assert.Equal(t, "a@b.com", snap.User.Email)
	assert.Equal(t, RoleClient, snap.User.Role)

	stored := kv.Snapshot()
	assert.Equal(t, "T1", stored[DefaultTokenKey])
	assert.JSONEq(t, `{"email":"a@b.com","role":"client"}`, stored[DefaultProfileKey])
	assert.Equal(t, []string{"auth.login_success"}, tracker.names())
}

func TestLogin_TokenShapes(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{name: "token", body: map[string]any{"token": "T2"}, want: "T2"},
		{
			name: "data wrapper",
			body: map[string]any{"data": map[string]any{"access_token": "T3", "user": map[string]any{"id": 7.0}}},
			want: "T3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			api := mocks.NewMockAPIDoer(ctrl)
			s := newStore(t, api, memstore.New(nil), nil)
			api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(jsonResponse(tt.body), nil)

			res := s.Login(context.Background(), "x@y.no", "pw")

			require.True(t, res.OK)
			snap := s.Snapshot()
			assert.Equal(t, tt.want, snap.Token)
			require.NotNil(t, snap.User)
			assert.Equal(t, "x@y.no", snap.User.Email)
		})
	}
}

func TestLogin_NumericUserID(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	s := newStore(t, api, memstore.New(nil), nil)
	api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(jsonResponse(map[string]any{
		"access_token": "T1",
		"user":         map[string]any{"id": 42, "email": "a@b.com"},
	}), nil)

	require.True(t, s.Login(context.Background(), "a@b.com", "pw").OK)
	assert.Equal(t, "42", s.Snapshot().User.ID)
}

func TestLogin_MissingToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	kv := memstore.New(nil)
	s := newStore(t, api, kv, nil)
	api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(jsonResponse(map[string]any{"ok": true}), nil)

	res := s.Login(context.Background(), "a@b.com", "pw")

	assert.False(t, res.OK)
	assert.Equal(t, apperrors.FallbackMessage, res.Message)
	require.NotNil(t, res.Error)
	assert.Equal(t, apperrors.ErrCodeInternal, res.Error.Code)
	assert.Empty(t, s.Snapshot().Token)
	assert.Empty(t, kv.Snapshot())
}

func TestLogin_FailureKeepsExistingSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	s := newStore(t, api, memstore.New(nil), nil)

	gomock.InOrder(
		api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(jsonResponse(map[string]any{
			"access_token": "T1", "user": map[string]any{"email": "a@b.com"},
		}), nil),
		api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(nil, context.DeadlineExceeded),
	)

	require.True(t, s.Login(context.Background(), "a@b.com", "pw").OK)
	res := s.Login(context.Background(), "other@b.com", "pw")

	assert.False(t, res.OK)
	assert.Equal(t, apperrors.NetworkMessage, res.Message)
	assert.Equal(t, "T1", s.Snapshot().Token)
}

func TestLogin_AgainstBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"AUTH_INVALID_CREDENTIALS","message":"bad creds"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"user":{"email":"a@b.com","role":"client"},"access_token":"T1"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := transport.New(transport.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	s, err := New(Options{API: client, Storage: memstore.New(nil)})
	require.NoError(t, err)

	res := s.Login(context.Background(), "a@b.com", "wrong")
	assert.False(t, res.OK)
	assert.Equal(t, "Invalid email or password", res.Message)
	assert.Equal(t, apperrors.ErrCodeInvalidCredentials, res.Error.Code)
	assert.Equal(t, http.StatusUnauthorized, res.Error.HTTPStatus)
	snap := s.Snapshot()
	assert.Equal(t, StatusAnonymous, snap.Status)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)

	res = s.Login(context.Background(), "a@b.com", "secret")
	assert.True(t, res.OK)
	snap = s.Snapshot()
	assert.Equal(t, "T1", snap.Token)
	assert.Equal(t, &UserProfile{Email: "a@b.com", Role: RoleClient}, snap.User)
}

func TestLogin_TranslatedFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	s, err := New(Options{
		API:     api,
		Storage: memstore.New(nil),
		Translator: func(key string) string {
			if key == "errors.invalid_credentials" {
				return "Feil e-post eller passord"
			}
			return key
		},
	})
	require.NoError(t, err)
	api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(nil, &apperrors.CanonicalError{
		Code: apperrors.ErrCodeInvalidCredentials, Message: "bad creds", HTTPStatus: 401,
	})

	res := s.Login(context.Background(), "a@b.com", "pw")
	assert.Equal(t, "Feil e-post eller passord", res.Message)
}

func TestSignup(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	tracker := &fakeTracker{}
	s := newStore(t, api, memstore.New(nil), tracker)

	api.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req transport.Request) (*transport.Response, error) {
			assert.Equal(t, "/api/auth/register", req.Path)
			assert.Equal(t, map[string]string{
				"email":     "kari@taskup.no",
				"password":  "pw",
				"full_name": "Kari Nordmann",
				"name":      "Kari Nordmann",
				"role":      "tasker",
				"language":  "en",
			}, req.Body)
			return jsonResponse(map[string]any{"access_token": "T9"}), nil
		})

	res := s.Signup(context.Background(), SignupInput{
		FullName: " Kari Nordmann ",
		Email:    "kari@taskup.no",
		Password: "pw",
		Role:     RoleTasker,
	})

	require.True(t, res.OK)
	snap := s.Snapshot()
	assert.Equal(t, "T9", snap.Token)
	assert.Equal(t, &UserProfile{Email: "kari@taskup.no", FullName: "Kari Nordmann", Role: RoleTasker, Language: "en"}, snap.User)
	assert.Equal(t, []string{"auth.signup_success"}, tracker.names())
}

func TestSignup_InvalidRoleSkipsNetwork(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	tracker := &fakeTracker{}
	s := newStore(t, api, memstore.New(nil), tracker)

	res := s.Signup(context.Background(), SignupInput{Email: "a@b.com", Password: "pw", Role: RoleAdmin})

	assert.False(t, res.OK)
	assert.Equal(t, invalidRoleMessage, res.Message)
	assert.Equal(t, apperrors.ErrCodeValidation, res.Error.Code)
	assert.Equal(t, StatusAnonymous, s.Snapshot().Status)
	assert.Equal(t, []string{"auth.signup_failed"}, tracker.names())
	assert.Equal(t, "VALIDATION_ERROR", tracker.events[0].props["code"])
}

func TestSignup_EmailExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	s := newStore(t, api, memstore.New(nil), nil)
	api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(nil, &transport.HTTPError{
		Status: http.StatusConflict,
		Body:   map[string]any{"success": false, "error": map[string]any{"code": "AUTH_EMAIL_EXISTS", "message": "taken"}},
	})

	res := s.Signup(context.Background(), SignupInput{Email: "a@b.com", Password: "pw"})
	assert.False(t, res.OK)
	assert.Equal(t, "Email already in use", res.Message)
}

func TestLogout_ClearsEverything(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	kv := memstore.New(map[string]string{DefaultTokenKey: "T1", DefaultProfileKey: `{"email":"a@b.com"}`, "taskup_locale": "nb"})
	s := newStore(t, api, kv, nil)
	api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(jsonResponse(map[string]any{"access_token": "T1", "user": map[string]any{"email": "a@b.com"}}), nil)
	require.True(t, s.Login(context.Background(), "a@b.com", "pw").OK)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := s.Logout(ctx)

	assert.True(t, res.OK)
	snap := s.Snapshot()
	assert.Equal(t, StatusAnonymous, snap.Status)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)
	assert.Equal(t, map[string]string{"taskup_locale": "nb"}, kv.Snapshot())

	tok, err := s.Token()
	assert.Nil(t, tok)
	assert.ErrorIs(t, err, transport.ErrNoToken)
}

func TestLogout_StorageFailureStillSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	kv := mocks.NewMockKVStore(ctrl)
	s, err := New(Options{API: api, Storage: kv})
	require.NoError(t, err)

	kv.EXPECT().Delete(gomock.Any(), DefaultTokenKey).Return(errors.New("disk full"))
	kv.EXPECT().Delete(gomock.Any(), DefaultProfileKey).Return(nil)

	res := s.Logout(context.Background())
	assert.True(t, res.OK)
	assert.Equal(t, StatusAnonymous, s.Snapshot().Status)
}

func TestRestore_NoToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newStore(t, mocks.NewMockAPIDoer(ctrl), memstore.New(nil), nil)

	snap := s.Restore(context.Background())
	assert.Equal(t, StatusAnonymous, snap.Status)
}

func TestRestore_Revalidates(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	kv := memstore.New(map[string]string{
		DefaultTokenKey:   "T1",
		DefaultProfileKey: `{"email":"old@b.com","role":"client"}`,
	})
	s := newStore(t, api, kv, nil)

	var seen []Session
	unsubscribe := s.Subscribe(func(sess Session) { seen = append(seen, sess) })
	defer unsubscribe()

	api.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req transport.Request) (*transport.Response, error) {
			assert.Equal(t, "/api/auth/me", req.Path)
			assert.Equal(t, "T1", req.Token)
			return jsonResponse(map[string]any{"user": map[string]any{"email": "new@b.com", "role": "tasker"}}), nil
		})

	snap := s.Restore(context.Background())

	assert.Equal(t, StatusAuthenticated, snap.Status)
	assert.Equal(t, "new@b.com", snap.User.Email)
	require.Len(t, seen, 2)
	assert.Equal(t, "old@b.com", seen[0].User.Email)
	assert.Equal(t, "new@b.com", seen[1].User.Email)
	assert.JSONEq(t, `{"email":"new@b.com","role":"tasker"}`, kv.Snapshot()[DefaultProfileKey])
}

func TestRestore_WithoutCachedProfileStaysLoading(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	s := newStore(t, api, memstore.New(map[string]string{DefaultTokenKey: "T1"}), nil)

	api.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, transport.Request) (*transport.Response, error) {
			assert.Equal(t, StatusLoading, s.Snapshot().Status)
			return jsonResponse(map[string]any{"email": "a@b.com"}), nil
		})

	snap := s.Restore(context.Background())
	assert.Equal(t, StatusAuthenticated, snap.Status)
	assert.Equal(t, "a@b.com", snap.User.Email)
}

func TestRestore_RejectedTokenClearsStorage(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	kv := memstore.New(map[string]string{DefaultTokenKey: "T1", DefaultProfileKey: `{"email":"a@b.com"}`})
	s := newStore(t, api, kv, nil)
	api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(nil, &transport.HTTPError{
		Status: http.StatusUnauthorized,
		Body:   map[string]any{"detail": "Could not validate credentials"},
	})

	snap := s.Restore(context.Background())

	assert.Equal(t, StatusAnonymous, snap.Status)
	assert.Nil(t, snap.User)
	assert.Empty(t, kv.Snapshot())
}

func TestRestore_StaleResultDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	kv := memstore.New(map[string]string{DefaultTokenKey: "OLD", DefaultProfileKey: `{"email":"old@b.com"}`})
	s := newStore(t, api, kv, nil)

	api.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, transport.Request) (*transport.Response, error) {
			// A logout lands while the whoami call is in flight.
			s.Logout(context.Background())
			return nil, &transport.HTTPError{Status: http.StatusUnauthorized}
		})

	snap := s.Restore(context.Background())
	assert.Equal(t, StatusAnonymous, snap.Status)

	api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(jsonResponse(map[string]any{"access_token": "NEW", "user": map[string]any{"email": "a@b.com"}}), nil)
	require.True(t, s.Login(context.Background(), "a@b.com", "pw").OK)
	assert.Equal(t, "NEW", s.Snapshot().Token)
}

func TestStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newStore(t, mocks.NewMockAPIDoer(ctrl), memstore.New(nil), nil)

	snap, ok := <-s.Start(context.Background())
	require.True(t, ok)
	assert.Equal(t, StatusAnonymous, snap.Status)
}

func TestToken_TransportUsesSession(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"T1","user":{"email":"a@b.com"}}`))
	}))
	t.Cleanup(srv.Close)

	client, err := transport.New(transport.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	s, err := New(Options{API: client, Storage: memstore.New(nil)})
	require.NoError(t, err)
	authed := client.WithTokenSource(s)

	require.True(t, s.Login(context.Background(), "a@b.com", "pw").OK)
	_, err = authed.Get(context.Background(), "/api/tasks")
	require.NoError(t, err)

	assert.Equal(t, []string{"", "Bearer T1"}, got)
}

func TestForgotAndResetPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPIDoer(ctrl)
	s := newStore(t, api, memstore.New(nil), nil)

	api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(jsonResponse(map[string]any{"ok": true, "message": "Check your inbox"}), nil)
	res := s.ForgotPassword(context.Background(), "a@b.com")
	assert.True(t, res.OK)
	assert.Equal(t, "Check your inbox", res.Message)

	api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(nil, &transport.HTTPError{
		Status: http.StatusBadRequest,
		Body: map[string]any{"success": false, "error": map[string]any{
			"code": "VALIDATION_ERROR", "message": "invalid", "fields": map[string]any{"token": []any{"Reset link has expired"}},
		}},
	})
	res = s.ResetPassword(context.Background(), "tok", "new-pw")
	assert.False(t, res.OK)
	assert.Equal(t, "Reset link has expired", res.Message)
	assert.Equal(t, StatusLoading, s.Snapshot().Status)
}

func TestParseSignupRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{in: "", want: RoleClient, ok: true},
		{in: " Tasker ", want: RoleTasker, ok: true},
		{in: "client", want: RoleClient, ok: true},
		{in: "admin", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseSignupRole(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
