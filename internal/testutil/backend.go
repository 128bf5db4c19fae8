package testutil

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Seeded credentials of the fake backend.
const (
	FakeEmail    = "a@b.com"
	FakePassword = "secret"
	FakeToken    = "T1"
)

// FakeUser is an account known to the fake backend.
type FakeUser struct {
	ID       string
	Email    string
	Password string
	FullName string
	Role     string
	Language string
}

func (u FakeUser) json() map[string]any {
	return map[string]any{
		"id":        u.ID,
		"email":     u.Email,
		"full_name": u.FullName,
		"role":      u.Role,
		"language":  u.Language,
	}
}

// FakeBackend is an in-memory stand-in for the taskup REST API. Failures use
// the standard error envelope. Records are plain JSON maps.
type FakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]FakeUser // by email
	tokens   map[string]string   // token -> email
	tasks    []map[string]any
	offers   []map[string]any
	messages []map[string]any
	flags    map[string]bool
	wallet   map[string]any
	requests []string
	nextID   int
}

// NewFakeBackend starts a fake seeded with FakeEmail/FakePassword (role
// client, token FakeToken) and closes it when the test ends.
func NewFakeBackend(t TestingTB) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{
		users:  map[string]FakeUser{},
		tokens: map[string]string{},
		flags:  map[string]bool{"new_checkout": true, "dark_mode": false},
		wallet: map[string]any{
			"id": "w1", "user_id": "u1", "available_balance": 50000, "escrow_balance": 12000, "currency": "NOK",
		},
		nextID: 100,
	}
	fb.users[FakeEmail] = FakeUser{ID: "u1", Email: FakeEmail, Password: FakePassword, FullName: "Ada Client", Role: "client", Language: "en"}
	fb.tokens[FakeToken] = FakeEmail

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", fb.login)
	mux.HandleFunc("POST /api/auth/register", fb.register)
	mux.HandleFunc("GET /api/auth/me", fb.authed(fb.me))
	mux.HandleFunc("POST /api/auth/forgot-password", fb.forgotPassword)
	mux.HandleFunc("GET /api/tasks", fb.authed(fb.listTasks))
	mux.HandleFunc("POST /api/tasks", fb.authed(fb.createTask))
	mux.HandleFunc("GET /api/tasks/{id}", fb.authed(fb.getTask))
	mux.HandleFunc("GET /api/offers", fb.authed(fb.listOffers))
	mux.HandleFunc("GET /api/messages", fb.authed(fb.listMessages))
	mux.HandleFunc("GET /api/payments/wallet", fb.authed(fb.getWallet))
	mux.HandleFunc("POST /api/payments/payout-request", fb.authed(fb.payout))
	mux.HandleFunc("GET /api/config", fb.config)

	fb.Server = httptest.NewServer(fb.record(mux))
	if tc, ok := any(t).(interface{ Cleanup(func()) }); ok {
		tc.Cleanup(fb.Close)
	}
	return fb
}

// AddTask stores a task record and returns its id. Missing id, status,
// client_id and created_at are filled in.
func (fb *FakeBackend) AddTask(task map[string]any) string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fmt.Sprint(fb.addTaskLocked(task)["id"])
}

func (fb *FakeBackend) addTaskLocked(task map[string]any) map[string]any {
	rec := maps.Clone(task)
	if rec == nil {
		rec = map[string]any{}
	}
	if _, ok := rec["id"]; !ok {
		rec["id"] = fb.newIDLocked("t")
	}
	if _, ok := rec["status"]; !ok {
		rec["status"] = "open"
	}
	if _, ok := rec["client_id"]; !ok {
		rec["client_id"] = "u1"
	}
	if _, ok := rec["created_at"]; !ok {
		rec["created_at"] = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC).Format("2006-01-02T15:04:05")
	}
	fb.tasks = append(fb.tasks, rec)
	return rec
}

// AddOffer stores an offer record.
func (fb *FakeBackend) AddOffer(offer map[string]any) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.offers = append(fb.offers, offer)
}

// AddMessage stores a message record.
func (fb *FakeBackend) AddMessage(msg map[string]any) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.messages = append(fb.messages, msg)
}

// SetFlag sets a feature flag served by /api/config.
func (fb *FakeBackend) SetFlag(name string, enabled bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.flags[name] = enabled
}

// Requests returns "METHOD /path" for every request received.
func (fb *FakeBackend) Requests() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return slices.Clone(fb.requests)
}

func (fb *FakeBackend) newIDLocked(prefix string) string {
	fb.nextID++
	return prefix + strconv.Itoa(fb.nextID)
}

func (fb *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.requests = append(fb.requests, r.Method+" "+r.URL.Path)
		fb.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user FakeUser)

func (fb *FakeBackend) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		fb.mu.Lock()
		email, ok := fb.tokens[token]
		user := fb.users[email]
		fb.mu.Unlock()
		if token == "" || !ok {
			writeEnvelope(w, http.StatusUnauthorized, "AUTH_REQUIRED", "Not authenticated", nil)
			return
		}
		h(w, r, user)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEnvelope(w http.ResponseWriter, status int, code, message string, fields map[string][]string) {
	errBody := map[string]any{"code": code, "message": message, "http_status": status}
	if len(fields) > 0 {
		errBody["fields"] = fields
	}
	w.Header().Set("X-Correlation-ID", "corr-"+strconv.Itoa(status))
	writeJSON(w, status, map[string]any{"success": false, "error": errBody})
}

func decodeBody(r *http.Request) map[string]any {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body == nil {
		body = map[string]any{}
	}
	return body
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func (fb *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	fb.mu.Lock()
	user, ok := fb.users[strings.ToLower(str(body, "email"))]
	fb.mu.Unlock()
	if !ok || user.Password != str(body, "password") {
		writeEnvelope(w, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", "Invalid email or password", nil)
		return
	}
	token := fb.issueToken(user.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true, "user": user.json(), "access_token": token, "token_type": "bearer",
	})
}

func (fb *FakeBackend) issueToken(email string) string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if email == FakeEmail {
		return FakeToken
	}
	token := fb.newIDLocked("tok")
	fb.tokens[token] = email
	return token
}

func (fb *FakeBackend) register(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	email := strings.ToLower(str(body, "email"))
	if email == "" || !strings.Contains(email, "@") {
		writeEnvelope(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid input",
			map[string][]string{"email": {"Enter a valid email address."}})
		return
	}

	fb.mu.Lock()
	if _, exists := fb.users[email]; exists {
		fb.mu.Unlock()
		writeEnvelope(w, http.StatusConflict, "AUTH_EMAIL_EXISTS", "Email already registered", nil)
		return
	}
	user := FakeUser{
		ID:       fb.newIDLocked("u"),
		Email:    email,
		Password: str(body, "password"),
		FullName: str(body, "full_name"),
		Role:     str(body, "role"),
		Language: str(body, "language"),
	}
	fb.users[email] = user
	fb.mu.Unlock()

	token := fb.issueToken(email)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": user.json(), "access_token": token})
}

func (fb *FakeBackend) me(w http.ResponseWriter, _ *http.Request, user FakeUser) {
	writeJSON(w, http.StatusOK, map[string]any{"user": user.json()})
}

func (fb *FakeBackend) forgotPassword(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "If the account exists, an email was sent."})
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return page, limit
}

func paginate(items []map[string]any, page, limit int) []map[string]any {
	start := (page - 1) * limit
	if start >= len(items) {
		return []map[string]any{}
	}
	return items[start:min(start+limit, len(items))]
}

func (fb *FakeBackend) listTasks(w http.ResponseWriter, r *http.Request, _ FakeUser) {
	status := r.URL.Query().Get("status")
	category := r.URL.Query().Get("category")
	page, limit := pageParams(r)

	fb.mu.Lock()
	var out []map[string]any
	for _, t := range fb.tasks {
		if status != "" && t["status"] != status {
			continue
		}
		if category != "" && t["category"] != category {
			continue
		}
		out = append(out, t)
	}
	out = paginate(out, page, limit)
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (fb *FakeBackend) getTask(w http.ResponseWriter, r *http.Request, _ FakeUser) {
	id := r.PathValue("id")
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, t := range fb.tasks {
		if fmt.Sprint(t["id"]) == id {
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	writeEnvelope(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Task not found", nil)
}

func (fb *FakeBackend) createTask(w http.ResponseWriter, r *http.Request, user FakeUser) {
	if user.Role != "client" && user.Role != "admin" {
		writeEnvelope(w, http.StatusForbidden, "FORBIDDEN", "Only clients can post tasks", nil)
		return
	}
	body := decodeBody(r)
	if str(body, "title") == "" {
		writeEnvelope(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid input",
			map[string][]string{"title": {"Title is required"}})
		return
	}
	body["client_id"] = user.ID

	fb.mu.Lock()
	task := fb.addTaskLocked(body)
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, task)
}

func filterByTask(items []map[string]any, taskID string) []map[string]any {
	out := []map[string]any{}
	for _, it := range items {
		if taskID == "" || fmt.Sprint(it["task_id"]) == taskID {
			out = append(out, it)
		}
	}
	return out
}

func (fb *FakeBackend) listOffers(w http.ResponseWriter, r *http.Request, _ FakeUser) {
	fb.mu.Lock()
	out := filterByTask(fb.offers, r.URL.Query().Get("task_id"))
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (fb *FakeBackend) listMessages(w http.ResponseWriter, r *http.Request, _ FakeUser) {
	page, limit := pageParams(r)
	fb.mu.Lock()
	out := paginate(filterByTask(fb.messages, r.URL.Query().Get("task_id")), page, limit)
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (fb *FakeBackend) getWallet(w http.ResponseWriter, _ *http.Request, _ FakeUser) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	writeJSON(w, http.StatusOK, fb.wallet)
}

func (fb *FakeBackend) payout(w http.ResponseWriter, r *http.Request, user FakeUser) {
	if user.Role != "tasker" {
		writeEnvelope(w, http.StatusConflict, "PAYOUT_DESTINATION_MISSING", "No payout destination on file", nil)
		return
	}
	amount, _ := strconv.ParseInt(r.URL.Query().Get("amount_cents"), 10, 64)
	fb.mu.Lock()
	available, _ := fb.wallet["available_balance"].(int)
	fb.mu.Unlock()
	if amount > int64(available) {
		writeEnvelope(w, http.StatusConflict, "PAYOUT_INSUFFICIENT_BALANCE", "Insufficient balance", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "payout_status": "pending", "payout_id": "po_1"})
}

func (fb *FakeBackend) config(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	flags := maps.Clone(fb.flags)
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"data":           map[string]any{"feature_flags": flags, "environment": "staging"},
		"correlation_id": "cfg-1",
	})
}
