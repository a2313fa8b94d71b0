package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/skk/jds-backend/internal/auth"
	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/shared"
	_ "github.com/skk/jds-backend/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	if s.user == nil || s.user.Username != username {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newAuthRouter(t *testing.T, repo auth.Repository) (*chi.Mux, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(nil, auth.NewService(repo), authz.NewRegistry(), sessionManager, csrfManager)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessionManager.Load(r.Context(), r)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			ctx := shared.ContextWithSession(r.Context(), sess)
			// Commit before the first response write, like the server's
			// session middleware, so Set-Cookie lands in the header snapshot.
			cw := &commitWriter{ResponseWriter: w, commit: func() {
				if err := sessionManager.Commit(ctx, w, r, sess); err != nil {
					t.Errorf("commit session: %v", err)
				}
			}}
			next.ServeHTTP(cw, r.WithContext(ctx))
			cw.flush()
		})
	})
	router.Route("/auth", handler.MountRoutes)
	return router, mr
}

type commitWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (c *commitWriter) WriteHeader(code int) {
	c.flush()
	c.ResponseWriter.WriteHeader(code)
}

func (c *commitWriter) Write(b []byte) (int, error) {
	c.flush()
	return c.ResponseWriter.Write(b)
}

func (c *commitWriter) flush() {
	if !c.committed {
		c.committed = true
		c.commit()
	}
}

func seededUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{
		ID:           1,
		Username:     "caseworker",
		Email:        "worker@test.local",
		PasswordHash: string(hashed),
		IsActive:     true,
		Roles:        []authz.Role{authz.RoleCaseWorker},
	}
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: seededUser(t, "correctpass")}
	router, _ := newAuthRouter(t, repo)

	body := `{"username":"caseworker","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	payload := res.Body.String()
	if !strings.Contains(payload, `"username":"caseworker"`) {
		t.Fatalf("expected username in response: %s", payload)
	}
	if !strings.Contains(payload, `"ROLE_CASE_WORKER"`) {
		t.Fatalf("expected role authority in response: %s", payload)
	}
	if !strings.Contains(payload, `"CASE_WRITE"`) {
		t.Fatalf("expected permission authority in response: %s", payload)
	}
	if len(res.Result().Cookies()) == 0 {
		t.Fatalf("expected session cookie to be set")
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("expected one registered session, got %d", len(repo.sessions))
	}
}

func TestLoginIgnoresUnknownSessionCookie(t *testing.T) {
	repo := &stubRepo{user: seededUser(t, "correctpass")}
	router, mr := newAuthRouter(t, repo)

	body := `{"username":"caseworker","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "attacker-chosen-id"})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	cookies := res.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie to be set")
	}
	for _, c := range cookies {
		if c.Name == "test_session" && c.Value == "attacker-chosen-id" {
			t.Fatalf("client-supplied session ID was adopted")
		}
	}
	if mr.Exists("session:attacker-chosen-id") {
		t.Fatalf("authenticated session stored under client-supplied ID")
	}
	if _, ok := repo.sessions["attacker-chosen-id"]; ok {
		t.Fatalf("client-supplied ID registered as a session")
	}
}

func TestLoginRotatesExistingSessionID(t *testing.T) {
	repo := &stubRepo{user: seededUser(t, "correctpass")}
	router, mr := newAuthRouter(t, repo)

	// Establish an anonymous session first.
	first := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	firstRes := httptest.NewRecorder()
	router.ServeHTTP(firstRes, first)
	var anon *http.Cookie
	for _, c := range firstRes.Result().Cookies() {
		if c.Name == "test_session" {
			anon = c
		}
	}
	if anon == nil {
		t.Fatalf("expected anonymous session cookie")
	}

	body := `{"username":"caseworker","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(anon)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var rotated *http.Cookie
	for _, c := range res.Result().Cookies() {
		if c.Name == "test_session" {
			rotated = c
		}
	}
	if rotated == nil {
		t.Fatalf("expected session cookie after login")
	}
	if rotated.Value == anon.Value {
		t.Fatalf("session ID was not rotated at login")
	}
	if mr.Exists("session:" + anon.Value) {
		t.Fatalf("pre-login session record still present after rotation")
	}
	if _, ok := repo.sessions[rotated.Value]; !ok {
		t.Fatalf("rotated session ID was not registered")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{user: seededUser(t, "correctpass")})

	body := `{"username":"caseworker","password":"wrongpass1"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := seededUser(t, "correctpass")
	user.IsActive = false
	router, _ := newAuthRouter(t, &stubRepo{user: user})

	body := `{"username":"caseworker","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{})

	body := `{"username":"ghost","password":"whatever12"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestMeWithoutPrincipal(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}
