package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appsvc "warbler/internal/app"
	"warbler/internal/bootstrap"
	"warbler/internal/config"
	"warbler/internal/model"
	httptransport "warbler/internal/transport/http"
)

const testCookieName = "warbler_session"

// memUserStore, memMessageStore and memSessionStore are in-memory stand-ins
// for the gorm repositories and the redis session store, so the full router
// can be exercised without external services.

type memUserStore struct {
	mu   sync.Mutex
	seq  uint
	byID map[uint]model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: map[uint]model.User{}}
}

func (s *memUserStore) Create(user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	user.ID = s.seq
	s.byID[user.ID] = *user
	return nil
}

func (s *memUserStore) GetByID(id uint) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *memUserStore) GetByUsername(username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.byID {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (s *memUserStore) GetByEmail(email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.byID {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

type memMessageStore struct {
	mu   sync.Mutex
	seq  uint
	byID map[uint]model.Message
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{byID: map[uint]model.Message{}}
}

func (s *memMessageStore) Create(message *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	message.ID = s.seq
	s.byID[message.ID] = *message
	return nil
}

func (s *memMessageStore) GetByID(id uint) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &message, nil
}

func (s *memMessageStore) ListRecent(limit int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := make([]model.Message, 0, len(s.byID))
	for _, message := range s.byID {
		messages = append(messages, message)
	}
	return messages, nil
}

func (s *memMessageStore) ListByUserID(userID uint, limit int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var messages []model.Message
	for _, message := range s.byID {
		if message.UserID == userID {
			messages = append(messages, message)
		}
	}
	return messages, nil
}

func (s *memMessageStore) DeleteByID(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *memMessageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type memSessionStore struct {
	mu     sync.Mutex
	tokens map[string]uint
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{tokens: map[string]uint{}}
}

func (s *memSessionStore) Create(ctx context.Context, userID uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.tokens[token] = userID
	return token, nil
}

func (s *memSessionStore) Resolve(ctx context.Context, token string) (uint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	return userID, ok, nil
}

func (s *memSessionStore) Destroy(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

type testEnv struct {
	router   *gin.Engine
	users    *memUserStore
	messages *memMessageStore
	sessions *memSessionStore
	auth     *appsvc.AuthService

	user1 *model.User
	user2 *model.User
	msg1  *model.Message
	msg2  *model.Message
	msg3  *model.Message
}

// newTestEnv wires the real router, services and middleware over in-memory
// stores, seeded with testuser1 owning "Test Message 1" and testuser2 owning
// "Test Message 2" and "Test Message 3".
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := newMemUserStore()
	messages := newMemMessageStore()
	sessions := newMemSessionStore()

	auth := appsvc.NewAuthService(users, "test-secret", time.Hour)
	messageService := appsvc.NewMessageService(messages, users, nil, nil, zerolog.Nop())

	cfg := &config.Config{
		App: config.AppConfig{
			Name:         "warbler",
			Env:          "test",
			GinMode:      gin.TestMode,
			TemplateGlob: "../../../../web/templates/*.html",
		},
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			JWTExpireMinute: 60,
		},
		Session: config.SessionConfig{
			CookieName: testCookieName,
			TTLMinute:  60,
		},
	}

	env := &testEnv{
		users:    users,
		messages: messages,
		sessions: sessions,
		auth:     auth,
	}

	app := &bootstrap.App{
		Config:    cfg,
		Sessions:  sessions,
		Auth:      auth,
		Messages:  messageService,
		StartedAt: time.Now(),
	}
	env.router = httptransport.NewRouter(app)

	env.user1 = env.signup(t, "testuser1", "test@test.com", "testuser")
	env.user2 = env.signup(t, "testuser2", "test2@test.com", "testuser2")
	env.msg1 = env.seedMessage(t, env.user1.ID, "Test Message 1")
	env.msg2 = env.seedMessage(t, env.user2.ID, "Test Message 2")
	env.msg3 = env.seedMessage(t, env.user2.ID, "Test Message 3")

	return env
}

func (e *testEnv) signup(t *testing.T, username, email, password string) *model.User {
	t.Helper()
	user, err := e.auth.Signup(appsvc.SignupInput{Username: username, Email: email, Password: password})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func (e *testEnv) seedMessage(t *testing.T, userID uint, text string) *model.Message {
	t.Helper()
	message := &model.Message{Text: text, UserID: userID, CreatedAt: time.Now()}
	if err := e.messages.Create(message); err != nil {
		t.Fatalf("seed message %q: %v", text, err)
	}
	return message
}

// sessionCookie logs the user in by writing the session entry directly,
// skipping the login form.
func (e *testEnv) sessionCookie(t *testing.T, userID uint) *http.Cookie {
	t.Helper()
	token, err := e.sessions.Create(context.Background(), userID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &http.Cookie{Name: testCookieName, Value: token}
}

func (e *testEnv) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
