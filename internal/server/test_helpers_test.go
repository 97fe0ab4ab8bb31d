package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/analytics"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/database"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/links"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/profiles"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/storage"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/users"
	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testCookieName = "linkhub_session"

type sequenceIDProvider struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("%s-%03d", p.prefix, p.next), nil
}

type capturingRecorder struct {
	mu     sync.Mutex
	views  []analytics.ViewEvent
	clicks []analytics.ClickEvent
}

func (r *capturingRecorder) EnqueueView(event analytics.ViewEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, event)
	return true
}

func (r *capturingRecorder) EnqueueClick(event analytics.ClickEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicks = append(r.clicks, event)
	return true
}

func (r *capturingRecorder) snapshot() ([]analytics.ViewEvent, []analytics.ClickEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]analytics.ViewEvent(nil), r.views...), append([]analytics.ClickEvent(nil), r.clicks...)
}

type testEnvironment struct {
	server     *httptest.Server
	db         *gorm.DB
	issuer     *auth.TokenIssuer
	recorder   *capturingRecorder
	realtime   *RealtimeDispatcher
	analytics  *analytics.Service
	avatarRoot string
}

func newTestEnvironment(t *testing.T) *testEnvironment {
	t.Helper()
	gin.SetMode(gin.TestMode)

	databaseName := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+databaseName+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	clock := func() time.Time { return time.Now().UTC() }
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-signing-secret"),
		Issuer:        auth.DefaultIssuer,
		Audience:      auth.DefaultAudience,
		TokenTTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to build issuer: %v", err)
	}

	avatarRoot := t.TempDir()
	store, err := storage.NewLocalStore(avatarRoot, "http://avatars.test")
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		Hasher:     auth.NewPasswordHasher(bcrypt.MinCost),
		IDProvider: &sequenceIDProvider{prefix: "user"},
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("failed to build users service: %v", err)
	}
	profilesService, err := profiles.NewService(profiles.ServiceConfig{Database: db, Store: store, Clock: clock})
	if err != nil {
		t.Fatalf("failed to build profiles service: %v", err)
	}
	linksService, err := links.NewService(links.ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: &sequenceIDProvider{prefix: "link"},
	})
	if err != nil {
		t.Fatalf("failed to build links service: %v", err)
	}
	analyticsService, err := analytics.NewService(analytics.ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: &sequenceIDProvider{prefix: "event"},
	})
	if err != nil {
		t.Fatalf("failed to build analytics service: %v", err)
	}

	recorder := &capturingRecorder{}
	realtime := NewRealtimeDispatcher()
	handler, err := NewHTTPHandler(Dependencies{
		TokenManager:     issuer,
		CookieName:       testCookieName,
		UsersService:     usersService,
		ProfilesService:  profilesService,
		LinksService:     linksService,
		AnalyticsService: analyticsService,
		Recorder:         recorder,
		Realtime:         realtime,
		AvatarDir:        avatarRoot,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &testEnvironment{
		server:     server,
		db:         db,
		issuer:     issuer,
		recorder:   recorder,
		realtime:   realtime,
		analytics:  analyticsService,
		avatarRoot: avatarRoot,
	}
}

func (e *testEnvironment) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	response, err := client.Do(request)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer response.Body.Close()
	payload, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	return response, payload
}

func (e *testEnvironment) signUp(t *testing.T, email, username string) (string, string) {
	t.Helper()
	response, payload := e.do(t, http.MethodPost, "/auth/sign-up", "", map[string]string{
		"email":    email,
		"password": "secret1",
		"username": username,
	})
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("sign up failed with %d: %s", response.StatusCode, payload)
	}
	var decoded authResponsePayload
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("failed to decode auth response: %v", err)
	}
	return decoded.AccessToken, decoded.User.ID
}

type linksResponse struct {
	Link  *linkPayload  `json:"link"`
	Links []linkPayload `json:"links"`
}

func decodeLinks(t *testing.T, payload []byte) linksResponse {
	t.Helper()
	var decoded linksResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("failed to decode links: %v (%s)", err, payload)
	}
	return decoded
}

func decodeError(t *testing.T, payload []byte) string {
	t.Helper()
	var decoded struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("failed to decode error: %v (%s)", err, payload)
	}
	return decoded.Error
}

func titles(payloads []linkPayload) string {
	names := make([]string, 0, len(payloads))
	for _, payload := range payloads {
		names = append(names, payload.Title)
	}
	return strings.Join(names, ",")
}
