package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/harold2001/financer-manager-api/internal/command"
	"github.com/harold2001/financer-manager-api/internal/identity"
	"github.com/harold2001/financer-manager-api/internal/query"
	"github.com/harold2001/financer-manager-api/internal/repository"
	"github.com/harold2001/financer-manager-api/internal/store"
	"github.com/harold2001/financer-manager-api/shared/events"
	"github.com/harold2001/financer-manager-api/shared/models"
	"github.com/rs/zerolog"
)

func newTestApp(t *testing.T) *gin.Engine {
	t.Helper()
	router, _ := newTestAppWithStore(t)
	return router
}

// newTestAppWithStore wires the real services on the in-memory store with
// in-process event delivery.
func newTestAppWithStore(t *testing.T) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()
	s := store.NewMemoryStore()

	provider, err := identity.NewJWTProvider(s.Collection(identity.CredentialsCollection), identity.Config{
		Secret: "router-test-secret",
		Issuer: "financer-manager-api",
	})
	if err != nil {
		t.Fatal(err)
	}

	txRead := repository.NewTransactionReadRepository(s, nil)
	userRead := repository.NewUserReadRepository(s, nil)
	bus := events.NewLocalPublisher()
	txCmd := command.NewTransactionCommandService(repository.NewTransactionWriteRepository(s), txRead, bus, log)
	userCmd := command.NewUserCommandService(repository.NewUserWriteRepository(s), userRead, bus, log)
	bus.Subscribe(events.UserEventsStream, txCmd.HandleUserEvent)
	userQry := query.NewUserQueryService(userRead)
	authCmd := command.NewAuthCommandService(provider, userCmd, log)

	router := NewRouter(Handlers{
		Auth:         NewAuthHandler(authCmd, query.NewAuthQueryService(provider, userQry, query.Check{Name: "store", Pinger: s}), log),
		Users:        NewUserHandler(userCmd, authCmd, userQry, log),
		Transactions: NewTransactionHandler(txCmd, query.NewTransactionQueryService(txRead), log),
	}, provider, log)
	return router, s
}

func call(router *gin.Engine, method, url, token, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()
	w := call(router, http.MethodPost, "/auth/register", "", `{"email":"`+email+`","password":"s3cretpass","name":"Test"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, w.Code, w.Body.String())
	}
	var resp RegisterResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Token
}

func TestRouterPublicRoutes(t *testing.T) {
	router := newTestApp(t)
	for _, path := range []string{"/", "/health", "/auth/status"} {
		w := call(router, http.MethodGet, path, "", "")
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200 got %d", path, w.Code)
		}
	}
	if w := call(router, http.MethodGet, "/health", "", ""); w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestRouterRequiresToken(t *testing.T) {
	router := newTestApp(t)
	tests := []struct {
		method, path, token string
	}{
		{http.MethodGet, "/users/me", ""},
		{http.MethodGet, "/transactions", ""},
		{http.MethodPost, "/transactions/", ""},
		{http.MethodGet, "/transactions/tx-1", "garbage"},
	}
	for _, tt := range tests {
		w := call(router, tt.method, tt.path, tt.token, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 got %d", tt.method, tt.path, w.Code)
		}
	}
}

func TestRouterEndToEnd(t *testing.T) {
	router := newTestApp(t)
	ana := registerUser(t, router, "ana@example.com")
	ben := registerUser(t, router, "ben@example.com")

	w := call(router, http.MethodPost, "/auth/register", "", `{"email":"ANA@example.com","password":"s3cretpass","name":"Dup"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400 got %d", w.Code)
	}

	w = call(router, http.MethodPost, "/auth/login", "", `{"email":"ana@example.com","password":"wrong-password"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401 got %d", w.Code)
	}

	w = call(router, http.MethodPost, "/transactions", ana, `{"type":"expense","amount":50,"category":"food","date":"2024-01-11T08:00:00Z","user_id":"someone-else"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var created models.TransactionRecord
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	call(router, http.MethodPost, "/transactions", ana, `{"type":"income","amount":5000,"category":"salary","date":"2024-01-10T08:00:00Z"}`)

	w = call(router, http.MethodGet, "/transactions?type=expense", ana, "")
	var listed []models.TransactionRecord
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID || listed[0].UserID == "someone-else" {
		t.Fatalf("unexpected list %s", w.Body.String())
	}

	w = call(router, http.MethodGet, "/transactions/summary", ana, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"count":2`) {
		t.Fatalf("summary: %d %s", w.Code, w.Body.String())
	}

	w = call(router, http.MethodGet, "/transactions", ben, "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("other user's list should be empty: %s", w.Body.String())
	}

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		if w := call(router, method, "/transactions/"+created.ID, ben, ""); w.Code != http.StatusForbidden {
			t.Errorf("%s by non-owner: expected 403 got %d", method, w.Code)
		}
	}
	if w := call(router, http.MethodPut, "/transactions/"+created.ID, ben, `{"amount":1}`); w.Code != http.StatusForbidden {
		t.Errorf("PUT by non-owner: expected 403 got %d", w.Code)
	}

	w = call(router, http.MethodPut, "/transactions/"+created.ID, ana, `{"amount":75.5}`)
	var updated models.TransactionRecord
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatal(err)
	}
	if updated.Amount != 75.5 || updated.Category != "food" {
		t.Errorf("sparse update changed more than amount: %s", w.Body.String())
	}

	if w := call(router, http.MethodDelete, "/transactions/"+created.ID, ana, ""); w.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204 got %d", w.Code)
	}
	if w := call(router, http.MethodGet, "/transactions/"+created.ID, ana, ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404 got %d", w.Code)
	}

	if w := call(router, http.MethodDelete, "/users/me", ana, ""); w.Code != http.StatusNoContent {
		t.Errorf("delete profile: expected 204 got %d", w.Code)
	}
	if w := call(router, http.MethodGet, "/users/me", ana, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("token after account delete: expected 401 got %d", w.Code)
	}
}

func TestRouterRegisterEdgeCases(t *testing.T) {
	router := newTestApp(t)

	w := call(router, http.MethodPost, "/auth/register", "", `{"email":"noname@example.com","password":"s3cretpass"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register without name: expected 201 got %d %s", w.Code, w.Body.String())
	}
	var resp RegisterResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.User.Name != "" || resp.User.Email != "noname@example.com" {
		t.Errorf("unexpected user %+v", resp.User)
	}

	long := strings.Repeat("p", 80)
	w = call(router, http.MethodPost, "/auth/register", "", `{"email":"long@example.com","password":"`+long+`","name":"Long"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("over-long password: expected 400 got %d %s", w.Code, w.Body.String())
	}

	w = call(router, http.MethodPut, "/users/me", resp.Token, `{"name":null}`)
	if w.Code != http.StatusOK {
		t.Errorf("null name: expected 200 got %d %s", w.Code, w.Body.String())
	}
}

func TestRouterAccountDeletion(t *testing.T) {
	router, s := newTestAppWithStore(t)
	token := registerUser(t, router, "ana@example.com")
	credentials := `{"email":"ana@example.com","password":"s3cretpass"}`

	w := call(router, http.MethodPost, "/transactions/", token, `{"type":"expense","amount":5,"category":"food","date":"2024-01-02"}`)
	var created models.TransactionRecord
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.UserID == "" {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	if w := call(router, http.MethodDelete, "/users/me", token, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204 got %d", w.Code)
	}

	tests := []struct {
		name           string
		method, path   string
		token, body    string
		expectedStatus int
	}{
		{"login with deleted account", http.MethodPost, "/auth/login", "", credentials, http.StatusNotFound},
		{"old token cannot read profile", http.MethodGet, "/users/me", token, "", http.StatusUnauthorized},
		{"old token cannot update profile", http.MethodPut, "/users/me", token, `{"name":"x"}`, http.StatusUnauthorized},
		{"old token cannot create transactions", http.MethodPost, "/transactions/", token,
			`{"type":"expense","amount":5,"category":"food","date":"2024-01-02"}`, http.StatusUnauthorized},
		{"old token cannot delete again", http.MethodDelete, "/users/me", token, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(router, tt.method, tt.path, tt.token, tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected %d got %d; body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}

	remaining, err := s.Collection(repository.TransactionsCollection).Find(context.Background(),
		store.Query{}.Where(models.FieldUserID, store.OpEq, created.UserID))
	if err != nil || len(remaining) != 0 {
		t.Errorf("transactions should be purged, %d left (%v)", len(remaining), err)
	}

	fresh := registerUser(t, router, "ana@example.com")
	if w := call(router, http.MethodGet, "/users/me", fresh, ""); w.Code != http.StatusOK {
		t.Errorf("re-registered account: expected 200 got %d", w.Code)
	}
	if w := call(router, http.MethodPost, "/auth/login", "", credentials); w.Code != http.StatusOK {
		t.Errorf("login after re-register: expected 200 got %d", w.Code)
	}
}
