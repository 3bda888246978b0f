package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gestaopro/gestaopro-server/internal/auth"
	"github.com/gestaopro/gestaopro-server/internal/config"
	"github.com/gestaopro/gestaopro-server/internal/models"
	"github.com/gestaopro/gestaopro-server/internal/storage"
	"github.com/gestaopro/gestaopro-server/pkg/crypto"
)

const testSecret = "api-test-secret-api-test-secret-0123456789"

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Name: "gestaopro-server", Version: "test", Environment: config.EnvTest},
		API:     config.APIConfig{RequestTimeout: 10 * time.Second, AllowedOrigins: []string{"*"}},
		Web:     config.WebConfig{StaticDir: filepath.Join(t.TempDir(), "missing")},
		JWT:     config.JWTConfig{Secret: testSecret, Issuer: "gestaopro", TokenTTL: 7 * 24 * time.Hour},
		Auth:    config.AuthConfig{BcryptCost: bcrypt.MinCost, MinPasswordLength: 6},
		Gateway: config.GatewayConfig{MaxLimit: 1000},
	}
}

type testServer struct {
	t      *testing.T
	srv    *RESTServer
	store  *storage.MemoryStore
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	store := storage.NewMemoryStore()
	return &testServer{
		t:      t,
		srv:    NewRESTServer(testConfig(t), store, nil),
		store:  store,
		tokens: map[string]string{},
	}
}

func (ts *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

// signup registers email with its own company and returns the token
func (ts *testServer) signup(email, company string) string {
	rec := ts.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"email":       email,
		"password":    "secret123",
		"fullName":    "Test " + email,
		"companyName": company,
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	msg, _ := decodeMap(t, rec)["error"].(string)
	return msg
}

// ========== Auth ==========

func TestSignup(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"email":       "Owner@Acme.com",
		"password":    "secret123",
		"fullName":    "Owner",
		"companyName": "Acme",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeMap(t, rec)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "owner@acme.com", user["email"])
	assert.Equal(t, "admin", user["role"])
	assert.NotEmpty(t, user["company_id"])
	assert.NotContains(t, user, "password_hash")
	assert.NotEmpty(t, body["token"])

	sess := body["session"].(map[string]interface{})
	assert.Equal(t, body["token"], sess["access_token"])
	assert.Equal(t, "bearer", sess["token_type"])
	assert.Equal(t, float64(7*24*3600), sess["expires_in"])
}

func TestSignup_Duplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("ana@example.com", "")

	rec := ts.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "ana@example.com", "password": "another1", "fullName": "Ana",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, auth.MsgEmailTaken, errorOf(t, rec))
}

func TestSignup_Validation(t *testing.T) {
	ts := newTestServer(t)

	cases := map[string]map[string]string{
		"missing name":   {"email": "a@example.com", "password": "secret123"},
		"invalid email":  {"email": "not-an-email", "password": "secret123", "fullName": "A"},
		"short password": {"email": "a@example.com", "password": "123", "fullName": "A"},
		"missing email":  {"password": "secret123", "fullName": "A"},
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/auth/signup", "", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, errorOf(t, rec))
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignin(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("ana@example.com", "Acme")

	rec := ts.do(http.MethodPost, "/auth/signin", "", map[string]string{
		"email": "ana@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.MsgInvalidCredentials, errorOf(t, rec))

	rec = ts.do(http.MethodPost, "/auth/signin", "", map[string]string{
		"email": "nobody@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/auth/signin", "", map[string]string{"email": "ana@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/auth/signin", "", map[string]string{
		"email": "ANA@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "ana@example.com", body["user"].(map[string]interface{})["email"])
}

func TestSession(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup("ana@example.com", "")

	rec := ts.do(http.MethodGet, "/auth/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "ana@example.com", body["user"].(map[string]interface{})["email"])
	sess := body["session"].(map[string]interface{})
	assert.Equal(t, token, sess["access_token"])
	assert.Greater(t, sess["expires_in"].(float64), float64(0))

	rec = ts.do(http.MethodGet, "/auth/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "bearer  "+token)
	rec = httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, token, decodeMap(t, rec)["session"].(map[string]interface{})["access_token"])

	rec = ts.do(http.MethodPost, "/auth/signout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, msgSignedOut, decodeMap(t, rec)["message"])
}

// ========== Data gateway ==========

func TestData_UnregisteredTableWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := ts.do(method, "/data/users", "", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, msgTableNotAllowed, errorOf(t, rec))
	}
}

func TestData_MissingAndExpiredToken(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("ana@example.com", "Acme")

	rec := ts.do(http.MethodGet, "/data/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.MsgTokenRequired, errorOf(t, rec))

	profile, err := ts.store.GetProfileByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)

	past := time.Now().Add(-8 * 24 * time.Hour)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID.String(),
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(7 * 24 * time.Hour)),
		},
		UserID: profile.ID,
		Email:  profile.Email,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec = ts.do(http.MethodGet, "/data/products", expired, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, auth.MsgInvalidToken, errorOf(t, rec))
}

func TestData_RequiresCompany(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup("solo@example.com", "")

	rec := ts.do(http.MethodGet, "/data/products", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, auth.MsgNoCompany, errorOf(t, rec))
}

func TestData_TenantIsolationScenario(t *testing.T) {
	ts := newTestServer(t)
	tokenA := ts.signup("a@example.com", "Empresa A")
	tokenB := ts.signup("b@example.com", "Empresa B")

	rec := ts.do(http.MethodPost, "/data/products", tokenA, map[string]interface{}{"name": "Widget", "price": 10})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	widget := decodeMap(t, rec)
	widgetID := widget["id"].(string)
	assert.Equal(t, float64(10), widget["price"])

	// tenant A sees it
	rec = ts.do(http.MethodGet, "/data/products", tokenA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeList(t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, widgetID, rows[0]["id"])

	// tenant B does not
	rec = ts.do(http.MethodGet, "/data/products", tokenB, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	// nor can it write or delete it
	rec = ts.do(http.MethodPut, "/data/products/"+widgetID, tokenB, map[string]interface{}{"name": "Stolen"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, msgNotFound, errorOf(t, rec))

	rec = ts.do(http.MethodDelete, "/data/products/"+widgetID, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// owner updates and deletes
	rec = ts.do(http.MethodPut, "/data/products/"+widgetID, tokenA, map[string]interface{}{"price": 12.5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12.5, decodeMap(t, rec)["price"])
	assert.Equal(t, "Widget", decodeMap(t, rec)["name"])

	rec = ts.do(http.MethodDelete, "/data/products/"+widgetID, tokenA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, msgDeleted, decodeMap(t, rec)["message"])

	rec = ts.do(http.MethodDelete, "/data/products/"+widgetID, tokenA, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestData_CreateThenListByID(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup("a@example.com", "Empresa A")

	rec := ts.do(http.MethodPost, "/data/products", token, map[string]interface{}{"name": "Widget", "price": 10})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeMap(t, rec)

	rec = ts.do(http.MethodPost, "/data/products", token, map[string]interface{}{"name": "Gadget", "price": 20})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodGet, "/data/products?eq=id."+created["id"].(string), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeList(t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, created, rows[0])
}

func TestData_BadRequests(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup("a@example.com", "Empresa A")

	rec := ts.do(http.MethodPost, "/data/companies", token, map[string]interface{}{"name": "Another"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgTableNotAllowed, errorOf(t, rec))

	rec = ts.do(http.MethodPost, "/data/products", token, map[string]interface{}{"nome": "typo"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec), "nome")

	rec = ts.do(http.MethodGet, "/data/products?limit=0", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/data/products", token, []string{"not", "an", "object"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPut, "/data/products/not-a-uuid", token, map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestData_QueryParameters(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup("a@example.com", "Empresa A")

	for _, name := range []string{"b", "a", "c"} {
		rec := ts.do(http.MethodPost, "/data/customers", token, map[string]interface{}{"name": name, "city": "Recife"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := ts.do(http.MethodGet, "/data/customers?select=name&order=name.desc&limit=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []map[string]interface{}{{"name": "c"}, {"name": "b"}}, decodeList(t, rec))

	rec = ts.do(http.MethodGet, "/data/customers?eq=name.a&select=name,city", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []map[string]interface{}{{"name": "a", "city": "Recife"}}, decodeList(t, rec))
}

func TestData_CompanyWritesRequireAdmin(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.signup("owner@example.com", "Acme")

	owner, err := ts.store.GetProfileByEmail(context.Background(), "owner@example.com")
	require.NoError(t, err)

	hash, err := crypto.HashPassword("secret123", bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, ts.store.CreateProfile(context.Background(), &models.Profile{
		Email:        "clerk@example.com",
		PasswordHash: hash,
		Role:         models.RoleUser,
		CompanyID:    owner.CompanyID,
	}))

	rec := ts.do(http.MethodPost, "/auth/signin", "", map[string]string{"email": "clerk@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	clerkToken := decodeMap(t, rec)["token"].(string)

	companyPath := "/data/companies/" + owner.CompanyID.String()

	rec = ts.do(http.MethodPut, companyPath, clerkToken, map[string]interface{}{"name": "Renamed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, auth.MsgForbidden, errorOf(t, rec))

	rec = ts.do(http.MethodGet, "/data/companies", clerkToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeList(t, rec), 1)

	rec = ts.do(http.MethodPut, companyPath, adminToken, map[string]interface{}{"name": "Renamed", "document": "12.345.678/0001-90"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", decodeMap(t, rec)["name"])

	// the clerk cannot promote itself
	rec = ts.do(http.MethodPut, "/data/profiles/"+uuid.Nil.String(), clerkToken, map[string]interface{}{"role": "admin"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ========== Health, metrics, web ==========

type downStore struct {
	*storage.MemoryStore
}

func (downStore) Ping(ctx context.Context) error {
	return errors.New("dial tcp: connection refused")
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for path, status := range map[string]string{
		"/health":       "ok",
		"/health/live":  "alive",
		"/health/ready": "ready",
		"/health/db":    "connected",
	} {
		rec := ts.do(http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, status, decodeMap(t, rec)["status"], path)
	}

	rec := ts.do(http.MethodGet, "/health/detailed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.Contains(t, body, "memory")
	assert.Contains(t, body, "goroutines")
	assert.Equal(t, "connected", body["database"].(map[string]interface{})["status"])
}

func TestHealthEndpoints_DatabaseDown(t *testing.T) {
	srv := NewRESTServer(testConfig(t), downStore{storage.NewMemoryStore()}, nil)

	for _, path := range []string{"/health/ready", "/health/db", "/health/detailed"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodGet, "/health", "", nil)

	rec := ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gestaopro_http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebUI(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	cfg := testConfig(t)
	cfg.Web.StaticDir = dir
	srv := NewRESTServer(cfg, storage.NewMemoryStore(), nil)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/dashboard/products")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "app</html>")

	rec = get("/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console.log")

	// API routes still win
	rec = get("/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}
