package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"savings_auth/internal/auth"
	"savings_auth/internal/models"
	"savings_auth/internal/service"
	"savings_auth/internal/storage"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	st := storage.NewMemoryStorage()

	signer, err := auth.NewTokenSigner("test-signing-secret")
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}

	issuer := service.NewJWTTokenIssuer(signer, auth.NewRefreshTokenIssuer(st), 1)
	srvc := service.NewService(st, issuer, nil)

	lgr := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	return NewHandler(srvc, signer, nil, lgr).InitRoutes()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSignUpFlow(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/auth/signup", models.AccountInput{
		Email:    "a@x.com",
		Username: "a",
		Password: "Secret1!",
		Role:     "member",
	}, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var result models.AuthResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success || result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("unexpected auth result: %+v", result)
	}

	// Access token works against the protected profile endpoint.
	w = doJSON(t, router, http.MethodGet, "/auth/profile", nil, result.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var account models.Account
	if err := json.Unmarshal(w.Body.Bytes(), &account); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if account.Email != "a@x.com" {
		t.Fatalf("unexpected profile: %+v", account)
	}
}

func TestSignUpDuplicateReturnsBadRequest(t *testing.T) {
	router := newTestRouter(t)

	input := models.AccountInput{Email: "a@x.com", Username: "a", Password: "Secret1!"}

	if w := doJSON(t, router, http.MethodPost, "/auth/signup", input, ""); w.Code != http.StatusCreated {
		t.Fatalf("first signup: expected 201, got %d", w.Code)
	}

	w := doJSON(t, router, http.MethodPost, "/auth/signup", input, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup: expected 400, got %d", w.Code)
	}

	var result models.AuthResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Success || len(result.Errors) == 0 {
		t.Fatalf("expected failure with errors, got %+v", result)
	}
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	router := newTestRouter(t)

	if w := doJSON(t, router, http.MethodGet, "/auth/profile", nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodGet, "/auth/profile", nil, "garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", w.Code)
	}
}

func TestLoginAndSavings(t *testing.T) {
	router := newTestRouter(t)

	signup := models.AccountInput{Email: "a@x.com", Username: "a", Password: "Secret1!"}
	if w := doJSON(t, router, http.MethodPost, "/auth/signup", signup, ""); w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", w.Code)
	}

	w := doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "Secret1!",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result models.AuthResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	w = doJSON(t, router, http.MethodPost, "/api/savings", models.SavingInput{
		Name:   "vacation",
		Amount: "1500.00",
	}, result.AccessToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("create saving: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/savings", nil, result.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("list savings: expected 200, got %d", w.Code)
	}

	var savings []models.Saving
	if err := json.Unmarshal(w.Body.Bytes(), &savings); err != nil {
		t.Fatalf("decode savings: %v", err)
	}
	if len(savings) != 1 || savings[0].Name != "vacation" {
		t.Fatalf("unexpected savings: %+v", savings)
	}

	w = doJSON(t, router, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": result.RefreshToken,
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestWrongPasswordIsUnauthorized(t *testing.T) {
	router := newTestRouter(t)

	signup := models.AccountInput{Email: "a@x.com", Username: "a", Password: "Secret1!"}
	if w := doJSON(t, router, http.MethodPost, "/auth/signup", signup, ""); w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", w.Code)
	}

	w := doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "Nope123!",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
