package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/custodyledger/internal/auth"
	"github.com/jmerrifield20/custodyledger/internal/custody/handler"
)

func setupAuthRouter(t *testing.T, tokens *auth.TokenIssuer) *gin.Engine {
	t.Helper()
	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler.NewAuthHandler(auth.Operators{"alice": hash}, tokens, zap.NewNop()).Register(r.Group("/api/v1"))
	return r
}

func TestAuthToken_200(t *testing.T) {
	tokens := auth.NewTokenIssuer([]byte("secret"), "custodyd", time.Hour)
	router := setupAuthRouter(t, tokens)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/token", map[string]string{
		"operator": "alice", "password": "hunter2",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp) //nolint:errcheck
	claims, err := tokens.Verify(resp["token"])
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Operator != "alice" {
		t.Errorf("operator: got %q", claims.Operator)
	}
	if _, err := time.Parse(time.RFC3339, resp["expires_at"]); err != nil {
		t.Errorf("expires_at: %v", err)
	}
}

func TestAuthToken_401(t *testing.T) {
	router := setupAuthRouter(t, auth.NewTokenIssuer([]byte("secret"), "custodyd", time.Hour))
	w := doJSON(router, http.MethodPost, "/api/v1/auth/token", map[string]string{
		"operator": "alice", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthToken_400(t *testing.T) {
	router := setupAuthRouter(t, auth.NewTokenIssuer([]byte("secret"), "custodyd", time.Hour))
	w := doJSON(router, http.MethodPost, "/api/v1/auth/token", map[string]string{"operator": "alice"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthToken_disabled(t *testing.T) {
	router := setupAuthRouter(t, nil)
	w := doJSON(router, http.MethodPost, "/api/v1/auth/token", map[string]string{
		"operator": "alice", "password": "hunter2",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
