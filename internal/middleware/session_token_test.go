package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vigilbox/vigil-backend/internal/config"
	"github.com/vigilbox/vigil-backend/internal/service"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testTokens() *service.TokenService {
	return service.NewTokenService(&config.Config{
		JWTSecret: "middleware-test-secret",
		JWTExpiry: time.Hour,
	})
}

// guardedRouter mounts a probe route behind the given guard. The probe echoes
// the session id the middleware stored in the context.
func guardedRouter(guard gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/sessions/:session_id/probe", guard, func(c *gin.Context) {
		id, ok := SessionID(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no session id in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": id.String()})
	})
	return r
}

func TestRequireSessionTokenMissing(t *testing.T) {
	tokens := testTokens()
	r := guardedRouter(RequireSessionToken(tokens))

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.NewString()+"/probe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireSessionTokenGarbage(t *testing.T) {
	tokens := testTokens()
	r := guardedRouter(RequireSessionToken(tokens))

	for _, tok := range []string{"nonsense", "a.b.c"} {
		req := httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.NewString()+"/probe", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", tok, w.Code)
		}
	}
}

func TestRequireSessionTokenForeignSession(t *testing.T) {
	tokens := testTokens()
	r := guardedRouter(RequireSessionToken(tokens))

	token, err := tokens.Generate(uuid.New())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Valid token, but for a different session than the route names.
	req := httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.NewString()+"/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRequireSessionTokenMatch(t *testing.T) {
	tokens := testTokens()
	r := guardedRouter(RequireSessionToken(tokens))

	sessionID := uuid.New()
	token, err := tokens.Generate(sessionID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID.String()+"/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.SessionID != sessionID.String() {
		t.Errorf("context session id = %q, want %q", body.SessionID, sessionID)
	}
}

func TestRequireSessionTokenBadRouteID(t *testing.T) {
	tokens := testTokens()
	r := guardedRouter(RequireSessionToken(tokens))

	token, err := tokens.Generate(uuid.New())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/sessions/not-a-uuid/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRequireSessionTokenQueryFallback(t *testing.T) {
	tokens := testTokens()
	r := guardedRouter(RequireSessionToken(tokens))

	sessionID := uuid.New()
	token, err := tokens.Generate(sessionID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID.String()+"/probe?token="+token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequireSessionWSAuth(t *testing.T) {
	tokens := testTokens()
	r := guardedRouter(RequireSessionWSAuth(tokens))

	sessionID := uuid.New()
	token, err := tokens.Generate(sessionID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// The WS guard only reads the query parameter.
	req := httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID.String()+"/probe?token="+token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("query token: status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID.String()+"/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("header token: status = %d, want 401", w.Code)
	}
}
