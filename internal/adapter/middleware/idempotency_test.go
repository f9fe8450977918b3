package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"sme-lending-backend/internal/domain/lending"
)

const (
	testReqID   = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testSubject = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// fakeAuth stands in for AuthMiddleware: it plants a fixed actor so the
// idempotency key has a subject to bind to.
func fakeAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(actorContextKey, lending.Actor{SubjectID: testSubject, UserID: "user-1", Role: lending.RoleOperations})
		return next(c)
	}
}

func setupEcho(rdb *redis.Client, ttl time.Duration, authed bool, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	if authed {
		e.Use(fakeAuth)
	}
	e.Use(IdempotencyMiddleware(rdb, ttl))
	e.POST("/applications", handler)
	e.GET("/applications", handler)
	return e
}

func doReq(t *testing.T, e *echo.Echo, method string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/applications", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func validHeaders() map[string]string {
	return map[string]string{
		"X-Request-Id": testReqID,
		"X-Request-At": time.Now().UTC().Format(time.RFC3339),
	}
}

func createdHandler(c echo.Context) error {
	return c.JSON(http.StatusCreated, map[string]any{"ok": true})
}

func Test_BypassOnGET(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	e := setupEcho(rdb, 30*time.Second, true, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// no idempotency headers at all
	rec := doReq(t, e, http.MethodGet, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET bypass: want 200, got %d", rec.Code)
	}
}

func Test_HeaderValidation(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	e := setupEcho(rdb, 30*time.Second, true, createdHandler)

	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"missing request id", func(h map[string]string) { delete(h, "X-Request-Id") }},
		{"malformed request id", func(h map[string]string) { h["X-Request-Id"] = "NOT-VALID" }},
		{"missing request at", func(h map[string]string) { delete(h, "X-Request-At") }},
		{"malformed request at", func(h map[string]string) { h["X-Request-At"] = "not-a-time" }},
		{"skewed request at", func(h map[string]string) {
			h["X-Request-At"] = time.Now().UTC().Add(-maxClockSkew - time.Minute).Format(time.RFC3339)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := validHeaders()
			tc.mutate(h)
			rec := doReq(t, e, http.MethodPost, strings.NewReader(`{"x":1}`), h)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d (%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func Test_RequiresAuthenticatedActor(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	e := setupEcho(rdb, 30*time.Second, false, createdHandler)

	rec := doReq(t, e, http.MethodPost, strings.NewReader(`{"x":1}`), validHeaders())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func Test_HappyPath_Then_Replay(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	e := setupEcho(rdb, 2*time.Minute, true, createdHandler)

	h := validHeaders()
	body := `{"funding_amount":100000000}`

	rec1 := doReq(t, e, http.MethodPost, strings.NewReader(body), h)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first request: want 201, got %d (%s)", rec1.Code, rec1.Body.String())
	}

	// same id, same body: the stored response is replayed without rerunning
	// the handler
	rec2 := doReq(t, e, http.MethodPost, strings.NewReader(body), h)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay: want 201, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
}

func Test_Conflict_DifferentBody(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	e := setupEcho(rdb, 2*time.Minute, true, createdHandler)

	h := validHeaders()
	rec := doReq(t, e, http.MethodPost, strings.NewReader(`{"x":1}`), h)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first request: want 201, got %d", rec.Code)
	}

	rec = doReq(t, e, http.MethodPost, strings.NewReader(`{"x":2}`), h)
	if rec.Code != http.StatusConflict {
		t.Fatalf("reused id with new body: want 409, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func Test_Conflict_WhileInProgress(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	e := setupEcho(rdb, 2*time.Minute, true, createdHandler)

	body := []byte(`{"x":1}`)
	key := buildKey(http.MethodPost, "/applications", testSubject, testReqID)
	entry := idempEntry{
		InProgress:  true,
		BodySHA256:  bodyHash(body),
		RequestID:   testReqID,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   nowUTC(),
	}
	if ok, err := provisionalSet(context.Background(), rdb, key, entry); err != nil || !ok {
		t.Fatalf("seed provisional: ok=%v err=%v", ok, err)
	}

	rec := doReq(t, e, http.MethodPost, bytes.NewReader(body), validHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-progress duplicate: want 409, got %d (%s)", rec.Code, rec.Body.String())
	}
}
