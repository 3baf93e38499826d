package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"vidstream/internal/models"
	"vidstream/internal/token"
)

func asJSON(t *testing.T, value interface{}) string {
	t.Helper()
	body, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("json marshal failed: %v", err)
	}
	return string(body)
}

func testTokenConfig() token.Config {
	return token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    10 * 24 * time.Hour,
	}
}

func TestSetAuthCookies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/v1/users/login", nil)

	setAuthCookies(c, "access-value", "refresh-value", testTokenConfig())

	cookies := w.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, cookie := range cookies {
		if !cookie.HttpOnly || !cookie.Secure {
			t.Fatalf("expected HttpOnly and Secure on %s", cookie.Name)
		}
		if cookie.SameSite != http.SameSiteStrictMode {
			t.Fatalf("expected SameSite=Strict on %s", cookie.Name)
		}
	}
	if cookies[0].Name != "access_token" || cookies[0].Value != "access-value" {
		t.Fatalf("unexpected first cookie: %+v", cookies[0])
	}
	if cookies[1].Name != "refresh_token" || cookies[1].Value != "refresh-value" {
		t.Fatalf("unexpected second cookie: %+v", cookies[1])
	}
}

func TestClearAuthCookiesExpiresBoth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/v1/users/logout", nil)

	clearAuthCookies(c)

	cookies := w.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, cookie := range cookies {
		if cookie.Value != "" || cookie.MaxAge >= 0 {
			t.Fatalf("expected expired empty cookie, got %+v", cookie)
		}
	}
}

func TestIncomingRefreshTokenPrefersCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	body := strings.NewReader(`{"refreshToken":"from-body"}`)
	c.Request = httptest.NewRequest("POST", "/api/v1/users/refresh", body)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.AddCookie(&http.Cookie{Name: "refresh_token", Value: "from-cookie"})

	if got := incomingRefreshToken(c); got != "from-cookie" {
		t.Fatalf("expected cookie token, got %q", got)
	}
}

func TestIncomingRefreshTokenFallsBackToBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	body := strings.NewReader(`{"refreshToken":"from-body"}`)
	c.Request = httptest.NewRequest("POST", "/api/v1/users/refresh", body)
	c.Request.Header.Set("Content-Type", "application/json")

	if got := incomingRefreshToken(c); got != "from-body" {
		t.Fatalf("expected body token, got %q", got)
	}
}

func TestIncomingRefreshTokenEmptyWhenAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/api/v1/users/refresh", bytes.NewReader(nil))

	if got := incomingRefreshToken(c); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}

func TestProfileOfStripsSecrets(t *testing.T) {
	user := models.User{
		ID:           primitive.NewObjectID(),
		UserName:     "chai",
		Email:        "chai@example.com",
		FullName:     "Chai Aur Code",
		PasswordHash: "$2a$10$secret",
		RefreshToken: "some.refresh.token",
	}

	profile := profileOf(user)
	if profile.ID != user.ID.Hex() || profile.UserName != user.UserName {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	// ProfileResponse has no secret fields at all; guard the JSON shape.
	if strings.Contains(asJSON(t, profile), "secret") {
		t.Fatal("expected password hash to be absent from profile json")
	}
	if strings.Contains(asJSON(t, profile), "refresh") {
		t.Fatal("expected refresh token to be absent from profile json")
	}
}

func postRefresh(db *mongo.Database, cfg token.Config, refresh string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/users/refresh", Refresh(db, cfg))

	req := httptest.NewRequest("POST", "/api/v1/users/refresh", strings.NewReader(`{"refreshToken":"`+refresh+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionTestUser() models.User {
	return models.User{
		ID:       primitive.NewObjectID(),
		UserName: "chai",
		Email:    "chai@example.com",
		FullName: "Chai Aur Code",
	}
}

func userDoc(user models.User, refreshToken string) bson.D {
	doc := bson.D{
		{Key: "_id", Value: user.ID},
		{Key: "userName", Value: user.UserName},
		{Key: "email", Value: user.Email},
		{Key: "fullName", Value: user.FullName},
	}
	if refreshToken != "" {
		doc = append(doc, bson.E{Key: "refreshToken", Value: refreshToken})
	}
	return doc
}

func TestRefreshRotatesCurrentToken(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("current token succeeds", func(mt *mtest.T) {
		cfg := testTokenConfig()
		user := sessionTestUser()

		_, current, err := token.IssuePair(cfg, user)
		if err != nil {
			mt.Fatalf("IssuePair returned error: %v", err)
		}

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "vidstream.users", mtest.FirstBatch, userDoc(user, current)),
			mtest.CreateSuccessResponse(),
		)

		w := postRefresh(mt.DB, cfg, current)
		if w.Code != http.StatusOK {
			mt.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var resp struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			mt.Fatalf("response decode failed: %v", err)
		}
		if resp.AccessToken == "" || resp.RefreshToken == "" {
			mt.Fatalf("expected a fresh token pair, got %+v", resp)
		}
		if resp.RefreshToken == current {
			mt.Fatal("expected refresh token to be rotated, got the incoming one back")
		}
		if len(w.Result().Cookies()) != 2 {
			mt.Fatalf("expected both auth cookies to be rewritten, got %d", len(w.Result().Cookies()))
		}
	})
}

func TestRefreshRejectsRotatedToken(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("stale token", func(mt *mtest.T) {
		cfg := testTokenConfig()
		user := sessionTestUser()

		_, stale, err := token.IssuePair(cfg, user)
		if err != nil {
			mt.Fatalf("IssuePair returned error: %v", err)
		}
		_, current, err := token.IssuePair(cfg, user)
		if err != nil {
			mt.Fatalf("IssuePair returned error: %v", err)
		}

		// The persisted token has moved on; the stale one still verifies.
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "vidstream.users", mtest.FirstBatch, userDoc(user, current)),
		)

		w := postRefresh(mt.DB, cfg, stale)
		if w.Code != http.StatusUnauthorized {
			mt.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "reuse detected") {
			mt.Fatalf("expected reuse detection error, got %s", w.Body.String())
		}
	})
}

func TestRefreshAfterLogoutRejected(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("cleared token", func(mt *mtest.T) {
		cfg := testTokenConfig()
		user := sessionTestUser()

		_, old, err := token.IssuePair(cfg, user)
		if err != nil {
			mt.Fatalf("IssuePair returned error: %v", err)
		}

		// Logout unset the refreshToken field; the old token must not work.
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "vidstream.users", mtest.FirstBatch, userDoc(user, "")),
		)

		w := postRefresh(mt.DB, cfg, old)
		if w.Code != http.StatusUnauthorized {
			mt.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestRefreshGarbageTokenRejected(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("unverifiable token", func(mt *mtest.T) {
		w := postRefresh(mt.DB, testTokenConfig(), "not.a.jwt")
		if w.Code != http.StatusUnauthorized {
			mt.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestRefreshStoreFailureIsInternal(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("lookup failure", func(mt *mtest.T) {
		cfg := testTokenConfig()

		_, current, err := token.IssuePair(cfg, sessionTestUser())
		if err != nil {
			mt.Fatalf("IssuePair returned error: %v", err)
		}

		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11600,
			Message: "interrupted at shutdown",
			Name:    "InterruptedAtShutdown",
		}))

		w := postRefresh(mt.DB, cfg, current)
		if w.Code != http.StatusInternalServerError {
			mt.Fatalf("expected 500 for store failure, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestLogoutClearsCookies(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("logout", func(mt *mtest.T) {
		gin.SetMode(gin.TestMode)
		user := sessionTestUser()

		mt.AddMockResponses(mtest.CreateSuccessResponse())

		r := gin.New()
		r.POST("/api/v1/users/logout", func(c *gin.Context) {
			c.Set("userId", user.ID)
		}, Logout(mt.DB))

		req := httptest.NewRequest("POST", "/api/v1/users/logout", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			mt.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		cookies := w.Result().Cookies()
		if len(cookies) != 2 {
			mt.Fatalf("expected 2 cleared cookies, got %d", len(cookies))
		}
		for _, cookie := range cookies {
			if cookie.Value != "" || cookie.MaxAge >= 0 {
				mt.Fatalf("expected expired empty cookie, got %+v", cookie)
			}
		}
	})
}
