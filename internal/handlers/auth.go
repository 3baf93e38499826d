package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"vidstream/internal/models"
	"vidstream/internal/token"
)

type RegisterRequest struct {
	UserName string `json:"userName" binding:"required"`
	Email    string `json:"email" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
	Password string `json:"password" binding:"required"`
	Avatar   string `json:"avatar"`
}

type LoginRequest struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// ProfileResponse is a user with password hash and refresh token stripped.
type ProfileResponse struct {
	ID         string    `json:"id"`
	UserName   string    `json:"userName"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar,omitempty"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func profileOf(user models.User) ProfileResponse {
	return ProfileResponse{
		ID:         user.ID.Hex(),
		UserName:   user.UserName,
		Email:      user.Email,
		FullName:   user.FullName,
		Avatar:     user.Avatar,
		CoverImage: user.CoverImage,
		CreatedAt:  user.CreatedAt,
	}
}

func Register(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		userName := strings.ToLower(strings.TrimSpace(req.UserName))
		email := strings.ToLower(strings.TrimSpace(req.Email))
		fullName := strings.TrimSpace(req.FullName)
		if userName == "" || email == "" || fullName == "" || strings.TrimSpace(req.Password) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userName, email, fullName and password are required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, err := db.Collection("users").CountDocuments(ctx, bson.M{
			"$or": []bson.M{{"userName": userName}, {"email": email}},
		})
		if err != nil {
			log.Println("[AUTH] [ERROR] register db error:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if count > 0 {
			log.Println("[AUTH] [ERROR] register user exists:", userName)
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Println("[AUTH] [ERROR] register password hash failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "password hash failed"})
			return
		}

		now := time.Now()
		user := models.User{
			UserName:     userName,
			Email:        email,
			FullName:     fullName,
			PasswordHash: string(hash),
			Avatar:       strings.TrimSpace(req.Avatar),
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		res, err := db.Collection("users").InsertOne(ctx, user)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
				return
			}
			log.Println("[AUTH] [ERROR] register insert failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		user.ID, _ = res.InsertedID.(primitive.ObjectID)
		log.Println("[AUTH] [INFO] user registered:", userName)
		c.JSON(http.StatusCreated, gin.H{"user": profileOf(user)})
	}
}

// Login verifies credentials, issues a fresh token pair and overwrites the
// persisted refresh token. Unknown user and wrong password produce the same
// response so the endpoint cannot be used to probe for accounts.
func Login(db *mongo.Database, cfg token.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		userName := strings.ToLower(strings.TrimSpace(req.UserName))
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if userName == "" && email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userName or email is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{
			"$or": []bson.M{{"userName": userName}, {"email": email}},
		}).Decode(&user)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				log.Println("[AUTH] [ERROR] login invalid credentials")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			log.Println("[AUTH] [ERROR] login user lookup failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			log.Println("[AUTH] [ERROR] login invalid credentials")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		access, refresh, err := issueAndPersistPair(ctx, db, cfg, user)
		if err != nil {
			log.Println("[AUTH] [ERROR] login token issue failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
			return
		}

		setAuthCookies(c, access, refresh, cfg)

		log.Println("[AUTH] [INFO] user login succeeded:", user.UserName)
		c.JSON(http.StatusOK, gin.H{
			"accessToken":  access,
			"refreshToken": refresh,
			"user":         profileOf(user),
		})
	}
}

// Refresh rotates the token pair. The incoming token must verify and must
// byte-equal the persisted one; a verified token that no longer matches has
// already been rotated away, which is treated as possible theft.
func Refresh(db *mongo.Database, cfg token.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		incoming := incomingRefreshToken(c)
		if incoming == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token is required"})
			return
		}

		claims, err := token.VerifyRefresh(cfg, incoming)
		if err != nil {
			log.Println("[AUTH] [ERROR] refresh token verification failed:", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": claims.UserID}).Decode(&user); err != nil {
			if err == mongo.ErrNoDocuments {
				log.Println("[AUTH] [ERROR] refresh user not found")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
				return
			}
			log.Println("[AUTH] [ERROR] refresh user lookup failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		if user.RefreshToken == "" || user.RefreshToken != incoming {
			// A signed, unexpired token that is not the persisted one was
			// rotated away earlier. Do not re-issue; force a re-login.
			log.Println("[AUTH] [ERROR] refresh token reuse detected for user:", user.UserName)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token reuse detected"})
			return
		}

		access, refresh, err := issueAndPersistPair(ctx, db, cfg, user)
		if err != nil {
			log.Println("[AUTH] [ERROR] refresh token issue failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
			return
		}

		setAuthCookies(c, access, refresh, cfg)

		log.Println("[AUTH] [INFO] tokens refreshed for user:", user.UserName)
		c.JSON(http.StatusOK, gin.H{
			"accessToken":  access,
			"refreshToken": refresh,
		})
	}
}

// Logout clears the persisted refresh token unconditionally and expires
// both cookies. Calling it twice is harmless.
func Logout(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := contextUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		_, err := db.Collection("users").UpdateByID(ctx, userID, bson.M{
			"$unset": bson.M{"refreshToken": 1},
		})
		if err != nil {
			log.Println("[AUTH] [ERROR] logout update failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		clearAuthCookies(c)

		log.Println("[AUTH] [INFO] user logged out")
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

func ChangePassword(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := contextUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
			log.Println("[AUTH] [ERROR] change password old password mismatch")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid old password"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Println("[AUTH] [ERROR] change password hash failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "password hash failed"})
			return
		}

		_, err = db.Collection("users").UpdateByID(ctx, userID, bson.M{
			"$set": bson.M{"passwordHash": string(hash), "updatedAt": time.Now()},
		})
		if err != nil {
			log.Println("[AUTH] [ERROR] change password update failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		log.Println("[AUTH] [INFO] password changed for user:", user.UserName)
		c.JSON(http.StatusOK, gin.H{"message": "password changed"})
	}
}

// issueAndPersistPair signs a new pair and overwrites the user's persisted
// refresh token in a single $set. There is no read-modify-write here; the
// last writer's token is the only one the rotation guard will accept.
func issueAndPersistPair(ctx context.Context, db *mongo.Database, cfg token.Config, user models.User) (string, string, error) {
	access, refresh, err := token.IssuePair(cfg, user)
	if err != nil {
		return "", "", err
	}

	_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
		"$set": bson.M{"refreshToken": refresh},
	})
	if err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

func incomingRefreshToken(c *gin.Context) string {
	if cookie, err := c.Cookie("refresh_token"); err == nil {
		if trimmed := strings.TrimSpace(cookie); trimmed != "" {
			return trimmed
		}
	}

	// Body fallback. A missing or unparsable body just means no token.
	var req RefreshRequest
	_ = c.ShouldBindJSON(&req)
	return strings.TrimSpace(req.RefreshToken)
}

func setAuthCookies(c *gin.Context, access, refresh string, cfg token.Config) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("access_token", access, int(cfg.AccessTTL.Seconds()), "/", "", true, true)
	c.SetCookie("refresh_token", refresh, int(cfg.RefreshTTL.Seconds()), "/", "", true, true)
}

func clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("access_token", "", -1, "/", "", true, true)
	c.SetCookie("refresh_token", "", -1, "/", "", true, true)
}
