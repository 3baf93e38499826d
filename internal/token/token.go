// Package token issues and verifies the paired access/refresh JWTs. It is
// pure signing and verification; which refresh token is currently valid for
// a user is tracked on the user document by the auth handlers, not here.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vidstream/internal/models"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Config carries the two signing secrets and their expiries. Access and
// refresh tokens are signed with distinct secrets so one can never be
// presented in place of the other.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Claims is the decoded, validated claim set of either token kind. For
// refresh tokens only UserID is populated.
type Claims struct {
	UserID   primitive.ObjectID
	UserName string
	Email    string
	FullName string
}

// IssuePair signs a fresh access/refresh token pair for user. The refresh
// token carries a random jti so two pairs issued within the same second
// still differ byte-for-byte; the rotation guard depends on that.
func IssuePair(cfg Config, user models.User) (string, string, error) {
	now := time.Now()

	accessClaims := jwt.MapClaims{
		"userId":   user.ID.Hex(),
		"userName": user.UserName,
		"email":    user.Email,
		"fullName": user.FullName,
		"exp":      now.Add(cfg.AccessTTL).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).
		SignedString([]byte(cfg.AccessSecret))
	if err != nil {
		return "", "", err
	}

	refreshClaims := jwt.MapClaims{
		"userId": user.ID.Hex(),
		"jti":    uuid.NewString(),
		"exp":    now.Add(cfg.RefreshTTL).Unix(),
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).
		SignedString([]byte(cfg.RefreshSecret))
	if err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

// VerifyAccess checks signature and expiry of an access token and returns
// its claims. No I/O.
func VerifyAccess(cfg Config, tokenString string) (Claims, error) {
	mapClaims, err := verify(tokenString, cfg.AccessSecret)
	if err != nil {
		return Claims{}, err
	}

	claims := Claims{
		UserName: stringClaim(mapClaims, "userName"),
		Email:    stringClaim(mapClaims, "email"),
		FullName: stringClaim(mapClaims, "fullName"),
	}
	claims.UserID, err = objectIDClaim(mapClaims, "userId")
	if err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// VerifyRefresh checks signature and expiry of a refresh token. Whether the
// token is the user's current one is the caller's comparison to make.
func VerifyRefresh(cfg Config, tokenString string) (Claims, error) {
	mapClaims, err := verify(tokenString, cfg.RefreshSecret)
	if err != nil {
		return Claims{}, err
	}

	var claims Claims
	claims.UserID, err = objectIDClaim(mapClaims, "userId")
	if err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func verify(tokenString, secret string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return value
}

func objectIDClaim(claims jwt.MapClaims, key string) (primitive.ObjectID, error) {
	raw, ok := claims[key].(string)
	if !ok || raw == "" {
		return primitive.NilObjectID, ErrTokenInvalid
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, ErrTokenInvalid
	}
	return id, nil
}
