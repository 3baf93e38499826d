package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a platform account. RefreshToken holds the single
// currently-valid refresh token; it is empty after logout.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserName     string             `bson:"userName" json:"userName"`
	Email        string             `bson:"email" json:"email"`
	FullName     string             `bson:"fullName" json:"fullName"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Avatar       string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	CoverImage   string             `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	RefreshToken string             `bson:"refreshToken,omitempty" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
