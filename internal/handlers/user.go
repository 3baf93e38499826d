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

	"vidstream/internal/models"
)

type UpdateProfileRequest struct {
	UserName string `json:"userName" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
}

// ChannelProfile is a user viewed as a channel page: identity plus derived
// subscriber counts and whether the caller follows them.
type ChannelProfile struct {
	ID                primitive.ObjectID `bson:"_id" json:"id"`
	UserName          string             `bson:"userName" json:"userName"`
	FullName          string             `bson:"fullName" json:"fullName"`
	Email             string             `bson:"email" json:"email"`
	Avatar            string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	CoverImage        string             `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	SubscribersCount  int64              `bson:"subscribersCount" json:"subscribersCount"`
	SubscribedToCount int64              `bson:"subscribedToCount" json:"subscribedToCount"`
	IsSubscribed      bool               `bson:"isSubscribed" json:"isSubscribed"`
}

func GetMe(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := contextUserID(c)
		if !ok {
			log.Println("[USER] [ERROR] userId missing in context")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			log.Println("[USER] [ERROR] get me failed:", err)
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": profileOf(user)})
	}
}

func UpdateProfile(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := contextUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		userName := strings.ToLower(strings.TrimSpace(req.UserName))
		fullName := strings.TrimSpace(req.FullName)
		if userName == "" || fullName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userName and fullName are required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		_, err := db.Collection("users").UpdateByID(ctx, userID, bson.M{
			"$set": bson.M{
				"userName":  userName,
				"fullName":  fullName,
				"updatedAt": time.Now(),
			},
		})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "userName already taken"})
				return
			}
			log.Println("[USER] [ERROR] profile update failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		log.Println("[USER] [INFO] profile updated:", user.UserName)
		c.JSON(http.StatusOK, gin.H{"user": profileOf(user)})
	}
}

// GetChannelProfile looks a user up by handle and derives their channel
// page in one aggregation: both subscription directions are joined in and
// counted, never read from stored counters.
func GetChannelProfile(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users/c/:userName"
		defer handlePanic(c, route)

		callerID, ok := contextUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		userName := strings.ToLower(strings.TrimSpace(c.Param("userName")))
		if userName == "" {
			respondWithError(c, http.StatusBadRequest, route, "invalid user name")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		pipeline := mongo.Pipeline{
			bson.D{{Key: "$match", Value: bson.M{"userName": userName}}},
			bson.D{{Key: "$lookup", Value: bson.M{
				"from":         "subscriptions",
				"localField":   "_id",
				"foreignField": "channelId",
				"as":           "subscribers",
			}}},
			bson.D{{Key: "$lookup", Value: bson.M{
				"from":         "subscriptions",
				"localField":   "_id",
				"foreignField": "subscriberId",
				"as":           "subscribedTo",
			}}},
			bson.D{{Key: "$addFields", Value: bson.M{
				"subscribersCount":  bson.M{"$size": "$subscribers"},
				"subscribedToCount": bson.M{"$size": "$subscribedTo"},
				"isSubscribed": bson.M{
					"$in": bson.A{callerID, "$subscribers.subscriberId"},
				},
			}}},
			bson.D{{Key: "$project", Value: bson.M{
				"_id":               1,
				"userName":          1,
				"fullName":          1,
				"email":             1,
				"avatar":            1,
				"coverImage":        1,
				"subscribersCount":  1,
				"subscribedToCount": 1,
				"isSubscribed":      1,
			}}},
		}

		cursor, err := db.Collection("users").Aggregate(ctx, pipeline)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		var profiles []ChannelProfile
		if err := cursor.All(ctx, &profiles); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}
		if len(profiles) == 0 {
			respondWithError(c, http.StatusNotFound, route, "channel does not exist")
			return
		}

		log.Printf("[%s] profile fetched for %s", route, userName)
		c.JSON(http.StatusOK, gin.H{"channel": profiles[0]})
	}
}
