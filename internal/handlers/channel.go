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
	"go.mongodb.org/mongo-driver/mongo/options"

	"vidstream/internal/models"
)

type CreateChannelRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
	Banner      string `json:"banner"`
}

// ChannelStats are derived per request by fanning out over videos, likes
// and subscription edges. Nothing here is read from a stored counter.
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalViews       int64 `json:"totalViews"`
	TotalLikes       int64 `json:"totalLikes"`
}

func CreateChannel(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /channels"
		defer handlePanic(c, route)

		userID, ok := contextUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req CreateChannelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "channel name is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		channel := models.Channel{
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			Email:       c.GetString("email"),
			Logo:        strings.TrimSpace(req.Logo),
			Banner:      strings.TrimSpace(req.Banner),
			Owner:       userID,
			OwnerName:   c.GetString("userName"),
			CreatedAt:   time.Now(),
		}

		res, err := db.Collection("channels").InsertOne(ctx, channel)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusConflict, route, "channel name already exists")
				return
			}
			log.Printf("[%s] insert failed: %v", route, err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		channel.ID, _ = res.InsertedID.(primitive.ObjectID)
		log.Printf("[%s] channel created: %s", route, channel.Name)
		c.JSON(http.StatusCreated, gin.H{"channel": channel})
	}
}

// GetChannelStats counts videos, sums their view counters, counts like
// edges against those videos and counts subscription edges, each with its
// own query. A channel with no videos reports zeros.
func GetChannelStats(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /channels/:channelId/stats"
		defer handlePanic(c, route)

		channelID, err := pathObjectID(c, "channelId")
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid channel id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := db.Collection("channels").FindOne(ctx, bson.M{"_id": channelID}).Err(); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "channel not found")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cursor, err := db.Collection("videos").Find(ctx, bson.M{"channelId": channelID})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		var videos []models.Video
		if err := cursor.All(ctx, &videos); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		stats := ChannelStats{
			TotalVideos: int64(len(videos)),
			TotalViews:  sumVideoViews(videos),
		}

		if len(videos) > 0 {
			stats.TotalLikes, err = db.Collection("likes").CountDocuments(ctx, bson.M{
				"video": bson.M{"$in": videoIDs(videos)},
			})
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
		}

		stats.TotalSubscribers, err = db.Collection("subscriptions").CountDocuments(ctx, bson.M{
			"channelId": channelID,
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Printf("[%s] stats for %s: %+v", route, channelID.Hex(), stats)
		c.JSON(http.StatusOK, stats)
	}
}

func GetChannelVideos(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /channels/:channelId/videos"
		defer handlePanic(c, route)

		channelID, err := pathObjectID(c, "channelId")
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid channel id")
			return
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		pageStr := c.Query("page")
		limitStr := c.Query("limit")
		if pageStr != "" || limitStr != "" {
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
				return
			}
			findOptions.
				SetSkip((page - 1) * limit).
				SetLimit(limit)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := db.Collection("channels").FindOne(ctx, bson.M{"_id": channelID}).Err(); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "channel not found")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cursor, err := db.Collection("videos").Find(ctx, bson.M{"channelId": channelID}, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		videos := []models.Video{}
		if err := cursor.All(ctx, &videos); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		log.Printf("[%s] returning %d videos", route, len(videos))
		c.JSON(http.StatusOK, gin.H{"videos": videos})
	}
}

func sumVideoViews(videos []models.Video) int64 {
	var total int64
	for _, video := range videos {
		total += video.Views
	}
	return total
}

func videoIDs(videos []models.Video) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(videos))
	for _, video := range videos {
		ids = append(ids, video.ID)
	}
	return ids
}
