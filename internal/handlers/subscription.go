package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"vidstream/internal/models"
)

// SubscriberEntry is one row of a channel's subscriber listing.
type SubscriberEntry struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar,omitempty"`
}

// SubscribedChannelEntry is one row of a user's subscribed-channels listing.
type SubscribedChannelEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Logo        string `json:"logo,omitempty"`
}

// ToggleSubscription creates the (subscriber, channel) edge if absent and
// deletes it if present. The unique compound index decides concurrent
// creates: the loser's duplicate-key error is reported as subscribed=true,
// same as if its insert had won.
func ToggleSubscription(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /subscriptions/:channelId"
		defer handlePanic(c, route)

		userID, ok := contextUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		channelID, err := pathObjectID(c, "channelId")
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid channel id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var channel models.Channel
		if err := db.Collection("channels").FindOne(ctx, bson.M{"_id": channelID}).Decode(&channel); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "channel not found")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if channel.Owner == userID {
			respondWithError(c, http.StatusBadRequest, route, "cannot subscribe to own channel")
			return
		}

		filter := bson.M{"subscriberId": userID, "channelId": channelID}

		res, err := db.Collection("subscriptions").DeleteOne(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount > 0 {
			log.Printf("[%s] unsubscribed %s from %s", route, userID.Hex(), channelID.Hex())
			c.JSON(http.StatusOK, gin.H{"subscribed": false})
			return
		}

		edge := models.Subscription{
			SubscriberID:   userID,
			ChannelID:      channelID,
			SubscriberName: c.GetString("userName"),
			CreatedAt:      time.Now(),
		}
		if _, err := db.Collection("subscriptions").InsertOne(ctx, edge); err != nil {
			if !mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			// A concurrent toggle already created the edge; merge.
			log.Printf("[%s] duplicate edge merged for %s -> %s", route, userID.Hex(), channelID.Hex())
		}

		log.Printf("[%s] subscribed %s to %s", route, userID.Hex(), channelID.Hex())
		c.JSON(http.StatusOK, gin.H{"subscribed": true})
	}
}

// GetChannelSubscribers joins subscription edges against user identities,
// ordered by subscription time. No subscribers is an empty list, not an
// error.
func GetChannelSubscribers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /subscriptions/channel/:channelId"
		defer handlePanic(c, route)

		channelID, err := pathObjectID(c, "channelId")
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid channel id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		pipeline := mongo.Pipeline{
			bson.D{{Key: "$match", Value: bson.M{"channelId": channelID}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
			bson.D{{Key: "$lookup", Value: bson.M{
				"from":         "users",
				"localField":   "subscriberId",
				"foreignField": "_id",
				"as":           "subscriber",
			}}},
			bson.D{{Key: "$unwind", Value: "$subscriber"}},
			bson.D{{Key: "$project", Value: bson.M{
				"_id":      "$subscriber._id",
				"userName": "$subscriber.userName",
				"fullName": "$subscriber.fullName",
				"avatar":   "$subscriber.avatar",
			}}},
		}

		cursor, err := db.Collection("subscriptions").Aggregate(ctx, pipeline)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		subscribers := []SubscriberEntry{}
		for cursor.Next(ctx) {
			var row struct {
				ID       primitive.ObjectID `bson:"_id"`
				UserName string             `bson:"userName"`
				FullName string             `bson:"fullName"`
				Avatar   string             `bson:"avatar"`
			}
			if err := cursor.Decode(&row); err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "decode error")
				return
			}
			subscribers = append(subscribers, SubscriberEntry{
				ID:       row.ID.Hex(),
				UserName: row.UserName,
				FullName: row.FullName,
				Avatar:   row.Avatar,
			})
		}
		if err := cursor.Err(); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Printf("[%s] returning %d subscribers", route, len(subscribers))
		c.JSON(http.StatusOK, gin.H{"subscribers": subscribers})
	}
}

// GetSubscribedChannels is the symmetric join: the channels a user follows.
func GetSubscribedChannels(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /subscriptions/user/:subscriberId"
		defer handlePanic(c, route)

		subscriberID, err := pathObjectID(c, "subscriberId")
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid subscriber id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		pipeline := mongo.Pipeline{
			bson.D{{Key: "$match", Value: bson.M{"subscriberId": subscriberID}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
			bson.D{{Key: "$lookup", Value: bson.M{
				"from":         "channels",
				"localField":   "channelId",
				"foreignField": "_id",
				"as":           "channel",
			}}},
			bson.D{{Key: "$unwind", Value: "$channel"}},
			bson.D{{Key: "$project", Value: bson.M{
				"_id":         "$channel._id",
				"name":        "$channel.name",
				"description": "$channel.description",
				"logo":        "$channel.logo",
			}}},
		}

		cursor, err := db.Collection("subscriptions").Aggregate(ctx, pipeline)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		channels := []SubscribedChannelEntry{}
		for cursor.Next(ctx) {
			var row struct {
				ID          primitive.ObjectID `bson:"_id"`
				Name        string             `bson:"name"`
				Description string             `bson:"description"`
				Logo        string             `bson:"logo"`
			}
			if err := cursor.Decode(&row); err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "decode error")
				return
			}
			channels = append(channels, SubscribedChannelEntry{
				ID:          row.ID.Hex(),
				Name:        row.Name,
				Description: row.Description,
				Logo:        row.Logo,
			})
		}
		if err := cursor.Err(); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Printf("[%s] returning %d channels", route, len(channels))
		c.JSON(http.StatusOK, gin.H{"channels": channels})
	}
}
