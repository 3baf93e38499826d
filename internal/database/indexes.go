package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userName", Value: 1}},
			Options: options.Index().
				SetName("userName_unique").
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
	}

	log.Println("EnsureUserIndexes: creating userName_unique, email_unique indexes")
	_, err := indexes.CreateMany(ctx, models)
	if err != nil {
		log.Println("EnsureUserIndexes: index error:", err)
		return err
	}
	return nil
}

func EnsureChannelIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("channels").Indexes()

	nameIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}},
		Options: options.Index().
			SetName("name_unique").
			SetUnique(true),
	}

	log.Println("EnsureChannelIndexes: creating name_unique index")
	_, err := indexes.CreateOne(ctx, nameIndex)
	if err != nil {
		log.Println("EnsureChannelIndexes: name index error:", err)
		return err
	}
	return nil
}

// EnsureSubscriptionIndexes enforces at most one edge per
// (subscriber, channel) pair. Toggle handlers rely on the duplicate-key
// error this index produces under concurrent creates.
func EnsureSubscriptionIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("subscriptions").Indexes()

	edgeIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "subscriberId", Value: 1},
			{Key: "channelId", Value: 1},
		},
		Options: options.Index().
			SetName("subscriber_channel_unique").
			SetUnique(true),
	}

	log.Println("EnsureSubscriptionIndexes: creating subscriber_channel_unique index")
	_, err := indexes.CreateOne(ctx, edgeIndex)
	if err != nil {
		log.Println("EnsureSubscriptionIndexes: edge index error:", err)
		return err
	}
	return nil
}

func EnsureVideoIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("videos").Indexes()

	channelIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "channelId", Value: 1}},
		Options: options.Index().SetName("channelId_index"),
	}

	log.Println("EnsureVideoIndexes: creating channelId_index index")
	_, err := indexes.CreateOne(ctx, channelIndex)
	if err != nil {
		log.Println("EnsureVideoIndexes: channelId index error:", err)
		return err
	}
	return nil
}

func EnsureLikeIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("likes").Indexes()

	videoIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "video", Value: 1}},
		Options: options.Index().SetName("video_index"),
	}

	log.Println("EnsureLikeIndexes: creating video_index index")
	_, err := indexes.CreateOne(ctx, videoIndex)
	if err != nil {
		log.Println("EnsureLikeIndexes: video index error:", err)
		return err
	}
	return nil
}
