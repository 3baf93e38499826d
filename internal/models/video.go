package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Video view counters are incremented outside this service; channel stats
// read them but never write them.
type Video struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	VideoFile   string             `bson:"videoFile" json:"videoFile"`
	Thumbnail   string             `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Duration    float64            `bson:"duration,omitempty" json:"duration,omitempty"`
	Views       int64              `bson:"views" json:"views"`
	IsPublished bool               `bson:"isPublished" json:"isPublished"`
	Owner       primitive.ObjectID `bson:"owner" json:"owner"`
	ChannelID   primitive.ObjectID `bson:"channelId" json:"channelId"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
