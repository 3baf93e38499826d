package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Like edges are written by the like endpoints outside this core; channel
// stats only count them.
type Like struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Video     primitive.ObjectID `bson:"video" json:"video"`
	LikedBy   primitive.ObjectID `bson:"likedBy" json:"likedBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
