package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subscription is one edge of the subscriber → channel graph. A unique
// compound index on (subscriberId, channelId) keeps the edge set free of
// duplicates.
type Subscription struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SubscriberID   primitive.ObjectID `bson:"subscriberId" json:"subscriberId"`
	ChannelID      primitive.ObjectID `bson:"channelId" json:"channelId"`
	SubscriberName string             `bson:"subscriberName" json:"subscriberName"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
