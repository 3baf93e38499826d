package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel is owned by exactly one user. Subscriber/view/like totals are
// derived at read time, never stored on the document.
type Channel struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Email       string             `bson:"email" json:"email"`
	Logo        string             `bson:"logo,omitempty" json:"logo,omitempty"`
	Banner      string             `bson:"banner,omitempty" json:"banner,omitempty"`
	Owner       primitive.ObjectID `bson:"owner" json:"owner"`
	OwnerName   string             `bson:"ownerName" json:"ownerName"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
