package model

import "time"

// Session backs one issued JWT; ID is the token's jti.
type Session struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Role      Role      `bson:"role"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}
