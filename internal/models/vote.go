package models

import "time"

// VoteRecord is a single entry in one of the remote vote/report collections.
// The three collections (up-votes, down-votes, reports) share this shape.
type VoteRecord struct {
	BotID     string    `json:"bot_id" bson:"bot_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
