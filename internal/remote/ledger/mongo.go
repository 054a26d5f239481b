package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/botforge/botforge/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

const (
	upVotesCollection   = "up_votes"
	downVotesCollection = "down_votes"
	reportsCollection   = "reports"
)

// Connect opens a MongoDB client and verifies the connection
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		if dcErr := client.Disconnect(ctx); dcErr != nil {
			_ = dcErr
		}
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// NewMongo wires a Ledger over the three collections in the given database
func NewMongo(client *mongo.Client, dbName string, logger *zap.Logger) *Ledger {
	db := client.Database(dbName)
	return New(
		&mongoCollection{coll: db.Collection(upVotesCollection)},
		&mongoCollection{coll: db.Collection(downVotesCollection)},
		&mongoCollection{coll: db.Collection(reportsCollection)},
		logger,
	)
}

// mongoCollection adapts a mongo collection to the ledger's Collection
// surface
type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Insert(ctx context.Context, rec *models.VoteRecord) error {
	if _, err := c.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (c *mongoCollection) Remove(ctx context.Context, botID, userID string) error {
	filter := bson.D{
		{Key: "bot_id", Value: botID},
		{Key: "user_id", Value: userID},
	}
	if _, err := c.coll.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}

func (c *mongoCollection) Exists(ctx context.Context, botID, userID string) (bool, error) {
	filter := bson.D{
		{Key: "bot_id", Value: botID},
		{Key: "user_id", Value: userID},
	}
	count, err := c.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to query records: %w", err)
	}
	return count > 0, nil
}

func (c *mongoCollection) CountByBot(ctx context.Context, botID string) (int64, error) {
	filter := bson.D{{Key: "bot_id", Value: botID}}
	count, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

var _ Collection = (*mongoCollection)(nil)
