package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vidstream/gateway/internal/config"
	"github.com/vidstream/gateway/internal/storage"
	"github.com/vidstream/gateway/internal/types"
	"github.com/vidstream/gateway/internal/types/admins"
)

const (
	videosCollection = "videos"
	adminsCollection = "admins"
)

type MongoDB struct {
	client *mongo.Client
	videos *mongo.Collection
	admins *mongo.Collection
}

// NewMongoDB connects to the document store and prepares the collections the
// gateway uses.
func NewMongoDB(ctx context.Context, cfg *config.Config) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(cfg.Mongo.Database)

	m := &MongoDB{
		client: client,
		videos: db.Collection(videosCollection),
		admins: db.Collection(adminsCollection),
	}

	if err := m.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return m, nil
}

func (m *MongoDB) createIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := m.videos.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "reference", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "updatedAt", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = m.admins.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: unique,
	})
	return err
}

func (m *MongoDB) CreateVideo(ctx context.Context, video *types.Video) error {
	now := time.Now().UTC()
	video.CreatedAt = now
	video.UpdatedAt = now

	_, err := m.videos.InsertOne(ctx, video)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (m *MongoDB) FindVideoByReference(ctx context.Context, reference string) (*types.Video, error) {
	var video types.Video

	err := m.videos.FindOne(ctx, bson.M{"reference": reference}).Decode(&video)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find video: %w", err)
	}

	return &video, nil
}

func (m *MongoDB) FindAvailableVideos(ctx context.Context) ([]types.Video, error) {
	return m.findVideos(ctx, bson.M{"available": true})
}

func (m *MongoDB) FindVideosUpdatedSince(ctx context.Context, since time.Time) ([]types.Video, error) {
	return m.findVideos(ctx, bson.M{"updatedAt": bson.M{"$gt": since}})
}

func (m *MongoDB) findVideos(ctx context.Context, filter bson.M) ([]types.Video, error) {
	cursor, err := m.videos.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer cursor.Close(ctx)

	videos := []types.Video{}
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, fmt.Errorf("failed to decode videos: %w", err)
	}

	return videos, nil
}

// ApplyCompletion overwrites the completion-related fields of the record
// identified by the event's reference. The overwrite makes redelivered events
// safe to reprocess. A missing record is reported as storage.ErrNotFound so
// the caller can refuse to acknowledge the message.
func (m *MongoDB) ApplyCompletion(ctx context.Context, event types.CompletionEvent, thumbnail string) (*types.Video, error) {
	update := bson.M{
		"$set": bson.M{
			"available": true,
			"duration":  event.Duration,
			"step":      event.Step,
			"previews":  event.Previews,
			"thumbnail": thumbnail,
			"updatedAt": time.Now().UTC(),
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var video types.Video
	err := m.videos.FindOneAndUpdate(ctx, bson.M{"reference": event.Reference}, update, opts).Decode(&video)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply completion: %w", err)
	}

	return &video, nil
}

func (m *MongoDB) DeleteVideo(ctx context.Context, reference string) (*types.Video, error) {
	var video types.Video

	err := m.videos.FindOneAndDelete(ctx, bson.M{"reference": reference}).Decode(&video)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete video: %w", err)
	}

	return &video, nil
}

func (m *MongoDB) CreateAdmin(ctx context.Context, admin *admins.Admin) error {
	admin.CreatedAt = time.Now().UTC()

	_, err := m.admins.InsertOne(ctx, admin)
	if err != nil {
		return fmt.Errorf("failed to insert admin: %w", err)
	}
	return nil
}

func (m *MongoDB) FindAdminByName(ctx context.Context, name string) (*admins.Admin, error) {
	var admin admins.Admin

	err := m.admins.FindOne(ctx, bson.M{"name": name}).Decode(&admin)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}

	return &admin, nil
}

// Close disconnects the underlying client.
func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
