package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Gautam3767/additive_registry_backend/models"
)

// Context timeout for a single database operation
const dbTimeout = 5 * time.Second

// MongoConfig names the remote store location.
type MongoConfig struct {
	URI                    string
	Database               string
	ProductsCollection     string
	ContributorsCollection string
}

// RemoteStore is the authoritative product store backed by MongoDB.
type RemoteStore struct {
	client       *mongo.Client
	products     *mongo.Collection
	contributors *mongo.Collection
	logger       *slog.Logger
}

// Connect opens and pings the MongoDB deployment.
func Connect(ctx context.Context, cfg MongoConfig, logger *slog.Logger) (*RemoteStore, error) {
	if cfg.URI == "" || cfg.Database == "" || cfg.ProductsCollection == "" {
		return nil, errors.New("mongo uri, database and products collection are required")
	}

	// Use context with timeout for connection attempt
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("create mongo client: %w", err)
	}

	// Ping the primary server to verify the connection.
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	store := NewRemoteStore(db.Collection(cfg.ProductsCollection), db.Collection(cfg.ContributorsCollection), logger)
	store.client = client
	store.logger.Info("connected to remote store", "database", cfg.Database, "collection", cfg.ProductsCollection)
	return store, nil
}

// NewRemoteStore wraps existing collections.
func NewRemoteStore(products, contributors *mongo.Collection, logger *slog.Logger) *RemoteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteStore{
		products:     products,
		contributors: contributors,
		logger:       logger.With("component", "remote_store"),
	}
}

// EnsureIndexes creates the lookup indexes in the background. Failures are
// logged only; the store works without them.
func (s *RemoteStore) EnsureIndexes() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, err := s.products.Indexes().CreateMany(ctx, productIndexes())
		if err != nil {
			s.logger.Warn("could not create product indexes", "error", err)
			return
		}
		s.logger.Info("product indexes ensured")
	}()
}

func productIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			// Strength 2 collation compares case-insensitively, matching the duplicate key.
			Keys:    bson.D{{Key: "brand", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
		{
			Keys: bson.D{{Key: "submittedby", Value: 1}, {Key: "approved", Value: 1}},
		},
	}
}

// Disconnect closes the MongoDB connection.
func (s *RemoteStore) Disconnect(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	s.logger.Info("remote store connection closed")
	return nil
}

// Ping checks that the primary is reachable.
func (s *RemoteStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return errors.New("remote store is not connected")
	}
	return s.client.Ping(ctx, readpref.Primary())
}

// ListProducts returns every product document.
func (s *RemoteStore) ListProducts(ctx context.Context) ([]models.ProductRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cursor, err := s.products.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdat", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.RemoteProduct
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	records := make([]models.ProductRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.ToRecord())
	}
	return records, nil
}

// GetProduct loads one product by id.
func (s *RemoteStore) GetProduct(ctx context.Context, id string) (models.ProductRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var doc models.RemoteProduct
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ProductRecord{}, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("find product %s: %w", id, err)
	}
	return doc.ToRecord(), nil
}

// InsertProduct stores a new product.
func (s *RemoteStore) InsertProduct(ctx context.Context, rec models.ProductRecord) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.products.InsertOne(ctx, models.ToRemote(rec)); err != nil {
		return fmt.Errorf("insert product %s: %w", rec.ID, err)
	}
	return nil
}

// UpdateProduct replaces the mutable fields of an existing product.
func (s *RemoteStore) UpdateProduct(ctx context.Context, rec models.ProductRecord) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	res, err := s.products.UpdateOne(ctx, bson.M{"_id": rec.ID}, productUpdate(rec))
	if err != nil {
		return fmt.Errorf("update product %s: %w", rec.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product %s: %w", rec.ID, models.ErrNotFound)
	}
	return nil
}

// productUpdate builds the $set document; id and creation time never change.
func productUpdate(rec models.ProductRecord) bson.M {
	doc := models.ToRemote(rec)
	return bson.M{
		"$set": bson.M{
			"name":          doc.Name,
			"brand":         doc.Brand,
			"type":          doc.Type,
			"description":   doc.Description,
			"pvastatus":     doc.PVAStatus,
			"pvapercentage": doc.PVAPercentage,
			"approved":      doc.Approved,
			"country":       doc.Country,
			"websiteurl":    doc.WebsiteURL,
			"videourl":      doc.VideoURL,
			"imageurl":      doc.ImageURL,
			"updatedat":     doc.UpdatedAt,
		},
	}
}

// DeleteProduct removes a product by id.
func (s *RemoteStore) DeleteProduct(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	res, err := s.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// CountPending counts unapproved products submitted by contributor.
func (s *RemoteStore) CountPending(ctx context.Context, contributor string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	n, err := s.products.CountDocuments(ctx, pendingFilter(contributor))
	if err != nil {
		return 0, fmt.Errorf("count pending for %s: %w", contributor, err)
	}
	return int(n), nil
}

func pendingFilter(contributor string) bson.M {
	return bson.M{
		"submittedby": contributor,
		"approved":    bson.M{"$ne": true},
	}
}

// TrustTier returns the stored tier, or TierNew for unknown contributors.
func (s *RemoteStore) TrustTier(ctx context.Context, contributor string) (models.TrustTier, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var doc models.Contributor
	err := s.contributors.FindOne(ctx, bson.M{"_id": contributor}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.TierNew, nil
	}
	if err != nil {
		return "", fmt.Errorf("find contributor %s: %w", contributor, err)
	}
	tier, ok := models.ParseTrustTier(doc.TrustTier)
	if !ok {
		s.logger.Warn("unknown trust tier stored, treating as NEW", "contributor", contributor, "tier", doc.TrustTier)
		return models.TierNew, nil
	}
	return tier, nil
}

// SetTrustTier upserts the contributor's tier.
func (s *RemoteStore) SetTrustTier(ctx context.Context, contributor string, tier models.TrustTier) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	doc := models.Contributor{ID: contributor, TrustTier: string(tier), UpdatedAt: time.Now().UTC()}
	_, err := s.contributors.ReplaceOne(ctx, bson.M{"_id": contributor}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set trust tier for %s: %w", contributor, err)
	}
	return nil
}
