package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Gautam3767/additive_registry_backend/models"
)

func TestPendingFilter(t *testing.T) {
	f := pendingFilter("user-1")
	assert.Equal(t, "user-1", f["submittedby"])
	assert.Equal(t, bson.M{"$ne": true}, f["approved"])
}

func TestProductUpdateUsesRemoteFieldNames(t *testing.T) {
	pct := 3.0
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	upd := productUpdate(models.ProductRecord{
		ID:          "p1",
		Brand:       "Acme",
		Name:        "Sheets",
		Status:      models.StatusContains,
		Percentage:  &pct,
		Approved:    true,
		WebsiteURL:  "https://acme.example",
		SubmittedAt: now.Add(-time.Hour),
		UpdatedAt:   now,
	})

	set, ok := upd["$set"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, "contains", set["pvastatus"])
	assert.Equal(t, &pct, set["pvapercentage"])
	assert.Equal(t, true, set["approved"])
	assert.Equal(t, "https://acme.example", set["websiteurl"])
	assert.Equal(t, now, set["updatedat"])
	assert.NotContains(t, set, "_id")
	assert.NotContains(t, set, "createdat")
}

func TestRemoteProductBSONFieldNames(t *testing.T) {
	raw, err := bson.Marshal(models.ToRemote(models.ProductRecord{ID: "p1", Brand: "Acme", Status: models.StatusVerifiedFree}))
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	for _, field := range []string{"_id", "name", "brand", "type", "description", "pvastatus", "pvapercentage",
		"approved", "country", "websiteurl", "videourl", "imageurl", "createdat", "updatedat"} {
		assert.Contains(t, doc, field)
	}
	assert.Equal(t, "verified-free", doc["pvastatus"])
}

func TestProductIndexesCoverDuplicateKey(t *testing.T) {
	idx := productIndexes()
	require.Len(t, idx, 2)
	assert.Equal(t, bson.D{{Key: "brand", Value: 1}, {Key: "name", Value: 1}}, idx[0].Keys)
}

func TestConnectRequiresSettings(t *testing.T) {
	_, err := Connect(context.Background(), MongoConfig{}, nil)
	assert.Error(t, err)
}

func TestPingWithoutClient(t *testing.T) {
	s := NewRemoteStore(nil, nil, nil)
	assert.Error(t, s.Ping(context.Background()))
	assert.NoError(t, s.Disconnect(context.Background()))
}
