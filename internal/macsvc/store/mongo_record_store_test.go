package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/morshedkoli/macapp/internal/macsvc/db"
	"github.com/morshedkoli/macapp/internal/macsvc/models"
)

func newMockStore(mt *mtest.T) *MongoRecordStore {
	return NewMongoRecordStore(db.MongoFromClient(mt.Client, mt.DB.Name()))
}

func recordBSON(oid primitive.ObjectID, name, mac, phone string, created time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: oid},
		{Key: "name", Value: name},
		{Key: "mac", Value: mac},
		{Key: "phone", Value: phone},
		{Key: "createdAt", Value: created},
		{Key: "updatedAt", Value: created},
	}
}

func TestMongoRecordStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	mt.Run("insert assigns id", func(mt *mtest.T) {
		s := newMockStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		rec, err := s.Insert(ctx, models.Record{Name: "alice", Mac: "aabbccddeeff", Phone: "123456", CreatedAt: now, UpdatedAt: now})
		require.NoError(mt, err)
		assert.True(mt, s.ValidID(rec.ID))
		assert.Equal(mt, "aabbccddeeff", rec.Mac)
		assert.Equal(mt, now, rec.CreatedAt)
	})

	mt.Run("insert duplicate mac", func(mt *mtest.T) {
		s := newMockStore(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: macapp.records index: mac_unique",
		}))

		_, err := s.Insert(ctx, models.Record{Name: "bob", Mac: "aabbccddeeff", Phone: "123456"})
		assert.ErrorIs(mt, err, ErrDuplicateMac)
	})

	mt.Run("get", func(mt *mtest.T) {
		s := newMockStore(mt)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "macapp.records", mtest.FirstBatch,
			recordBSON(oid, "alice", "aabbccddeeff", "123456", now)))

		rec, err := s.Get(ctx, oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), rec.ID)
		assert.Equal(mt, "alice", rec.Name)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		s := newMockStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "macapp.records", mtest.FirstBatch))

		_, err := s.Get(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("malformed id never reaches the server", func(mt *mtest.T) {
		s := newMockStore(mt)

		_, err := s.Get(ctx, "not-an-object-id")
		assert.ErrorIs(mt, err, ErrInvalidID)
		assert.ErrorIs(mt, s.Delete(ctx, "1234"), ErrInvalidID)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("update returns new document", func(mt *mtest.T) {
		s := newMockStore(mt)
		oid := primitive.NewObjectID()
		later := now.Add(time.Hour)
		doc := recordBSON(oid, "alice", "001122334455", "123456", now)
		doc[5] = bson.E{Key: "updatedAt", Value: later}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc}))

		mac := "001122334455"
		rec, err := s.Update(ctx, oid.Hex(), RecordFields{Mac: &mac}, later)
		require.NoError(mt, err)
		assert.Equal(mt, "001122334455", rec.Mac)
		assert.Equal(mt, later, rec.UpdatedAt)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "findAndModify", evt.CommandName)
		set := evt.Command.Lookup("update", "$set").Document()
		assert.Equal(mt, "001122334455", set.Lookup("mac").StringValue())
		_, hasName := set.Lookup("name").StringValueOK()
		assert.False(mt, hasName, "unsupplied field must not be written")
	})

	mt.Run("update duplicate mac", func(mt *mtest.T) {
		s := newMockStore(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Name:    "DuplicateKey",
			Message: "E11000 duplicate key error",
		}))

		mac := "aabbccddeeff"
		_, err := s.Update(ctx, primitive.NewObjectID().Hex(), RecordFields{Mac: &mac}, now)
		assert.ErrorIs(mt, err, ErrDuplicateMac)
	})

	mt.Run("delete", func(mt *mtest.T) {
		s := newMockStore(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		id := primitive.NewObjectID().Hex()
		require.NoError(mt, s.Delete(ctx, id))
		assert.ErrorIs(mt, s.Delete(ctx, id), ErrNotFound)
	})

	mt.Run("find filters and caps", func(mt *mtest.T) {
		s := newMockStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "macapp.records", mtest.FirstBatch,
			recordBSON(primitive.NewObjectID(), "Alice", "aabbccddeeff", "+1 555 0100", now),
			recordBSON(primitive.NewObjectID(), "alicia", "001122334455", "+1 555 0101", now.Add(-time.Hour)),
		))

		recs, err := s.Find(ctx, models.RecordFilter{Name: "ali.", Phone: "555"})
		require.NoError(mt, err)
		assert.Len(mt, recs, 2)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "find", evt.CommandName)
		pattern, opts := evt.Command.Lookup("filter", "name").Regex()
		assert.Equal(mt, `ali\.`, pattern)
		assert.Equal(mt, "i", opts)
		assert.Equal(mt, int64(MaxResults), evt.Command.Lookup("limit").AsInt64())
		assert.Equal(mt, int32(-1), evt.Command.Lookup("sort", "createdAt").Int32())
	})

	mt.Run("find empty", func(mt *mtest.T) {
		s := newMockStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "macapp.records", mtest.FirstBatch))

		recs, err := s.Find(ctx, models.RecordFilter{Mac: "aabbccddeeff"})
		require.NoError(mt, err)
		assert.NotNil(mt, recs)
		assert.Empty(mt, recs)
	})

	mt.Run("stats", func(mt *mtest.T) {
		s := newMockStore(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "macapp.records", mtest.FirstBatch, bson.D{{Key: "n", Value: int64(3)}}),
			mtest.CreateCursorResponse(0, "macapp.records", mtest.FirstBatch, bson.D{{Key: "n", Value: int64(1)}}),
			mtest.CreateSuccessResponse(bson.E{Key: "values", Value: bson.A{"aabbccddeeff", "001122334455", "0a0b0c0d0e0f"}}),
		)

		stats, err := s.Stats(ctx, now.Add(-24*time.Hour))
		require.NoError(mt, err)
		assert.Equal(mt, models.RecordStats{Total: 3, Recent: 1, Unique: 3}, stats)
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, EnsureMongoIndexes(ctx, mt.DB))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "createIndexes", evt.CommandName)
		first := evt.Command.Lookup("indexes", "0")
		assert.True(mt, first.Document().Lookup("unique").Boolean())
		assert.Equal(mt, "mac_unique", first.Document().Lookup("name").StringValue())
	})
}
