package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/morshedkoli/macapp/internal/macsvc/db"
	"github.com/morshedkoli/macapp/internal/macsvc/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const RecordsCollection = "records"

type recordDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Mac       string             `bson:"mac"`
	Phone     string             `bson:"phone"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d recordDoc) record() models.Record {
	return models.Record{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Mac:       d.Mac,
		Phone:     d.Phone,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type MongoRecordStore struct {
	db *db.Mongo
}

func NewMongoRecordStore(conn *db.Mongo) *MongoRecordStore {
	return &MongoRecordStore{db: conn}
}

// EnsureMongoIndexes creates the unique mac index the uniqueness invariant
// relies on, plus the lookup indexes. Meant to be passed to db.NewMongo.
func EnsureMongoIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "mac", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("mac_unique"),
		},
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "phone", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}

	if _, err := database.Collection(RecordsCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("creating record indexes: %w", err)
	}
	return nil
}

func (s *MongoRecordStore) collection(ctx context.Context) (*mongo.Collection, func(), error) {
	database, release, err := s.db.Database(ctx)
	if err != nil {
		return nil, nil, err
	}
	return database.Collection(RecordsCollection), release, nil
}

func (s *MongoRecordStore) ValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func (s *MongoRecordStore) objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

func (s *MongoRecordStore) Insert(ctx context.Context, rec models.Record) (models.Record, error) {
	coll, release, err := s.collection(ctx)
	if err != nil {
		return models.Record{}, err
	}
	defer release()

	doc := recordDoc{
		ID:        primitive.NewObjectID(),
		Name:      rec.Name,
		Mac:       rec.Mac,
		Phone:     rec.Phone,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Record{}, ErrDuplicateMac
		}
		return models.Record{}, fmt.Errorf("could not insert record: %w", err)
	}

	return doc.record(), nil
}

func (s *MongoRecordStore) Get(ctx context.Context, id string) (models.Record, error) {
	oid, err := s.objectID(id)
	if err != nil {
		return models.Record{}, err
	}

	coll, release, err := s.collection(ctx)
	if err != nil {
		return models.Record{}, err
	}
	defer release()

	var doc recordDoc
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Record{}, ErrNotFound
		}
		return models.Record{}, fmt.Errorf("could not get record: %w", err)
	}

	return doc.record(), nil
}

func (s *MongoRecordStore) Update(ctx context.Context, id string, fields RecordFields, updatedAt time.Time) (models.Record, error) {
	oid, err := s.objectID(id)
	if err != nil {
		return models.Record{}, err
	}

	coll, release, err := s.collection(ctx)
	if err != nil {
		return models.Record{}, err
	}
	defer release()

	set := bson.M{"updatedAt": updatedAt}
	if fields.Name != nil {
		set["name"] = *fields.Name
	}
	if fields.Mac != nil {
		set["mac"] = *fields.Mac
	}
	if fields.Phone != nil {
		set["phone"] = *fields.Phone
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc recordDoc
	err = coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return models.Record{}, ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return models.Record{}, ErrDuplicateMac
		}
		return models.Record{}, fmt.Errorf("could not update record: %w", err)
	}

	return doc.record(), nil
}

func (s *MongoRecordStore) Delete(ctx context.Context, id string) error {
	oid, err := s.objectID(id)
	if err != nil {
		return err
	}

	coll, release, err := s.collection(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("could not delete record: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoRecordStore) Find(ctx context.Context, filter models.RecordFilter) ([]models.Record, error) {
	coll, release, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query := bson.M{}
	if filter.Name != "" {
		query["name"] = containsFold(filter.Name)
	}
	if filter.Phone != "" {
		query["phone"] = containsFold(filter.Phone)
	}
	if filter.Mac != "" {
		query["mac"] = filter.Mac
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limitOf(filter)))

	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("could not find records: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []recordDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("could not decode records: %w", err)
	}

	records := make([]models.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.record())
	}
	return records, nil
}

func (s *MongoRecordStore) Stats(ctx context.Context, since time.Time) (models.RecordStats, error) {
	coll, release, err := s.collection(ctx)
	if err != nil {
		return models.RecordStats{}, err
	}
	defer release()

	var stats models.RecordStats

	if stats.Total, err = coll.CountDocuments(ctx, bson.M{}); err != nil {
		return stats, fmt.Errorf("could not count records: %w", err)
	}
	if stats.Recent, err = coll.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gt": since}}); err != nil {
		return stats, fmt.Errorf("could not count recent records: %w", err)
	}

	macs, err := coll.Distinct(ctx, "mac", bson.M{})
	if err != nil {
		return stats, fmt.Errorf("could not count distinct macs: %w", err)
	}
	stats.Unique = int64(len(macs))

	return stats, nil
}

// containsFold matches s anywhere in the field, ignoring case. s is quoted so
// search text is never interpreted as a pattern.
func containsFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}
