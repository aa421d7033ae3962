package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSetup runs once, right after the client connected.
type MongoSetup func(ctx context.Context, db *mongo.Database) error

type Mongo struct {
	dbName string
	conn   *lazy[*mongo.Client]
}

func NewMongo(mongoURI, dbName string, setup ...MongoSetup) *Mongo {
	m := &Mongo{dbName: dbName}
	m.conn = newLazy("mongodb", func(ctx context.Context) (*mongo.Client, error) {
		return m.connect(ctx, mongoURI, setup)
	}, disconnect)
	return m
}

// MongoFromClient wraps an already connected client.
func MongoFromClient(client *mongo.Client, dbName string) *Mongo {
	return &Mongo{
		dbName: dbName,
		conn:   established("mongodb", client, disconnect),
	}
}

func (m *Mongo) connect(ctx context.Context, mongoURI string, setup []MongoSetup) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		disconnect(client)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	for _, fn := range setup {
		if err := fn(ctx, client.Database(m.dbName)); err != nil {
			disconnect(client)
			return nil, err
		}
	}

	return client, nil
}

// Database hands out the shared database handle. The caller must call release.
func (m *Mongo) Database(ctx context.Context) (*mongo.Database, func(), error) {
	client, release, err := m.conn.acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return client.Database(m.dbName), release, nil
}

func (m *Mongo) Close() {
	m.conn.Close()
}

func disconnect(client *mongo.Client) {
	if err := client.Disconnect(context.Background()); err != nil {
		log.Warnf("mongodb disconnect: %v", err)
	}
}

// DatabaseName takes the database from the URI path, e.g.
// mongodb://localhost:27017/macapp, falling back to def.
func DatabaseName(mongoURI, def string) string {
	uri, err := url.Parse(mongoURI)
	if err != nil {
		return def
	}
	name := strings.TrimPrefix(uri.Path, "/")
	if name == "" {
		return def
	}
	return name
}
