package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"absorb-chess/internal/models"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(uri, database string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := &MongoDB{
		Client:   client,
		Database: client.Database(database),
	}

	// Create indexes in the background (non-blocking)
	go db.ensureIndexes()

	return db, nil
}

// ensureIndexes creates all required indexes. Called once on startup.
func (m *MongoDB) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{
			"lobbies",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			},
		},
		{
			"client_lobby_map",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "lobby_code", Value: 1}}},
			},
		},
		{
			"searching_players",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "joined_at", Value: 1}}},
			},
		},
		{
			"draw_offers",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "offerer_id", Value: 1}, {Key: "created_at", Value: -1}}},
				{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(60)},
			},
		},
	}

	for _, idx := range indexes {
		coll := m.Database.Collection(idx.collection)
		_, err := coll.Indexes().CreateMany(ctx, idx.models)
		if err != nil {
			log.Printf("Warning: failed to create indexes on %s: %v", idx.collection, err)
		}
	}

	log.Println("Database indexes ensured")
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) Lobbies() *mongo.Collection {
	return m.Database.Collection("lobbies")
}

func (m *MongoDB) ClientLobbyMap() *mongo.Collection {
	return m.Database.Collection("client_lobby_map")
}

func (m *MongoDB) SearchingPlayers() *mongo.Collection {
	return m.Database.Collection("searching_players")
}

func (m *MongoDB) DrawOffers() *mongo.Collection {
	return m.Database.Collection("draw_offers")
}

// SaveLobby upserts the lobby snapshot. Best-effort: failures are logged
// and live state stays canonical.
func (m *MongoDB) SaveLobby(ctx context.Context, rec *models.LobbyRecord) {
	opts := options.Replace().SetUpsert(true)
	if _, err := m.Lobbies().ReplaceOne(ctx, bson.M{"_id": rec.Code}, rec, opts); err != nil {
		log.Printf("Snapshot: failed to save lobby %s: %v", rec.Code, err)
	}
}

// DeleteLobby removes the lobby snapshot and its client mappings.
func (m *MongoDB) DeleteLobby(ctx context.Context, code string) {
	if _, err := m.Lobbies().DeleteOne(ctx, bson.M{"_id": code}); err != nil {
		log.Printf("Snapshot: failed to delete lobby %s: %v", code, err)
	}
	if _, err := m.ClientLobbyMap().DeleteMany(ctx, bson.M{"lobby_code": code}); err != nil {
		log.Printf("Snapshot: failed to clear client map for lobby %s: %v", code, err)
	}
}

// SaveClientLobby upserts a client's lobby membership.
func (m *MongoDB) SaveClientLobby(ctx context.Context, cl *models.ClientLobby) {
	opts := options.Replace().SetUpsert(true)
	if _, err := m.ClientLobbyMap().ReplaceOne(ctx, bson.M{"_id": cl.ClientID}, cl, opts); err != nil {
		log.Printf("Snapshot: failed to save client map for %s: %v", cl.ClientID, err)
	}
}

// DeleteClientLobby removes a client's lobby membership.
func (m *MongoDB) DeleteClientLobby(ctx context.Context, clientID string) {
	if _, err := m.ClientLobbyMap().DeleteOne(ctx, bson.M{"_id": clientID}); err != nil {
		log.Printf("Snapshot: failed to delete client map for %s: %v", clientID, err)
	}
}

// SaveSearcher upserts a matchmaking queue entry.
func (m *MongoDB) SaveSearcher(ctx context.Context, entry *models.SearchEntry) {
	opts := options.Replace().SetUpsert(true)
	if _, err := m.SearchingPlayers().ReplaceOne(ctx, bson.M{"_id": entry.ClientID}, entry, opts); err != nil {
		log.Printf("Snapshot: failed to save searcher %s: %v", entry.ClientID, err)
	}
}

// DeleteSearcher removes a matchmaking queue entry.
func (m *MongoDB) DeleteSearcher(ctx context.Context, clientID string) {
	if _, err := m.SearchingPlayers().DeleteOne(ctx, bson.M{"_id": clientID}); err != nil {
		log.Printf("Snapshot: failed to delete searcher %s: %v", clientID, err)
	}
}

// LogDrawOffer records a draw offer for rate limiting. The TTL index
// expires entries after the rate window.
func (m *MongoDB) LogDrawOffer(ctx context.Context, offer *models.DrawOffer) {
	if _, err := m.DrawOffers().InsertOne(ctx, offer); err != nil {
		log.Printf("Snapshot: failed to log draw offer by %s: %v", offer.OffererID, err)
	}
}

// LoadLobbies returns every persisted lobby, used on cold start to rebuild
// the registry.
func (m *MongoDB) LoadLobbies(ctx context.Context) ([]*models.LobbyRecord, error) {
	cur, err := m.Lobbies().Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to load lobbies: %w", err)
	}
	defer cur.Close(ctx)

	var records []*models.LobbyRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode lobbies: %w", err)
	}
	return records, nil
}
