package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"mediakit/internal/domain"
)

const (
	kitsCollection      = "media_kits"
	snapshotsCollection = "kit_snapshots"
)

// Mongo stores kits and snapshots in two collections. Documents are kept as
// their JSON encoding so both backends round-trip the same bytes.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoKit struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	DocumentJSON string    `bson:"document_json"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type mongoSnapshot struct {
	ID           string    `bson:"_id"`
	KitID        string    `bson:"kit_id"`
	Label        string    `bson:"label"`
	DocumentJSON string    `bson:"document_json,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

// OpenMongo connects to uri and prepares the collections in database.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if database == "" {
		database = "mediakit"
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	m := &Mongo{client: client, db: client.Database(database)}
	_, err = m.db.Collection(snapshotsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "kit_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create snapshot index: %w", err)
	}
	return m, nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *Mongo) kits() *mongo.Collection      { return m.db.Collection(kitsCollection) }
func (m *Mongo) snapshots() *mongo.Collection { return m.db.Collection(snapshotsCollection) }

func (m *Mongo) SaveKit(ctx context.Context, k *domain.Kit) error {
	body, err := json.Marshal(k.Document)
	if err != nil {
		return fmt.Errorf("encode kit %s: %w", k.ID, err)
	}

	var existing mongoKit
	err = m.kits().FindOne(ctx, bson.D{{Key: "_id", Value: k.ID}}).Decode(&existing)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		if k.CreatedAt.IsZero() {
			k.CreatedAt = time.Now()
		}
	case err != nil:
		return fmt.Errorf("lookup kit %s: %w", k.ID, err)
	default:
		k.CreatedAt = existing.CreatedAt
	}
	k.UpdatedAt = time.Now()

	rec := mongoKit{
		ID:           k.ID,
		Name:         k.Name,
		DocumentJSON: string(body),
		CreatedAt:    k.CreatedAt,
		UpdatedAt:    k.UpdatedAt,
	}
	_, err = m.kits().ReplaceOne(ctx, bson.D{{Key: "_id", Value: k.ID}}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save kit %s: %w", k.ID, err)
	}
	return nil
}

func (m *Mongo) GetKit(ctx context.Context, id string) (*domain.Kit, error) {
	var rec mongoKit
	err := m.kits().FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get kit %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get kit %s: %w", id, err)
	}
	doc, _, err := domain.DecodeDocument([]byte(rec.DocumentJSON))
	if err != nil {
		return nil, fmt.Errorf("decode kit %s: %w", id, err)
	}
	return &domain.Kit{
		ID:        rec.ID,
		Name:      rec.Name,
		Document:  doc,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (m *Mongo) ListKits(ctx context.Context) ([]domain.KitSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.D{{Key: "document_json", Value: 0}})
	cursor, err := m.kits().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list kits: %w", err)
	}
	var recs []mongoKit
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("list kits: %w", err)
	}
	kits := make([]domain.KitSummary, 0, len(recs))
	for _, r := range recs {
		kits = append(kits, domain.KitSummary{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt})
	}
	return kits, nil
}

func (m *Mongo) DeleteKit(ctx context.Context, id string) error {
	res, err := m.kits().DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete kit %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete kit %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (m *Mongo) CreateSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	body, err := json.Marshal(snap.Document)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	_, err = m.snapshots().InsertOne(ctx, mongoSnapshot{
		ID:           snap.ID,
		KitID:        snap.KitID,
		Label:        snap.Label,
		DocumentJSON: string(body),
		CreatedAt:    snap.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (m *Mongo) GetSnapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	var rec mongoSnapshot
	err := m.snapshots().FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get snapshot %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	doc, _, err := domain.DecodeDocument([]byte(rec.DocumentJSON))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &domain.Snapshot{ID: rec.ID, KitID: rec.KitID, Label: rec.Label, Document: doc, CreatedAt: rec.CreatedAt}, nil
}

func (m *Mongo) ListSnapshots(ctx context.Context, kitID string) ([]domain.Snapshot, error) {
	recs, err := m.findSnapshots(ctx, kitID)
	if err != nil {
		return nil, err
	}
	snaps := make([]domain.Snapshot, 0, len(recs))
	for _, r := range recs {
		snaps = append(snaps, domain.Snapshot{ID: r.ID, KitID: r.KitID, Label: r.Label, CreatedAt: r.CreatedAt})
	}
	return snaps, nil
}

func (m *Mongo) PruneSnapshots(ctx context.Context, kitID string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	recs, err := m.findSnapshots(ctx, kitID)
	if err != nil {
		return err
	}
	if len(recs) <= keep {
		return nil
	}
	ids := make([]string, 0, len(recs)-keep)
	for _, r := range recs[keep:] {
		ids = append(ids, r.ID)
	}
	_, err = m.snapshots().DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return fmt.Errorf("prune snapshots of %s: %w", kitID, err)
	}
	return nil
}

func (m *Mongo) DeleteSnapshots(ctx context.Context, kitID string) error {
	if _, err := m.snapshots().DeleteMany(ctx, bson.D{{Key: "kit_id", Value: kitID}}); err != nil {
		return fmt.Errorf("delete snapshots of %s: %w", kitID, err)
	}
	return nil
}

// findSnapshots lists a kit's snapshots newest first, without documents.
func (m *Mongo) findSnapshots(ctx context.Context, kitID string) ([]mongoSnapshot, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.D{{Key: "document_json", Value: 0}})
	cursor, err := m.snapshots().Find(ctx, bson.D{{Key: "kit_id", Value: kitID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var recs []mongoSnapshot
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return recs, nil
}
