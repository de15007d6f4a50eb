package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lightlink-network/ll-withdrawer/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Database struct {
	client       *mongo.Client
	databaseName string
	logger       *slog.Logger
}

type DatabaseOpts struct {
	URI          string
	DatabaseName string
	Logger       *slog.Logger
}

const (
	defaultBatchSize = 1000
	defaultTimeout   = 10 * time.Second

	withdrawalsCollection = "withdrawals"
)

func NewDatabase(opts DatabaseOpts) (*Database, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMaxPoolSize(20).
		SetMinPoolSize(2).
		SetServerSelectionTimeout(5 * time.Second).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{
		client:       client,
		databaseName: opts.DatabaseName,
		logger:       opts.Logger,
	}, nil
}

func (db *Database) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *Database) withdrawals() *mongo.Collection {
	return db.client.Database(db.databaseName).Collection(withdrawalsCollection)
}

func (db *Database) CreateIndexes(ctx context.Context) error {
	_, err := db.withdrawals().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "withdrawal_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "address", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create withdrawals indexes: %w", err)
	}

	return nil
}

// Add stores a new withdrawal. Adding a hash that already exists returns ErrDuplicate.
func (db *Database) Add(ctx context.Context, w *models.Withdrawal) error {
	doc, err := prepareNew(w, time.Now())
	if err != nil {
		return err
	}

	if _, err := db.withdrawals().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, w.WithdrawalHash)
		}
		return fmt.Errorf("failed to insert withdrawal: %w", err)
	}

	*w = *doc
	return nil
}

func (db *Database) Get(ctx context.Context, withdrawalHash string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := db.withdrawals().FindOne(ctx, hashFilter(withdrawalHash)).Decode(&w)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, withdrawalHash)
		}
		return nil, fmt.Errorf("failed to get withdrawal by hash: %w", err)
	}

	return &w, nil
}

// Query returns the withdrawals matching f, oldest first.
func (db *Database) Query(ctx context.Context, f models.Filter) ([]*models.Withdrawal, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetBatchSize(defaultBatchSize)

	cursor, err := db.withdrawals().Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer cursor.Close(ctx)

	withdrawals := make([]*models.Withdrawal, 0)
	if err := cursor.All(ctx, &withdrawals); err != nil {
		return nil, fmt.Errorf("failed to decode withdrawals: %w", err)
	}

	return withdrawals, nil
}

func (db *Database) ListAll(ctx context.Context) ([]*models.Withdrawal, error) {
	return db.Query(ctx, models.Filter{})
}

// Modify applies p to the stored withdrawal. The update only matches while the
// stored status is the one immediately before p.Status, so concurrent or
// out-of-order writers cannot move a record backwards.
func (db *Database) Modify(ctx context.Context, withdrawalHash string, p models.Patch) (*models.Withdrawal, error) {
	prev, ok := p.Status.Prev()
	if !ok {
		return nil, fmt.Errorf("%w: cannot patch to %q", ErrInvalidTransition, p.Status)
	}

	filter := append(hashFilter(withdrawalHash), bson.E{Key: "status", Value: prev})
	update := bson.D{{Key: "$set", Value: patchFields(p, time.Now())}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var w models.Withdrawal
	err := db.withdrawals().FindOneAndUpdate(ctx, filter, update, opts).Decode(&w)
	if err == nil {
		db.logger.Debug("withdrawal updated", "withdrawal_hash", withdrawalHash, "status", w.Status)
		return &w, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update withdrawal: %w", err)
	}

	// Nothing matched, find out whether the record is missing or in another state.
	current, err := db.Get(ctx, withdrawalHash)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, p.Status)
}

func hashFilter(withdrawalHash string) bson.D {
	return bson.D{{Key: "withdrawal_hash", Value: models.NormalizeHash(withdrawalHash)}}
}

func buildFilter(f models.Filter) bson.D {
	filter := bson.D{}
	if f.Address != "" {
		filter = append(filter, bson.E{Key: "address", Value: models.NormalizeAddress(f.Address)})
	}

	status := bson.D{}
	if f.Status != "" {
		status = append(status, bson.E{Key: "$eq", Value: f.Status})
	}
	if f.NotStatus != "" {
		status = append(status, bson.E{Key: "$ne", Value: f.NotStatus})
	}
	if len(status) > 0 {
		filter = append(filter, bson.E{Key: "status", Value: status})
	}
	return filter
}

func patchFields(p models.Patch, now time.Time) bson.D {
	fields := bson.D{{Key: "status", Value: p.Status}}
	if p.WithdrawalReceipt != nil {
		fields = append(fields, bson.E{Key: "withdrawal_receipt", Value: p.WithdrawalReceipt})
	}
	if p.Output != nil {
		fields = append(fields, bson.E{Key: "output", Value: p.Output})
	}
	if p.Withdrawal != nil {
		fields = append(fields, bson.E{Key: "withdrawal", Value: p.Withdrawal})
	}
	if p.ProveArgs != nil {
		fields = append(fields, bson.E{Key: "prove_args", Value: p.ProveArgs})
	}
	if p.ProveHash != "" {
		fields = append(fields, bson.E{Key: "prove_hash", Value: p.ProveHash})
	}
	if p.ProveReceipt != nil {
		fields = append(fields, bson.E{Key: "prove_receipt", Value: p.ProveReceipt})
	}
	if p.FinalizeHash != "" {
		fields = append(fields, bson.E{Key: "finalize_hash", Value: p.FinalizeHash})
	}
	if p.FinalizeReceipt != nil {
		fields = append(fields, bson.E{Key: "finalize_receipt", Value: p.FinalizeReceipt})
	}
	return append(fields, bson.E{Key: "updated_at", Value: now})
}
