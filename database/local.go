package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lightlink-network/ll-withdrawer/database/models"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.mongodb.org/mongo-driver/bson"
)

var withdrawalPrefix = []byte("withdrawal/")

// LocalStore keeps withdrawals in an embedded LevelDB so a single user can
// resume withdrawals across restarts without running a database server.
// Records are bson encoded, the same layout used in Mongo.
type LocalStore struct {
	db     *leveldb.DB
	mu     sync.Mutex
	logger *slog.Logger
}

type LocalStoreOpts struct {
	Path   string
	Logger *slog.Logger
}

func NewLocalStore(opts LocalStoreOpts) (*LocalStore, error) {
	db, err := leveldb.OpenFile(opts.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", opts.Path, err)
	}
	return newLocalStore(db, opts.Logger), nil
}

// NewLocalStoreWithStorage opens a LocalStore on any goleveldb storage,
// e.g. storage.NewMemStorage().
func NewLocalStoreWithStorage(stor storage.Storage, logger *slog.Logger) (*LocalStore, error) {
	db, err := leveldb.Open(stor, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb: %w", err)
	}
	return newLocalStore(db, logger), nil
}

func newLocalStore(db *leveldb.DB, logger *slog.Logger) *LocalStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStore{db: db, logger: logger}
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

func withdrawalKey(withdrawalHash string) []byte {
	return append(append([]byte{}, withdrawalPrefix...), models.NormalizeHash(withdrawalHash)...)
}

func (s *LocalStore) Add(_ context.Context, w *models.Withdrawal) error {
	doc, err := prepareNew(w, time.Now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := withdrawalKey(doc.WithdrawalHash)
	exists, err := s.db.Has(key, nil)
	if err != nil {
		return fmt.Errorf("failed to check withdrawal: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, doc.WithdrawalHash)
	}

	if err := s.put(key, doc); err != nil {
		return err
	}

	*w = *doc
	return nil
}

func (s *LocalStore) Get(_ context.Context, withdrawalHash string) (*models.Withdrawal, error) {
	return s.get(withdrawalKey(withdrawalHash), withdrawalHash)
}

func (s *LocalStore) Query(_ context.Context, f models.Filter) ([]*models.Withdrawal, error) {
	iter := s.db.NewIterator(util.BytesPrefix(withdrawalPrefix), nil)
	defer iter.Release()

	withdrawals := make([]*models.Withdrawal, 0)
	for iter.Next() {
		var w models.Withdrawal
		if err := bson.Unmarshal(iter.Value(), &w); err != nil {
			return nil, fmt.Errorf("failed to decode withdrawal %s: %w", iter.Key(), err)
		}
		if f.Matches(&w) {
			withdrawals = append(withdrawals, &w)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawals: %w", err)
	}

	sort.SliceStable(withdrawals, func(i, j int) bool {
		return withdrawals[i].CreatedAt.Before(withdrawals[j].CreatedAt)
	})

	return withdrawals, nil
}

func (s *LocalStore) ListAll(ctx context.Context) ([]*models.Withdrawal, error) {
	return s.Query(ctx, models.Filter{})
}

func (s *LocalStore) Modify(_ context.Context, withdrawalHash string, p models.Patch) (*models.Withdrawal, error) {
	prev, ok := p.Status.Prev()
	if !ok {
		return nil, fmt.Errorf("%w: cannot patch to %q", ErrInvalidTransition, p.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := withdrawalKey(withdrawalHash)
	w, err := s.get(key, withdrawalHash)
	if err != nil {
		return nil, err
	}
	if w.Status != prev {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.Status, p.Status)
	}

	p.Apply(w, time.Now())
	if err := s.put(key, w); err != nil {
		return nil, err
	}

	s.logger.Debug("withdrawal updated", "withdrawal_hash", withdrawalHash, "status", w.Status)
	return w, nil
}

func (s *LocalStore) get(key []byte, withdrawalHash string) (*models.Withdrawal, error) {
	raw, err := s.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, withdrawalHash)
		}
		return nil, fmt.Errorf("failed to get withdrawal by hash: %w", err)
	}

	var w models.Withdrawal
	if err := bson.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("failed to decode withdrawal: %w", err)
	}
	return &w, nil
}

func (s *LocalStore) put(key []byte, w *models.Withdrawal) error {
	raw, err := bson.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to encode withdrawal: %w", err)
	}
	if err := s.db.Put(key, raw, nil); err != nil {
		return fmt.Errorf("failed to write withdrawal: %w", err)
	}
	return nil
}
