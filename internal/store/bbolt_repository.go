package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"finchat/internal/types"
)

var (
	bucketAppState  = []byte("app_state")
	bucketChatCache = []byte("chat_cache")
	keyAppState     = []byte("state")
	keyChatList     = []byte("chats")
)

// ErrLocked is returned when another process holds the database.
var ErrLocked = errors.New("state database is locked by another process")

type bboltRepository struct {
	db        *bolt.DB
	appState  AppStateStore
	chatCache ChatCacheStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, ErrLocked
		}
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:        db,
		appState:  &bboltAppStateStore{db: db},
		chatCache: &bboltChatCacheStore{db: db},
	}, nil
}

func (r *bboltRepository) AppState() AppStateStore {
	return r.appState
}

func (r *bboltRepository) ChatCache() ChatCacheStore {
	return r.chatCache
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketAppState, bucketChatCache} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

type bboltAppStateStore struct {
	db *bolt.DB
}

func (s *bboltAppStateStore) Load(ctx context.Context) (*types.AppState, error) {
	state := &types.AppState{}
	if err := getJSON(s.db, bucketAppState, keyAppState, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *bboltAppStateStore) Save(ctx context.Context, state *types.AppState) error {
	if state == nil {
		return errors.New("state is required")
	}
	return putJSON(s.db, bucketAppState, keyAppState, state)
}

type bboltChatCacheStore struct {
	db *bolt.DB
}

func (s *bboltChatCacheStore) Load(ctx context.Context) ([]*types.ChatSummary, error) {
	var chats []*types.ChatSummary
	if err := getJSON(s.db, bucketChatCache, keyChatList, &chats); err != nil {
		return nil, err
	}
	return normalizeChats(chats), nil
}

func (s *bboltChatCacheStore) Save(ctx context.Context, chats []*types.ChatSummary) error {
	return putJSON(s.db, bucketChatCache, keyChatList, normalizeChats(chats))
}

func getJSON(db *bolt.DB, bucket, key []byte, out any) error {
	return db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		raw := b.Get(key)
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, out)
	})
}

func putJSON(db *bolt.DB, bucket, key []byte, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return errors.New(string(bucket) + " bucket missing")
		}
		return b.Put(key, raw)
	})
}
