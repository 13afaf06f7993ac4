package store

import (
	"errors"
	"strings"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

type Repository interface {
	AppState() AppStateStore
	ChatCache() ChatCacheStore
	Backend() string
	Close() error
}

type RepositoryPaths struct {
	AppStatePath  string
	ChatCachePath string
	DBPath        string
}

type fileRepository struct {
	appState  AppStateStore
	chatCache ChatCacheStore
}

func NewFileRepository(paths RepositoryPaths) Repository {
	return &fileRepository{
		appState:  NewFileAppStateStore(paths.AppStatePath),
		chatCache: NewFileChatCacheStore(paths.ChatCachePath),
	}
}

func (r *fileRepository) AppState() AppStateStore {
	return r.appState
}

func (r *fileRepository) ChatCache() ChatCacheStore {
	return r.chatCache
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}

func OpenRepository(paths RepositoryPaths, backend string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendBbolt:
		if strings.TrimSpace(paths.DBPath) == "" {
			return nil, errors.New("db path is required for bbolt repository")
		}
		return NewBboltRepository(paths.DBPath)
	case RepositoryBackendFile:
		if strings.TrimSpace(paths.AppStatePath) == "" || strings.TrimSpace(paths.ChatCachePath) == "" {
			return nil, errors.New("state paths are required for file repository")
		}
		return NewFileRepository(paths), nil
	default:
		return nil, errors.New("unsupported repository backend: " + backend)
	}
}
