package store

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDB is a KV backed by a LevelDB database directory.
type LevelDB struct {
	db       *leveldb.DB
	maxBytes int
}

// OpenLevelDB opens or creates the database at path. Values longer than maxBytes
// are rejected with ErrTooLarge; zero means no limit.
func OpenLevelDB(path string, maxBytes int) (*LevelDB, error) {
	const op = "store.OpenLevelDB"

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &LevelDB{db: db, maxBytes: maxBytes}, nil
}

func (s *LevelDB) Put(key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	if s.maxBytes > 0 && len(value) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(value), s.maxBytes)
	}
	return s.db.Put([]byte(key), value, nil)
}

func (s *LevelDB) Get(key string) ([]byte, error) {
	value, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *LevelDB) Delete(key string) error {
	return s.db.Delete([]byte(key), nil)
}

func (s *LevelDB) Close() error {
	return s.db.Close()
}
