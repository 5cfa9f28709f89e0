// internal/storage/boltstore.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"pulse/internal/domain"
	perrors "pulse/internal/errors"
)

var (
	CredentialsBucket   = []byte("credentials")
	NotificationsBucket = []byte("notifications")

	notificationsKey = []byte("app_notifications")
	allBuckets       = [][]byte{CredentialsBucket, NotificationsBucket}
)

// BoltStore implements CredentialStore and NotificationLog on one bbolt file.
// mu guards db, which Compact swaps for a reopened handle.
type BoltStore struct {
	mu       sync.RWMutex
	db       *bbolt.DB
	path     string
	observer Observer
}

func openBolt(path string) (*bbolt.DB, error) {
	return bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
}

func Open(path string, observer Observer) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := openBolt(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	if observer == nil {
		observer = nopObserver{}
	}
	store := &BoltStore{db: db, path: path, observer: observer}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) Save(key, value string) error {
	s.mu.RLock()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(CredentialsBucket).Put([]byte(key), []byte(value))
	})
	s.mu.RUnlock()
	s.observer.RecordStorageOperation("credential_save", err)
	if err != nil {
		return perrors.Storage(perrors.StorageSaveFailed, key, err)
	}
	return nil
}

func (s *BoltStore) Read(key string) (string, error) {
	s.mu.RLock()
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(CredentialsBucket).Get([]byte(key)); v != nil {
			value = copyBytes(v)
		}
		return nil
	})
	s.mu.RUnlock()
	s.observer.RecordStorageOperation("credential_read", err)
	if err != nil {
		return "", perrors.Storage(perrors.StorageLoadFailed, key, err)
	}
	if value == nil {
		return "", perrors.Storage(perrors.StorageNotFound, key, nil)
	}
	return string(value), nil
}

func (s *BoltStore) Delete(key string) error {
	s.mu.RLock()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(CredentialsBucket).Delete([]byte(key))
	})
	s.mu.RUnlock()
	s.observer.RecordStorageOperation("credential_delete", err)
	if err != nil {
		return perrors.Storage(perrors.StorageDeleteFailed, key, err)
	}
	return nil
}

// LoadNotifications returns an empty list when nothing was saved yet and a
// Corrupted error when the stored value does not decode.
func (s *BoltStore) LoadNotifications() ([]domain.AppNotification, error) {
	s.mu.RLock()
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(NotificationsBucket).Get(notificationsKey); v != nil {
			raw = copyBytes(v)
		}
		return nil
	})
	s.mu.RUnlock()
	if err != nil {
		s.observer.RecordStorageOperation("notifications_load", err)
		return nil, perrors.Storage(perrors.StorageLoadFailed, "notifications", err)
	}
	if raw == nil {
		s.observer.RecordStorageOperation("notifications_load", nil)
		return []domain.AppNotification{}, nil
	}

	var list []domain.AppNotification
	if err := json.Unmarshal(raw, &list); err != nil {
		s.observer.RecordStorageOperation("notifications_load", err)
		return nil, perrors.Storage(perrors.StorageCorrupted, "notifications", err)
	}
	s.observer.RecordStorageOperation("notifications_load", nil)
	if list == nil {
		list = []domain.AppNotification{}
	}
	return list, nil
}

func (s *BoltStore) SaveNotifications(list []domain.AppNotification) error {
	if list == nil {
		list = []domain.AppNotification{}
	}
	data, err := json.Marshal(list)
	if err == nil {
		s.mu.RLock()
		err = s.db.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket(NotificationsBucket).Put(notificationsKey, data)
		})
		s.mu.RUnlock()
	}
	s.observer.RecordStorageOperation("notifications_save", err)
	if err != nil {
		return perrors.Storage(perrors.StorageSaveFailed, "notifications", err)
	}
	return nil
}

// Stats returns key counts, blob size and file size.
func (s *BoltStore) Stats() (*Stats, error) {
	stats := &Stats{}

	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.Credentials = tx.Bucket(CredentialsBucket).Stats().KeyN

		v := tx.Bucket(NotificationsBucket).Get(notificationsKey)
		if v == nil {
			return nil
		}
		stats.NotificationBytes = len(v)

		var list []domain.AppNotification
		if err := json.Unmarshal(v, &list); err != nil {
			return nil
		}
		stats.Notifications = len(list)
		for _, n := range list {
			if stats.OldestTimestamp.IsZero() || n.Timestamp.Before(stats.OldestTimestamp) {
				stats.OldestTimestamp = n.Timestamp
			}
			if n.Timestamp.After(stats.NewestTimestamp) {
				stats.NewestTimestamp = n.Timestamp
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get database stats: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = info.Size()
	}

	return stats, nil
}

// Compact rewrites the database into a fresh file and reopens it. Other
// operations wait until the new file is open.
func (s *BoltStore) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logrus.WithField("path", s.path).Info("Starting database compaction")

	tmpPath := s.path + ".compact.tmp"
	newDB, err := openBolt(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}
	defer func() {
		newDB.Close()
		os.Remove(tmpPath)
	}()

	err = s.db.View(func(oldTx *bbolt.Tx) error {
		return newDB.Update(func(newTx *bbolt.Tx) error {
			for _, name := range allBuckets {
				newBucket, err := newTx.CreateBucketIfNotExists(name)
				if err != nil {
					return fmt.Errorf("failed to create bucket %s: %w", name, err)
				}
				oldBucket := oldTx.Bucket(name)
				if oldBucket == nil {
					continue
				}
				c := oldBucket.Cursor()
				for k, v := c.First(); k != nil; k, v = c.Next() {
					if err := newBucket.Put(copyBytes(k), copyBytes(v)); err != nil {
						return fmt.Errorf("failed to copy data: %w", err)
					}
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to copy data to compact database: %w", err)
	}

	newDB.Close()
	s.db.Close()

	if err := os.Rename(tmpPath, s.path); err != nil {
		if reopened, openErr := openBolt(s.path); openErr == nil {
			s.db = reopened
		} else {
			logrus.WithError(openErr).Error("Failed to reopen database after aborted compaction")
		}
		return fmt.Errorf("failed to replace database: %w", err)
	}

	s.db, err = openBolt(s.path)
	if err != nil {
		return fmt.Errorf("failed to reopen compacted database: %w", err)
	}

	logrus.Info("Database compaction completed successfully")
	return nil
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	copied := make([]byte, len(b))
	copy(copied, b)
	return copied
}
