// internal/storage/store.go
package storage

import (
	"time"

	"pulse/internal/domain"
)

// Credential keys.
const (
	KeyUserID      = "user_id"
	KeyAuthToken   = "auth_token"
	KeyDeviceToken = "device_token"
)

// CredentialStore keeps small secrets by key.
type CredentialStore interface {
	Save(key, value string) error
	// Read returns a StorageError of kind NotFound for a missing key.
	Read(key string) (string, error)
	// Delete is a no-op for a missing key.
	Delete(key string) error
}

// NotificationLog persists the whole inbox as one value.
type NotificationLog interface {
	LoadNotifications() ([]domain.AppNotification, error)
	SaveNotifications(list []domain.AppNotification) error
}

// Observer is told about every storage operation. *metrics.Collector satisfies it.
type Observer interface {
	RecordStorageOperation(operation string, err error)
}

type nopObserver struct{}

func (nopObserver) RecordStorageOperation(string, error) {}

// Stats describes the local database.
type Stats struct {
	Credentials       int       `json:"credentials"`
	Notifications     int       `json:"notifications"`
	NotificationBytes int       `json:"notification_bytes"`
	DatabaseSize      int64     `json:"database_size_bytes"`
	OldestTimestamp   time.Time `json:"oldest_notification"`
	NewestTimestamp   time.Time `json:"newest_notification"`
}
