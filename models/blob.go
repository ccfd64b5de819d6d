package models

import "time"

// Blob is a single serialized value stored under a fixed key.
type Blob struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

// Setting represents a key-value configuration pair persisted next to the
// store blob (folder ids of remote hosts, vault markers).
type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}
