package conversion

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "conversions"

// ErrNotFound is returned for unknown conversion IDs
var ErrNotFound = errors.New("conversion not found")

// DB defines the interface for conversion history storage
type DB interface {
	// SaveConversion saves a conversion record
	SaveConversion(conversion *Conversion) error

	// GetConversion retrieves a conversion by ID
	GetConversion(id string) (*Conversion, error)

	// ListConversions returns all conversions, newest first
	ListConversions() ([]*Conversion, error)

	// DeleteConversion removes a conversion record
	DeleteConversion(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveConversion saves a conversion record
func (b *BoltDB) SaveConversion(conversion *Conversion) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(conversion)
		if err != nil {
			return fmt.Errorf("marshaling conversion: %w", err)
		}
		return bucket.Put([]byte(conversion.ID), data)
	})
}

// GetConversion retrieves a conversion by ID
func (b *BoltDB) GetConversion(id string) (*Conversion, error) {
	var conversion *Conversion
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &conversion)
	})
	if err != nil {
		return nil, err
	}
	return conversion, nil
}

// ListConversions returns all conversions, newest first
func (b *BoltDB) ListConversions() ([]*Conversion, error) {
	conversions := make([]*Conversion, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var conversion Conversion
			if err := json.Unmarshal(v, &conversion); err != nil {
				return fmt.Errorf("unmarshaling conversion: %w", err)
			}
			conversions = append(conversions, &conversion)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(conversions, func(i, j int) bool {
		return conversions[i].CreatedAt.After(conversions[j].CreatedAt)
	})
	return conversions, nil
}

// DeleteConversion removes a conversion record
func (b *BoltDB) DeleteConversion(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
