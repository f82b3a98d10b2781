package kvbackend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/recon/recon/storage"
	bolt "go.etcd.io/bbolt"
)

// Bolt stores key-value pairs in bolt db.
type Bolt struct {
	db *bolt.DB
}

// NewBolt creates a new BoltDB instance with the default location
// (~/.recon/state.db). The directory is created if it does not exist.
func NewBolt() (*Bolt, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "get home dir")
	}
	return NewBoltWithFile(filepath.Join(home, ".recon", "state.db"))
}

// NewBoltWithFile creates and opens a database at the given path. If the
// file or directory do not exist, they are created.
func NewBoltWithFile(file string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return nil, errors.Wrapf(err, "ensure dir exists: %s", filepath.Dir(file))
	}
	db, err := bolt.Open(file, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open bolt db")
	}
	return &Bolt{db: db}, nil
}

// Close closes the Bolt DB store and releases all resources.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Put creates or updates a value.
func (b *Bolt) Put(ctx context.Context, key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		buc, k, err := boltBucketKey(key)
		if err != nil {
			return errors.Wrap(err, "get bucket name")
		}
		bb, err := tx.CreateBucketIfNotExists(buc)
		if err != nil {
			return errors.Wrap(err, "ensure bucket exists")
		}
		return bb.Put(k, value)
	})
}

// Get returns a single value.
func (b *Bolt) Get(ctx context.Context, key string) ([]byte, error) {
	var ret []byte
	if err := b.db.View(func(tx *bolt.Tx) error {
		buc, k, err := boltBucketKey(key)
		if err != nil {
			return errors.Wrap(err, "get bucket name")
		}
		bb := tx.Bucket(buc)
		if bb == nil {
			return storage.ErrNotFound
		}
		data := bb.Get(k)
		if len(data) == 0 {
			return storage.ErrNotFound
		}
		ret = make([]byte, len(data))
		copy(ret, data)
		return nil
	}); err != nil {
		return nil, err
	}
	return ret, nil
}

// Delete deletes a key.
func (b *Bolt) Delete(ctx context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		buc, k, err := boltBucketKey(key)
		if err != nil {
			return errors.Wrap(err, "get bucket name")
		}
		bb := tx.Bucket(buc)
		if bb == nil {
			return storage.ErrNotFound
		}
		if len(bb.Get(k)) == 0 {
			return storage.ErrNotFound
		}
		if err := bb.Delete(k); err != nil {
			return errors.Wrap(err, "delete key")
		}
		return nil
	})
}

// Scan performs a prefix scan and populates the returned map with any values
// matching the prefix.
func (b *Bolt) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	if err := b.db.View(func(tx *bolt.Tx) error {
		buc, p, err := boltBucketKey(prefix)
		if err != nil {
			return errors.Wrap(err, "get bucket name")
		}
		bb := tx.Bucket(buc)
		if bb == nil {
			// Nothing stored for this namespace-project yet.
			return nil
		}
		return bb.ForEach(func(k, v []byte) error {
			if !strings.HasPrefix(string(k), string(p)) {
				return nil
			}
			val := make([]byte, len(v))
			copy(val, v)
			out[string(buc)+"/"+string(k)] = val
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// boltBucketKey splits a key formatted as ns/project/addr into a bucket name
// (ns/project) and the key within the bucket (addr).
func boltBucketKey(key string) (bucket, k []byte, err error) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 2 {
		return nil, nil, errors.Errorf("key %q must contain at least ns/project", key)
	}
	if len(parts) == 2 {
		return []byte(parts[0] + "/" + parts[1]), nil, nil
	}
	return []byte(parts[0] + "/" + parts[1]), []byte(parts[2]), nil
}

var _ storage.KVBackend = (*Bolt)(nil)
