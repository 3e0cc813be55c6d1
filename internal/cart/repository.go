package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/models"
)

type SnapshotItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type Snapshot struct {
	ID             string                `json:"id"`
	Items          []SnapshotItem        `json:"items"`
	DeliveryMethod models.DeliveryMethod `json:"deliveryMethod"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// Repository stores cart snapshots. Load of an unknown id returns an empty
// snapshot and no error.
type Repository interface {
	Load(ctx context.Context, id string) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Delete(ctx context.Context, id string) error
}

type MemoryRepository struct {
	mu    sync.Mutex
	carts map[string]Snapshot
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]Snapshot)}
}

func (r *MemoryRepository) Load(_ context.Context, id string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.carts[id]
	if !ok {
		return Snapshot{ID: id}, nil
	}
	snap.Items = append([]SnapshotItem(nil), snap.Items...)
	return snap, nil
}

func (r *MemoryRepository) Save(_ context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap.Items = append([]SnapshotItem(nil), snap.Items...)
	r.carts[snap.ID] = snap
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, id)
	return nil
}

// FileRepository keeps one JSON file per cart under dir.
type FileRepository struct {
	dir string
	mu  sync.Mutex
}

func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cart dir: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *FileRepository) Load(_ context.Context, id string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{ID: id}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read cart %s: %w", id, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode cart %s: %w", id, err)
	}
	snap.ID = id
	return snap, nil
}

// Save writes through a temp file and rename so readers never see a partial
// snapshot.
func (r *FileRepository) Save(_ context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", snap.ID, err)
	}
	tmp, err := os.CreateTemp(r.dir, snap.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("write cart %s: %w", snap.ID, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cart %s: %w", snap.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write cart %s: %w", snap.ID, err)
	}
	if err := os.Rename(tmp.Name(), r.path(snap.ID)); err != nil {
		return fmt.Errorf("write cart %s: %w", snap.ID, err)
	}
	return nil
}

func (r *FileRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(r.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete cart %s: %w", id, err)
	}
	return nil
}

const cartKeyPrefix = "cart:"

// RedisRepository stores snapshots as JSON strings that expire after ttl of
// inactivity.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func (r *RedisRepository) Load(ctx context.Context, id string) (Snapshot, error) {
	data, err := r.client.Get(ctx, cartKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{ID: id}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load cart %s: %w", id, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode cart %s: %w", id, err)
	}
	snap.ID = id
	return snap, nil
}

func (r *RedisRepository) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", snap.ID, err)
	}
	if err := r.client.Set(ctx, cartKeyPrefix+snap.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save cart %s: %w", snap.ID, err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, cartKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete cart %s: %w", id, err)
	}
	return nil
}
