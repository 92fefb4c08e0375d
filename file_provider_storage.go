package referral

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// FileStorageConfig configures the "file" storage type.
type FileStorageConfig struct {
	Path string `json:"path"`
	// Key is an optional base64 AES key; when set the snapshot is encrypted.
	Key string `json:"key"`
}

var _ ProviderStorage = (*FileProviderStorage)(nil)

// FileProviderStorage serves reads from memory and rewrites a snapshot file
// after every successful mutation. The snapshot is msgpack, zstd compressed
// and optionally sealed with AES-GCM.
type FileProviderStorage struct {
	mem  *InMemoryProviderStorage
	path string

	mu     sync.Mutex
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	cipher Cipher
}

func NewFileProviderStorage(config *FileStorageConfig, reg *InsuranceRegistry) (*FileProviderStorage, error) {
	path := config.Path
	if path == "" {
		path = "referral.snapshot"
	}
	var c Cipher = plainCipher{}
	if config.Key != "" {
		key, err := base64.StdEncoding.DecodeString(config.Key)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot key: %w", err)
		}
		if c, err = NewGCMCipher(key); err != nil {
			return nil, fmt.Errorf("snapshot cipher: %w", err)
		}
	}
	e, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	d, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	s := &FileProviderStorage{
		mem:    NewInMemoryProviderStorage(reg),
		path:   path,
		enc:    e,
		dec:    d,
		cipher: c,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileProviderStorage) load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	decrypted, err := s.cipher.Decrypt(b)
	if err != nil {
		return fmt.Errorf("decrypt snapshot: %w", err)
	}
	decoded, err := s.dec.DecodeAll(decrypted, nil)
	if err != nil {
		return fmt.Errorf("decompress snapshot: %w", err)
	}
	var snap Snapshot
	if err := msgpack.Unmarshal(decoded, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	s.mem.ImportState(snap)
	return nil
}

func (s *FileProviderStorage) persist(snap Snapshot) error {
	b, err := msgpack.Marshal(&snap)
	if err != nil {
		return err
	}
	encrypted, err := s.cipher.Encrypt(s.enc.EncodeAll(b, nil))
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.%s.tmp", s.path, uuid.New().String())
	if err := os.WriteFile(tmp, encrypted, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// mutate runs fn against memory and persists the result, restoring the
// previous state if the snapshot cannot be written.
func (s *FileProviderStorage) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.mem.ExportState()
	if err := fn(); err != nil {
		return err
	}
	if err := s.persist(s.mem.ExportState()); err != nil {
		s.mem.ImportState(before)
		return wrapErr(KindInternal, "write snapshot", err)
	}
	return nil
}

func (s *FileProviderStorage) Insert(ctx context.Context, in *ProviderInput) (*Provider, error) {
	var created *Provider
	err := s.mutate(func() error {
		var err error
		created, err = s.mem.Insert(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *FileProviderStorage) Update(ctx context.Context, id int64, patch *ProviderPatch) (*Provider, error) {
	var updated *Provider
	err := s.mutate(func() error {
		var err error
		updated, err = s.mem.Update(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *FileProviderStorage) Delete(ctx context.Context, id int64) error {
	return s.mutate(func() error {
		return s.mem.Delete(ctx, id)
	})
}

func (s *FileProviderStorage) FindBy(ctx context.Context, filter ProviderFilter) ([]*Provider, error) {
	return s.mem.FindBy(ctx, filter)
}

func (s *FileProviderStorage) All(ctx context.Context) ([]*Provider, error) {
	return s.mem.All(ctx)
}

func (s *FileProviderStorage) Specialties(ctx context.Context) ([]string, error) {
	return s.mem.Specialties(ctx)
}

// Path returns the snapshot location.
func (s *FileProviderStorage) Path() string { return s.path }

func (s *FileProviderStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dec.Close()
	return s.enc.Close()
}
