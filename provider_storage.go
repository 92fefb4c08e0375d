package referral

import (
	"context"
	"fmt"
	"os"
)

// ProviderStorage persists providers. Every mutation is atomic and durable
// once it returns; a failed call leaves stored state untouched.
type ProviderStorage interface {
	Insert(ctx context.Context, in *ProviderInput) (*Provider, error)
	Update(ctx context.Context, id int64, patch *ProviderPatch) (*Provider, error)
	Delete(ctx context.Context, id int64) error
	// FindBy returns matches in ascending id order.
	FindBy(ctx context.Context, filter ProviderFilter) ([]*Provider, error)
	All(ctx context.Context) ([]*Provider, error)
	// Specialties returns the distinct stored specialties, sorted.
	Specialties(ctx context.Context) ([]string, error)
	Close() error
}

const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// envStorageDSN overrides the relational DSN from the configuration file.
const envStorageDSN = "REFERRAL_STORAGE_DSN"

// NewProviderStorage opens the backend named by config.Type.
func NewProviderStorage(ctx context.Context, config *StorageConfig, reg *InsuranceRegistry) (ProviderStorage, error) {
	switch config.Type {
	case StorageMemory, "":
		return NewInMemoryProviderStorage(reg), nil
	case StorageFile:
		var fc FileStorageConfig
		if err := config.Config.As(&fc); err != nil {
			return nil, fmt.Errorf("file storage config: %w", err)
		}
		return NewFileProviderStorage(&fc, reg)
	case StorageSQLite:
		var sc SQLStorageConfig
		if err := config.Config.As(&sc); err != nil {
			return nil, fmt.Errorf("sqlite storage config: %w", err)
		}
		if dsn := os.Getenv(envStorageDSN); dsn != "" {
			sc.DSN = dsn
		}
		return NewSQLiteProviderStorage(ctx, &sc, reg)
	case StoragePostgres:
		var sc SQLStorageConfig
		if err := config.Config.As(&sc); err != nil {
			return nil, fmt.Errorf("postgres storage config: %w", err)
		}
		if dsn := os.Getenv(envStorageDSN); dsn != "" {
			sc.DSN = dsn
		}
		return NewPostgresProviderStorage(ctx, &sc, reg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", config.Type)
	}
}
