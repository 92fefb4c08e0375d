// Package referral serves a directory of specialist providers that can be
// searched by specialty and accepted insurance.
package referral

import (
	"context"
	"fmt"
	"log"
)

// NewServerWithConfig wires storage, catalogs and the directory described by
// config into a Server. The returned server owns the storage and closes it
// when Run returns.
func NewServerWithConfig(ctx context.Context, config *Config, opts ...ServerOption) (*Server, error) {
	registry, err := NewInsuranceRegistry(config.Insurance)
	if err != nil {
		return nil, err
	}
	storage, err := NewProviderStorage(ctx, &config.Storage, registry)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", config.Storage.Type, err)
	}
	log.Printf("[INFO] %s storage ready, %d insurance plans", config.Storage.Type, registry.Len())

	var specialties SpecialtyCatalog
	switch config.Specialties.Source {
	case SpecialtiesDerived:
		specialties = NewDerivedSpecialtyCatalog(storage)
	default:
		specialties = NewFixedSpecialtyCatalog(config.Specialties.Names)
	}
	directory := NewDirectory(registry, specialties, storage)

	if config.Seed.Enable {
		entries := SampleProviders()
		if config.Seed.File != "" {
			if entries, err = LoadSeedFile(config.Seed.File); err != nil {
				_ = storage.Close()
				return nil, err
			}
		}
		if _, err := Seed(ctx, directory, entries); err != nil {
			_ = storage.Close()
			return nil, err
		}
	}

	opts = append([]ServerOption{WithAllowedOrigins(config.Server.AllowedOrigins)}, opts...)
	s, err := NewServer(ctx, directory, opts...)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	s.config = &config.Server
	s.storage = storage
	return s, nil
}
