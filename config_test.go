package referral

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	c, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ":5000", c.Server.Addr)
	assert.Equal(t, []string{"*"}, c.Server.AllowedOrigins)
	assert.Equal(t, 10*time.Second, c.Server.ShutdownTimeout)
	assert.Equal(t, StorageMemory, c.Storage.Type)
	assert.Equal(t, DefaultInsurancePlans(), c.Insurance)
	assert.Equal(t, SpecialtiesFixed, c.Specialties.Source)
	assert.Len(t, c.Specialties.Names, 32)
	assert.False(t, c.Seed.Enable)
}

func TestLoadConfig_Maryland(t *testing.T) {
	c, err := LoadConfig("testdata/maryland.yaml")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, StorageFile, c.Storage.Type)
	assert.Equal(t, SpecialtiesDerived, c.Specialties.Source)
	assert.True(t, c.Seed.Enable)
	assert.Equal(t, "testdata/maryland_seed.yaml", c.Seed.File)

	reg, err := NewInsuranceRegistry(c.Insurance)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 13, reg.Len())
	assert.True(t, reg.IsKnown("john_hopkins"))
	assert.False(t, reg.IsKnown("aetna"))

	var fc FileStorageConfig
	if err := c.Storage.Config.As(&fc); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "./data/maryland.snapshot", fc.Path)
}

func TestLoadConfig_Invalid(t *testing.T) {
	write := func(t *testing.T, body string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "referral.yaml")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("duplicate insurance key", func(t *testing.T) {
		_, err := LoadConfig("testdata/invalid_insurance.yaml")
		assert.Error(t, err)
	})
	t.Run("unknown storage type", func(t *testing.T) {
		_, err := LoadConfig(write(t, "storage:\n  type: redis\n"))
		assert.Error(t, err)
	})
	t.Run("unknown specialty source", func(t *testing.T) {
		_, err := LoadConfig(write(t, "specialties:\n  source: remote\n"))
		assert.Error(t, err)
	})
	t.Run("bad insurance key", func(t *testing.T) {
		_, err := LoadConfig(write(t, "insurance:\n  - key: Blue Cross\n"))
		assert.Error(t, err)
	})
	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfig(write(t, "server: [\n"))
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestDynamicConfig_As(t *testing.T) {
	var sc SQLStorageConfig
	err := DynamicConfig{"dsn": "file.db", "maxConns": "4"}.As(&sc)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "file.db", sc.DSN)
	assert.EqualValues(t, 4, sc.MaxConns)
}
