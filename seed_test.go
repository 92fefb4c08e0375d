package referral

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeed_SampleProviders(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	n, err := Seed(ctx, d, SampleProviders())
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 6, n)

	cardio, err := d.QueryProviders(ctx, "Cardiology", "aetna")
	if err != nil {
		t.Fatal(err)
	}
	if assert.Len(t, cardio, 2) {
		assert.Equal(t, "Dr. John Smith", cardio[0].Name)
		assert.Equal(t, "Dr. Michael Brown", cardio[1].Name)
	}

	n, err = Seed(ctx, d, SampleProviders())
	if err != nil {
		t.Fatal(err)
	}
	assert.Zero(t, n)
	total, err := d.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 6, total)
}

func TestSeed_MarylandFile(t *testing.T) {
	ctx := context.Background()
	c, err := LoadConfig("testdata/maryland.yaml")
	if err != nil {
		t.Fatal(err)
	}
	reg, err := NewInsuranceRegistry(c.Insurance)
	if err != nil {
		t.Fatal(err)
	}
	d := NewDirectory(reg, NewFixedSpecialtyCatalog(nil), NewInMemoryProviderStorage(reg))

	entries, err := LoadSeedFile(c.Seed.File)
	if err != nil {
		t.Fatal(err)
	}
	n, err := Seed(ctx, d, entries)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, n)

	got, err := d.QueryProviders(ctx, "Gastroenterology", "priority_partners")
	if err != nil {
		t.Fatal(err)
	}
	if assert.Len(t, got, 1) {
		assert.Equal(t, "Dr. Sarah Johnson", got[0].Name)
		assert.Len(t, got[0].Insurance, 13)
	}
}

func TestSeed_RejectsEntryWithUnknownKey(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	body := "- name: Dr. A\n  specialty: Cardiology\n  address: 1 Rd\n  phone: \"555\"\n  fax: \"556\"\n  takes_humana: true\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	entries, err := LoadSeedFile(path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Seed(ctx, d, entries)
	assert.True(t, IsValidation(err), "got %v", err)
}
