package referral

import (
	"context"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// SampleProviders are the bodies seeded when no seed file is configured.
// They use the default insurance catalog.
func SampleProviders() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"name":                    "Dr. John Smith",
			"specialty":               "Cardiology",
			"address":                 "123 Heart Lane, Waldorf, MD 20602",
			"phone":                   "301-555-0101",
			"fax":                     "301-555-0102",
			"takes_carefirst":         true,
			"takes_united_healthcare": false,
			"takes_aetna":             true,
			"takes_medicare":          true,
		},
		{
			"name":                    "Dr. Sarah Johnson",
			"specialty":               "Gastroenterology",
			"address":                 "456 Stomach St, Silver Spring, MD 20910",
			"phone":                   "301-555-0201",
			"fax":                     "301-555-0202",
			"takes_carefirst":         true,
			"takes_united_healthcare": true,
			"takes_cigna":             true,
			"takes_medicare":          true,
		},
		{
			"name":                    "Dr. Michael Brown",
			"specialty":               "Cardiology",
			"address":                 "789 Cardiac Ave, Bethesda, MD 20814",
			"phone":                   "301-555-0301",
			"fax":                     "301-555-0302",
			"takes_united_healthcare": true,
			"takes_aetna":             true,
			"takes_bcbs":              true,
			"takes_medicare":          true,
		},
		{
			"name":                    "Dr. Emily Davis",
			"specialty":               "Dermatology",
			"address":                 "321 Skin Way, Rockville, MD 20850",
			"phone":                   "301-555-0401",
			"fax":                     "301-555-0402",
			"takes_carefirst":         true,
			"takes_united_healthcare": false,
			"takes_aetna":             true,
			"takes_medicaid":          true,
		},
		{
			"name":                    "Dr. Robert Wilson",
			"specialty":               "Gastroenterology",
			"address":                 "654 Digestive Dr, Annapolis, MD 21401",
			"phone":                   "410-555-0501",
			"fax":                     "410-555-0502",
			"takes_carefirst":         false,
			"takes_united_healthcare": true,
			"takes_cigna":             true,
			"takes_bcbs":              true,
			"takes_medicare":          true,
		},
		{
			"name":                    "Dr. Lisa Anderson",
			"specialty":               "Neurology",
			"address":                 "987 Brain Blvd, Baltimore, MD 21201",
			"phone":                   "410-555-0601",
			"fax":                     "410-555-0602",
			"takes_carefirst":         true,
			"takes_united_healthcare": true,
			"takes_aetna":             false,
			"takes_medicare":          true,
			"takes_medicaid":          true,
		},
	}
}

// LoadSeedFile reads a YAML list of provider bodies.
func LoadSeedFile(path string) ([]map[string]interface{}, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []map[string]interface{}
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return entries, nil
}

// Seed creates entries through d when the directory is empty. It returns the
// number of providers created.
func Seed(ctx context.Context, d *Directory, entries []map[string]interface{}) (int, error) {
	n, err := d.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[INFO] directory holds %d providers, skipping seed", n)
		return 0, nil
	}
	created := 0
	for i, raw := range entries {
		in, err := DecodeProviderInput(d.Registry(), raw)
		if err != nil {
			return created, fmt.Errorf("seed entry %d: %w", i, err)
		}
		if _, err := d.CreateProvider(ctx, in); err != nil {
			return created, fmt.Errorf("seed entry %d: %w", i, err)
		}
		created++
	}
	log.Printf("[INFO] seeded %d providers", created)
	return created, nil
}
