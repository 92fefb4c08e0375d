package referral

import (
	"context"
)

// SpecialtyCatalog lists specialties offered to callers. The list is
// advisory: providers may be stored under specialties it does not name.
type SpecialtyCatalog interface {
	Specialties(ctx context.Context) ([]string, error)
}

const (
	SpecialtiesFixed   = "fixed"
	SpecialtiesDerived = "derived"
)

// DefaultSpecialties is the curated list served by the fixed catalog.
func DefaultSpecialties() []string {
	return []string{
		"Allergy and Immunology",
		"Anesthesiology",
		"Cardiology",
		"Cardiothoracic Surgery",
		"Dermatology",
		"Emergency Medicine",
		"Endocrinology",
		"Family Medicine",
		"Gastroenterology",
		"General Surgery",
		"Geriatrics",
		"Hematology/Oncology",
		"Infectious Disease",
		"Internal Medicine",
		"Nephrology",
		"Neurology",
		"Neurosurgery",
		"Obstetrics and Gynecology",
		"Ophthalmology",
		"Orthopedic Surgery",
		"Otolaryngology (ENT)",
		"Pathology",
		"Pediatrics",
		"Physical Medicine and Rehabilitation",
		"Plastic Surgery",
		"Psychiatry",
		"Pulmonary Medicine",
		"Radiation Oncology",
		"Radiology",
		"Rheumatology",
		"Urology",
		"Vascular Surgery",
	}
}

var (
	_ SpecialtyCatalog = (*FixedSpecialtyCatalog)(nil)
	_ SpecialtyCatalog = (*DerivedSpecialtyCatalog)(nil)
)

// FixedSpecialtyCatalog serves a configured list in its configured order,
// dropping blanks and repeats.
type FixedSpecialtyCatalog struct {
	names []string
}

func NewFixedSpecialtyCatalog(names []string) *FixedSpecialtyCatalog {
	seen := make(map[string]struct{}, len(names))
	c := &FixedSpecialtyCatalog{names: make([]string, 0, len(names))}
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		c.names = append(c.names, n)
	}
	return c
}

func (c *FixedSpecialtyCatalog) Specialties(ctx context.Context) ([]string, error) {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out, nil
}

// DerivedSpecialtyCatalog serves the distinct specialties currently stored.
type DerivedSpecialtyCatalog struct {
	storage ProviderStorage
}

func NewDerivedSpecialtyCatalog(storage ProviderStorage) *DerivedSpecialtyCatalog {
	return &DerivedSpecialtyCatalog{storage: storage}
}

func (c *DerivedSpecialtyCatalog) Specialties(ctx context.Context) ([]string, error) {
	names, err := c.storage.Specialties(ctx)
	if err != nil {
		return nil, internalErr("list specialties", err)
	}
	return names, nil
}
