package referral

import (
	"sort"
	"strings"
)

// Provider is a practitioner listed in the directory.
type Provider struct {
	ID        int64           `json:"id" msgpack:"id"`
	Name      string          `json:"name" msgpack:"name"`
	Specialty string          `json:"specialty" msgpack:"specialty"`
	Address   string          `json:"address" msgpack:"address"`
	Phone     string          `json:"phone" msgpack:"phone"`
	Fax       string          `json:"fax" msgpack:"fax"`
	Insurance map[string]bool `json:"insurance" msgpack:"insurance"`
}

// Accepts reports whether the provider takes the given insurance.
func (p *Provider) Accepts(key string) bool {
	return p.Insurance[key]
}

func (p *Provider) clone() *Provider {
	c := *p
	c.Insurance = make(map[string]bool, len(p.Insurance))
	for k, v := range p.Insurance {
		c.Insurance[k] = v
	}
	return &c
}

// ProviderInput holds the fields of a provider to be created. Insurance keys
// left out of Insurance are stored as false.
type ProviderInput struct {
	Name      string          `json:"name" yaml:"name" validate:"required"`
	Specialty string          `json:"specialty" yaml:"specialty" validate:"required"`
	Address   string          `json:"address" yaml:"address" validate:"required"`
	Phone     string          `json:"phone" yaml:"phone" validate:"required"`
	Fax       string          `json:"fax" yaml:"fax" validate:"required"`
	Insurance map[string]bool `json:"-" yaml:"-"`
}

// ProviderPatch is a partial update. Nil fields and absent insurance keys
// keep their stored values.
type ProviderPatch struct {
	Name      *string         `json:"name"`
	Specialty *string         `json:"specialty"`
	Address   *string         `json:"address"`
	Phone     *string         `json:"phone"`
	Fax       *string         `json:"fax"`
	Insurance map[string]bool `json:"-"`
}

func (p *ProviderPatch) textFields() []struct {
	name  string
	value *string
} {
	return []struct {
		name  string
		value *string
	}{
		{"name", p.Name},
		{"specialty", p.Specialty},
		{"address", p.Address},
		{"phone", p.Phone},
		{"fax", p.Fax},
	}
}

// IsEmpty reports whether applying the patch would change nothing.
func (p *ProviderPatch) IsEmpty() bool {
	for _, f := range p.textFields() {
		if f.value != nil {
			return false
		}
	}
	return len(p.Insurance) == 0
}

func (p *ProviderPatch) applyTo(dst *Provider) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Specialty != nil {
		dst.Specialty = *p.Specialty
	}
	if p.Address != nil {
		dst.Address = *p.Address
	}
	if p.Phone != nil {
		dst.Phone = *p.Phone
	}
	if p.Fax != nil {
		dst.Fax = *p.Fax
	}
	for k, v := range p.Insurance {
		dst.Insurance[k] = v
	}
}

// ProviderFilter selects providers. Zero fields do not constrain.
type ProviderFilter struct {
	Specialty string
	Insurance string
}

// Match evaluates the filter against p. Specialty is compared exactly.
func (f ProviderFilter) Match(p *Provider) bool {
	if f.Specialty != "" && p.Specialty != f.Specialty {
		return false
	}
	if f.Insurance != "" && !p.Accepts(f.Insurance) {
		return false
	}
	return true
}

// checkInput is the storage level guard shared by every backend.
func checkInput(reg *InsuranceRegistry, in *ProviderInput) error {
	for _, f := range []struct {
		name, value string
	}{
		{"name", in.Name},
		{"specialty", in.Specialty},
		{"address", in.Address},
		{"phone", in.Phone},
		{"fax", in.Fax},
	} {
		if f.value == "" {
			return newErrf(KindValidation, "%s is required", f.name)
		}
	}
	return reg.checkKeys(in.Insurance)
}

func checkPatch(reg *InsuranceRegistry, p *ProviderPatch) error {
	for _, f := range p.textFields() {
		if f.value != nil && *f.value == "" {
			return newErrf(KindValidation, "%s must not be empty", f.name)
		}
	}
	return reg.checkKeys(p.Insurance)
}

func checkFilter(reg *InsuranceRegistry, f ProviderFilter) error {
	if f.Insurance != "" && !reg.IsKnown(f.Insurance) {
		return newErrf(KindValidation, "unknown insurance key %q", f.Insurance)
	}
	return nil
}

// newProvider builds the stored form of in with every registry key present.
func newProvider(reg *InsuranceRegistry, id int64, in *ProviderInput) *Provider {
	p := &Provider{
		ID:        id,
		Name:      in.Name,
		Specialty: in.Specialty,
		Address:   in.Address,
		Phone:     in.Phone,
		Fax:       in.Fax,
		Insurance: reg.Flags(),
	}
	for k, v := range in.Insurance {
		p.Insurance[k] = v
	}
	return p
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func distinctSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
