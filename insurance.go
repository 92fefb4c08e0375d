package referral

import (
	"fmt"
	"regexp"
	"strings"
)

// InsurancePlan is one catalog entry.
type InsurancePlan struct {
	Key         string `yaml:"key" json:"key" validate:"required"`
	Displayable *bool  `yaml:"displayable" json:"displayable"`
}

func (p InsurancePlan) displayable() bool {
	return p.Displayable == nil || *p.Displayable
}

// DefaultInsurancePlans is the catalog used when the configuration names none.
func DefaultInsurancePlans() []InsurancePlan {
	keys := []string{
		"carefirst",
		"united_healthcare",
		"aetna",
		"cigna",
		"bcbs",
		"medicare",
		"medicaid",
	}
	plans := make([]InsurancePlan, 0, len(keys))
	for _, k := range keys {
		plans = append(plans, InsurancePlan{Key: k})
	}
	return plans
}

const payloadFieldPrefix = "takes_"

// keys end up in column names
var insuranceKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// InsuranceRegistry is the closed, ordered set of insurance keys a Provider
// can carry a flag for. It is never mutated after NewInsuranceRegistry.
type InsuranceRegistry struct {
	plans []InsurancePlan
	index map[string]int
}

func NewInsuranceRegistry(plans []InsurancePlan) (*InsuranceRegistry, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("insurance registry: no plans")
	}
	r := &InsuranceRegistry{
		plans: make([]InsurancePlan, 0, len(plans)),
		index: make(map[string]int, len(plans)),
	}
	for _, p := range plans {
		if !insuranceKeyPattern.MatchString(p.Key) {
			return nil, fmt.Errorf("insurance registry: invalid key %q", p.Key)
		}
		if _, ok := r.index[p.Key]; ok {
			return nil, fmt.Errorf("insurance registry: duplicate key %q", p.Key)
		}
		r.index[p.Key] = len(r.plans)
		r.plans = append(r.plans, p)
	}
	return r, nil
}

// MustInsuranceRegistry is NewInsuranceRegistry for static catalogs.
func MustInsuranceRegistry(plans []InsurancePlan) *InsuranceRegistry {
	r, err := NewInsuranceRegistry(plans)
	if err != nil {
		panic(err)
	}
	return r
}

// Keys returns every known key in catalog order.
func (r *InsuranceRegistry) Keys() []string {
	keys := make([]string, len(r.plans))
	for i, p := range r.plans {
		keys[i] = p.Key
	}
	return keys
}

// Displayable returns the keys published to callers, in catalog order.
func (r *InsuranceRegistry) Displayable() []string {
	keys := make([]string, 0, len(r.plans))
	for _, p := range r.plans {
		if p.displayable() {
			keys = append(keys, p.Key)
		}
	}
	return keys
}

func (r *InsuranceRegistry) IsKnown(key string) bool {
	_, ok := r.index[key]
	return ok
}

func (r *InsuranceRegistry) Len() int {
	return len(r.plans)
}

// Column is the storage column holding the flag for key.
func (r *InsuranceRegistry) Column(key string) string {
	return payloadFieldPrefix + key
}

// PayloadField is the wire field carrying the flag for key.
func (r *InsuranceRegistry) PayloadField(key string) string {
	return payloadFieldPrefix + key
}

// KeyForPayloadField reports the insurance key named by a takes_<key> field.
// ok is false when field does not have the takes_ prefix at all.
func (r *InsuranceRegistry) KeyForPayloadField(field string) (key string, ok bool) {
	if !strings.HasPrefix(field, payloadFieldPrefix) {
		return "", false
	}
	return strings.TrimPrefix(field, payloadFieldPrefix), true
}

// Flags returns a flag map holding every known key set to false.
func (r *InsuranceRegistry) Flags() map[string]bool {
	flags := make(map[string]bool, len(r.plans))
	for _, p := range r.plans {
		flags[p.Key] = false
	}
	return flags
}

// checkKeys fails with a validation error on the first unknown key.
func (r *InsuranceRegistry) checkKeys(flags map[string]bool) error {
	for _, k := range sortedKeys(flags) {
		if !r.IsKnown(k) {
			return newErrf(KindValidation, "unknown insurance key %q", k)
		}
	}
	return nil
}
