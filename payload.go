package referral

import (
	"sort"

	"github.com/mitchellh/mapstructure"
)

// textPayload is the text part of a create or update body. Pointers tell an
// absent field from an empty one.
type textPayload struct {
	Name      *string `json:"name"`
	Specialty *string `json:"specialty"`
	Address   *string `json:"address"`
	Phone     *string `json:"phone"`
	Fax       *string `json:"fax"`
}

// decodePayload splits a flat body into text fields and takes_<key> flags.
// Fields that are neither are ignored; unknown keys are left for the caller
// to reject against the registry.
func decodePayload(reg *InsuranceRegistry, raw map[string]interface{}) (*textPayload, map[string]bool, error) {
	var (
		tp textPayload
		md mapstructure.Metadata
	)
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   &tp,
		TagName:  "json",
		Metadata: &md,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := d.Decode(raw); err != nil {
		return nil, nil, wrapErr(KindValidation, "invalid payload", err)
	}

	unused := append([]string(nil), md.Unused...)
	sort.Strings(unused)
	flags := make(map[string]bool)
	for _, field := range unused {
		key, ok := reg.KeyForPayloadField(field)
		if !ok || raw[field] == nil {
			continue
		}
		v, ok := raw[field].(bool)
		if !ok {
			return nil, nil, newErrf(KindValidation, "%s must be a boolean", field)
		}
		flags[key] = v
	}
	return &tp, flags, nil
}

// DecodeProviderInput reads a create body.
func DecodeProviderInput(reg *InsuranceRegistry, raw map[string]interface{}) (*ProviderInput, error) {
	tp, flags, err := decodePayload(reg, raw)
	if err != nil {
		return nil, err
	}
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return &ProviderInput{
		Name:      deref(tp.Name),
		Specialty: deref(tp.Specialty),
		Address:   deref(tp.Address),
		Phone:     deref(tp.Phone),
		Fax:       deref(tp.Fax),
		Insurance: flags,
	}, nil
}

// DecodeProviderPatch reads an update body.
func DecodeProviderPatch(reg *InsuranceRegistry, raw map[string]interface{}) (*ProviderPatch, error) {
	tp, flags, err := decodePayload(reg, raw)
	if err != nil {
		return nil, err
	}
	return &ProviderPatch{
		Name:      tp.Name,
		Specialty: tp.Specialty,
		Address:   tp.Address,
		Phone:     tp.Phone,
		Fax:       tp.Fax,
		Insurance: flags,
	}, nil
}
