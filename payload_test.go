package referral

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func decodeJSON(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestDecodeProviderInput(t *testing.T) {
	reg := testRegistry(t)
	in, err := DecodeProviderInput(reg, decodeJSON(t, `{
		"name": "Dr. A",
		"specialty": "Cardiology",
		"address": "1 Rd",
		"phone": "555",
		"fax": "556",
		"takes_aetna": true,
		"takes_cigna": false,
		"notes": "ignored"
	}`))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, &ProviderInput{
		Name:      "Dr. A",
		Specialty: "Cardiology",
		Address:   "1 Rd",
		Phone:     "555",
		Fax:       "556",
		Insurance: map[string]bool{"aetna": true, "cigna": false},
	}, in)
}

func TestDecodeProviderInput_MissingFieldsAreEmpty(t *testing.T) {
	in, err := DecodeProviderInput(testRegistry(t), decodeJSON(t, `{"name": "Dr. A"}`))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "Dr. A", in.Name)
	assert.Empty(t, in.Fax)
	assert.Empty(t, in.Insurance)
}

func TestDecodeProviderInput_KeepsUnknownKeys(t *testing.T) {
	in, err := DecodeProviderInput(testRegistry(t), decodeJSON(t, `{"takes_not_a_real_key": true}`))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, map[string]bool{"not_a_real_key": true}, in.Insurance)
}

func TestDecodeProviderPatch(t *testing.T) {
	reg := testRegistry(t)

	patch, err := DecodeProviderPatch(reg, decodeJSON(t, `{"fax": "X", "phone": null, "takes_bcbs": true, "takes_medicaid": null}`))
	if err != nil {
		t.Fatal(err)
	}
	if assert.NotNil(t, patch.Fax) {
		assert.Equal(t, "X", *patch.Fax)
	}
	assert.Nil(t, patch.Name)
	assert.Nil(t, patch.Phone)
	assert.Equal(t, map[string]bool{"bcbs": true}, patch.Insurance)

	patch, err = DecodeProviderPatch(reg, decodeJSON(t, `{}`))
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, patch.IsEmpty())
}

func TestDecodePayload_TypeErrors(t *testing.T) {
	reg := testRegistry(t)
	tests := map[string]string{
		"non-boolean flag": `{"takes_aetna": "yes"}`,
		"numeric flag":     `{"takes_aetna": 1}`,
		"non-string text":  `{"name": 5}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeProviderPatch(reg, decodeJSON(t, body))
			assert.True(t, IsValidation(err), "got %v", err)
		})
	}
}
