package referral

import (
	"strings"
)

// SQLStorageConfig configures the "sqlite" and "postgres" storage types.
type SQLStorageConfig struct {
	DSN      string `json:"dsn"`
	MaxConns int    `json:"maxConns"`
}

var textColumns = []string{"name", "specialty", "address", "phone", "fax"}

// column is one column = value pair of an INSERT, SET or WHERE list.
type column struct {
	name  string
	value interface{}
}

// selectList is every providers column in scan order.
func selectList(reg *InsuranceRegistry, quote func(string) string) string {
	cols := make([]string, 0, 1+len(textColumns)+reg.Len())
	cols = append(cols, quote("id"))
	for _, c := range textColumns {
		cols = append(cols, quote(c))
	}
	for _, k := range reg.Keys() {
		cols = append(cols, quote(reg.Column(k)))
	}
	return strings.Join(cols, ", ")
}

func inputColumns(reg *InsuranceRegistry, in *ProviderInput) []column {
	cols := []column{
		{"name", in.Name},
		{"specialty", in.Specialty},
		{"address", in.Address},
		{"phone", in.Phone},
		{"fax", in.Fax},
	}
	for _, k := range reg.Keys() {
		cols = append(cols, column{reg.Column(k), in.Insurance[k]})
	}
	return cols
}

// patchColumns lists only the fields present in patch, insurance in catalog order.
func patchColumns(reg *InsuranceRegistry, patch *ProviderPatch) []column {
	var cols []column
	for _, f := range patch.textFields() {
		if f.value != nil {
			cols = append(cols, column{f.name, *f.value})
		}
	}
	for _, k := range reg.Keys() {
		if v, ok := patch.Insurance[k]; ok {
			cols = append(cols, column{reg.Column(k), v})
		}
	}
	return cols
}

func filterColumns(reg *InsuranceRegistry, f ProviderFilter) []column {
	var cols []column
	if f.Specialty != "" {
		cols = append(cols, column{"specialty", f.Specialty})
	}
	if f.Insurance != "" {
		cols = append(cols, column{reg.Column(f.Insurance), true})
	}
	return cols
}

// joinColumns renders "a = $1 AND b = $2" style lists and returns the args.
// next yields the placeholder for the i-th argument, starting at offset+1.
func joinColumns(cols []column, sep string, offset int, quote func(string) string, next func(int) string) (string, []interface{}) {
	parts := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		parts[i] = quote(c.name) + " = " + next(offset+i+1)
		args[i] = c.value
	}
	return strings.Join(parts, sep), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProvider(reg *InsuranceRegistry, row rowScanner) (*Provider, error) {
	keys := reg.Keys()
	p := &Provider{Insurance: make(map[string]bool, len(keys))}
	flags := make([]bool, len(keys))
	dest := []interface{}{&p.ID, &p.Name, &p.Specialty, &p.Address, &p.Phone, &p.Fax}
	for i := range flags {
		dest = append(dest, &flags[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	for i, k := range keys {
		p.Insurance[k] = flags[i]
	}
	return p, nil
}
