package referral

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Directory is the lookup and administration surface over a ProviderStorage.
type Directory struct {
	registry    *InsuranceRegistry
	specialties SpecialtyCatalog
	storage     ProviderStorage
	validate    *validator.Validate
}

func NewDirectory(registry *InsuranceRegistry, specialties SpecialtyCatalog, storage ProviderStorage) *Directory {
	return &Directory{
		registry:    registry,
		specialties: specialties,
		storage:     storage,
		validate:    newValidator(),
	}
}

// newValidator reports field names by their json tag.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (d *Directory) Registry() *InsuranceRegistry {
	return d.registry
}

func (d *Directory) ListSpecialties(ctx context.Context) ([]string, error) {
	return d.specialties.Specialties(ctx)
}

func (d *Directory) ListInsuranceKeys(ctx context.Context) ([]string, error) {
	return d.registry.Displayable(), nil
}

// QueryProviders returns providers in exactly specialty that accept insurance.
func (d *Directory) QueryProviders(ctx context.Context, specialty, insurance string) ([]*Provider, error) {
	if specialty == "" || insurance == "" {
		return nil, newErr(KindBadRequest, "both specialty and insurance are required")
	}
	if !d.registry.IsKnown(insurance) {
		return nil, newErr(KindBadRequest, "invalid insurance type")
	}
	providers, err := d.storage.FindBy(ctx, ProviderFilter{Specialty: specialty, Insurance: insurance})
	if err != nil {
		return nil, internalErr("query providers", err)
	}
	return providers, nil
}

// ListAllProviders returns every stored provider, unfiltered.
func (d *Directory) ListAllProviders(ctx context.Context) ([]*Provider, error) {
	providers, err := d.storage.All(ctx)
	if err != nil {
		return nil, internalErr("list providers", err)
	}
	return providers, nil
}

func (d *Directory) CreateProvider(ctx context.Context, in *ProviderInput) (*Provider, error) {
	if in == nil {
		return nil, newErr(KindValidation, "empty payload")
	}
	if err := d.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, newErrf(KindValidation, "%s is required", verrs[0].Field())
		}
		return nil, wrapErr(KindValidation, "invalid provider", err)
	}
	if err := d.registry.checkKeys(in.Insurance); err != nil {
		return nil, err
	}
	p, err := d.storage.Insert(ctx, in)
	if err != nil {
		return nil, internalErr("create provider", err)
	}
	return p, nil
}

// UpdateProvider applies patch to the provider with id. The whole patch is
// validated before anything is written.
func (d *Directory) UpdateProvider(ctx context.Context, id int64, patch *ProviderPatch) (*Provider, error) {
	if patch == nil {
		patch = &ProviderPatch{}
	}
	if err := checkPatch(d.registry, patch); err != nil {
		return nil, err
	}
	p, err := d.storage.Update(ctx, id, patch)
	if err != nil {
		return nil, internalErr("update provider", err)
	}
	return p, nil
}

func (d *Directory) DeleteProvider(ctx context.Context, id int64) error {
	if err := d.storage.Delete(ctx, id); err != nil {
		return internalErr("delete provider", err)
	}
	return nil
}

// Count reports how many providers are stored.
func (d *Directory) Count(ctx context.Context) (int, error) {
	all, err := d.ListAllProviders(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}
