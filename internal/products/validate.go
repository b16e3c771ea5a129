package products

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"quicksale/backend/internal/domain"
)

var validate = validator.New()

// checkStruct runs the validate tags on v and flattens failures into one
// ErrInvalidInput error naming each field and its failed tag.
func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		fields = append(fields, fmt.Sprintf("%s=%s", strings.ToLower(ve.Field()), ve.Tag()))
	}
	sort.Strings(fields)
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(fields, ", "))
}

func checkPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	return nil
}

func normalizeInput(in domain.ProductInput) domain.ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	return in
}

// normalizePatch trims the text fields of p without touching the caller's
// strings.
func normalizePatch(p domain.ProductPatch) domain.ProductPatch {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	if p.SKU != nil {
		sku := strings.TrimSpace(*p.SKU)
		p.SKU = &sku
	}
	return p
}

func validateInput(in domain.ProductInput) error {
	if err := checkStruct(in); err != nil {
		return err
	}
	return checkPrice(in.Price)
}

func validatePatch(p domain.ProductPatch) error {
	if err := checkStruct(p); err != nil {
		return err
	}
	if p.Price != nil {
		return checkPrice(*p.Price)
	}
	return nil
}
