package admin

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/ummitifli/storefront/internal/apperr"
	"github.com/ummitifli/storefront/internal/domain"
)

// Fields is the raw content of the product form. Prices stay text until the
// form validates so a half typed value is never lost.
type Fields struct {
	Name          string `json:"name" csv:"name" validate:"required,max=200"`
	Description   string `json:"description" csv:"description" validate:"max=2000"`
	Price         string `json:"price" csv:"price" validate:"required,numeric,nonneg"`
	OriginalPrice string `json:"original_price" csv:"original_price" validate:"omitempty,numeric,nonneg"`
	ImageURL      string `json:"image_url" csv:"image_url" validate:"omitempty,url"`
	Category      string `json:"category" csv:"category" validate:"required,category"`
	InStock       bool   `json:"in_stock" csv:"in_stock"`
}

// DefaultFields are the values of an empty create form.
func DefaultFields() Fields {
	return Fields{InStock: true}
}

// FieldsFromProduct pre-fills the form from an existing product.
func FieldsFromProduct(p domain.Product) Fields {
	f := Fields{
		Name:     p.Name,
		Price:    cast.ToString(p.Price),
		Category: p.Category,
		InStock:  p.InStock,
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.OriginalPrice != nil {
		f.OriginalPrice = cast.ToString(*p.OriginalPrice)
	}
	if p.ImageURL != nil {
		f.ImageURL = *p.ImageURL
	}
	return f
}

// Input converts validated fields into create data. Empty optional fields become nil.
func (f Fields) Input() domain.ProductInput {
	in := domain.ProductInput{
		Name:     strings.TrimSpace(f.Name),
		Price:    cast.ToFloat64(strings.TrimSpace(f.Price)),
		Category: f.Category,
		InStock:  f.InStock,
	}
	if d := strings.TrimSpace(f.Description); d != "" {
		in.Description = domain.StringPtr(d)
	}
	if op := strings.TrimSpace(f.OriginalPrice); op != "" {
		in.OriginalPrice = domain.Float64Ptr(cast.ToFloat64(op))
	}
	if u := strings.TrimSpace(f.ImageURL); u != "" {
		in.ImageURL = domain.StringPtr(u)
	}
	return in
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("nonneg", func(fl validator.FieldLevel) bool {
		f, err := cast.ToFloat64E(strings.TrimSpace(fl.Field().String()))
		return err == nil && f >= 0
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return domain.IsKnownCategory(fl.Field().String())
	})
	return v
}

// Validator returns the shared validator, with the nonneg and category tags
// registered, for request payloads.
func Validator() *validator.Validate {
	return validate
}

// Validate checks the form and returns *apperr.ValidationError keyed by the
// json field names.
func (f Fields) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.Price = strings.TrimSpace(f.Price)
	f.OriginalPrice = strings.TrimSpace(f.OriginalPrice)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	return FromValidationError(validate.Struct(f))
}

// FromValidationError maps validator errors to an Arabic field -> message map.
func FromValidationError(err error) error {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperr.Invalid("_", "بيانات النموذج غير صالحة")
	}
	out := &apperr.ValidationError{Fields: make(map[string]string, len(ve))}
	for _, fe := range ve {
		if _, ok := out.Fields[fe.Field()]; ok {
			continue
		}
		out.Fields[fe.Field()] = messageForTag(fe.Tag(), fe.Param())
	}
	return out
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "هذا الحقل مطلوب"
	case "numeric":
		return "يجب إدخال رقم صحيح"
	case "nonneg":
		return "يجب أن تكون القيمة صفراً أو أكثر"
	case "url":
		return "يجب إدخال رابط صالح"
	case "category":
		return "الفئة غير معروفة"
	case "max":
		return "يجب ألا يتجاوز " + param + " حرفاً"
	case "email":
		return "يجب إدخال بريد إلكتروني صالح"
	case "eqfield":
		return "كلمات المرور غير متطابقة"
	case "min":
		return "يجب ألا يقل عن " + param + " أحرف"
	default:
		return "قيمة غير صالحة"
	}
}
