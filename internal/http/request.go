package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"rentbook/internal/core"
)

var (
	alphaSpaceRe = regexp.MustCompile(`^[A-Za-z ]+$`)
	decimalRe    = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)
	digitsRe     = regexp.MustCompile(`^\d+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	mustRegister(v, "alphaspace", func(fl validator.FieldLevel) bool {
		return alphaSpaceRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "decimal", func(fl validator.FieldLevel) bool {
		return decimalRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "digits", func(fl validator.FieldLevel) bool {
		return digitsRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "apartment_type", func(fl validator.FieldLevel) bool {
		_, err := core.ParseApartmentType(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "payment_method", func(fl validator.FieldLevel) bool {
		_, err := core.ParsePaymentMethod(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "lease_date", func(fl validator.FieldLevel) bool {
		_, err := core.ParseLeaseDate(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

type addTenantRequest struct {
	Name          string `json:"name" validate:"required,alphaspace"`
	RentAmount    string `json:"rent_amount" validate:"required,decimal"`
	Floor         string `json:"floor" validate:"required"`
	ApartmentType string `json:"apartment_type" validate:"required,apartment_type"`
	PhoneNumber   string `json:"phone_number" validate:"required,digits"`
	StartingDate  string `json:"starting_date" validate:"required,lease_date"`
}

// toTenant converts a validated request. Rent must be strictly positive here
// even though the ledger itself accepts any rent.
func (req addTenantRequest) toTenant() (core.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return core.Tenant{}, newValidationError("name", "is required")
	}
	rent, err := core.ParseDecimalToCents(req.RentAmount)
	if err != nil {
		return core.Tenant{}, newValidationError("rent_amount", "must be greater than zero")
	}
	apartment, err := core.ParseApartmentType(req.ApartmentType)
	if err != nil {
		return core.Tenant{}, newValidationError("apartment_type", err.Error())
	}
	start, err := core.ParseLeaseDate(req.StartingDate)
	if err != nil {
		return core.Tenant{}, newValidationError("starting_date", err.Error())
	}
	return core.NewTenant(
		name,
		core.Money{Cents: rent},
		strings.TrimSpace(req.Floor),
		apartment,
		req.PhoneNumber,
		start,
	), nil
}

type applyPaymentRequest struct {
	TenantName    string `json:"tenant_name" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,payment_method"`
	PeriodTag     string `json:"period_tag" validate:"required"`
	CustomTag     string `json:"custom_tag" validate:"required_if=PeriodTag Custom"`
	Amount        string `json:"amount" validate:"required,decimal"`
}

type paymentInput struct {
	name   string
	method core.PaymentMethod
	tag    core.PeriodTag
	amount core.Money
}

// toPayment converts a validated request. A zero amount passes here so the
// ledger can reject it with its own error.
func (req applyPaymentRequest) toPayment() (paymentInput, error) {
	method, err := core.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return paymentInput{}, newValidationError("payment_method", err.Error())
	}
	tag, err := core.NewPeriodTag(req.PeriodTag, req.CustomTag)
	if err != nil {
		return paymentInput{}, newValidationError("custom_tag", "is required")
	}
	cents, err := core.ParseCents(req.Amount)
	if err != nil {
		return paymentInput{}, newValidationError("amount", err.Error())
	}
	return paymentInput{
		name:   strings.TrimSpace(req.TenantName),
		method: method,
		tag:    tag,
		amount: core.Money{Cents: cents},
	}, nil
}

// decodeJSONBody decodes and validates the request body into dest.
func decodeJSONBody(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return &validationError{details: map[string]string{"body": "invalid JSON: " + err.Error()}}
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return &validationError{details: map[string]string{"body": err.Error()}}
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = validationMessage(fe)
	}
	return &validationError{details: details}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "alphaspace":
		return "must contain only letters and spaces"
	case "decimal":
		return "must contain only digits and at most one decimal point"
	case "digits":
		return "must contain only digits"
	case "apartment_type":
		return fmt.Sprintf("must be one of %v", core.ApartmentTypes())
	case "payment_method":
		return fmt.Sprintf("must be one of %v", core.PaymentMethods())
	case "lease_date":
		return "must be a date like 05-January-2025"
	}
	return "is invalid"
}
