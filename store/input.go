package store

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/carrierwatcher/carrierwatcher/model"
)

// Input is the manual-entry form for one application. A fresh Input is
// built for each submission.
type Input struct {
	Company         string       `json:"company" validate:"required"`
	Code            string       `json:"code" validate:"required"`
	Theme           string       `json:"theme"`
	Domain          string       `json:"domain"`
	Status          model.Status `json:"status" validate:"omitempty,oneof=Pending Interview Accepted Rejected"`
	ApplicationDate string       `json:"application_date" validate:"omitempty,datetime=2006-01-02"`
	StartDate       string       `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Normalize trims every field and defaults the status to Pending.
func (in Input) Normalize() Input {
	in.Code = strings.TrimSpace(in.Code)
	in.Company = strings.TrimSpace(in.Company)
	in.Theme = strings.TrimSpace(in.Theme)
	in.Domain = strings.TrimSpace(in.Domain)
	in.Status = model.Status(strings.TrimSpace(string(in.Status)))
	in.ApplicationDate = strings.TrimSpace(in.ApplicationDate)
	in.StartDate = strings.TrimSpace(in.StartDate)
	if in.Status == "" {
		in.Status = model.StatusPending
	}
	return in
}

// Validate checks the normalized input and returns a validation error
// naming the first offending field.
func (in Input) Validate() error {
	err := validate.Struct(in.Normalize())
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.ValidationError("validate application", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return model.ValidationError("validate application", fmt.Errorf("%s is required", fe.Field()))
	default:
		return model.ValidationError("validate application", fmt.Errorf("%s has invalid value %q", fe.Field(), fe.Value()))
	}
}

func (in Input) application() model.Application {
	in = in.Normalize()
	return model.Application{
		Code:            in.Code,
		Company:         in.Company,
		Theme:           in.Theme,
		Domain:          in.Domain,
		Status:          in.Status,
		ApplicationDate: in.ApplicationDate,
		StartDate:       in.StartDate,
	}
}

// Add appends a manually entered application. Source stays empty.
func Add(table model.Table, in Input) (model.Table, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	out := table.Clone()
	return append(out, in.application()), nil
}

// Update replaces the editable fields of row index. The sync bookkeeping
// columns (LastEmail, Source) are kept.
func Update(table model.Table, index int, in Input) (model.Table, error) {
	if err := checkIndex(table, index); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	out := table.Clone()
	prev := out[index]
	next := in.application()
	next.LastEmail = prev.LastEmail
	next.Source = prev.Source
	out[index] = next
	return out, nil
}

// Delete removes row index, keeping the order of the remaining rows.
func Delete(table model.Table, index int) (model.Table, error) {
	if err := checkIndex(table, index); err != nil {
		return nil, err
	}
	out := make(model.Table, 0, len(table)-1)
	out = append(out, table[:index]...)
	return append(out, table[index+1:]...), nil
}

func checkIndex(table model.Table, index int) error {
	if index < 0 || index >= len(table) {
		return model.ValidationError("select application", fmt.Errorf("row %d out of range (%d rows)", index, len(table)))
	}
	return nil
}
