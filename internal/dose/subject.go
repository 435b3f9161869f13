package dose

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Subject is one enrolled subject's findings for a dosing cycle.
type Subject struct {
	ID         string   `json:"id" validate:"required"`
	Cohort     string   `json:"cohort"`
	Dose       float64  `json:"dose" validate:"gte=0"`
	Age        int      `json:"age" validate:"gte=18,lte=99"`
	Sex        string   `json:"sex" validate:"omitempty,oneof=M F"`
	Weight     float64  `json:"weight" validate:"gt=0"`
	BMI        float64  `json:"bmi"`
	Cycle      int      `json:"cycle"`
	ALT        float64  `json:"alt"`
	AST        float64  `json:"ast"`
	Bilirubin  float64  `json:"bilirubin"`
	Creatinine float64  `json:"creatinine"`
	AEGrade    int      `json:"aeGrade" validate:"gte=0,lte=5"`
	DLT        bool     `json:"dlt"`
	AUC        *float64 `json:"auc,omitempty"`
	Tmax       *float64 `json:"tmax,omitempty"`
	Cmax       *float64 `json:"cmax,omitempty"`
}

// NewSubject returns the entry form defaults.
func NewSubject() Subject {
	return Subject{
		Cohort: "1", Dose: 0.1, Age: 45, Sex: "M", Weight: 75, BMI: 24.5, Cycle: 1,
		ALT: 25, AST: 22, Bilirubin: 0.8, Creatinine: 0.9,
	}
}

var ErrValidation = errors.New("validation failed")

// ValidationError maps json field names to messages.
type ValidationError struct {
	Fields map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var messages = map[string]string{
	"id":      "Subject ID required",
	"age":     "Age must be 18-99",
	"weight":  "Invalid weight",
	"aeGrade": "Grade 0-5 required",
	"sex":     "Sex must be M or F",
	"dose":    "Dose must not be negative",
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
	return v
}

// Validate checks a subject record. The error, if any, is a
// *ValidationError.
func (s Subject) Validate() error {
	s.ID = strings.TrimSpace(s.ID)
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()]
		if !ok {
			msg = "Failed " + fe.Tag() + " validation"
		}
		out.Fields[fe.Field()] = msg
	}
	return out
}
