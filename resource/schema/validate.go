package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"go.uber.org/multierr"
	"gopkg.in/go-playground/validator.v9"
)

var check = validator.New()

func mustRegister(err error) {
	if err != nil {
		panic(fmt.Sprintf("Register custom validator: %v", err))
	}
}

func init() {
	mustRegister(check.RegisterValidation("arn", func(fl validator.FieldLevel) bool {
		_, err := arn.Parse(fl.Field().String())
		return err == nil
	}))
}

// A FieldError describes a single attribute that failed validation. Field
// errors are produced locally; a record that fails validation is never sent
// to the remote API.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate checks attribute values against the schema.
//
// All problems are reported, not just the first one; the returned error
// combines a FieldError per failed attribute. Returns nil if the attributes
// are valid.
func (s Schema) Validate(attrs map[string]interface{}) error {
	var err error

	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		a, ok := s.Attrs[name]
		if !ok {
			err = multierr.Append(err, FieldError{Field: name, Reason: "unsupported attribute"})
			continue
		}
		if a.Validate == "" {
			continue
		}
		if verr := validate(attrs[name], a.Validate); verr != nil {
			err = multierr.Append(err, FieldError{Field: name, Reason: verr.Error()})
		}
	}

	for name, a := range s.Attrs {
		if !a.Required {
			continue
		}
		if _, ok := attrs[name]; !ok {
			err = multierr.Append(err, FieldError{Field: name, Reason: "required attribute not set"})
		}
	}

	return err
}

func validate(v interface{}, tag string) error {
	err := check.Var(v, tag)
	if err == nil {
		return nil
	}
	once.Do(initFormatters)
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	format, ok := formats[fe.Tag()]
	if !ok {
		return err
	}
	if !strings.Contains(format, "%") {
		return fmt.Errorf(format)
	}
	return fmt.Errorf(format, fe.Param())
}

var once sync.Once
var formats map[string]string

func initFormatters() {
	formats = map[string]string{
		"min":   "must be %v or more",
		"max":   "must be %v or less",
		"gte":   "must be %v or more",
		"gt":    "must be more than %v",
		"lte":   "must be %v or less",
		"lt":    "must be less than %v",
		"oneof": "must be one of: [%v]",

		// custom
		"arn": "must be a valid arn (https://docs.aws.amazon.com/general/latest/gr/aws-arns-and-namespaces.html)",
	}
}
