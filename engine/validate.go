package engine

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ============================================================================
// INPUT VALIDATION
// ============================================================================
// Struct tags carry the constraints; the first violated field (in struct
// order) becomes an *InputError named by its JSON key.
// ============================================================================

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// NaN compares false against every bound, so gt=0 alone would let it through.
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fe := verrs[0]
	return &InputError{
		Field:  fieldPath(fe.Namespace()),
		Value:  fmt.Sprint(fe.Value()),
		Reason: reason(fe),
	}
}

// fieldPath drops the leading struct type name: "FaultInput.conductor.size"
// → "conductor.size".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "finite":
		return "must be a finite number"
	case "required":
		return "is required"
	case "gt":
		return "must be > " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lt":
		return "must be < " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	}
	return "failed " + fe.Tag()
}

// checkRules rejects an unusable rule set, then rules written for a
// different code-table revision than the repository carries.
func checkRules(rules RuleConfiguration, repoRevision string) error {
	if err := rules.Validate(); err != nil {
		return err
	}
	if rules.CodeTableRevision != "" && rules.CodeTableRevision != repoRevision {
		return invalid("codeTableRevision", rules.CodeTableRevision, "does not match table revision "+repoRevision)
	}
	return nil
}
