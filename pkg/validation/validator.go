package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Violation is one failed constraint. Path uses JSON field names and array
// indexes, e.g. ["history", 0, "label"].
type Violation struct {
	Path    []interface{} `json:"path"`
	Message string        `json:"message"`
}

// Error carries every violation found by a single validation pass.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", FormatPath(v.Path), v.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Violations extracts the violation list from err, if it is (or wraps) an *Error.
func Violations(err error) ([]Violation, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Violations, true
	}
	return nil, false
}

// NewError builds an *Error from hand-written violations. Returns nil for none.
func NewError(violations ...Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return &Error{Violations: violations}
}

// Validator wraps go-playground/validator and reports failures as Violations.
// It never modifies the value it inspects.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("jsonstring", isJSONString)
	_ = v.RegisterValidation("jsonnumber", isJSONNumber)
	_ = v.RegisterValidation("numgte", numberAtLeast)
	_ = v.RegisterValidation("oneofci", oneOfFold)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// RegisterStructValidation adds a cross-field check for the given types.
// Report failures with sl.ReportError using the JSON field name.
func (v *Validator) RegisterStructValidation(fn validator.StructLevelFunc, types ...interface{}) {
	v.validate.RegisterStructValidation(fn, types...)
}

// Struct validates s. The returned error is nil or an *Error.
// prefix is prepended to every violation path.
func (v *Validator) Struct(s interface{}, prefix ...interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &Error{Violations: []Violation{{Path: append([]interface{}{}, prefix...), Message: err.Error()}}}
	}
	out := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		path := append(append([]interface{}{}, prefix...), namespacePath(fe.Namespace())...)
		out = append(out, Violation{Path: path, Message: message(fe)})
	}
	return &Error{Violations: out}
}

// namespacePath turns "summaryOutput.topTopics[0].platforms[1]" into
// ["topTopics", 0, "platforms", 1], dropping the root type name.
func namespacePath(ns string) []interface{} {
	segments := strings.Split(ns, ".")
	if len(segments) > 0 {
		segments = segments[1:]
	}
	path := make([]interface{}, 0, len(segments))
	for _, seg := range segments {
		for seg != "" {
			open := strings.IndexByte(seg, '[')
			if open < 0 {
				path = append(path, seg)
				break
			}
			if open > 0 {
				path = append(path, seg[:open])
			}
			closing := strings.IndexByte(seg[open:], ']')
			if closing < 0 {
				path = append(path, seg[open:])
				break
			}
			idx := seg[open+1 : open+closing]
			if n, err := strconv.Atoi(idx); err == nil {
				path = append(path, n)
			} else {
				path = append(path, idx)
			}
			seg = seg[open+closing+1:]
		}
	}
	return path
}

func message(fe validator.FieldError) string {
	kind := fe.Kind()
	isCollection := kind == reflect.Slice || kind == reflect.Array || kind == reflect.Map
	switch fe.Tag() {
	case "required":
		return "Required"
	case "min":
		if isCollection {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		if kind == reflect.String {
			return fmt.Sprintf("must contain at least %s character(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isCollection {
			return fmt.Sprintf("must contain at most %s item(s)", fe.Param())
		}
		if kind == reflect.String {
			return fmt.Sprintf("must contain at most %s character(s)", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof", "oneofci":
		opts := strings.Fields(fe.Param())
		quoted := make([]string, len(opts))
		for i, o := range opts {
			quoted[i] = "'" + o + "'"
		}
		return fmt.Sprintf("Invalid enum value. Expected %s, received '%v'", strings.Join(quoted, " | "), fe.Value())
	case "jsonstring":
		return fmt.Sprintf("Expected string, received %s", JSONType(fe.Value()))
	case "jsonnumber":
		return fmt.Sprintf("Expected number, received %s", JSONType(fe.Value()))
	case "numgte":
		return fmt.Sprintf("Number must be greater than or equal to %s", fe.Param())
	case "notblank":
		return "must not be blank"
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}

var numberType = reflect.TypeOf(json.Number(""))

// The json* validators inspect interface{} fields holding decoded JSON values,
// with numbers decoded as json.Number or float64.

func isJSONString(fl validator.FieldLevel) bool {
	f := fl.Field()
	return f.Kind() == reflect.String && f.Type() != numberType
}

func isJSONNumber(fl validator.FieldLevel) bool {
	_, ok := numericValue(fl.Field())
	return ok
}

func numberAtLeast(fl validator.FieldLevel) bool {
	floor, err := strconv.ParseFloat(fl.Param(), 64)
	if err != nil {
		return false
	}
	n, ok := numericValue(fl.Field())
	return ok && n >= floor
}

func numericValue(f reflect.Value) (float64, bool) {
	switch {
	case f.Type() == numberType:
		n, err := json.Number(f.String()).Float64()
		return n, err == nil
	case f.CanFloat():
		return f.Float(), true
	case f.CanInt():
		return float64(f.Int()), true
	default:
		return 0, false
	}
}

// oneOfFold is oneof with case-insensitive matching.
func oneOfFold(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.String {
		return false
	}
	for _, opt := range strings.Fields(fl.Param()) {
		if strings.EqualFold(f.String(), opt) {
			return true
		}
	}
	return false
}

// JSONType names the JSON type of a decoded value.
func JSONType(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case json.Number, float64, float32, int, int64:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// FormatPath renders a path as "history[0].label".
func FormatPath(path []interface{}) string {
	var b strings.Builder
	for i, p := range path {
		switch v := p.(type) {
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			fmt.Fprint(&b, v)
		}
	}
	if b.Len() == 0 {
		return "(root)"
	}
	return b.String()
}
