package validation

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sync"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
)

// Validatable is implemented by models with checks beyond declarative rules.
type Validatable interface {
	ValidateAdmin(ctx context.Context, errs *ValidationErrors)
}

var patternCache sync.Map

// Validate checks instance against the rules of props. The result is never nil.
func Validate(ctx context.Context, props []*metadata.PropertyMetadata, instance any) *ValidationErrors {
	errs := NewValidationErrors()
	for _, p := range props {
		if p.Validation.IsZero() {
			continue
		}
		value, ok := p.Value(instance)
		if !ok {
			continue
		}
		for _, msg := range checkRules(p.Validation, value) {
			errs.Add(p.Name, msg)
		}
	}
	if v, ok := instance.(Validatable); ok {
		v.ValidateAdmin(ctx, errs)
	}
	return errs
}

func checkRules(rules metadata.ValidationRules, value any) []string {
	var messages []string
	value, present := deref(value)

	if rules.Required && (!present || isBlank(value)) {
		return append(messages, "is required")
	}
	if !present {
		return nil
	}

	if s, ok := value.(string); ok {
		n := utf8.RuneCountInString(s)
		if rules.MinLength != nil && n < *rules.MinLength {
			messages = append(messages, fmt.Sprintf("must be at least %d characters", *rules.MinLength))
		}
		if rules.MaxLength != nil && n > *rules.MaxLength {
			messages = append(messages, fmt.Sprintf("must be at most %d characters", *rules.MaxLength))
		}
		if rules.Pattern != "" && s != "" {
			re, err := compilePattern(rules.Pattern)
			if err != nil {
				messages = append(messages, fmt.Sprintf("has an invalid pattern: %v", err))
			} else if !re.MatchString(s) {
				messages = append(messages, "has an invalid format")
			}
		}
	}

	if rules.Min != nil || rules.Max != nil {
		f, ok := toFloat64(value)
		if ok {
			if rules.Min != nil && f < *rules.Min {
				messages = append(messages, fmt.Sprintf("must be at least %v", *rules.Min))
			}
			if rules.Max != nil && f > *rules.Max {
				messages = append(messages, fmt.Sprintf("must be at most %v", *rules.Max))
			}
		}
	}
	return messages
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

func deref(value any) (any, bool) {
	v := reflect.ValueOf(value)
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

func isBlank(value any) bool {
	switch x := value.(type) {
	case string:
		return x == ""
	case decimal.Decimal:
		return false
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Struct:
		return v.IsZero()
	}
	return false
}

func toFloat64(value any) (float64, bool) {
	if d, ok := value.(decimal.Decimal); ok {
		return d.InexactFloat64(), true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	default:
		return 0, false
	}
}
