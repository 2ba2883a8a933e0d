package metadata

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultTimeLayout is used for time values without a display format.
const DefaultTimeLayout = "2006-01-02 15:04:05"

var fixedVerb = regexp.MustCompile(`^%\.(\d+)f$`)

// FormatValue renders value for display.
//
// Time values use format as a time layout. Other values treat format as a fmt
// verb, printed with the conventions of lang when lang is set. Nil and empty
// values render as empty.
func FormatValue(value any, format string, lang language.Tag, empty string) string {
	v := reflect.ValueOf(value)
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return empty
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return empty
	}
	value = v.Interface()

	switch x := value.(type) {
	case string:
		if x == "" {
			return empty
		}
		if format != "" {
			return sprintf(lang, format, x)
		}
		return x
	case time.Time:
		if x.IsZero() {
			return empty
		}
		if format == "" {
			format = DefaultTimeLayout
		}
		return x.Format(format)
	case decimal.Decimal:
		if m := fixedVerb.FindStringSubmatch(format); m != nil {
			places, _ := strconv.Atoi(m[1])
			return x.StringFixed(int32(places))
		}
		if format != "" {
			return sprintf(lang, format, x.InexactFloat64())
		}
		return x.String()
	case fmt.Stringer:
		if format != "" {
			return sprintf(lang, format, x.String())
		}
		return x.String()
	}

	if format != "" {
		return sprintf(lang, format, value)
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if lang != language.Und {
			return message.NewPrinter(lang).Sprint(value)
		}
	}
	return fmt.Sprint(value)
}

func sprintf(lang language.Tag, format string, value any) string {
	if lang == language.Und {
		return fmt.Sprintf(format, value)
	}
	return message.NewPrinter(lang).Sprintf(format, value)
}
