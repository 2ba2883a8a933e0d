package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
)

// KeySeparator joins the parts of a composite primary key.
const KeySeparator = "--"

// KeyCodec converts between ordered key parts and a single key string.
type KeyCodec interface {
	Encode(parts []string) (string, error)
	Decode(key string) ([]string, error)
}

// DelimitedKeyCodec joins key parts with Separator. Parts must not contain the
// separator; Encode rejects them since the key would not split back.
type DelimitedKeyCodec struct {
	Separator string
}

// DefaultKeyCodec joins parts with KeySeparator.
var DefaultKeyCodec KeyCodec = DelimitedKeyCodec{Separator: KeySeparator}

func (c DelimitedKeyCodec) separator() string {
	if c.Separator == "" {
		return KeySeparator
	}
	return c.Separator
}

func (c DelimitedKeyCodec) Encode(parts []string) (string, error) {
	sep := c.separator()
	for i, p := range parts {
		if strings.Contains(p, sep) {
			return "", fmt.Errorf("%w: key part %d %q contains separator %q", ErrInvalidKey, i, p, sep)
		}
	}
	return strings.Join(parts, sep), nil
}

func (c DelimitedKeyCodec) Decode(key string) ([]string, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return strings.Split(key, c.separator()), nil
}

// EncodeKey renders the primary key of instance.
func EncodeKey(codec KeyCodec, e *metadata.EntityMetadata, instance any) (string, error) {
	pks := e.PrimaryKeys()
	if len(pks) == 0 {
		return "", fmt.Errorf("%w: entity %s has no primary key", ErrInvalidKey, e.Name)
	}
	parts := make([]string, 0, len(pks))
	for _, pk := range pks {
		v, ok := pk.Value(instance)
		if !ok {
			return "", fmt.Errorf("%w: cannot read %s.%s", ErrInvalidKey, e.Name, pk.Name)
		}
		parts = append(parts, FormatKeyPart(v))
	}
	return codec.Encode(parts)
}

// DecodeKey parses key into typed values, one per primary key property.
func DecodeKey(codec KeyCodec, e *metadata.EntityMetadata, key string) ([]any, error) {
	pks := e.PrimaryKeys()
	if len(pks) == 0 {
		return nil, fmt.Errorf("%w: entity %s has no primary key", ErrInvalidKey, e.Name)
	}
	parts, err := codec.Decode(key)
	if err != nil {
		return nil, err
	}
	if len(parts) != len(pks) {
		return nil, fmt.Errorf("%w: %s expects %d key parts, got %d", ErrInvalidKey, e.Name, len(pks), len(parts))
	}
	values := make([]any, len(pks))
	for i, pk := range pks {
		v, err := ParseKeyPart(pk.Type, parts[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidKey, pk.Name, err)
		}
		values[i] = v
	}
	return values, nil
}

// FormatKeyPart renders one key value.
func FormatKeyPart(v any) string {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return ""
	}
	switch x := rv.Interface().(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(rv.Interface())
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// ParseKeyPart parses s into a value of type t.
func ParseKeyPart(t reflect.Type, s string) (any, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return time.Parse(time.RFC3339Nano, s)
	case uuidType:
		return uuid.Parse(s)
	case decimalType:
		return decimal.NewFromString(s)
	}

	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		v.SetBool(b)
	default:
		return nil, fmt.Errorf("unsupported key type %s", t)
	}
	return v.Interface(), nil
}
