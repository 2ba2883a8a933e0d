package metadata

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// TagName is the struct tag read for admin attributes.
const TagName = "admin"

// PropertyOverrides is one layer of property configuration. Nil fields leave the
// underlying value untouched, so layers can be stacked: defaults, struct tags,
// then options.
type PropertyOverrides struct {
	DisplayName          *string
	Description          *string
	Order                *int
	IsHidden             *bool
	IsHiddenFromListView *bool
	IsHiddenFromDetails  *bool
	IsExcludedFromQuery  *bool
	DisplayFormat        *string
	FormatProvider       *language.Tag
	SearchType           *SearchType
	IsSortable           *bool
	IsReadOnly           *bool
	EmptyValueDisplay    *string
	UploadFileStrategy   UploadFileStrategy
	Validation           ValidationRules

	// Include marks the member for inclusion when the owning entity excludes all properties by default.
	Include bool
	// Calculated marks a non-column member to be exposed as a calculated property.
	Calculated bool
}

// Merge layers other on top of o. Set fields in other win.
func (o *PropertyOverrides) Merge(other PropertyOverrides) {
	mergePtr(&o.DisplayName, other.DisplayName)
	mergePtr(&o.Description, other.Description)
	mergePtr(&o.Order, other.Order)
	mergePtr(&o.IsHidden, other.IsHidden)
	mergePtr(&o.IsHiddenFromListView, other.IsHiddenFromListView)
	mergePtr(&o.IsHiddenFromDetails, other.IsHiddenFromDetails)
	mergePtr(&o.IsExcludedFromQuery, other.IsExcludedFromQuery)
	mergePtr(&o.DisplayFormat, other.DisplayFormat)
	mergePtr(&o.FormatProvider, other.FormatProvider)
	mergePtr(&o.SearchType, other.SearchType)
	mergePtr(&o.IsSortable, other.IsSortable)
	mergePtr(&o.IsReadOnly, other.IsReadOnly)
	mergePtr(&o.EmptyValueDisplay, other.EmptyValueDisplay)
	if other.UploadFileStrategy != nil {
		o.UploadFileStrategy = other.UploadFileStrategy
	}
	o.Validation = mergeRules(o.Validation, other.Validation)
	o.Include = o.Include || other.Include
	o.Calculated = o.Calculated || other.Calculated
}

// ApplyBase writes the set fields onto b.
func (o PropertyOverrides) ApplyBase(b *PropertyBase) {
	applyPtr(&b.DisplayName, o.DisplayName)
	applyPtr(&b.Description, o.Description)
	if o.Order != nil {
		order := *o.Order
		b.Order = &order
	}
	applyPtr(&b.IsHidden, o.IsHidden)
	applyPtr(&b.IsHiddenFromListView, o.IsHiddenFromListView)
	applyPtr(&b.IsHiddenFromDetails, o.IsHiddenFromDetails)
	applyPtr(&b.IsExcludedFromQuery, o.IsExcludedFromQuery)
	applyPtr(&b.DisplayFormat, o.DisplayFormat)
	applyPtr(&b.FormatProvider, o.FormatProvider)
	applyPtr(&b.SearchType, o.SearchType)
	applyPtr(&b.IsSortable, o.IsSortable)
	applyPtr(&b.IsReadOnly, o.IsReadOnly)
	applyPtr(&b.EmptyValueDisplay, o.EmptyValueDisplay)
}

// ApplyProperty writes the set fields onto p, including the scalar-only settings.
func (o PropertyOverrides) ApplyProperty(p *PropertyMetadata) {
	o.ApplyBase(&p.PropertyBase)
	if o.UploadFileStrategy != nil {
		p.UploadFileStrategy = o.UploadFileStrategy
	}
	p.Validation = mergeRules(p.Validation, o.Validation)
}

func mergePtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func applyPtr[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func mergeRules(base, layer ValidationRules) ValidationRules {
	base.Required = base.Required || layer.Required
	mergePtr(&base.MinLength, layer.MinLength)
	mergePtr(&base.MaxLength, layer.MaxLength)
	mergePtr(&base.Min, layer.Min)
	mergePtr(&base.Max, layer.Max)
	if layer.Pattern != "" {
		base.Pattern = layer.Pattern
	}
	return base
}

// ReadPropertyOverrides parses the admin struct tag of a field.
//
// The tag is a comma separated list, for example:
//
//	admin:"display=Full name,order=1,search=contains,maxlength=120"
//
// Invalid parts are skipped. The returned overrides hold every valid part and
// the error joins one entry per invalid part.
func ReadPropertyOverrides(tag reflect.StructTag) (PropertyOverrides, error) {
	var o PropertyOverrides
	value, ok := tag.Lookup(TagName)
	if !ok || value == "" {
		return o, nil
	}
	var errs []error
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := processTagPart(&o, part); err != nil {
			errs = append(errs, err)
		}
	}
	return o, errors.Join(errs...)
}

// processTagPart processes a single admin tag part
func processTagPart(o *PropertyOverrides, part string) error {
	key, value, hasValue := strings.Cut(part, "=")
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	switch key {
	case "display":
		o.DisplayName = &value
	case "description":
		o.Description = &value
	case "order":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid order %q: %w", value, err)
		}
		o.Order = &n
	case "hidden":
		o.IsHidden = boolPart(value, hasValue)
	case "hidden-list":
		o.IsHiddenFromListView = boolPart(value, hasValue)
	case "hidden-details":
		o.IsHiddenFromDetails = boolPart(value, hasValue)
	case "exclude-query":
		o.IsExcludedFromQuery = boolPart(value, hasValue)
	case "search":
		st, err := ParseSearchType(value)
		if err != nil {
			return err
		}
		o.SearchType = &st
	case "sortable":
		o.IsSortable = boolPart(value, hasValue)
	case "readonly":
		o.IsReadOnly = boolPart(value, hasValue)
	case "empty":
		o.EmptyValueDisplay = &value
	case "format":
		o.DisplayFormat = &value
	case "culture":
		lang, err := language.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid culture %q: %w", value, err)
		}
		o.FormatProvider = &lang
	case "include":
		o.Include = true
	case "calculated":
		o.Calculated = true
	case "required":
		o.Validation.Required = true
	case "maxlength":
		return intFacet(value, &o.Validation.MaxLength)
	case "minlength":
		return intFacet(value, &o.Validation.MinLength)
	case "min":
		return floatFacet(value, &o.Validation.Min)
	case "max":
		return floatFacet(value, &o.Validation.Max)
	case "pattern":
		o.Validation.Pattern = value
	default:
		return fmt.Errorf("unknown admin tag %q", key)
	}
	return nil
}

func boolPart(value string, hasValue bool) *bool {
	b := true
	if hasValue {
		if parsed, err := strconv.ParseBool(value); err == nil {
			b = parsed
		}
	}
	return &b
}

func intFacet(value string, target **int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer facet %q: %w", value, err)
	}
	*target = &n
	return nil
}

func floatFacet(value string, target **float64) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric facet %q: %w", value, err)
	}
	*target = &f
	return nil
}

// EntityAttributes are entity level settings declared on the model type itself.
type EntityAttributes struct {
	DisplayName string
	PluralName  string
	Description string
	Group       string
	Hidden      bool
	// Include opts the entity into the admin when not all entities are included.
	Include bool
}

// AdminEntity is implemented by models that declare their own entity attributes.
type AdminEntity interface {
	AdminEntity() EntityAttributes
}

// ReadEntityAttributes calls AdminEntity on a zero value of t, checking both the
// value and pointer receivers.
func ReadEntityAttributes(t reflect.Type) (EntityAttributes, bool) {
	t = dereferenceType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return EntityAttributes{}, false
	}
	if hasMethod(t, "AdminEntity") {
		if a, ok := reflect.New(t).Elem().Interface().(AdminEntity); ok {
			return a.AdminEntity(), true
		}
	}
	if hasMethod(reflect.PointerTo(t), "AdminEntity") {
		if a, ok := reflect.New(t).Interface().(AdminEntity); ok {
			return a.AdminEntity(), true
		}
	}
	return EntityAttributes{}, false
}

// CalculatedFields returns the names of exported fields of t tagged as calculated,
// in declaration order. Promoted fields of embedded structs are included.
func CalculatedFields(t reflect.Type) []string {
	t = dereferenceType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var names []string
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		o, _ := ReadPropertyOverrides(f.Tag)
		if !o.Calculated {
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

// hasMethod checks if a type has a method with the given name
func hasMethod(t reflect.Type, methodName string) bool {
	_, found := t.MethodByName(methodName)
	return found
}
