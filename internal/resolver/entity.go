package resolver

import (
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/introspect"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/options"
)

// buildEntity applies attributes and options to one raw entity. Navigation
// targets are left empty; they are filled once every entity is built.
func (r *Resolver) buildEntity(raw introspect.Entity, eo *options.EntityOptions, attrs metadata.EntityAttributes) *metadata.EntityMetadata {
	e := &metadata.EntityMetadata{
		Name:        raw.Name,
		DisplayName: raw.Name,
		Type:        raw.Type,
		Table:       raw.Table,
		CanAdd:      true,
		CanEdit:     true,
		CanDelete:   true,
		Messages:    metadata.DefaultMessages(),
	}

	var group string
	if attrs.DisplayName != "" {
		e.DisplayName = attrs.DisplayName
	}
	if attrs.PluralName != "" {
		e.PluralName = attrs.PluralName
	}
	if attrs.Description != "" {
		e.Description = attrs.Description
	}
	if attrs.Group != "" {
		group = attrs.Group
	}
	e.IsHidden = attrs.Hidden

	if eo != nil {
		applyEntityOptions(e, eo, &group)
	}
	if e.PluralName == "" {
		e.PluralName = inflection.Plural(e.DisplayName)
	}
	if group != "" {
		g, ok := r.options.Group(group)
		if !ok {
			g = metadata.Group{Name: group}
		}
		e.Group = &g
	}
	e.MaxNavigationDepth = r.depthFor(eo)

	included := map[string]bool{}
	props := r.buildProperties(raw, eo, included)
	navs := r.buildNavigations(raw, eo, included)

	// Keys come from the full model so an allow-list cannot make an entity keyless.
	var keys []*metadata.PropertyMetadata
	for _, p := range props {
		if p.IsPrimaryKey {
			keys = append(keys, p)
		}
	}
	e.KeyProperties = keys

	if eo != nil && eo.ExcludeAllProperties {
		props, navs = r.applyExclusion(raw.Name, props, navs, included)
	}

	sortByOrder(props, func(p *metadata.PropertyMetadata) *int { return p.Order })
	sortByOrder(navs, func(n *metadata.NavigationMetadata) *int { return n.Order })
	e.Properties = props
	e.Navigations = navs

	e.IsKeyless = len(keys) == 0
	if e.IsKeyless {
		e.CanEdit = false
		e.CanDelete = false
	}
	e.IsEditable = false
	if e.CanEdit {
		for _, p := range e.Properties {
			if p.IsEditable {
				e.IsEditable = true
				break
			}
		}
	}
	return e
}

func applyEntityOptions(e *metadata.EntityMetadata, eo *options.EntityOptions, group *string) {
	setIf(&e.DisplayName, eo.DisplayName)
	setIf(&e.PluralName, eo.PluralName)
	setIf(&e.Description, eo.Description)
	setIf(group, eo.Group)
	setIf(&e.IsHidden, eo.IsHidden)
	setIf(&e.CanAdd, eo.CanAdd)
	setIf(&e.CanEdit, eo.CanEdit)
	setIf(&e.CanDelete, eo.CanDelete)
	setIf(&e.Messages.Create, eo.CreateMessage)
	setIf(&e.Messages.Save, eo.SaveMessage)
	setIf(&e.Messages.Delete, eo.DeleteMessage)
	setIf(&e.Messages.BulkDelete, eo.BulkDeleteMessage)

	e.SearchFunction = eo.SearchFunction
	e.CustomQueryFunction = eo.CustomQueryFunction
	e.AfterUpdateAction = eo.AfterUpdateAction
	e.CreateAction = eo.CreateAction
	e.UpdateAction = eo.UpdateAction
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (r *Resolver) depthFor(eo *options.EntityOptions) int {
	if eo != nil && eo.MaxNavigationDepth != nil {
		return *eo.MaxNavigationDepth
	}
	if r.options.MaxNavigationDepth != nil {
		return *r.options.MaxNavigationDepth
	}
	return r.defaultDepth
}

func (r *Resolver) buildProperties(raw introspect.Entity, eo *options.EntityOptions, included map[string]bool) []*metadata.PropertyMetadata {
	props := make([]*metadata.PropertyMetadata, 0, len(raw.Properties))
	known := make(map[string]bool, len(raw.Properties))

	for _, rp := range raw.Properties {
		p := &metadata.PropertyMetadata{
			PropertyBase: metadata.PropertyBase{
				Name:        rp.Name,
				DisplayName: rp.Name,
				IsSortable:  true,
				IsReadOnly:  !rp.IsUpdatable,
			},
			Type:                     rp.Type,
			Column:                   rp.Column,
			IsPrimaryKey:             rp.IsPrimaryKey,
			IsForeignKey:             rp.IsForeignKey,
			IsShadow:                 rp.IsShadow,
			IsValueGeneratedOnAdd:    rp.IsGeneratedOnAdd,
			IsValueGeneratedOnUpdate: rp.IsGeneratedOnUpdate,
			IsNullable:               rp.IsNullable,
		}
		if !rp.IsShadow {
			p.SetAccessor(metadata.FieldAccessor(rp.Index))
		}

		overrides, err := metadata.ReadPropertyOverrides(rp.Tag)
		if err != nil {
			r.warnInvalidTag(raw.Name, rp.Name, rp.Tag, err)
		}
		if eo != nil {
			if po, ok := eo.Property(rp.Name); ok {
				overrides.Merge(po.PropertyOverrides)
			}
			if eo.IsPropertyIncluded(rp.Name) {
				overrides.Include = true
			}
		}
		overrides.ApplyProperty(p)
		p.IsEditable = isEditable(p)

		included[rp.Name] = overrides.Include
		known[rp.Name] = true
		props = append(props, p)
	}

	props = append(props, r.buildCalculated(raw, eo, known, included)...)

	if eo != nil {
		for _, po := range eo.Properties() {
			if !known[po.Name] {
				r.logger.Warn("Configured property not found on entity", "entity", raw.Name, "property", po.Name)
			}
		}
	}
	return props
}

// warnInvalidTag logs admin tag parts that were skipped.
func (r *Resolver) warnInvalidTag(entity, member string, tag reflect.StructTag, err error) {
	r.logger.Warn("Ignoring invalid admin tag",
		"entity", entity,
		"property", member,
		"tag", tag.Get(metadata.TagName),
		"error", err,
	)
}

// buildCalculated adds calculated properties declared by tag or by options.
// Names that do not resolve to a readable member are skipped.
func (r *Resolver) buildCalculated(raw introspect.Entity, eo *options.EntityOptions, known, included map[string]bool) []*metadata.PropertyMetadata {
	names := metadata.CalculatedFields(raw.Type)
	if eo != nil {
		for _, n := range eo.CalculatedPropertyNames {
			if !slices.Contains(names, n) {
				names = append(names, n)
			}
		}
	}

	var props []*metadata.PropertyMetadata
	for _, name := range names {
		if known[name] {
			r.logger.Debug("Calculated property shadows a mapped property, skipping", "entity", raw.Name, "property", name)
			continue
		}
		accessor, typ, ok := metadata.ResolveMember(raw.Type, name)
		if !ok {
			r.logger.Warn("Calculated property not found on entity, skipping", "entity", raw.Name, "property", name)
			continue
		}

		p := &metadata.PropertyMetadata{
			PropertyBase: metadata.PropertyBase{
				Name:        name,
				DisplayName: name,
				IsReadOnly:  true,
			},
			Type:                 typ,
			IsCalculatedProperty: true,
		}
		p.SetAccessor(accessor)

		var overrides metadata.PropertyOverrides
		if f, ok := raw.Type.FieldByName(name); ok {
			o, err := metadata.ReadPropertyOverrides(f.Tag)
			if err != nil {
				r.warnInvalidTag(raw.Name, name, f.Tag, err)
			}
			overrides = o
		}
		if eo != nil {
			if po, ok := eo.Property(name); ok {
				overrides.Merge(po.PropertyOverrides)
			}
		}
		overrides.ApplyProperty(p)

		// Calculated values live only in memory.
		p.IsSortable = false
		p.SearchType = metadata.SearchNone
		p.IsEditable = false
		p.IsReadOnly = true

		included[name] = true
		known[name] = true
		props = append(props, p)
	}
	return props
}

func (r *Resolver) buildNavigations(raw introspect.Entity, eo *options.EntityOptions, included map[string]bool) []*metadata.NavigationMetadata {
	navs := make([]*metadata.NavigationMetadata, 0, len(raw.Navigations))
	known := make(map[string]bool, len(raw.Navigations))

	for _, rn := range raw.Navigations {
		n := &metadata.NavigationMetadata{
			PropertyBase: metadata.PropertyBase{
				Name:        rn.Name,
				DisplayName: rn.Name,
			},
			TargetType:   rn.Target,
			IsCollection: rn.Kind.IsCollection(),
		}
		n.SetAccessor(metadata.FieldAccessor(rn.Index))

		overrides, err := metadata.ReadPropertyOverrides(rn.Tag)
		if err != nil {
			r.warnInvalidTag(raw.Name, rn.Name, rn.Tag, err)
		}
		if eo != nil {
			if no, ok := eo.Navigation(rn.Name); ok {
				overrides.Merge(no.PropertyOverrides)
				if no.Included {
					overrides.Include = true
				}
			}
		}
		overrides.ApplyBase(&n.PropertyBase)

		included[rn.Name] = overrides.Include
		known[rn.Name] = true
		navs = append(navs, n)
	}

	if eo != nil {
		for _, no := range eo.Navigations() {
			if !known[no.Name] {
				r.logger.Warn("Configured navigation not found on entity", "entity", raw.Name, "navigation", no.Name)
			}
		}
	}
	return navs
}

// applyExclusion keeps only members on the allow-list. With nothing included the
// allow-list policy decides between keeping and clearing everything.
func (r *Resolver) applyExclusion(entity string, props []*metadata.PropertyMetadata, navs []*metadata.NavigationMetadata, included map[string]bool) ([]*metadata.PropertyMetadata, []*metadata.NavigationMetadata) {
	hasIncluded := false
	for _, inc := range included {
		if inc {
			hasIncluded = true
			break
		}
	}
	if !hasIncluded {
		if r.options.AllowListPolicy == options.KeepAllIfEmpty {
			return props, navs
		}
		r.logger.Debug("Entity excludes all properties and includes none", "entity", entity)
		return []*metadata.PropertyMetadata{}, []*metadata.NavigationMetadata{}
	}

	keptProps := props[:0:0]
	for _, p := range props {
		if included[p.Name] {
			keptProps = append(keptProps, p)
		}
	}
	keptNavs := navs[:0:0]
	for _, n := range navs {
		if included[n.Name] {
			keptNavs = append(keptNavs, n)
		}
	}
	return keptProps, keptNavs
}

func isEditable(p *metadata.PropertyMetadata) bool {
	return !p.IsReadOnly &&
		!p.IsCalculatedProperty &&
		!p.IsShadow &&
		!p.IsValueGeneratedOnAdd &&
		!p.IsValueGeneratedOnUpdate
}

// sortByOrder moves members with an order first, ascending, keeping declaration
// order for ties and for unordered members.
func sortByOrder[T any](items []T, order func(T) *int) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := order(items[i]), order(items[j])
		switch {
		case a != nil && b != nil:
			return *a < *b
		case a != nil:
			return true
		default:
			return false
		}
	})
}

// assignIdentifiers gives each entity a fresh id and a unique slug of its plural name.
func assignIdentifiers(entities []*metadata.EntityMetadata) {
	used := make(map[string]bool, len(entities))
	for _, e := range entities {
		e.ID = uuid.New()
		slug := Slugify(e.PluralName)
		if slug == "" {
			slug = Slugify(e.Name)
		}
		candidate := slug
		for i := 2; used[candidate]; i++ {
			candidate = slug + "-" + strconv.Itoa(i)
		}
		used[candidate] = true
		e.StringID = candidate
	}
}

// Slugify lowercases s and replaces runs of other characters with single dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
