package admin

import (
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/cache"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/entityservice"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/options"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/query"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/validation"
)

// Metadata types.
type (
	Graph              = metadata.Graph
	GroupedEntities    = metadata.GroupedEntities
	Group              = metadata.Group
	EntityMetadata     = metadata.EntityMetadata
	PropertyMetadata   = metadata.PropertyMetadata
	NavigationMetadata = metadata.NavigationMetadata
	PropertyBase       = metadata.PropertyBase
	ValidationRules    = metadata.ValidationRules
	Messages           = metadata.Messages
	SearchType         = metadata.SearchType
	EntityAttributes   = metadata.EntityAttributes

	// AdminEntity is implemented by models that describe themselves.
	AdminEntity = metadata.AdminEntity

	SearchFunc         = metadata.SearchFunc
	QueryFunc          = metadata.QueryFunc
	CreateFunc         = metadata.CreateFunc
	UpdateFunc         = metadata.UpdateFunc
	AfterUpdateFunc    = metadata.AfterUpdateFunc
	UploadFileStrategy = metadata.UploadFileStrategy
)

// Search types.
const (
	SearchNone                      = metadata.SearchNone
	SearchContainsCaseInsensitive   = metadata.SearchContainsCaseInsensitive
	SearchStartsWithCaseSensitive   = metadata.SearchStartsWithCaseSensitive
	SearchExactMatchCaseInsensitive = metadata.SearchExactMatchCaseInsensitive
)

// Options types.
type (
	Options                  = options.Options
	AllowListPolicy          = options.AllowListPolicy
	EntityConfiguration      = options.EntityConfiguration
	OptionsBuilder           = options.Builder
	EntityOptionsBuilder     = options.EntityOptionsBuilder
	PropertyOptionsBuilder   = options.PropertyOptionsBuilder
	NavigationOptionsBuilder = options.NavigationOptionsBuilder
)

// Allow-list policies.
const (
	ClearIfEmpty   = options.ClearIfEmpty
	KeepAllIfEmpty = options.KeepAllIfEmpty
)

// NewOptionsBuilder starts a fluent admin configuration.
func NewOptionsBuilder() *OptionsBuilder {
	return options.NewBuilder()
}

// Query types.
type (
	Request  = query.Request
	OrderBy  = query.OrderBy
	Page     = query.Page
	Plan     = query.Plan
	Result   = query.Result
	KeyCodec = query.KeyCodec

	// DelimitedKeyCodec joins composite key parts with a separator.
	DelimitedKeyCodec = query.DelimitedKeyCodec
)

// KeySeparator joins composite key parts in the default key codec.
const KeySeparator = query.KeySeparator

// ParseOrderBy parses "Name", "Name desc" or "-Name".
func ParseOrderBy(s string) OrderBy {
	return query.ParseOrderBy(s)
}

// Validation types.
type (
	ValidationErrors = validation.ValidationErrors
	FieldError       = validation.FieldError
	Validatable      = validation.Validatable
)

// CacheStats reports metadata cache usage.
type CacheStats = cache.Stats

var (
	ErrEntityNotFound   = entityservice.ErrEntityNotFound
	ErrInstanceNotFound = entityservice.ErrInstanceNotFound
	ErrMixedEntityTypes = entityservice.ErrMixedEntityTypes
	ErrReadOnlyEntity   = entityservice.ErrReadOnlyEntity
	ErrInvalidKey       = entityservice.ErrInvalidKey
	ErrInvalidQuery     = entityservice.ErrInvalidQuery
)
