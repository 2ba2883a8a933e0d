package entityservice

import (
	"errors"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/query"
)

var (
	// ErrEntityNotFound is returned when an entity id does not resolve.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrInstanceNotFound is returned when no row matches a primary key.
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrMixedEntityTypes is returned when a bulk operation receives instances
	// of more than one type.
	ErrMixedEntityTypes = errors.New("instances are not all of the entity type")
	// ErrReadOnlyEntity is returned when the entity capabilities forbid the operation.
	ErrReadOnlyEntity = errors.New("operation not allowed for entity")

	ErrInvalidKey   = query.ErrInvalidKey
	ErrInvalidQuery = query.ErrInvalidQuery
)
