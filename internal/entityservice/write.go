package entityservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/observability"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/query"
)

// Create validates and inserts instance. The entity create action, when set,
// runs in the same transaction before the insert.
func (s *Service) Create(ctx context.Context, e *metadata.EntityMetadata, instance any) (created any, err error) {
	if !e.CanAdd {
		return nil, fmt.Errorf("%w: %s cannot be added", ErrReadOnlyEntity, e.Name)
	}
	if err := s.checkInstance(e, instance); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := s.obs.Tracer().StartEntityCreate(ctx, e.Name)
	defer span.End()
	defer func() {
		observability.RecordError(span, err)
		s.obs.Metrics().RecordOperation(ctx, "create", e.Name, time.Since(start), err)
	}()

	if ok, errs := s.Validate(ctx, e, instance, e.EditableProperties()); !ok {
		return nil, errs
	}

	err = s.runInTransaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if e.CreateAction != nil {
			if err := e.CreateAction(ctx, tx, instance); err != nil {
				return fmt.Errorf("create action failed: %w", err)
			}
		}
		if err := tx.Create(instance).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", e.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// Update persists the properties of instance that differ from original, a
// snapshot taken when the instance was loaded, and returns the refreshed row.
//
// The entity update action runs in the transaction before the write and may
// edit the change set. The after update action runs once the transaction has
// committed; its error is logged and does not fail the update.
func (s *Service) Update(ctx context.Context, e *metadata.EntityMetadata, instance, original any) (updated any, err error) {
	if !e.CanEdit {
		return nil, fmt.Errorf("%w: %s cannot be edited", ErrReadOnlyEntity, e.Name)
	}
	if err := s.checkInstance(e, instance); err != nil {
		return nil, err
	}
	if original != nil {
		if err := s.checkInstance(e, original); err != nil {
			return nil, err
		}
	}
	key, err := s.Key(e, instance)
	if err != nil {
		return nil, err
	}
	keys, err := primaryKeyValues(e, instance)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := s.obs.Tracer().StartEntityUpdate(ctx, e.Name, key)
	defer span.End()
	defer func() {
		observability.RecordError(span, err)
		s.obs.Metrics().RecordOperation(ctx, "update", e.Name, time.Since(start), err)
	}()

	if ok, errs := s.Validate(ctx, e, instance, e.EditableProperties()); !ok {
		return nil, errs
	}

	changes := Diff(e, original, instance)
	err = s.runInTransaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if e.UpdateAction != nil {
			if err := e.UpdateAction(ctx, tx, instance, changes); err != nil {
				return fmt.Errorf("update action failed: %w", err)
			}
		}
		if len(changes) > 0 {
			if err := tx.Model(instance).Updates(changes).Error; err != nil {
				return fmt.Errorf("failed to update %s: %w", e.Name, err)
			}
		} else {
			s.logger.Debug("No changes to persist", "entity", e.Name, "key", key)
		}

		refreshed, err := s.store.Get(ctx, e, keys, nil)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s %q", ErrInstanceNotFound, e.Name, key)
		}
		if err != nil {
			return fmt.Errorf("failed to refresh %s: %w", e.Name, err)
		}
		updated = refreshed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.AfterUpdateAction != nil {
		if hookErr := e.AfterUpdateAction(ctx, s.store.Conn(ctx), original, updated); hookErr != nil {
			s.logger.Error("After update action failed", "entity", e.Name, "key", key, "error", hookErr)
		}
	}
	return updated, nil
}

// Delete removes instance.
func (s *Service) Delete(ctx context.Context, e *metadata.EntityMetadata, instance any) error {
	return s.delete(ctx, e, []any{instance})
}

// BulkDelete removes instances in one transaction. Every instance must be of
// the entity type; nothing is deleted otherwise.
func (s *Service) BulkDelete(ctx context.Context, e *metadata.EntityMetadata, instances []any) error {
	if len(instances) == 0 {
		return nil
	}
	return s.delete(ctx, e, instances)
}

func (s *Service) delete(ctx context.Context, e *metadata.EntityMetadata, instances []any) (err error) {
	if !e.CanDelete {
		return fmt.Errorf("%w: %s cannot be deleted", ErrReadOnlyEntity, e.Name)
	}
	for _, instance := range instances {
		if err := s.checkInstance(e, instance); err != nil {
			return err
		}
	}

	start := time.Now()
	ctx, span := s.obs.Tracer().StartEntityDelete(ctx, e.Name, len(instances))
	defer span.End()
	defer func() {
		observability.RecordError(span, err)
		s.obs.Metrics().RecordOperation(ctx, "delete", e.Name, time.Since(start), err)
	}()

	return s.runInTransaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		for _, instance := range instances {
			res := tx.Delete(instance)
			if res.Error != nil {
				return fmt.Errorf("failed to delete %s: %w", e.Name, res.Error)
			}
			if res.RowsAffected == 0 {
				key, _ := s.Key(e, instance)
				return fmt.Errorf("%w: %s %q", ErrInstanceNotFound, e.Name, key)
			}
		}
		return nil
	})
}

func primaryKeyValues(e *metadata.EntityMetadata, instance any) ([]any, error) {
	pks := e.PrimaryKeys()
	if len(pks) == 0 {
		return nil, fmt.Errorf("%w: entity %s has no primary key", query.ErrInvalidKey, e.Name)
	}
	values := make([]any, len(pks))
	for i, pk := range pks {
		v, ok := pk.Value(instance)
		if !ok {
			return nil, fmt.Errorf("%w: cannot read %s.%s", query.ErrInvalidKey, e.Name, pk.Name)
		}
		values[i] = v
	}
	return values, nil
}
