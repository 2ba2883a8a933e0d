package admin

import (
	"context"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/entityservice"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/query"
)

// Search returns one page of instances of e matching req. The custom query
// function narrows the base set, the search string is matched against the
// searchable properties and navigations, and the custom search function, when
// present, is applied on top.
func (s *Service) Search(ctx context.Context, e *EntityMetadata, req Request) (*Result, error) {
	return s.entities.Search(ctx, e, req)
}

// Plan resolves req against e without querying the database.
func (s *Service) Plan(e *EntityMetadata, req Request) (*Plan, error) {
	return s.entities.Plan(e, req)
}

// Statement renders the SELECT statement req would run. Custom query and
// search functions are host code and do not appear in it.
func (s *Service) Statement(e *EntityMetadata, req Request) (string, []any, error) {
	plan, err := s.entities.Plan(e, req)
	if err != nil {
		return "", nil, err
	}
	return s.entities.Store().Statement(plan)
}

// Project maps the selected properties of instance by property name.
func (s *Service) Project(plan *Plan, instance any) map[string]any {
	return query.Project(plan.Properties, instance)
}

// ProjectAll projects every item of a result page.
func (s *Service) ProjectAll(plan *Plan, result *Result) []map[string]any {
	return query.ProjectAll(plan.Properties, result.Items)
}

// GetInstance loads the instance of e identified by key together with the
// requested navigations.
func (s *Service) GetInstance(ctx context.Context, e *EntityMetadata, key string, include ...string) (any, error) {
	return s.entities.GetInstance(ctx, e, key, include)
}

// Key renders the primary key of instance as used by GetInstance.
func (s *Service) Key(e *EntityMetadata, instance any) (string, error) {
	return s.entities.Key(e, instance)
}

// Validate checks instance against the validation rules of the editable
// properties of e and its ValidateAdmin method.
func (s *Service) Validate(ctx context.Context, e *EntityMetadata, instance any) (bool, *ValidationErrors) {
	return s.entities.Validate(ctx, e, instance, e.EditableProperties())
}

// Create validates and inserts instance, running the create action inside
// the transaction.
func (s *Service) Create(ctx context.Context, e *EntityMetadata, instance any) (any, error) {
	return s.entities.Create(ctx, e, instance)
}

// Snapshot copies instance so it can be passed to Update as the original.
func (s *Service) Snapshot(e *EntityMetadata, instance any) any {
	return entityservice.Snapshot(e, instance)
}

// Changes returns the editable columns whose values differ between original
// and updated.
func (s *Service) Changes(e *EntityMetadata, original, updated any) map[string]any {
	return entityservice.Diff(e, original, updated)
}

// Update persists the editable columns of instance that differ from original
// and returns the reloaded instance. Original is usually a Snapshot taken
// before the edit; nil writes every editable column.
func (s *Service) Update(ctx context.Context, e *EntityMetadata, instance, original any) (any, error) {
	return s.entities.Update(ctx, e, instance, original)
}

// Delete removes instance.
func (s *Service) Delete(ctx context.Context, e *EntityMetadata, instance any) error {
	return s.entities.Delete(ctx, e, instance)
}

// BulkDelete removes every instance in one transaction. Nothing is removed
// when any instance fails.
func (s *Service) BulkDelete(ctx context.Context, e *EntityMetadata, instances []any) error {
	return s.entities.BulkDelete(ctx, e, instances)
}
