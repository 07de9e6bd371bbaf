package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
)

// ResourceService manages resources and their parent/child hierarchy.
// Ancestry fields are recomputed explicitly after every hierarchy change.
type ResourceService struct {
	store        Store
	denormalizer *Denormalizer
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewResourceService constructs a resource service.
func NewResourceService(store Store, denormalizer *Denormalizer, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &ResourceService{store: store, denormalizer: denormalizer, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ResourceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResourceService", operation, attrs...)
}

// CreateResource validates and stores a new resource.
func (s *ResourceService) CreateResource(ctx context.Context, resource persistence.Resource) (created persistence.Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateResource")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", created.ID).InfoContext(ctx, "resource created")
	}()

	if vErr := normalizeResource(&resource); vErr.HasErrors() {
		err = vErr
		return
	}
	if resource.ID == "" {
		resource.ID = s.idGenerator()
	}
	resource.CreatedAt = s.now()
	resource.UpdatedAt = resource.CreatedAt

	err = s.denormalizer.WithinScope(ctx, func(ctx context.Context) error {
		return s.store.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := s.store.CreateResource(ctx, resource); err != nil {
				return mapRepoError(err)
			}
			return s.denormalizer.OnPeriodTreeChanged(ctx, resource.ID)
		})
	})
	if err != nil {
		return
	}
	created, err = s.store.GetResource(ctx, resource.ID)
	err = mapRepoError(err)
	return
}

// UpdateResource stores editable resource fields. Descendants' ancestry is
// recomputed since it derives from is_public, organization and origins.
func (s *ResourceService) UpdateResource(ctx context.Context, resource persistence.Resource) (updated persistence.Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateResource", "resource_id", resource.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource updated")
	}()

	if vErr := normalizeResource(&resource); vErr.HasErrors() {
		err = vErr
		return
	}

	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.UpdateResource(ctx, resource); err != nil {
			return mapRepoError(err)
		}
		descendants, err := s.descendants(ctx, resource.ID)
		if err != nil {
			return err
		}
		return s.updateAncestry(ctx, descendants...)
	})
	if err != nil {
		return
	}
	updated, err = s.store.GetResource(ctx, resource.ID)
	err = mapRepoError(err)
	return
}

// DeleteResource soft-deletes a resource and recomputes its former
// children's ancestry.
func (s *ResourceService) DeleteResource(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("ResourceService is nil")
	}
	logger := s.loggerWith(ctx, "DeleteResource", "resource_id", id)

	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		descendants, err := s.descendants(ctx, id)
		if err != nil {
			return err
		}
		if err := s.store.DeleteResource(ctx, id); err != nil {
			return mapRepoError(err)
		}
		return s.updateAncestry(ctx, descendants...)
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete resource", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "resource deleted")
	return nil
}

// AddChild links child under parent and recomputes the ancestry of child
// and its descendants. Links that would create a cycle are rejected.
func (s *ResourceService) AddChild(ctx context.Context, parentID, childID string) error {
	if s == nil {
		return fmt.Errorf("ResourceService is nil")
	}
	logger := s.loggerWith(ctx, "AddChild", "parent_id", parentID, "child_id", childID)

	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		if parentID == childID {
			return ErrHierarchyCycle
		}
		for _, id := range []string{parentID, childID} {
			if _, err := s.store.GetResource(ctx, id); err != nil {
				return mapRepoError(err)
			}
		}
		ancestors, err := s.ancestors(ctx, parentID)
		if err != nil {
			return err
		}
		if _, ok := ancestors[childID]; ok {
			return ErrHierarchyCycle
		}
		if err := s.store.AddChild(ctx, parentID, childID); err != nil {
			return mapRepoError(err)
		}
		return s.updateSubtree(ctx, childID)
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to add child", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "child added")
	return nil
}

// RemoveChild unlinks child from parent and recomputes the ancestry of
// child and its descendants.
func (s *ResourceService) RemoveChild(ctx context.Context, parentID, childID string) error {
	if s == nil {
		return fmt.Errorf("ResourceService is nil")
	}
	logger := s.loggerWith(ctx, "RemoveChild", "parent_id", parentID, "child_id", childID)

	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.RemoveChild(ctx, parentID, childID); err != nil {
			return mapRepoError(err)
		}
		return s.updateSubtree(ctx, childID)
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to remove child", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "child removed")
	return nil
}

// UpdateAncestry recomputes ancestry fields of the given resources, or of
// every resource when none are given.
func (s *ResourceService) UpdateAncestry(ctx context.Context, ids ...string) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("ResourceService is nil")
	}
	if len(ids) == 0 {
		resources, err := s.store.ListResources(ctx)
		if err != nil {
			return 0, mapRepoError(err)
		}
		for _, r := range resources {
			ids = append(ids, r.ID)
		}
	}
	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.updateAncestry(ctx, ids...)
	})
	if err != nil {
		return 0, err
	}
	s.loggerWith(ctx, "UpdateAncestry").InfoContext(ctx, "ancestry updated", "resources", len(ids))
	return len(ids), nil
}

// Ancestry computes the fields a resource derives from its ancestors.
func (s *ResourceService) Ancestry(ctx context.Context, id string) (persistence.Ancestry, error) {
	var (
		ancestry      persistence.Ancestry
		dataSources   = map[string]struct{}{}
		organizations = map[string]struct{}{}
		visited       = map[string]struct{}{id: {}}
	)

	var walk func(id string) error
	walk = func(id string) error {
		parentIDs, err := s.store.ListParentIDs(ctx, id)
		if err != nil {
			return mapRepoError(err)
		}
		for _, parentID := range parentIDs {
			parent, err := s.store.GetResource(ctx, parentID)
			if err != nil {
				return mapRepoError(err)
			}
			if ancestry.IsPublic == nil {
				public := parent.IsPublic
				ancestry.IsPublic = &public
			}
			if !parent.IsPublic {
				public := false
				ancestry.IsPublic = &public
			}
			for _, o := range parent.Origins {
				dataSources[o.DataSourceID] = struct{}{}
			}
			if parent.Organization != "" {
				organizations[parent.Organization] = struct{}{}
			}
			if _, seen := visited[parentID]; seen {
				continue
			}
			visited[parentID] = struct{}{}
			if err := walk(parentID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(id); err != nil {
		return persistence.Ancestry{}, err
	}

	ancestry.DataSources = sortedKeys(dataSources)
	ancestry.Organizations = sortedKeys(organizations)
	return ancestry, nil
}

func (s *ResourceService) updateSubtree(ctx context.Context, id string) error {
	descendants, err := s.descendants(ctx, id)
	if err != nil {
		return err
	}
	return s.updateAncestry(ctx, append([]string{id}, descendants...)...)
}

func (s *ResourceService) updateAncestry(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		ancestry, err := s.Ancestry(ctx, id)
		if err != nil {
			return err
		}
		if err := s.store.UpdateAncestry(ctx, id, ancestry); err != nil {
			return mapRepoError(err)
		}
	}
	return nil
}

// descendants lists every resource below id, parents before children.
func (s *ResourceService) descendants(ctx context.Context, id string) ([]string, error) {
	seen := map[string]struct{}{id: {}}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		children, err := s.store.ListChildIDs(ctx, current)
		if err != nil {
			return nil, mapRepoError(err)
		}
		for _, child := range children {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out, nil
}

func (s *ResourceService) ancestors(ctx context.Context, id string) (map[string]struct{}, error) {
	seen := map[string]struct{}{id: {}}
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		parents, err := s.store.ListParentIDs(ctx, current)
		if err != nil {
			return nil, mapRepoError(err)
		}
		for _, parent := range parents {
			if _, ok := seen[parent]; ok {
				continue
			}
			seen[parent] = struct{}{}
			queue = append(queue, parent)
		}
	}
	return seen, nil
}

func normalizeResource(resource *persistence.Resource) *ValidationError {
	vErr := &ValidationError{}
	resource.Name = strings.TrimSpace(resource.Name)
	if resource.ResourceType == "" {
		resource.ResourceType = hours.ResourceTypeUnit
	}
	if !resource.ResourceType.Valid() {
		vErr.add("resource_type", fmt.Sprintf("unknown resource type %q", resource.ResourceType))
	}
	if resource.Timezone == "" {
		resource.Timezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(resource.Timezone); err != nil {
		vErr.add("timezone", fmt.Sprintf("unknown timezone %q", resource.Timezone))
	}
	return vErr
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
