package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	"namespaces/pkg/platform/sentinel"
)

type namespaceStore struct {
	tbl *table[models.Namespace]
}

func (s *namespaceStore) Create(_ context.Context, ns *models.Namespace) error {
	if ns == nil {
		return fmt.Errorf("namespace is required")
	}
	if _, ok := s.tbl.get(ns.ID); ok {
		return fmt.Errorf("namespace %s: %w", ns.Name, sentinel.ErrConflict)
	}
	s.tbl.put(ns.ID, ns)
	return nil
}

func (s *namespaceStore) FindByID(_ context.Context, id domain.RecordID) (*models.Namespace, error) {
	ns, ok := s.tbl.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return ns, nil
}

func (s *namespaceStore) FindByName(ctx context.Context, name string) (*models.Namespace, error) {
	ns, err := s.FindByID(ctx, domain.NamespaceAddress(name))
	if err != nil {
		return nil, err
	}
	if ns.Name != name {
		return nil, sentinel.ErrNotFound
	}
	return ns, nil
}

func (s *namespaceStore) List(_ context.Context) ([]*models.Namespace, error) {
	var out []*models.Namespace
	s.tbl.each(func(ns *models.Namespace) { out = append(out, ns) })
	slices.SortFunc(out, func(a, b *models.Namespace) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *namespaceStore) Save(_ context.Context, ns *models.Namespace) error {
	if ns == nil {
		return fmt.Errorf("namespace is required")
	}
	if _, ok := s.tbl.get(ns.ID); !ok {
		return sentinel.ErrNotFound
	}
	s.tbl.put(ns.ID, ns)
	return nil
}

type entryStore struct {
	tbl *table[models.Entry]
}

func (s *entryStore) FindByID(_ context.Context, id domain.RecordID) (*models.Entry, error) {
	entry, ok := s.tbl.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return entry, nil
}

// FindByIDs returns the entries that exist, in the order asked for.
func (s *entryStore) FindByIDs(_ context.Context, ids []domain.RecordID) ([]*models.Entry, error) {
	out := make([]*models.Entry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := s.tbl.get(id); ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *entryStore) ListByNamespace(_ context.Context, namespaceID domain.RecordID) ([]*models.Entry, error) {
	var out []*models.Entry
	s.tbl.each(func(e *models.Entry) {
		if e.NamespaceID == namespaceID {
			out = append(out, e)
		}
	})
	slices.SortFunc(out, func(a, b *models.Entry) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *entryStore) Save(_ context.Context, entry *models.Entry) error {
	if entry == nil {
		return fmt.Errorf("entry is required")
	}
	s.tbl.put(entry.ID, entry)
	return nil
}

type claimRequestStore struct {
	tbl *table[models.ClaimRequest]
}

func (s *claimRequestStore) FindByID(_ context.Context, id domain.RecordID) (*models.ClaimRequest, error) {
	req, ok := s.tbl.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return req, nil
}

func (s *claimRequestStore) ListByNamespace(_ context.Context, namespaceID domain.RecordID, pendingOnly bool) ([]*models.ClaimRequest, error) {
	var out []*models.ClaimRequest
	s.tbl.each(func(r *models.ClaimRequest) {
		if r.NamespaceID != namespaceID || (pendingOnly && r.IsApproved) {
			return
		}
		out = append(out, r)
	})
	slices.SortFunc(out, func(a, b *models.ClaimRequest) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *claimRequestStore) Save(_ context.Context, req *models.ClaimRequest) error {
	if req == nil {
		return fmt.Errorf("claim request is required")
	}
	s.tbl.put(req.ID, req)
	return nil
}

func (s *claimRequestStore) Delete(_ context.Context, id domain.RecordID) error {
	if _, ok := s.tbl.get(id); !ok {
		return sentinel.ErrNotFound
	}
	s.tbl.del(id)
	return nil
}

type reverseEntryStore struct {
	tbl *table[models.ReverseEntry]
}

func (s *reverseEntryStore) FindByID(_ context.Context, id domain.RecordID) (*models.ReverseEntry, error) {
	rev, ok := s.tbl.get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rev, nil
}

func (s *reverseEntryStore) Save(_ context.Context, rev *models.ReverseEntry) error {
	if rev == nil {
		return fmt.Errorf("reverse entry is required")
	}
	s.tbl.put(rev.ID, rev)
	return nil
}

func (s *reverseEntryStore) Delete(_ context.Context, id domain.RecordID) error {
	if _, ok := s.tbl.get(id); !ok {
		return sentinel.ErrNotFound
	}
	s.tbl.del(id)
	return nil
}
