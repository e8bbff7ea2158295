package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/shulehub/shule/core/content"
)

type contentRepository struct {
	db *contentTable
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *DB) content.Repository {
	return &contentRepository{db: db.content}
}

func (repo *contentRepository) query() []content.Content {
	all := make([]content.Content, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all
}

func (repo *contentRepository) CreateContent(_ context.Context, c content.Content) (content.Content, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *contentRepository) GetContentByID(_ context.Context, id string) (content.Content, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return content.Content{}, content.ErrNotFound
}

func (repo *contentRepository) FilterContent(_ context.Context, filter content.QueryFilter) ([]content.Content, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	all := repo.query()
	filtered := make([]content.Content, 0, len(all))
	for _, c := range all {
		if !filter.ViewerAdmin && c.Status != content.StatusApproved && c.OwnerID != filter.ViewerID {
			continue
		}
		if filter.Status != "" && string(c.Status) != filter.Status {
			continue
		}
		if filter.OwnerID != "" && c.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(filter.Search)) {
			continue
		}
		filtered = append(filtered, c)
	}

	total := len(filtered)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if filter.PageSize == 0 || end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

func (repo *contentRepository) SetApprovalStatus(_ context.Context, c content.Content) (content.Content, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[c.ID]
	if !ok {
		return content.Content{}, content.ErrNotFound
	}
	// CAS: the stored row must still be pending
	if orig.Status != content.StatusPending {
		return content.Content{}, content.ErrNotPending
	}

	orig.Status = c.Status
	orig.RejectionReason = c.RejectionReason
	orig.ApprovedBy = c.ApprovedBy
	orig.ApprovedAt = c.ApprovedAt
	orig.UpdatedAt = c.UpdatedAt
	return *orig, nil
}

func (repo *contentRepository) DeleteContent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return content.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
