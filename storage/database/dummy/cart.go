package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/shulehub/shule/core/cart"
)

type cartRepository struct {
	db *cartTable
}

var _ cart.Repository = (*cartRepository)(nil) // interface compliance check

func NewCartRepository(db *DB) cart.Repository {
	return &cartRepository{db: db.cart}
}

func (repo *cartRepository) CreateLine(_ context.Context, line cart.Line) (cart.Line, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// mirrors the (user_id, content_id) uniqueness constraint
	for _, l := range repo.db.table {
		if l.UserID == line.UserID && l.ContentID == line.ContentID {
			return cart.Line{}, cart.ErrLineExists
		}
	}
	repo.db.table[line.ID] = &line
	return line, nil
}

func (repo *cartRepository) GetLineByID(_ context.Context, id string) (cart.Line, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if line, ok := repo.db.table[id]; ok {
		return *line, nil
	}
	return cart.Line{}, cart.ErrNotFound
}

func (repo *cartRepository) GetLineForContent(_ context.Context, userID, contentID string) (cart.Line, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, line := range repo.db.table {
		if line.UserID == userID && line.ContentID == contentID {
			return *line, nil
		}
	}
	return cart.Line{}, cart.ErrNotFound
}

func (repo *cartRepository) UpdateQuantity(_ context.Context, line cart.Line) (cart.Line, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[line.ID]
	if !ok {
		return cart.Line{}, cart.ErrNotFound
	}
	// optimistic lock on the updated_at the caller read
	if !orig.UpdatedAt.Equal(line.UpdatedAt) {
		return cart.Line{}, cart.ErrConflict
	}

	orig.Quantity = line.Quantity
	orig.UpdatedAt = time.Now().UTC()
	return *orig, nil
}

func (repo *cartRepository) SetQuantity(_ context.Context, id string, quantity int, updatedAt time.Time) (cart.Line, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[id]
	if !ok {
		return cart.Line{}, cart.ErrNotFound
	}
	orig.Quantity = quantity
	orig.UpdatedAt = updatedAt
	return *orig, nil
}

func (repo *cartRepository) DeleteLine(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return cart.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *cartRepository) DeleteUserLines(_ context.Context, userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, line := range repo.db.table {
		if line.UserID == userID {
			delete(repo.db.table, id)
		}
	}
	return nil
}

func (repo *cartRepository) QueryUserLines(_ context.Context, userID string) ([]cart.Line, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var lines []cart.Line
	for _, line := range repo.db.table {
		if line.UserID == userID {
			lines = append(lines, *line)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].AddedAt.Before(lines[j].AddedAt) })
	return lines, nil
}
