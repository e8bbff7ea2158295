package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core/cart"
)

// postgres unique_violation
const pqUniqueViolation = "23505"

type lineRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ContentID string    `db:"content_id"`
	Quantity  int       `db:"quantity"`
	AddedAt   time.Time `db:"added_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r lineRow) toDomain() cart.Line {
	return cart.Line{
		ID:        r.ID,
		UserID:    r.UserID,
		ContentID: r.ContentID,
		Quantity:  r.Quantity,
		AddedAt:   r.AddedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type cartRepository struct {
	db *sqlx.DB
}

var _ cart.Repository = (*cartRepository)(nil)

func NewCartRepository(db *sqlx.DB) cart.Repository {
	return &cartRepository{db: db}
}

func (repo *cartRepository) CreateLine(ctx context.Context, line cart.Line) (cart.Line, error) {
	const q = `
		INSERT INTO cart_line (id, user_id, content_id, quantity, added_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q, line.ID, line.UserID, line.ContentID, line.Quantity, line.AddedAt, line.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return cart.Line{}, cart.ErrLineExists
		}
		return cart.Line{}, errors.Wrap(err, "inserting cart line")
	}
	return line, nil
}

func (repo *cartRepository) GetLineByID(ctx context.Context, id string) (cart.Line, error) {
	var row lineRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM cart_line WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return cart.Line{}, cart.ErrNotFound
	}
	if err != nil {
		return cart.Line{}, errors.Wrap(err, "getting cart line")
	}
	return row.toDomain(), nil
}

func (repo *cartRepository) GetLineForContent(ctx context.Context, userID, contentID string) (cart.Line, error) {
	var row lineRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM cart_line WHERE user_id = $1 AND content_id = $2`, userID, contentID)
	if err == sql.ErrNoRows {
		return cart.Line{}, cart.ErrNotFound
	}
	if err != nil {
		return cart.Line{}, errors.Wrap(err, "getting cart line")
	}
	return row.toDomain(), nil
}

func (repo *cartRepository) UpdateQuantity(ctx context.Context, line cart.Line) (cart.Line, error) {
	// optimistic lock on the updated_at the caller read
	const q = `
		UPDATE cart_line SET quantity = $2, updated_at = $3
		WHERE id = $1 AND updated_at = $4`
	now := time.Now().UTC()
	res, err := repo.db.ExecContext(ctx, q, line.ID, line.Quantity, now, line.UpdatedAt)
	if err != nil {
		return cart.Line{}, errors.Wrap(err, "updating cart line")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return cart.Line{}, errors.Wrap(err, "updating cart line")
	}
	if n == 0 {
		var exists bool
		if err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM cart_line WHERE id = $1)`, line.ID); err != nil {
			return cart.Line{}, errors.Wrap(err, "checking cart line")
		}
		if !exists {
			return cart.Line{}, cart.ErrNotFound
		}
		return cart.Line{}, cart.ErrConflict
	}
	line.UpdatedAt = now
	return line, nil
}

func (repo *cartRepository) SetQuantity(ctx context.Context, id string, quantity int, updatedAt time.Time) (cart.Line, error) {
	// blind overwrite: last writer wins
	res, err := repo.db.ExecContext(ctx, `UPDATE cart_line SET quantity = $2, updated_at = $3 WHERE id = $1`, id, quantity, updatedAt)
	if err != nil {
		return cart.Line{}, errors.Wrap(err, "setting cart line quantity")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cart.Line{}, cart.ErrNotFound
	}
	return repo.GetLineByID(ctx, id)
}

func (repo *cartRepository) DeleteLine(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM cart_line WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting cart line")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cart.ErrNotFound
	}
	return nil
}

func (repo *cartRepository) DeleteUserLines(ctx context.Context, userID string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM cart_line WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "clearing cart")
	}
	return nil
}

func (repo *cartRepository) QueryUserLines(ctx context.Context, userID string) ([]cart.Line, error) {
	var rows []lineRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM cart_line WHERE user_id = $1 ORDER BY added_at`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying cart lines")
	}
	lines := make([]cart.Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.toDomain())
	}
	return lines, nil
}
