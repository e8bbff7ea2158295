package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core/content"
)

type contentRow struct {
	ID              string     `db:"id"`
	Kind            string     `db:"kind"`
	OwnerID         string     `db:"owner_id"`
	Title           string     `db:"title"`
	Description     string     `db:"description"`
	PriceCents      int        `db:"price_cents"`
	FileURL         string     `db:"file_url"`
	ApprovalStatus  string     `db:"approval_status"`
	RejectionReason string     `db:"rejection_reason"`
	ApprovedBy      *string    `db:"approved_by"`
	ApprovedAt      *time.Time `db:"approved_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r contentRow) toDomain() content.Content {
	c := content.Content{
		ID:              r.ID,
		Kind:            content.Kind(r.Kind),
		OwnerID:         r.OwnerID,
		Title:           r.Title,
		Description:     r.Description,
		PriceCents:      r.PriceCents,
		FileURL:         r.FileURL,
		Status:          content.Status(r.ApprovalStatus),
		RejectionReason: r.RejectionReason,
		ApprovedAt:      r.ApprovedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.ApprovedBy != nil {
		c.ApprovedBy = *r.ApprovedBy
	}
	return c
}

func newContentRow(c content.Content) contentRow {
	r := contentRow{
		ID:              c.ID,
		Kind:            string(c.Kind),
		OwnerID:         c.OwnerID,
		Title:           c.Title,
		Description:     c.Description,
		PriceCents:      c.PriceCents,
		FileURL:         c.FileURL,
		ApprovalStatus:  string(c.Status),
		RejectionReason: c.RejectionReason,
		ApprovedAt:      c.ApprovedAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if c.ApprovedBy != "" {
		r.ApprovedBy = &c.ApprovedBy
	}
	return r
}

type contentRepository struct {
	db *sqlx.DB
}

var _ content.Repository = (*contentRepository)(nil)

func NewContentRepository(db *sqlx.DB) content.Repository {
	return &contentRepository{db: db}
}

func (repo *contentRepository) CreateContent(ctx context.Context, c content.Content) (content.Content, error) {
	const q = `
		INSERT INTO content (id, kind, owner_id, title, description, price_cents, file_url,
		                     approval_status, rejection_reason, approved_by, approved_at, created_at, updated_at)
		VALUES (:id, :kind, :owner_id, :title, :description, :price_cents, :file_url,
		        :approval_status, :rejection_reason, :approved_by, :approved_at, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newContentRow(c)); err != nil {
		return content.Content{}, errors.Wrap(err, "inserting content")
	}
	return c, nil
}

func (repo *contentRepository) GetContentByID(ctx context.Context, id string) (content.Content, error) {
	var row contentRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM content WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return content.Content{}, content.ErrNotFound
	}
	if err != nil {
		return content.Content{}, errors.Wrap(err, "getting content")
	}
	return row.toDomain(), nil
}

func (repo *contentRepository) FilterContent(ctx context.Context, filter content.QueryFilter) ([]content.Content, int, error) {
	where := ` WHERE 1=1`
	args := make([]interface{}, 0, 5)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.ViewerAdmin {
		// non-admins only ever see approved rows or their own
		where += ` AND (approval_status = 'approved' OR owner_id = ` + arg(filter.ViewerID) + `)`
	}
	if filter.Status != "" {
		where += ` AND approval_status = ` + arg(filter.Status)
	}
	if filter.OwnerID != "" {
		where += ` AND owner_id = ` + arg(filter.OwnerID)
	}
	if filter.Search != "" {
		where += ` AND title ILIKE ` + arg("%"+filter.Search+"%")
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM content`+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting content")
	}

	q := `SELECT * FROM content` + where +
		` ORDER BY created_at DESC LIMIT ` + arg(filter.PageSize) +
		` OFFSET ` + arg(filter.Offset())

	var rows []contentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering content")
	}

	out := make([]content.Content, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, total, nil
}

func (repo *contentRepository) SetApprovalStatus(ctx context.Context, c content.Content) (content.Content, error) {
	row := newContentRow(c)
	// CAS: only commits while the stored row is still pending
	const q = `
		UPDATE content
		SET approval_status = :approval_status, rejection_reason = :rejection_reason,
		    approved_by = :approved_by, approved_at = :approved_at, updated_at = :updated_at
		WHERE id = :id AND approval_status = 'pending'`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return content.Content{}, errors.Wrap(err, "updating approval status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return content.Content{}, errors.Wrap(err, "updating approval status")
	}
	if n == 0 {
		// row gone, or a concurrent transition won
		var exists bool
		if err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM content WHERE id = $1)`, c.ID); err != nil {
			return content.Content{}, errors.Wrap(err, "checking content")
		}
		if !exists {
			return content.Content{}, content.ErrNotFound
		}
		return content.Content{}, content.ErrNotPending
	}
	return c, nil
}

func (repo *contentRepository) DeleteContent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting content")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return content.ErrNotFound
	}
	return nil
}
