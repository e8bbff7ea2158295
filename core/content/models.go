package content

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/identity"
)

// Kinds of submittable content. All share the same approval lifecycle and
// differ only in their payload; the engine never interprets the payload.
const (
	KindBook    Kind = "book"
	KindSummary Kind = "summary"
	KindLecture Kind = "lecture"
)

type Kind string

func (k Kind) Valid() bool {
	switch k {
	case KindBook, KindSummary, KindLecture:
		return true
	}
	return false
}

// Approval statuses. Approved and rejected are terminal: no engine operation
// reopens them.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Status string

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s Status) Terminal() bool { return s == StatusApproved || s == StatusRejected }

type Content struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	OwnerID string `json:"owner_id"`

	// payload; opaque to the approval engine
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PriceCents  int    `json:"price_cents"`
	FileURL     string `json:"file_url,omitempty"`

	Status          Status     `json:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty"` // set iff rejected
	ApprovedBy      string     `json:"approved_by,omitempty"`      // set iff approved
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`      // set iff approved

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// identity.Resource implementation for the access gate.

func (c Content) Owner() string  { return c.OwnerID }
func (c Content) IsPublic() bool { return c.Status == StatusApproved }

var _ identity.Resource = Content{}

// NewContent contains information needed to submit new content for approval.
type NewContent struct {
	Kind        Kind   `json:"kind" validate:"required,kind"`
	Title       string `json:"title" validate:"required,notblank"`
	Description string `json:"description"`
	PriceCents  int    `json:"price_cents" validate:"min=0"`
	FileURL     string `json:"file_url" validate:"omitempty,url"`
}

func (nc *NewContent) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.FileURL = core.CleanString(nc.FileURL)
	return validate.Struct(nc)
}

// QueryFilter narrows a content listing. All conditions are ANDed.
// The viewer fields are set by the service, never bound from a request:
// non-admin viewers only ever see approved rows or their own.
type QueryFilter struct {
	Status   string `query:"status"` // pending | approved | rejected; empty = all
	Search   string `query:"search"` // case-insensitive match on Title
	OwnerID  string `query:"owner"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`

	ViewerID    string `query:"-"`
	ViewerAdmin bool   `query:"-"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
	if qf.Page < 1 {
		qf.Page = 1
	}
	if qf.PageSize < 1 {
		qf.PageSize = defaultPageSize
	} else if qf.PageSize > maxPageSize {
		qf.PageSize = maxPageSize
	}
}

func (qf QueryFilter) Offset() int { return (qf.Page - 1) * qf.PageSize }

// Validators

var (
	kindTag  = "kind"
	kindText = "must be one of: book, summary, lecture"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(kindTag, func(fl validator.FieldLevel) bool {
		return Kind(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, kindTag, kindText)
}
