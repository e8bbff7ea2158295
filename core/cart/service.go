package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/content"
	"github.com/shulehub/shule/core/identity"
	"github.com/shulehub/shule/core/stream"
)

var (
	// errors
	ErrNotFound = errors.New("cart line not found")
	// ErrLineExists is reported by repositories when an insert hits the
	// (user_id, content_id) uniqueness constraint.
	ErrLineExists = errors.New("cart line already exists")
	// ErrConflict is a lost optimistic update on a quantity increment.
	ErrConflict = errors.New("cart line was modified concurrently")
	// ErrContentUnavailable is returned when the referenced content is
	// missing or not approved.
	ErrContentUnavailable = errors.New("content is not available")
)

const publishTimeout = 2 * time.Second

type (
	Repository interface {
		// CreateLine returns ErrLineExists when a line for the same
		// (user, content) pair is already present.
		CreateLine(ctx context.Context, line Line) (Line, error)
		GetLineByID(ctx context.Context, id string) (Line, error)
		GetLineForContent(ctx context.Context, userID, contentID string) (Line, error)
		// UpdateQuantity commits only if the stored row still carries the
		// UpdatedAt the caller read (optimistic lock); a lost race is
		// reported as ErrConflict.
		UpdateQuantity(ctx context.Context, line Line) (Line, error)
		// SetQuantity overwrites the quantity unconditionally (last writer
		// wins).
		SetQuantity(ctx context.Context, id string, quantity int, updatedAt time.Time) (Line, error)
		DeleteLine(ctx context.Context, id string) error
		DeleteUserLines(ctx context.Context, userID string) error
		QueryUserLines(ctx context.Context, userID string) ([]Line, error)
	}

	Service struct {
		repo     Repository
		contents content.Repository
		pub      stream.Publisher
		logger   core.Logger
	}
)

func NewService(repo Repository, contents content.Repository, pub stream.Publisher, logger core.Logger) *Service {
	if pub == nil {
		pub = stream.NopPublisher{}
	}
	return &Service{
		repo:     repo,
		contents: contents,
		pub:      pub,
		logger:   logger,
	}
}

// AddItem puts approved content in the actor's cart. A first add creates the
// line; subsequent adds increment its quantity. The increment is a
// read-modify-write retried once on a lost race, so no increment is ever
// silently dropped.
func (svc *Service) AddItem(ctx context.Context, actor identity.Actor, ni NewItem) (Line, error) {
	if actor.IsAnonymous() {
		return Line{}, core.ErrPermissionDenied
	}
	if ni.Quantity <= 0 {
		return Line{}, core.NewValidationError(
			errors.New("quantity must be positive"),
			core.FieldError{Field: "quantity", Error: "quantity must be positive"},
		)
	}

	c, err := svc.contents.GetContentByID(ctx, ni.ContentID)
	if err != nil {
		if errors.Cause(err) == content.ErrNotFound {
			return Line{}, ErrContentUnavailable
		}
		return Line{}, err
	}
	if c.Status != content.StatusApproved {
		return Line{}, ErrContentUnavailable
	}

	line, err := svc.repo.GetLineForContent(ctx, actor.ID, ni.ContentID)
	switch errors.Cause(err) {
	case nil:
		line, err = svc.increment(ctx, line, ni.Quantity)
	case ErrNotFound:
		now := time.Now().UTC()
		line, err = svc.repo.CreateLine(ctx, Line{
			ID:        uuid.NewString(),
			UserID:    actor.ID,
			ContentID: ni.ContentID,
			Quantity:  ni.Quantity,
			AddedAt:   now,
			UpdatedAt: now,
		})
		if errors.Cause(err) == ErrLineExists {
			// lost the insert race; the line is there now, increment it
			if line, err = svc.repo.GetLineForContent(ctx, actor.ID, ni.ContentID); err == nil {
				line, err = svc.increment(ctx, line, ni.Quantity)
			}
		}
	}
	if err != nil {
		return Line{}, err
	}

	svc.publishCartChanged(actor.ID, line.ID, &line.Quantity)
	return line, nil
}

// increment adds delta to the line under an optimistic lock, re-reading and
// retrying exactly once when a concurrent write got there first.
func (svc *Service) increment(ctx context.Context, line Line, delta int) (Line, error) {
	for attempt := 0; attempt < 2; attempt++ {
		upd := line
		upd.Quantity += delta
		updated, err := svc.repo.UpdateQuantity(ctx, upd)
		if errors.Cause(err) != ErrConflict {
			return updated, err
		}
		if line, err = svc.repo.GetLineByID(ctx, line.ID); err != nil {
			return Line{}, err
		}
	}
	return Line{}, ErrConflict
}

// UpdateQuantity sets the line's quantity outright; owner only. Zero or a
// negative quantity deletes the line. Concurrent edits are last-writer-wins.
func (svc *Service) UpdateQuantity(ctx context.Context, actor identity.Actor, lineID string, quantity int) (Line, error) {
	line, err := svc.repo.GetLineByID(ctx, lineID)
	if err != nil {
		return Line{}, err
	}
	if line.UserID != actor.ID {
		return Line{}, core.ErrPermissionDenied
	}

	if quantity <= 0 {
		if err := svc.repo.DeleteLine(ctx, lineID); err != nil {
			return Line{}, err
		}
		svc.publishCartChanged(actor.ID, lineID, nil)
		return Line{}, nil
	}

	line, err = svc.repo.SetQuantity(ctx, lineID, quantity, time.Now().UTC())
	if err != nil {
		return Line{}, err
	}
	svc.publishCartChanged(actor.ID, line.ID, &line.Quantity)
	return line, nil
}

// Remove deletes the targeted line; owner only.
func (svc *Service) Remove(ctx context.Context, actor identity.Actor, lineID string) error {
	line, err := svc.repo.GetLineByID(ctx, lineID)
	if err != nil {
		return err
	}
	if line.UserID != actor.ID {
		return core.ErrPermissionDenied
	}
	if err := svc.repo.DeleteLine(ctx, lineID); err != nil {
		return err
	}
	svc.publishCartChanged(actor.ID, lineID, nil)
	return nil
}

// Clear deletes all of the actor's lines.
func (svc *Service) Clear(ctx context.Context, actor identity.Actor) error {
	if actor.IsAnonymous() {
		return core.ErrPermissionDenied
	}
	if err := svc.repo.DeleteUserLines(ctx, actor.ID); err != nil {
		return err
	}
	svc.publishCartChanged(actor.ID, "", nil)
	return nil
}

// Query resolves each of the actor's lines against its content. A line whose
// content was deleted or is no longer approved comes back flagged
// unavailable rather than omitted.
func (svc *Service) Query(ctx context.Context, actor identity.Actor) ([]Item, error) {
	lines, err := svc.repo.QueryUserLines(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		item := Item{Line: line}
		c, err := svc.contents.GetContentByID(ctx, line.ContentID)
		switch {
		case errors.Cause(err) == content.ErrNotFound:
			item.Unavailable = true
		case err != nil:
			return nil, err
		default:
			item.Content = &c
			item.Unavailable = c.Status != content.StatusApproved
		}
		items = append(items, item)
	}
	return items, nil
}

// ComputeTotal sums quantity * price in cents over available lines only.
func (svc *Service) ComputeTotal(ctx context.Context, actor identity.Actor) (int, error) {
	items, err := svc.Query(ctx, actor)
	if err != nil {
		return 0, err
	}
	var total int
	for _, item := range items {
		if item.Unavailable {
			continue
		}
		total += item.Quantity * item.Content.PriceCents
	}
	return total, nil
}

func (svc *Service) publishCartChanged(userID, lineID string, quantity *int) {
	evt := stream.Event{
		Type:        stream.EventCartChanged,
		EntityID:    lineID,
		NewQuantity: quantity,
		At:          time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := svc.pub.Publish(ctx, stream.CartTopic(userID), evt); err != nil && svc.logger != nil {
			svc.logger.Warn(fmt.Sprintf("publishing %s: %v", evt.Type, err), err)
		}
	}()
}
