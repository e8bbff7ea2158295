package content

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/identity"
	"github.com/shulehub/shule/core/stream"
)

var (
	// errors
	ErrNotFound = errors.New("content not found")
	// ErrNotPending is returned when an approval transition loses the
	// compare-and-swap: the row is no longer pending at commit time. The
	// caller must re-fetch; the engine never retries a moderation action.
	ErrNotPending = errors.New("content is no longer pending")
)

const publishTimeout = 2 * time.Second

type (
	Repository interface {
		CreateContent(ctx context.Context, c Content) (Content, error)
		GetContentByID(ctx context.Context, id string) (Content, error)
		// FilterContent applies AND on available QueryFilter fields and the
		// viewer visibility rule, returning one page plus the total count.
		FilterContent(ctx context.Context, filter QueryFilter) ([]Content, int, error)
		// SetApprovalStatus commits c's approval fields only if the stored
		// row is still pending; it returns ErrNotPending when the
		// precondition fails and ErrNotFound when the row is gone.
		SetApprovalStatus(ctx context.Context, c Content) (Content, error)
		DeleteContent(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		pub     stream.Publisher
		mailSvc core.EmailService
		dir     identity.Directory
		logger  core.Logger
		conf    *core.Config
	}
)

func NewService(repo Repository, pub stream.Publisher, mailSvc core.EmailService, dir identity.Directory, logger core.Logger, conf *core.Config) *Service {
	if pub == nil {
		pub = stream.NopPublisher{}
	}
	return &Service{
		repo:    repo,
		pub:     pub,
		mailSvc: mailSvc,
		dir:     dir,
		logger:  logger,
		conf:    conf,
	}
}

// Submit creates a pending row owned by the actor.
func (svc *Service) Submit(ctx context.Context, actor identity.Actor, nc NewContent) (Content, error) {
	if actor.IsAnonymous() {
		return Content{}, core.ErrPermissionDenied
	}

	now := time.Now().UTC()
	c := Content{
		ID:          uuid.NewString(),
		Kind:        nc.Kind,
		OwnerID:     actor.ID,
		Title:       nc.Title,
		Description: nc.Description,
		PriceCents:  nc.PriceCents,
		FileURL:     nc.FileURL,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateContent(ctx, c)
}

// GetByID returns the content if the actor may view it. Rows the actor may
// not view are reported as not found so their existence does not leak.
func (svc *Service) GetByID(ctx context.Context, actor identity.Actor, id string) (Content, error) {
	c, err := svc.repo.GetContentByID(ctx, id)
	if err != nil {
		return Content{}, err
	}
	if !identity.CanView(actor, c) {
		return Content{}, ErrNotFound
	}
	return c, nil
}

// Query returns one page of content visible to the actor plus the total count.
func (svc *Service) Query(ctx context.Context, actor identity.Actor, filter QueryFilter) ([]Content, int, error) {
	filter.Clean()
	filter.ViewerID = actor.ID
	filter.ViewerAdmin = actor.IsAdmin()
	return svc.repo.FilterContent(ctx, filter)
}

// Approve transitions a pending row to approved. Admin only. A concurrent
// transition that lands first makes this call fail with ErrNotPending.
func (svc *Service) Approve(ctx context.Context, actor identity.Actor, id string) (Content, error) {
	return svc.moderate(ctx, actor, id, StatusApproved, "")
}

// Reject transitions a pending row to rejected with a reason. Admin only;
// the reason may not be blank.
func (svc *Service) Reject(ctx context.Context, actor identity.Actor, id, reason string) (Content, error) {
	reason = core.CleanString(reason)
	if reason == "" {
		return Content{}, core.NewValidationError(
			errors.New("a rejection reason is required"),
			core.FieldError{Field: "reason", Error: "a rejection reason is required"},
		)
	}
	return svc.moderate(ctx, actor, id, StatusRejected, reason)
}

func (svc *Service) moderate(ctx context.Context, actor identity.Actor, id string, status Status, reason string) (Content, error) {
	if !identity.CanModerate(actor) {
		return Content{}, core.ErrPermissionDenied
	}

	c, err := svc.repo.GetContentByID(ctx, id)
	if err != nil {
		return Content{}, err
	}
	if c.Status != StatusPending {
		return Content{}, ErrNotPending
	}

	now := time.Now().UTC()
	c.Status = status
	c.UpdatedAt = now
	switch status {
	case StatusApproved:
		c.ApprovedBy = actor.ID
		c.ApprovedAt = &now
		c.RejectionReason = ""
	case StatusRejected:
		c.RejectionReason = reason
		c.ApprovedBy = ""
		c.ApprovedAt = nil
	}

	// commit only if still pending (CAS); a concurrent winner turns this
	// into ErrNotPending with no mutation
	c, err = svc.repo.SetApprovalStatus(ctx, c)
	if err != nil {
		return Content{}, err
	}

	svc.publish(
		stream.Event{Type: stream.EventContentStatusChanged, EntityID: c.ID, NewStatus: string(c.Status), At: now},
		stream.ContentTopic(c.OwnerID), stream.AdminTopic,
	)
	svc.notifyOwner(c)
	return c, nil
}

// Delete removes the row unconditionally, whatever its status. Owner or admin.
func (svc *Service) Delete(ctx context.Context, actor identity.Actor, id string) error {
	c, err := svc.repo.GetContentByID(ctx, id)
	if err != nil {
		return err
	}
	if !identity.CanMutate(actor, c) {
		return core.ErrPermissionDenied
	}
	if err := svc.repo.DeleteContent(ctx, id); err != nil {
		return err
	}

	svc.publish(
		stream.Event{Type: stream.EventContentRemoved, EntityID: c.ID, At: time.Now().UTC()},
		stream.ContentTopic(c.OwnerID), stream.AdminTopic,
	)
	return nil
}

// publish fans the event out without extending the latency or failure
// surface of the mutation that triggered it.
func (svc *Service) publish(evt stream.Event, topics ...string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		for _, topic := range topics {
			if err := svc.pub.Publish(ctx, topic, evt); err != nil && svc.logger != nil {
				svc.logger.Warn(fmt.Sprintf("publishing %s to %s: %v", evt.Type, topic, err), err)
			}
		}
	}()
}

// notifyOwner emails the owner the moderation decision. Best-effort: lookup
// or send failures are logged, never surfaced.
func (svc *Service) notifyOwner(c Content) {
	if svc.mailSvc == nil || svc.dir == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		addr, err := svc.dir.Email(ctx, c.OwnerID)
		if err != nil {
			if svc.logger != nil {
				svc.logger.Warn(fmt.Sprintf("looking up owner %s email: %v", c.OwnerID, err), err)
			}
			return
		}

		msg := &core.EmailMessage{To: []mail.Address{addr}}
		switch c.Status {
		case StatusApproved:
			msg.Subject = "Your submission was approved"
			msg.BodyStr = fmt.Sprintf("%q is now live on the marketplace.", c.Title)
		case StatusRejected:
			msg.Subject = "Your submission was rejected"
			msg.BodyStr = fmt.Sprintf("%q was rejected: %s", c.Title, c.RejectionReason)
		default:
			return
		}
		svc.mailSvc.SendMessages(msg)
	}()
}
