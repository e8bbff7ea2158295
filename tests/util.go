package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shulehub/shule/core/cart"
	"github.com/shulehub/shule/core/content"
	"github.com/shulehub/shule/core/identity"
)

func Student(id string, tier identity.Tier) identity.Actor {
	return identity.Actor{ID: id, Role: identity.RoleStudent, Tier: tier}
}

func Admin(id string) identity.Actor {
	return identity.Actor{ID: id, Role: identity.RoleAdmin, Tier: identity.TierPremium}
}

func CreateContent(
	t *testing.T,
	repo content.Repository,
	ownerID, title string,
	kind content.Kind,
	priceCents int,
	status content.Status,
	createdAt ...time.Time,
) content.Content {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c := content.Content{
		ID:         uuid.New().String(),
		Kind:       kind,
		OwnerID:    ownerID,
		Title:      title,
		PriceCents: priceCents,
		Status:     content.StatusPending,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	c, err := repo.CreateContent(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateContent() failed: %v", err)
	}
	if status != content.StatusPending {
		c.Status = status
		if status == content.StatusApproved {
			c.ApprovedBy = "moderator"
			c.ApprovedAt = &tstamp
		} else {
			c.RejectionReason = "not suitable"
		}
		if c, err = repo.SetApprovalStatus(context.Background(), c); err != nil {
			t.Fatalf("CreateContent() failed: %v", err)
		}
	}
	return c
}

func CreateLine(
	t *testing.T,
	repo cart.Repository,
	userID, contentID string,
	quantity int,
) cart.Line {
	t.Helper()
	now := time.Now().UTC()
	line, err := repo.CreateLine(context.Background(), cart.Line{
		ID:        uuid.New().String(),
		UserID:    userID,
		ContentID: contentID,
		Quantity:  quantity,
		AddedAt:   now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateLine() failed: %v", err)
	}
	return line
}

// StaticDirectory serves owner emails from a fixed map.
type StaticDirectory map[string]mail.Address

var _ identity.Directory = StaticDirectory{}

func (d StaticDirectory) Email(_ context.Context, userID string) (mail.Address, error) {
	addr, ok := d[userID]
	if !ok {
		return mail.Address{}, identity.ErrUnknownUser
	}
	return addr, nil
}
