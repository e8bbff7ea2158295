package identity

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"
)

// ErrUnknownUser is returned by a Directory when no principal matches.
var ErrUnknownUser = errors.New("unknown user")

// Roles
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Subscription tiers, totally ordered: free < standard < premium.
const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

type Tier string

var tierRanks = map[Tier]int{
	TierFree:     1,
	TierStandard: 2,
	TierPremium:  3,
}

func (t Tier) Rank() int { return tierRanks[t] }

func (t Tier) Valid() bool {
	_, ok := tierRanks[t]
	return ok
}

// Actor is the acting principal supplied to every engine call. It is derived
// from the identity provider's session and never persisted here.
// The zero value is an anonymous, free-tier, read-only actor.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Tier Tier   `json:"tier"`
}

func (a Actor) IsAnonymous() bool { return a.ID == "" }
func (a Actor) IsAdmin() bool     { return a.Role == RoleAdmin }

// EffectiveTier treats a missing tier as free.
func (a Actor) EffectiveTier() Tier {
	if !a.Tier.Valid() {
		return TierFree
	}
	return a.Tier
}

// Directory resolves contact details for a principal from the identity store.
type Directory interface {
	Email(ctx context.Context, userID string) (mail.Address, error)
}
