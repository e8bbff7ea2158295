package identity

// Resource is anything guarded by the access gate. Implementations live in
// the domain packages; the gate itself knows nothing about them.
type Resource interface {
	// Owner is the ID of the user the resource belongs to.
	Owner() string
	// IsPublic reports whether any actor may read the resource.
	IsPublic() bool
}

// The access gate. All checks are pure and never fail: callers branch on the
// returned bool to deny an operation or render a fallback.

// CanAccess reports whether the actor's subscription tier satisfies the
// required tier.
func CanAccess(a Actor, required Tier) bool {
	return a.EffectiveTier().Rank() >= required.Rank()
}

// CanView reports whether the actor may read the resource: public resources
// are visible to everyone, non-public ones to their owner and admins only.
func CanView(a Actor, r Resource) bool {
	if r.IsPublic() {
		return true
	}
	return (!a.IsAnonymous() && a.ID == r.Owner()) || a.IsAdmin()
}

// CanMutate reports whether the actor may modify or delete the resource.
func CanMutate(a Actor, r Resource) bool {
	return (!a.IsAnonymous() && a.ID == r.Owner()) || a.IsAdmin()
}

// CanModerate reports whether the actor may change approval state.
func CanModerate(a Actor) bool {
	return a.IsAdmin()
}
