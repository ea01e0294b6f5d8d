package domain

// Owned is implemented by entities that a single principal may mutate.
type Owned interface {
	OwnedBy(principalID string) bool
}
