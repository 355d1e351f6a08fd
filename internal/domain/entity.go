package domain

// EntityKind tags which population a ledger entity belongs to.
type EntityKind string

const (
	EntityKindRequester    EntityKind = "requester"
	EntityKindOrganization EntityKind = "organization"
)

// IsValid checks if the kind is one of the allowed values.
func (k EntityKind) IsValid() bool {
	return k == EntityKindRequester || k == EntityKindOrganization
}

// EntityRef identifies a ledger owner or a notification recipient.
type EntityRef struct {
	Kind EntityKind
	ID   string
}

// String renders the reference as "kind:id".
func (r EntityRef) String() string {
	return string(r.Kind) + ":" + r.ID
}
