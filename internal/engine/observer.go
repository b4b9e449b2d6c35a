package engine

// DomainEvent is a side-effect notification emitted after a mutating
// directory operation commits.
type DomainEvent struct {
	// Kind is one of the Event* constants.
	Kind string

	// UID is the affected user, when applicable.
	UID string

	// Channel is set for identity events.
	Channel string

	// ScopeID is set for scope membership events.
	ScopeID string
}

// Observer kinds.
const (
	EventUserCreated      = "user.created"
	EventIdentityLinked   = "identity.linked"
	EventScopeMemberAdded = "scope.member_added"
)

// Observer receives side-effect notifications. It is an explicit
// capability passed into the engine; delivery failures propagate to
// the caller but the triggering write has already committed.
type Observer interface {
	OnEvent(ev DomainEvent) error
}

// NoopObserver ignores all notifications. Satisfies callers and tests
// that don't care about side effects.
type NoopObserver struct{}

// OnEvent discards the notification.
func (NoopObserver) OnEvent(DomainEvent) error {
	return nil
}
