// Package session publishes authentication state as a subscribable stream.
//
// A Source delivers the current State to each new subscriber immediately and
// then every change until the subscriber unsubscribes. Static serves a fixed
// state (one HTTP request). Broker is the process-wide hub that login, logout
// and profile changes publish to.
package session

// Identity is the authenticated principal.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// State is a snapshot of authentication for one principal.
type State struct {
	Authenticated bool      `json:"authenticated"`
	Identity      *Identity `json:"identity,omitempty"`
}

// SignedIn returns an authenticated state for id.
func SignedIn(id Identity) State {
	return State{Authenticated: true, Identity: &id}
}

// SignedOut returns the unauthenticated state.
func SignedOut() State {
	return State{}
}

// Source is a stream of authentication states.
//
// Subscribe calls fn with the current state before returning, then on each
// change. After unsubscribe returns no new delivery starts; a delivery that
// was already running may still complete.
type Source interface {
	Subscribe(fn func(State)) (unsubscribe func())
}

// Static is a Source whose state never changes.
type Static State

// Subscribe delivers the fixed state once.
func (s Static) Subscribe(fn func(State)) func() {
	fn(State(s))
	return func() {}
}
