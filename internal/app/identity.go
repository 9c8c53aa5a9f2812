package app

// Identity is the request-scoped authenticated caller, resolved once from the
// session (or API token) and passed explicitly into the services. A nil
// *Identity means the request is anonymous.
type Identity struct {
	UserID   uint
	Username string
}
