package service

// Viewer is the identity a read model is built for. The zero value is an
// anonymous caller, for whom every per-user flag is false.
type Viewer struct {
	UserID  uint
	IsStaff bool
}

// Anonymous is the viewer of unauthenticated requests
var Anonymous = Viewer{}

// Authenticated reports whether the viewer is a logged-in user
func (v Viewer) Authenticated() bool {
	return v.UserID != 0
}
