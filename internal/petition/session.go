package petition

// Session identifies the logged-in user and carries the token the API
// expects in the X-Authorization header.
//
// A Session is passed explicitly to every operation that needs
// authorization. The zero value means nobody is logged in.
type Session struct {
	UserID int    `json:"userId"`
	Token  string `json:"token"`
}

// LoggedIn reports whether the session carries credentials.
func (s Session) LoggedIn() bool {
	return s.UserID != 0 && s.Token != ""
}

// Owns reports whether the session's user owns the petition.
func (s Session) Owns(p PetitionSummary) bool {
	return s.LoggedIn() && p.OwnerID == s.UserID
}
