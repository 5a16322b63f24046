package auth

// Session is the result of a sign-in or a token refresh.
type Session struct {
	AccessToken string
	Claims      *Claims
	// Refreshed is true when this session replaces a token that was close
	// to expiry. The old token stays honored until its own expiry.
	Refreshed bool
}

// Principal is a verified caller. Handlers and the access control evaluator
// consume this; nothing downstream of verification touches raw tokens.
type Principal struct {
	UserID   uint
	Email    string
	FullName string

	SuperUser bool
	Guest     bool
	Verified  bool
	Enabled   bool

	MFAEnabled bool
	// MFAPassed is true once the current session cleared a TOTP challenge.
	MFAPassed bool

	AvatarURL string
	Theme     string
	Font      string

	// RemoteAddr is the peer address of the request or channel this
	// principal was verified for. Filled in by the transport layer.
	RemoteAddr string

	Session *Session
}
