package auth

// Scopes understood by the API.
const (
	ScopeWalksWrite = "walks:write"
	ScopeWalksRead  = "walks:read"
	ScopeAdmin      = "admin"
)

// implied lists scopes granted implicitly by holding another one.
var implied = map[string][]string{
	ScopeWalksRead: {ScopeWalksWrite},
}

// Allows reports whether the claims grant scope directly or through a broader
// scope. Logging walks implies reading them back.
func (c *Claims) Allows(scope string) bool {
	if c.HasScope(scope) {
		return true
	}
	for _, broader := range implied[scope] {
		if c.HasScope(broader) {
			return true
		}
	}
	return false
}
