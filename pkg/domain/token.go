package domain

import "time"

// TokenPair represents the access and refresh token pair.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresIn    int       `json:"expiresIn"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Principal is the authenticated subject resolved from a verified access token.
type Principal struct {
	Username    string
	Authorities []string
}

// HasAnyAuthority reports whether the principal holds at least one of the given authorities.
func (p *Principal) HasAnyAuthority(authorities ...string) bool {
	for _, want := range authorities {
		for _, have := range p.Authorities {
			if have == want {
				return true
			}
		}
	}
	return false
}
