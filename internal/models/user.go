package models

// User is the authenticated caller identity extracted from a verified
// bearer token. The ID is the token subject and doubles as the vote-ledger
// user id.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// JWTClaims holds the claims extracted from a verified token
type JWTClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
	Iss   string `json:"iss"`
	Aud   string `json:"aud"`
}

// ToUser converts verified claims into the caller identity
func (c *JWTClaims) ToUser() *User {
	return &User{
		ID:    c.Sub,
		Email: c.Email,
		Name:  c.Name,
	}
}
