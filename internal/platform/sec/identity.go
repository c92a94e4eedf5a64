// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// Identity is the authenticated principal attached to a request context.
//
// It is rebuilt from the credential store on every authenticated request, so
// role and active-state changes take effect without waiting for token expiry.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the identity holds the admin role.
func (identity *Identity) IsAdmin() bool {
	return identity != nil && identity.Role == RoleAdmin
}

// HasRole reports whether the identity holds any of roles.
func (identity *Identity) HasRole(roles ...Role) bool {
	if identity == nil {
		return false
	}
	for _, role := range roles {
		if identity.Role == role {
			return true
		}
	}
	return false
}
