package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles carried on the caller's credential. Credential issuance lives in the
// external identity system; this service only verifies and reads claims.
type Role string

const (
	RolePerson           Role = "person"
	RoleLocation         Role = "location"
	RoleLocationStaff    Role = "location-staff"
	RoleCentralAuthority Role = "central-authority"
)

// Identity is what the credential says about the caller. PersonID and
// LocationID are uuid.Nil when the corresponding claim is absent.
type Identity struct {
	Role       Role
	PersonID   uuid.UUID
	LocationID uuid.UUID
}

// ActsForLocation reports whether the caller operates with a location's
// authority (the location account itself or its staff).
func (i Identity) ActsForLocation() bool {
	return i.Role == RoleLocation || i.Role == RoleLocationStaff
}

type credentialClaims struct {
	jwt.RegisteredClaims
	Role       string `json:"role"`
	LocationID string `json:"loc,omitempty"`
}

const identityKey contextKey = "identity"

// AuthMiddleware verifies the HMAC-signed credential and attaches the
// caller's identity to the request context.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing_credential", "Authorization bearer token is required")
				return
			}

			claims := credentialClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid_credential", "credential could not be verified")
				return
			}

			ident := Identity{Role: Role(claims.Role)}
			switch ident.Role {
			case RolePerson, RoleLocation, RoleLocationStaff, RoleCentralAuthority:
			default:
				writeError(w, http.StatusUnauthorized, "invalid_credential", "unknown role")
				return
			}

			if claims.Subject != "" {
				if id, err := uuid.Parse(claims.Subject); err == nil {
					ident.PersonID = id
				}
			}
			if claims.LocationID != "" {
				if id, err := uuid.Parse(claims.LocationID); err == nil {
					ident.LocationID = id
				}
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the verified caller identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok
}

// RequireRole gates a route to the given roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing_credential", "Authorization bearer token is required")
				return
			}
			for _, role := range roles {
				if ident.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden", "role is not allowed to perform this action")
		})
	}
}

// MintCredential signs a credential for the given identity. Production
// credentials come from the identity system; this exists for tooling and
// tests.
func MintCredential(secret string, ident Identity, ttl time.Duration) (string, error) {
	claims := credentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: string(ident.Role),
	}
	if ident.PersonID != uuid.Nil {
		claims.Subject = ident.PersonID.String()
	}
	if ident.LocationID != uuid.Nil {
		claims.LocationID = ident.LocationID.String()
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
