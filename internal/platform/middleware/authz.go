// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/apisegura/internal/platform/apperr"
	"github.com/taibuivan/apisegura/internal/platform/constants"
	"github.com/taibuivan/apisegura/internal/platform/ctxutil"
	"github.com/taibuivan/apisegura/internal/platform/respond"
	"github.com/taibuivan/apisegura/internal/platform/sec"
)

// # Contracts

// AccessVerifier defines the interface needed to verify access tokens in middleware.
//
// Defining it here decouples the middleware from the token service
// implementation, so tests can inject fakes.
type AccessVerifier interface {
	VerifyAccessToken(token string) (*sec.AccessClaims, error)
}

// IdentityLoader resolves the current state of a token subject.
type IdentityLoader interface {
	// LoadIdentity returns nil when the user no longer exists.
	LoadIdentity(context context.Context, userID int64) (identity *sec.Identity, active bool, err error)
}

// # Authentication

// Authenticator verifies bearer tokens and attaches the principal to the request.
type Authenticator struct {
	verifier AccessVerifier
	loader   IdentityLoader
}

// NewAuthenticator constructs an [Authenticator].
func NewAuthenticator(verifier AccessVerifier, loader IdentityLoader) *Authenticator {
	return &Authenticator{verifier: verifier, loader: loader}
}

/*
Authenticate requires a valid bearer token from a live, active user.

Flow:
 1. Extract "Authorization: Bearer <token>" (TOKEN_MISSING when absent or malformed).
 2. Verify the JWT (TOKEN_INVALID).
 3. Reload the user (USER_NOT_FOUND, USER_INACTIVE).
 4. Inject [*sec.Identity] built from the stored user into the context.
*/
func (authenticator *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		identity, err := authenticator.resolve(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		noteAuthenticatedUser(request.Context(), identity.ID)
		ctx := ctxutil.WithIdentity(request.Context(), identity)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// OptionalAuthenticate attaches the principal when a valid token is present
// and otherwise lets the request continue anonymously. It never rejects.
func (authenticator *Authenticator) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		identity, err := authenticator.resolve(request)
		if err != nil {
			next.ServeHTTP(writer, request)
			return
		}

		noteAuthenticatedUser(request.Context(), identity.ID)
		ctx := ctxutil.WithIdentity(request.Context(), identity)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

func (authenticator *Authenticator) resolve(request *http.Request) (*sec.Identity, error) {
	token, ok := sec.ExtractBearer(request.Header.Get(constants.HeaderAuthorization))
	if !ok {
		return nil, apperr.TokenMissing()
	}

	claims, err := authenticator.verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, apperr.TokenInvalid(err)
	}

	identity, active, err := authenticator.loader.LoadIdentity(request.Context(), userID)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, apperr.UserNotFound()
	}
	if !active {
		return nil, apperr.UserInactive()
	}

	return identity, nil
}

// # Authorization

// Resource describes the target of an ownership-scoped request.
type Resource struct {
	Type    string
	ID      string
	OwnerID int64
}

// Policy decides whether identity may act on resource. Resource is nil for
// routes that are not ownership-scoped.
type Policy func(identity *sec.Identity, resource *Resource) bool

// HasRole allows principals holding any of roles.
func HasRole(roles ...sec.Role) Policy {
	return func(identity *sec.Identity, _ *Resource) bool {
		return identity.HasRole(roles...)
	}
}

// IsOwner allows the principal that owns the resource.
func IsOwner() Policy {
	return func(identity *sec.Identity, resource *Resource) bool {
		return identity != nil && resource != nil && resource.OwnerID == identity.ID
	}
}

// AnyOf allows the request when at least one policy does.
func AnyOf(policies ...Policy) Policy {
	return func(identity *sec.Identity, resource *Resource) bool {
		for _, policy := range policies {
			if policy(identity, resource) {
				return true
			}
		}
		return false
	}
}

// OwnerResolver reports the owner of a resource by ID.
type OwnerResolver interface {
	// ResolveOwner returns found=false when the resource does not exist.
	ResolveOwner(context context.Context, resourceID string) (ownerID int64, found bool, err error)
}

// OwnerResolverFunc adapts a function to [OwnerResolver].
type OwnerResolverFunc func(context context.Context, resourceID string) (int64, bool, error)

func (fn OwnerResolverFunc) ResolveOwner(context context.Context, resourceID string) (int64, bool, error) {
	return fn(context, resourceID)
}

// OwnershipRegistry maps resource types to their owner resolvers.
type OwnershipRegistry struct {
	resolvers map[string]OwnerResolver
}

// NewOwnershipRegistry creates an empty registry.
func NewOwnershipRegistry() *OwnershipRegistry {
	return &OwnershipRegistry{resolvers: make(map[string]OwnerResolver)}
}

// Register binds resourceType to resolver.
func (registry *OwnershipRegistry) Register(resourceType string, resolver OwnerResolver) {
	registry.resolvers[resourceType] = resolver
}

/*
Authorize enforces policy on an authenticated request.

Description: Must be mounted AFTER [Authenticator.Authenticate]. Requests
without a principal get TOKEN_MISSING, denied ones get FORBIDDEN.
*/
func Authorize(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetIdentity(request.Context())
			if identity == nil {
				respond.Error(writer, request, apperr.TokenMissing())
				return
			}

			if !policy(identity, nil) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RequireRole allows principals whose role is at least role.
func RequireRole(role sec.Role) func(http.Handler) http.Handler {
	return Authorize(func(identity *sec.Identity, _ *Resource) bool {
		return identity.Role.AtLeast(role)
	})
}

// RequireRoles allows principals holding exactly one of roles.
func RequireRoles(roles ...sec.Role) func(http.Handler) http.Handler {
	return Authorize(HasRole(roles...))
}

/*
RequireOwnership restricts a route to the owner of the resource named by the
{param} URL parameter, or to admins.

Flow:
 1. Admins pass without a lookup.
 2. The registered resolver for resourceType finds the owner (NOT_FOUND if absent).
 3. Anyone else gets FORBIDDEN.
*/
func (registry *OwnershipRegistry) RequireOwnership(resourceType, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetIdentity(request.Context())
			if identity == nil {
				respond.Error(writer, request, apperr.TokenMissing())
				return
			}

			if identity.IsAdmin() {
				next.ServeHTTP(writer, request)
				return
			}

			resolver, ok := registry.resolvers[resourceType]
			if !ok {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			resourceID := chi.URLParam(request, param)
			ownerID, found, err := resolver.ResolveOwner(request.Context(), resourceID)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}
			if !found {
				respond.Error(writer, request, apperr.NotFound(resourceType))
				return
			}

			resource := &Resource{Type: resourceType, ID: resourceID, OwnerID: ownerID}
			if !IsOwner()(identity, resource) {
				respond.Error(writer, request, apperr.Forbidden("You can only access your own resources"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
