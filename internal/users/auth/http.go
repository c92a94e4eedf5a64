// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/apisegura/internal/platform/middleware"
	requestutil "github.com/taibuivan/apisegura/internal/platform/request"
	"github.com/taibuivan/apisegura/internal/platform/respond"
	"github.com/taibuivan/apisegura/internal/platform/sec"
	"github.com/taibuivan/apisegura/internal/platform/validate"
	"github.com/taibuivan/apisegura/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements authentication and account HTTP endpoints.
//
// # Scope
//
// The handler is strictly responsible for transport concerns (status codes,
// JSON); every rule lives in [Service].
type Handler struct {
	authService   *Service
	authenticator *middleware.Authenticator
	ownership     *middleware.OwnershipRegistry
}

// NewHandler constructs a new [Handler] and registers the user ownership resolver.
func NewHandler(service *Service, authenticator *middleware.Authenticator, ownership *middleware.OwnershipRegistry) *Handler {
	ownership.Register(ResourceUser, middleware.OwnerResolverFunc(service.ResolveUserOwner))
	return &Handler{
		authService:   service,
		authenticator: authenticator,
		ownership:     ownership,
	}
}

// Routes returns the /auth router.
//
// # Endpoints
//   - POST /register         : Creates a new account.
//   - POST /login            : Authenticates and returns a token pair.
//   - POST /refresh          : Exchanges a refresh token for an access token.
//   - POST /logout           : Revokes refresh tokens (auth optional).
//   - GET  /profile          : Returns the caller.
//   - PUT  /change-password  : Rotates the caller's password.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)

	router.With(handler.authenticator.OptionalAuthenticate).Post("/logout", handler.logout)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.authenticator.Authenticate)
		r.Get("/profile", handler.profile)
		r.Put("/change-password", handler.changePassword)
	})

	return router
}

// UserRoutes returns the /users router. Each account is visible to its owner and admins.
func (handler *Handler) UserRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.authenticator.Authenticate)
	router.With(handler.ownership.RequireOwnership(ResourceUser, FieldID)).Get("/{id}", handler.getUser)
	return router
}

// AdminRoutes returns the /admin router, restricted to admins.
func (handler *Handler) AdminRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.authenticator.Authenticate)
	router.Use(middleware.RequireRoles(sec.RoleAdmin))

	router.Get("/users", handler.listUsers)
	router.Patch("/users/{id}/active", handler.setActive)
	router.Patch("/users/{id}/role", handler.setRole)
	return router
}

// # Request Payloads

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type userResponse struct {
	User *User `json:"user"`
}

// # Authentication Endpoints

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Request:
  - Body: registerRequest (username, email, password)

Response:
  - 201: AuthResult: Created user and token pair
  - 400: VALIDATION_ERROR: Bad input or weak password
  - 409: CONFLICT: Username or Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	result, err := handler.authService.Register(request.Context(), RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, result)
}

/*
Login authenticates a user and opens a session.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (username may also be an email)

Response:
  - 200: AuthResult: User and token pair
  - 401: INVALID_CREDENTIALS
  - 403: ACCOUNT_INACTIVE
  - 429: TOO_MANY_ATTEMPTS (with Retry-After)
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Username:  input.Username,
		Password:  input.Password,
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
Refresh issues a new access token.

POST /api/v1/auth/refresh

Response:
  - 200: AccessGrant
  - 400: VALIDATION_ERROR: refreshToken missing
  - 401: TOKEN_INVALID or USER_INVALID
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	grant, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, grant)
}

/*
Logout revokes the supplied refresh token and, for authenticated callers,
every refresh token of the account.

POST /api/v1/auth/logout

Response:
  - 200: Message
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeOptionalJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	var userID *int64
	if identity := requestutil.Identity(request); identity != nil {
		userID = &identity.ID
	}

	if err := handler.authService.Logout(request.Context(), input.RefreshToken, userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, msgLoggedOut)
}

/*
Profile returns the authenticated account.

GET /api/v1/auth/profile
*/
func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Profile(request.Context(), identity.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, userResponse{User: user})
}

/*
ChangePassword updates the caller's credentials and signs out every session.

PUT /api/v1/auth/change-password

Response:
  - 200: Message
  - 400: VALIDATION_ERROR
  - 401: INVALID_CREDENTIALS: current password is wrong
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	err = handler.authService.ChangePassword(request.Context(), identity.ID, ChangePasswordInput{
		CurrentPassword: input.CurrentPassword,
		NewPassword:     input.NewPassword,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, msgPasswordChanged)
}

// # Account Endpoints

/*
GetUser returns one account to its owner or an admin.

GET /api/v1/users/{id}
*/
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.Int64Param(request, FieldID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Profile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, userResponse{User: user})
}

// # Admin Endpoints

/*
ListUsers returns a page of accounts.

GET /api/v1/admin/users?page=&limit=
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	users, meta, err := handler.authService.ListUsers(request.Context(), pagination.Parse(request.URL.Query()))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, meta)
}

/*
SetActive activates or deactivates an account.

PATCH /api/v1/admin/users/{id}/active
*/
func (handler *Handler) setActive(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.Int64Param(request, FieldID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setActiveRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if input.Active == nil {
		respond.Error(writer, request, validate.RequiredError(FieldActive, "This field is required"))
		return
	}

	user, err := handler.authService.SetActive(request.Context(), userID, *input.Active)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, userResponse{User: user})
}

/*
SetRole changes the role of an account.

PATCH /api/v1/admin/users/{id}/role
*/
func (handler *Handler) setRole(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.Int64Param(request, FieldID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setRoleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	user, err := handler.authService.SetRole(request.Context(), userID, input.Role)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, userResponse{User: user})
}
