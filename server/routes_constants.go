package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Account API
	RouteAPIRegister           = "/api/auth/register"
	RouteAPILogin              = "/api/auth/login"
	RouteAPIRefresh            = "/api/auth/refresh"
	RouteAPILogout             = "/api/auth/logout"
	RouteAPIVerifyEmail        = "/api/auth/verify-email"
	RouteAPIResendVerification = "/api/auth/resend-verification"
	RouteAPIForgotPassword     = "/api/auth/forgot-password"
	RouteAPIResetPassword      = "/api/auth/reset-password"
	RouteAPIMe                 = "/api/users/me"
	RouteAPIMePassword         = "/api/users/me/password"
	RouteAPIProviders          = "/api/oauth2/providers"
	RouteAPIPreflight          = "/api/"

	// Account administration, ROLE_ADMIN only
	RouteAPIAdminUsers          = "/api/admin/users"
	RouteAPIAdminUserSearch     = "/api/admin/users/search"
	RouteAPIAdminUser           = "/api/admin/users/{id}"
	RouteAPIAdminUserRoles      = "/api/admin/users/{id}/roles"
	RouteAPIAdminUserActivate   = "/api/admin/users/{id}/activate"
	RouteAPIAdminUserDeactivate = "/api/admin/users/{id}/deactivate"

	// External identity providers
	RouteOAuth2Login    = "/oauth2/{provider}/login"
	RouteOAuth2Callback = "/oauth2/{provider}/callback"

	RouteHealth = "/healthz"
)
