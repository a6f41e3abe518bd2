package server

import "github.com/jrsteele09/go-session-auth/users"

func (s *Server) initRoutes() {
	// Account API
	s.RegisterRouteHandler("POST "+RouteAPIRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPILogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIVerifyEmail, ChainMiddleware(s.VerifyEmailHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIResendVerification, ChainMiddleware(s.ResendVerificationHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIResetPassword, ChainMiddleware(s.ResetPasswordHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIProviders, ChainMiddleware(s.ProvidersHandler(), s.APIMiddleware()...))

	// Bearer protected
	s.RegisterRouteHandler("POST "+RouteAPILogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("PUT "+RouteAPIMe, ChainMiddleware(s.UpdateProfileHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteAPIMePassword, ChainMiddleware(s.ChangePasswordHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Administration
	admin := s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleAdmin))
	s.RegisterRouteHandler("GET "+RouteAPIAdminUsers, ChainMiddleware(s.AdminListUsersHandler(), admin...))
	s.RegisterRouteHandler("GET "+RouteAPIAdminUserSearch, ChainMiddleware(s.AdminSearchUserHandler(), admin...))
	s.RegisterRouteHandler("GET "+RouteAPIAdminUser, ChainMiddleware(s.AdminGetUserHandler(), admin...))
	s.RegisterRouteHandler("PUT "+RouteAPIAdminUserRoles, ChainMiddleware(s.AdminUpdateRolesHandler(), admin...))
	s.RegisterRouteHandler("PUT "+RouteAPIAdminUserActivate, ChainMiddleware(s.AdminSetActiveHandler(true), admin...))
	s.RegisterRouteHandler("PUT "+RouteAPIAdminUserDeactivate, ChainMiddleware(s.AdminSetActiveHandler(false), admin...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS "+RouteAPIPreflight, ChainMiddleware(s.NoContentHandler(), s.APIMiddleware()...))

	// External identity providers
	s.RegisterRouteHandler("GET "+RouteOAuth2Login, ChainMiddleware(s.OAuth2LoginHandler(), s.BrowserMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteOAuth2Callback, ChainMiddleware(s.OAuth2CallbackHandler(), s.BrowserMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}
