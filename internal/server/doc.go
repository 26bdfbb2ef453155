// Package server provides HTTP routing, middleware, sessions and Google OAuth handling for the web application.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses go-pkgz/routegroup over [http.ServeMux], so paths use the
// method-qualified patterns of the standard mux ("GET /task-status/{id}").
//
// # Sessions
//
// [Sessions] keeps per-browser state server-side in a [SessionStore] (memory or Redis). The browser only
// holds the session ID, signed with the application secret. A session carries the signed-in user,
// flash messages, the pending OAuth state and the user's Google credentials.
//
// # OAuth Callback Handler
//
// [OAuthCallback] implements the OAuth2 authorization code callback for Google. It validates the state
// stored by the authorize step (CSRF protection), exchanges the code and stores the resulting
// [Credentials] in the session. A callback without a stored state is rejected.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
