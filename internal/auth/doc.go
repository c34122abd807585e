// Package auth provides authentication and authorization for the library.
//
// Users log in with a username (or email) and password. A successful login
// starts an scs session stored in the application database: sqlite3store
// for SQLite deployments, gormstore for PostgreSQL. Sessions also carry an
// anonymous per-visitor counter used by the catalog index.
//
// # Guards
//
// Middleware.Handler resolves the session user on every request. Routes
// opt into protection with:
//
//	router.GET("/catalog/mybooks/", mw.RequireLogin(), h.MyBooks)
//	router.GET("/catalog/borrowed/", mw.RequirePermission(entities.PermissionCanMarkReturned), h.Borrowed)
//
// Anonymous users are redirected to /accounts/login/?next=<uri>. Logged in
// users lacking the permission get 403. Administrators hold every
// permission implicitly.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<32+ bytes>   # CSRF key, generated per process if empty
//	AUTH_SESSION_LIFETIME=336h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
//	CSRF_ENABLED=true
//	AUTH_MAX_LOGIN_ATTEMPTS=5
//	AUTH_RATE_LIMIT_WINDOW=15m
//	AUTH_LOCKOUT_DURATION=30m
package auth
