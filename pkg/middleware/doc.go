// Package middleware provides the HTTP request pipeline: session
// authentication, per-request access resolution, access guards, rate
// limiting and request logging.
//
// Authentication and authorization are deliberately split. SessionAuth only
// establishes who the caller is; it then resolves a fresh Access value for
// the request, so permission changes take effect on the next request without
// session invalidation. The Require* guards consume that Access and deny
// with 403 when a check fails.
package middleware
