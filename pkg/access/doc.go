// Package access implements the access-control resolution engine for the
// mill operations portal.
//
// Given an authenticated principal, the package derives a department, a
// tier, the set of viewable and editable tabs, and any cross-department
// grants, reconciling the two historical user-record shapes (the legacy
// flat-field document and the structured department/tabs/permissions
// document).
//
// The pipeline is:
//
//	identity provider -> Principal
//	repository        -> *StoredUserRecord (or nil)
//	Normalize         -> NormalizedUser
//	evaluator         -> boolean decisions
//
// with DeriveRole supplying a catalog role from the email address whenever
// no stored record resolves.
//
// Everything except Resolver.Resolve is a pure computation over in-memory
// values: no I/O, no caching, no hidden state. Two concurrent checks against
// the same NormalizedUser are trivially consistent, and freshness is bounded
// only by how often the caller re-resolves. The role catalog and the
// metadata tables are initialized once and never mutated, so they are safe
// to share without locking.
//
// The package fails closed. Lookup misses, malformed records, and repository
// outages all collapse to the viewer fallback or to conservative deny
// results; no input combination panics or returns an error to the caller.
package access
