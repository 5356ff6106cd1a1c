// Package api exposes the millops HTTP surface: the sign-in flow, the
// caller's resolved access, department metadata, the sampling, quality,
// merchandising and document workflows, and user administration.
//
// Route guards declare the minimum permission for each endpoint; anything
// finer grained (department scoping on documents, role validation on user
// updates) lives in the handlers.
package api
