// Package server exposes shape validation and shape queries over HTTP.
//
// Routes:
//
//	POST /validate          validate against the default rule and run it
//	POST /validate/{name}   validate against a catalog entry or named rule
//	POST /shape-query?id=   compile a shape, fetch it for id, reshape
//	POST /compile           compile a shape without executing it
//	GET  /healthz           liveness, with an optional database ping
//
// Request bodies must be application/json. Errors are returned as
// {"message": "..."}.
package server
