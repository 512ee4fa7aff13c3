// Package runtime implements the Service Runtime contract: register a named
// handler, receive RPC/route/pubsub requests, call other services, publish
// events, and terminate cleanly (SPEC_FULL.md §4.3).
package runtime

import "net/http"

// sentinel is the type of Next; a dedicated type keeps any handler from
// accidentally producing an equal value by returning a bare struct{}{}.
type sentinel struct{}

// Next, when returned by a Handler, tells the runtime not to serialize and
// send a response — either the handler already wrote to the
// http.ResponseWriter itself, or it intentionally wants no response sent.
var Next = sentinel{}

// Handler is an application's request handler. payload is the decoded JSON
// body (or nil for an empty body); req and w give escape-hatch access to the
// underlying HTTP request/response for handlers that need headers or want
// to write the response themselves.
//
// Returning (Next, nil) sends no response. Returning any other value
// serializes it through wire.FromResult and sends 200. Returning a non-nil
// error sends the error's status (wire.Error) or 500.
type Handler func(payload any, req *http.Request, w http.ResponseWriter) (any, error)
