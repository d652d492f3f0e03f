// Package client talks to the gophauth HTTP API.
//
// HTTPClient maps each endpoint to one method. Transport failures are
// reported as ErrUnavailable; non-2xx answers come back as *APIError
// carrying the status code and the server's message.
package client
