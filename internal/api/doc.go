// Package api handles incoming HTTP requests, request validation and response
// formatting. It adapts the REST surface to the task, user and stats
// services; every response uses the shared.Envelope shape and every error is
// mapped to a status code and a safe message by HandleAPIError.
package api
