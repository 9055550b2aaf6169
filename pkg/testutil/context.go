package testutil

import (
	"net/http"

	"casework/pkg/requestcontext"
)

// WithActor marks the request as made by an authenticated supervisor, as the auth middleware
// would.
func WithActor(req *http.Request, actorID, name string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actorID, name))
}

// WithDevice sets the submitting device, as the device middleware would.
func WithDevice(req *http.Request, deviceID, appVersion string) *http.Request {
	return req.WithContext(requestcontext.WithDevice(req.Context(), deviceID, appVersion))
}
