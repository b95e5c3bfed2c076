// Package httputil holds the HTTP plumbing shared by the kitchenboard API
// server and the remote Graph Store client.
//
// # Error envelope
//
// Failures travel as JSON:
//
//	{"error": {"code": "VALIDATION_FAILED", "message": "...", "fields": ["x"]}}
//
// [WriteError] renders any error in that shape with a status derived from
// its [errors.Code] (see [StatusFor]); [DecodeError] turns a non-2xx
// response back into an *errors.Error, falling back to [CodeForStatus] when
// the body is not an envelope.
//
// # Retry
//
// [Retry] re-runs a request with exponential backoff, but only for
// errors wrapped in [RetryableError]. The remote store wraps connection
// failures and 5xx/429 responses; validation and not-found answers are
// returned immediately.
package httputil
