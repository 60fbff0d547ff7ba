// Package httputil provides JSON response helpers for the stub API.
//
// Error bodies use the same {message, errors} envelope the provider
// returns, so clients see identical failures locally and in production.
package httputil
