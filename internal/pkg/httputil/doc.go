// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Handlers write through these helpers so every endpoint returns the same
// JSON envelope and logs server-side failures the same way.
package httputil
