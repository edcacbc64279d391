// Package middleware wraps the catalog router with a W3C access log and
// Prometheus request metrics labelled by route name.
//
// The response wrapper both use supports Flush and Unwrap, so streamed
// search results keep their per-write deadlines.
package middleware
