// Package server hosts the VideoTube API behind a single HTTP server.
//
// The server builds a consistent middleware chain of request IDs, security
// headers, CORS, rate limiting, auth context, and logging so handlers all
// share common protections and instrumentation.
package server
