// Package api serves the index over a small JSON HTTP API.
//
// Routes:
//
//	POST /api/v1/search          {"query": "...", "top_k": 5}
//	POST /api/v1/index/rebuild   differential update
//	GET  /api/v1/index/status    chunk and file counts
//	GET  /health                 liveness plus index size
//
// Errors are returned as {"error": "...", "code": "..."}. Validation
// failures map to 400, embedding service failures and timeouts to 503,
// everything else to 500. Every response carries X-Process-Time.
package api
