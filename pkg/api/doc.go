// Package api serves the entity registry over HTTP.
//
// Routes:
//
//	GET  /api/v1/aspects                          list aspects of the current snapshot
//	GET  /api/v1/aspects/{name}                   one aspect with its searchable fields
//	GET  /api/v1/aspects/{name}/searchable-fields searchable fields of one aspect
//	GET  /api/v1/searchable-fields?fieldName=a,b  fields indexed under the given names
//	GET  /api/v1/snapshot                         snapshot metadata and warnings
//	POST /api/v1/reload                           reload from the source
//	POST /api/v1/validate                         build uploaded documents without serving them
//	GET  /health                                  dependency health
//	GET  /metrics                                 Prometheus metrics
//
// Add filterable=true to the field lookup to keep only fields added to
// filters. Read endpoints answer 503 until a snapshot is loaded.
package api
