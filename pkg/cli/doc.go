// Package cli implements registry-cli, which runs the searchable field
// extraction against a local schema directory or drives a running registry.
//
// # Commands
//
// extract: Write the searchable field specs of every aspect as JSON
//
//	registry-cli extract -dir ./schemas -output specs.json
//	registry-cli extract -dir ./schemas -aspect corpUserInfo
//
// validate: Check Searchable annotations, failing on the first model
// validation error
//
//	registry-cli validate -dir ./schemas -strict
//
// fields: Print a table of searchable fields
//
//	registry-cli fields -dir ./schemas -aspect ownership
//
// reload: Ask a running entity registry to reload its schemas
//
//	registry-cli reload -registry http://localhost:8080
package cli
