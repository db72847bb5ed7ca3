// Package models builds the searchable model of entity aspects.
//
// An aspect is a record schema carrying an Aspect property. Its fields opt into
// search indexing with the Searchable property, declared either directly on a
// primitive or enum field:
//
//	{"name": "email", "type": "string", "Searchable": {"fieldType": "TEXT"}}
//
// or, on arrays, maps, unions and records, as overrides keyed by sub-path:
//
//	{"name": "tags", "type": {"type": "array", "items": "string"},
//	 "Searchable": {"/*": {"fieldType": "KEYWORD"}}}
//
// SearchableFieldSpecExtractor walks a resolved schema tree and produces one
// SearchableFieldSpec per annotated node. Every failure is a
// *ModelValidationError; use errors.Is with ErrModelValidation or the kind
// sentinels (ErrPlacement, ErrDuplicateName, ...) to classify it.
package models
