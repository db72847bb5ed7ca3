// Package config loads entity registry configuration with koanf.
//
// Sources are applied in increasing priority: built-in defaults, an optional
// JSON file, then environment variables prefixed with DATAHUB_. A double
// underscore separates nesting levels:
//
//	DATAHUB_SERVER__PORT=9000
//	DATAHUB_SOURCE__TYPE=s3
//	DATAHUB_SOURCE__S3__BUCKET=schemas
//	DATAHUB_STORE__TYPE=postgres
//	DATAHUB_STORE__DSN=postgres://localhost/datahub
//	DATAHUB_CACHE__REDIS_URL=redis://localhost:6379
//	DATAHUB_REFRESH__WATCH=true
//	DATAHUB_OBSERVABILITY__LOG_LEVEL=debug
//
// The equivalent JSON file:
//
//	{
//	  "server": {"port": 9000},
//	  "source": {"type": "s3", "s3": {"bucket": "schemas"}},
//	  "store": {"type": "postgres", "dsn": "postgres://localhost/datahub"},
//	  "refresh": {"schedule": "@every 5m"}
//	}
//
// Load validates the result with go-playground/validator.
package config
