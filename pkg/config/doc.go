// Package config loads, validates and writes the tracks configuration.
//
// Configuration files are YAML or TOML. Both are validated against the
// embedded JSON schema before they are decoded, and loading compiles every
// track so that malformed conditions and match expressions are reported up
// front rather than while a document is being processed.
package config
