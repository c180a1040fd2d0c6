// Package config loads and validates stackform configuration.
//
// Configuration is read from a YAML file and merged over built-in
// defaults. Struct-level validation runs after loading so that a
// malformed file fails fast with a field-level error instead of
// surfacing later as a broken operation.
package config
