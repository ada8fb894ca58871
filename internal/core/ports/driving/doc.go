// Package driving defines the service interfaces the CLI calls into.
//
// Aliases and runtime settings are described here. Org, auth info and
// config aggregation are used as concrete types from
// internal/core/services.
package driving
