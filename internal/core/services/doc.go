// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The credential and organization lifecycle lives here: config
// aggregation, aliases, auth info records, org membership and the
// org removal cascade.
package services
