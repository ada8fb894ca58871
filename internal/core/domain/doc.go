// Package domain defines the core entities of the org trust layer.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - AuthFields: the credential record of one username
//   - ConfigInfo: one resolved key of the aggregated config view
//   - OrgUsers: the membership record of one org id
//   - Kind and the sentinel errors: the error taxonomy
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
