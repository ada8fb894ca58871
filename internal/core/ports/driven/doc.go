// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Connection: Remote session handle (request, query, versions)
//   - Cipher: Secret field encryption for credential records
//   - KeyRepository: Source of the process encryption key
//   - ConfigFile: Persisted key/value JSON document
//   - StateFiles: Scoped resolution of config documents and state folders
//   - OAuthClient: Token exchange, refresh and identity lookup
//
// # Optional Interfaces
//
//   - SettingsStore: Tool runtime settings. Defaults apply when nil.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
