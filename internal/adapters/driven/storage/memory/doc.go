// Package memory provides in-memory implementations of the driven ports.
// They back service tests and dry runs that must not touch the OS
// keyring or a live org.
package memory
