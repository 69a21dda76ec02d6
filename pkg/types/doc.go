// Package types defines the core data model for the aerolex engine:
// regulations, their versions with validity intervals, retrievable chunks,
// and the error taxonomy shared across packages.
package types
