// Package constants centralizes defaults shared across the CLI.
//
// File permissions, the default API location and well-known header names live
// here so cmd/ and internal/ can share them without import cycles.
package constants
