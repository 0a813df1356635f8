// Package cli implements the strata command line: statement inspection,
// connectivity checks, table bootstrap and profile management.
package cli
