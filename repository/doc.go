// Package repository provides a generic repository over entity schemas:
// upsert by identity, lookups by identity or whitelisted secondary keys,
// scoped reads and deletes, full-column updates and a raw query escape
// hatch. Statements are generated from the schema, bound through Bun and
// executed on one pooled connection per call.
package repository
