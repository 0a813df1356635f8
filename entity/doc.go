// Package entity declares the persisted record contract and the mapper that
// derives table names, column lists, placeholders and update clauses from a
// per-shape field descriptor table.
package entity
