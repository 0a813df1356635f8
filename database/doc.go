// Package database provides connection management for the entity
// repositories: configuration loading, dialect selection, pool tuning,
// health checks, statement logging hooks, SQL error classification and
// ordered execution of bootstrap SQL files, all built on top of Bun.
package database
