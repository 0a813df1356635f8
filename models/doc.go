// Package models declares the persisted shapes of the game backend (users,
// profiles, items, item attributes, tokens and loadouts), their schemas and
// the DDL that creates their tables.
//
// Every schema is registered in the entity registry when the package is
// imported, lowest priority first, so tooling can walk them in dependency
// order:
//
//	for _, m := range entity.Registered() {
//		fmt.Println(m.TableName())
//	}
//
// The DDL lives under sql/<dialect>/ and is run by database.Bootstrap:
//
//	results, err := database.Bootstrap(ctx, db, models.DDL())
package models
