// Package strata persists plain Go records in SQL tables through
// declared field descriptor tables.
//
// A shape is declared once with entity.NewSchema, then served by a
// repository or by the Service facade over the global database:
//
//	db, err := strata.Setup(ctx, cfg)
//	users := strata.NewService(models.Users)
//	err = users.Save(ctx, &models.User{AccountID: "a", Username: "jonas"})
package strata
