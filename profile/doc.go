// Package profile creates and reads player profiles. A profile is a header
// row plus item rows; stats are items flagged IsStat whose template id is the
// stat name.
//
//	m := profile.NewManager(db)
//	created, err := m.CreateProfile(ctx, accountID, profile.Athena)
//	snapshot, err := m.GetProfile(ctx, accountID, profile.Athena)
package profile
