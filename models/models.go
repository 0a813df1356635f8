/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"encoding/json"
	"time"

	"github.com/tomoncle/strata/entity"
	"github.com/tomoncle/strata/repository"
)

// Profile ids.
const (
	Athena     = "athena"
	CommonCore = "common_core"
)

// User is an account.
type User struct {
	entity.Base
	AccountID string    `json:"accountId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	DiscordID string    `json:"discordId"`
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is the header row of one profile of an account. Revision grows
// with every change to the profile's items.
type Profile struct {
	entity.Base
	AccountID string `json:"accountId"`
	ProfileID string `json:"profileId"`
	Revision  int    `json:"rvn"`
}

// Item is a profile item or, when IsStat is set, a profile stat whose
// TemplateID is the stat name.
type Item struct {
	entity.Base
	AccountID  string          `json:"accountId"`
	ProfileID  string          `json:"profileId"`
	TemplateID string          `json:"templateId"`
	Value      json.RawMessage `json:"value"`
	Quantity   int             `json:"quantity"`
	IsStat     bool            `json:"isStat"`
}

// ItemAttribute is one attribute row of an item.
type ItemAttribute struct {
	entity.Base
	ItemID   int64  `json:"itemId"`
	Property string `json:"property"`
	Value    string `json:"value"`
}

// Token is an issued access, refresh or exchange token.
type Token struct {
	entity.Base
	AccountID string    `json:"accountId"`
	Type      string    `json:"type"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// LockerSlot is the content of one loadout slot.
type LockerSlot struct {
	Items          []string      `json:"items"`
	ActiveVariants []interface{} `json:"activeVariants,omitempty"`
}

// Loadout is a saved locker of an athena profile.
type Loadout struct {
	entity.Base
	AccountID           string                `json:"accountId"`
	ProfileID           string                `json:"profileId"`
	TemplateID          string                `json:"templateId"`
	LockerName          string                `json:"lockerName"`
	BannerIconTemplate  string                `json:"bannerIconTemplate"`
	BannerColorTemplate string                `json:"bannerColorTemplate"`
	Slots               map[string]LockerSlot `json:"lockerSlotsData"`
}

var Users = entity.MustSchema(func() *User { return &User{} }, []entity.Field[*User]{
	entity.Column("accountid", func(u *User) *string { return &u.AccountID }),
	entity.Column("username", func(u *User) *string { return &u.Username }),
	entity.Column("email", func(u *User) *string { return &u.Email }),
	entity.Column("discordid", func(u *User) *string { return &u.DiscordID }),
	entity.Column("banned", func(u *User) *bool { return &u.Banned }),
	entity.TimeColumn("createdat", func(u *User) *time.Time { return &u.CreatedAt }),
},
	entity.WithLookupColumns(entity.AccountIDColumn, repository.UsernameColumn,
		repository.EmailColumn, repository.DiscordIDColumn),
)

var Profiles = entity.MustSchema(func() *Profile { return &Profile{} }, []entity.Field[*Profile]{
	entity.Column("accountid", func(p *Profile) *string { return &p.AccountID }),
	entity.Column("profileid", func(p *Profile) *string { return &p.ProfileID }),
	entity.Column("revision", func(p *Profile) *int { return &p.Revision }),
},
	entity.WithLookupColumns(entity.AccountIDColumn),
	entity.WithCapabilities(entity.ProfileScoped),
)

var Items = entity.MustSchema(func() *Item { return &Item{} }, []entity.Field[*Item]{
	entity.Column("accountid", func(i *Item) *string { return &i.AccountID }),
	entity.Column("profileid", func(i *Item) *string { return &i.ProfileID }),
	entity.Column("templateid", func(i *Item) *string { return &i.TemplateID }),
	entity.JSONColumn("value", func(i *Item) *json.RawMessage { return &i.Value }),
	entity.Column("quantity", func(i *Item) *int { return &i.Quantity }),
	entity.Column("isstat", func(i *Item) *bool { return &i.IsStat }),
},
	entity.WithLookupColumns(entity.AccountIDColumn, repository.TemplateIDColumn),
	entity.WithCapabilities(entity.ProfileScoped),
)

var ItemAttributes = entity.MustSchema(func() *ItemAttribute { return &ItemAttribute{} }, []entity.Field[*ItemAttribute]{
	entity.Column("itemid", func(a *ItemAttribute) *int64 { return &a.ItemID }),
	entity.Column("property", func(a *ItemAttribute) *string { return &a.Property }),
	entity.Column("value", func(a *ItemAttribute) *string { return &a.Value }),
},
	entity.WithLookupColumns("itemid"),
)

var Tokens = entity.MustSchema(func() *Token { return &Token{} }, []entity.Field[*Token]{
	entity.Column("accountid", func(t *Token) *string { return &t.AccountID }),
	entity.Column("type", func(t *Token) *string { return &t.Type }),
	entity.Column("token", func(t *Token) *string { return &t.Token }),
	entity.TimeColumn("createdat", func(t *Token) *time.Time { return &t.CreatedAt }),
	entity.TimeColumn("expiresat", func(t *Token) *time.Time { return &t.ExpiresAt }),
},
	entity.WithLookupColumns(entity.AccountIDColumn, "token"),
	entity.WithCapabilities(entity.TypeScopedDelete),
)

var Loadouts = entity.MustSchema(func() *Loadout { return &Loadout{} }, []entity.Field[*Loadout]{
	entity.Column("accountid", func(l *Loadout) *string { return &l.AccountID }),
	entity.Column("profileid", func(l *Loadout) *string { return &l.ProfileID }),
	entity.Column("templateid", func(l *Loadout) *string { return &l.TemplateID }),
	entity.Column("lockername", func(l *Loadout) *string { return &l.LockerName }),
	entity.Column("bannericontemplate", func(l *Loadout) *string { return &l.BannerIconTemplate }),
	entity.Column("bannercolortemplate", func(l *Loadout) *string { return &l.BannerColorTemplate }),
	entity.JSONColumn("slots", func(l *Loadout) *map[string]LockerSlot { return &l.Slots }),
},
	entity.WithLookupColumns(entity.AccountIDColumn, repository.TemplateIDColumn),
	entity.WithCapabilities(entity.ProfileScoped),
)

func init() {
	entity.Register(Users, 0)
	entity.Register(Profiles, 10)
	entity.Register(Items, 20)
	entity.Register(ItemAttributes, 30)
	entity.Register(Tokens, 10)
	entity.Register(Loadouts, 20)
}
