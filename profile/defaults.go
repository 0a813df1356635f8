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

package profile

import (
	"encoding/json"
	"time"

	"github.com/tomoncle/strata/models"
)

const defaultCharacter = "AthenaCharacter:CID_001_Athena_Commando_F_Default"

// ItemValue is the attribute document of a cosmetic or currency item.
type ItemValue struct {
	XP       int           `json:"xp"`
	Level    int           `json:"level"`
	Variants []interface{} `json:"variants"`
	ItemSeen bool          `json:"item_seen"`
	Favorite bool          `json:"favorite,omitempty"`
	Platform string        `json:"platform,omitempty"`
}

type questPoolStats struct {
	DailyLoginInterval string         `json:"dailyLoginInterval"`
	DailyQuestRerolls  int            `json:"dailyQuestRerolls"`
	PoolStats          map[string]int `json:"questPoolStats"`
}

type seasonStats struct {
	NumWins        int `json:"numWins"`
	NumHighBracket int `json:"numHighBracket"`
	NumLowBracket  int `json:"numLowBracket"`
}

// stat is one named profile stat with its typed default.
type stat struct {
	name  string
	value interface{}
}

func athenaStats(now time.Time) []stat {
	return []stat{
		{"use_random_loadout", false},
		{"past_seasons", []interface{}{}},
		{"season_match_boost", 0},
		{"loadouts", []string{}},
		{"mfa_reward_claimed", false},
		{"rested_xp_overflow", 0},
		{"current_mtx_platform", "Epic"},
		{"last_xp_interaction", now.UTC().Format(time.RFC3339Nano)},
		{"quest_manager", questPoolStats{
			DailyLoginInterval: time.Time{}.Format(time.RFC3339),
			DailyQuestRerolls:  1,
			PoolStats:          map[string]int{},
		}},
		{"book_level", 1},
		{"season_num", 1},
		{"book_xp", 0},
		{"creative_dynamic_xp", map[string]int{}},
		{"season", seasonStats{}},
		{"lifetime_wins", 0},
		{"book_purchased", false},
		{"rested_xp_exchange", 1},
		{"level", 1},
		{"rested_xp", 2500},
		{"rested_xp_mult", 4},
		{"accountLevel", 1},
		{"rested_xp_cumulative", 52500},
		{"xp", 0},
		{"active_loadout_index", 0},
		{"favorite_character", defaultCharacter},
		{"favorite_pickaxe", "AthenaPickaxe:DefaultPickaxe"},
		{"favorite_glider", "AthenaGlider:DefaultGlider"},
		{"favorite_backpack", ""},
		{"favorite_skydivecontrail", ""},
		{"favorite_loadingscreen", ""},
		{"favorite_musicpack", ""},
		{"favorite_dance", []string{}},
		{"favorite_itemwraps", []string{}},
	}
}

var athenaCosmetics = []string{
	"AthenaPickaxe:DefaultPickaxe",
	"AthenaGlider:DefaultGlider",
	"AthenaDance:EID_DanceMoves",
	defaultCharacter,
}

var commonCoreCurrencies = []string{"Currency:MtxPurchased"}

// defaultItems returns the items and stats a new profile of kind starts
// with, in save order.
func defaultItems(kind Kind, accountID string, now time.Time) ([]*models.Item, error) {
	var items []*models.Item
	add := func(templateID string, value interface{}, quantity int, isStat bool) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		items = append(items, &models.Item{
			AccountID:  accountID,
			ProfileID:  kind.Name(),
			TemplateID: templateID,
			Value:      raw,
			Quantity:   quantity,
			IsStat:     isStat,
		})
		return nil
	}

	switch kind {
	case Athena:
		for _, templateID := range athenaCosmetics {
			if err := add(templateID, ItemValue{Level: 1, Variants: []interface{}{}}, 1, false); err != nil {
				return nil, err
			}
		}
		for _, s := range athenaStats(now) {
			if err := add(s.name, s.value, 1, true); err != nil {
				return nil, err
			}
		}
	case CommonCore:
		for _, templateID := range commonCoreCurrencies {
			if err := add(templateID, ItemValue{Level: 1, Platform: "EpicPC"}, 0, false); err != nil {
				return nil, err
			}
		}
	}
	return items, nil
}
