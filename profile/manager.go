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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomoncle/strata/database"
	"github.com/tomoncle/strata/models"
	"github.com/tomoncle/strata/repository"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidArgument is returned for an empty account id or an unknown kind.
var ErrInvalidArgument = errors.New("profile: invalid argument")

// Manager creates and assembles profiles from their header, item and
// loadout rows.
type Manager struct {
	profiles repository.Repository[*models.Profile]
	items    repository.Repository[*models.Item]
	loadouts repository.Repository[*models.Loadout]
	logger   database.Logger
	now      func() time.Time
}

// NewManager returns a Manager storing profiles in db.
func NewManager(db *bun.DB) *Manager {
	return &Manager{
		profiles: repository.NewRepository(db, models.Profiles),
		items:    repository.NewRepository(db, models.Items),
		loadouts: repository.NewRepository(db, models.Loadouts),
		logger:   database.GetLogger(),
		now:      time.Now,
	}
}

// Created is the outcome of CreateProfile. Items reports the default items
// and stats that were saved; failures there do not fail the call.
type Created struct {
	Profile *models.Profile
	Items   *repository.BatchResult
}

// CreateProfile stores a new profile header for accountID and seeds it with
// the default items and stats of kind.
func (m *Manager) CreateProfile(ctx context.Context, accountID string, kind Kind) (*Created, error) {
	if err := validate(accountID, kind); err != nil {
		m.logger.Error("Invalid profile request", "account", accountID, "kind", kind.Number())
		return nil, err
	}

	items, err := defaultItems(kind, accountID, m.now())
	if err != nil {
		return nil, fmt.Errorf("profile: encode defaults: %w", err)
	}

	header := &models.Profile{AccountID: accountID, ProfileID: kind.Name()}
	if err := m.profiles.Save(ctx, header); err != nil {
		m.logger.Error("Failed to create profile", "account", accountID, "profile", kind, "error", err)
		return nil, err
	}

	result := m.items.SaveAll(ctx, items...)
	if !result.OK() {
		m.logger.Warn("Profile created with missing items",
			"account", accountID, "profile", kind, "saved", result.Saved, "failed", len(result.Failures))
	}
	m.logger.Info("Profile created", "account", accountID, "profile", kind, "items", result.Saved)
	return &Created{Profile: header, Items: result}, nil
}

// Entry is one item of a profile snapshot.
type Entry struct {
	ID         int64           `json:"id"`
	TemplateID string          `json:"templateId"`
	Attributes json.RawMessage `json:"attributes"`
	Quantity   int             `json:"quantity"`
}

// Snapshot is a profile assembled from its rows.
type Snapshot struct {
	AccountID string                     `json:"accountId"`
	ProfileID string                     `json:"profileId"`
	Revision  int                        `json:"rvn"`
	Version   string                     `json:"version"`
	Items     []Entry                    `json:"items"`
	Stats     map[string]json.RawMessage `json:"stats"`
	Loadouts  []*models.Loadout          `json:"loadouts,omitempty"`
}

// GetProfile reads the header, items and loadouts of a profile
// concurrently and assembles them. A missing header yields an error
// wrapping repository.ErrNotFound.
func (m *Manager) GetProfile(ctx context.Context, accountID string, kind Kind) (*Snapshot, error) {
	if err := validate(accountID, kind); err != nil {
		return nil, err
	}
	start := time.Now()

	var (
		header   *models.Profile
		items    []*models.Item
		loadouts []*models.Loadout
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		header, err = m.profiles.FindByProfileIDAndAccountID(gctx, kind.Name(), accountID)
		return err
	})
	g.Go(func() (err error) {
		items, err = m.items.FindAllByAccountID(gctx, accountID, kind.Name())
		return err
	})
	if kind == Athena {
		g.Go(func() (err error) {
			loadouts, err = m.loadouts.FindAllByAccountID(gctx, accountID, kind.Name())
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			m.logger.Warn("Profile not found", "account", accountID, "profile", kind)
		}
		return nil, err
	}

	snapshot := &Snapshot{
		AccountID: accountID,
		ProfileID: header.ProfileID,
		Revision:  header.Revision,
		Version:   fmt.Sprintf("strata/%s/%s/%d", accountID, header.ProfileID, header.Revision),
		Items:     make([]Entry, 0, len(items)),
		Stats:     make(map[string]json.RawMessage),
		Loadouts:  loadouts,
	}
	for _, item := range items {
		if item.IsStat {
			snapshot.Stats[item.TemplateID] = item.Value
			continue
		}
		snapshot.Items = append(snapshot.Items, Entry{
			ID:         item.ID,
			TemplateID: item.TemplateID,
			Attributes: item.Value,
			Quantity:   item.Quantity,
		})
	}
	m.logger.Debug("Profile assembled",
		"account", accountID, "profile", kind, "items", len(snapshot.Items),
		"elapsed_ms", time.Since(start).Milliseconds())
	return snapshot, nil
}

func validate(accountID string, kind Kind) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: empty account id", ErrInvalidArgument)
	}
	if !kind.IsValid() {
		return fmt.Errorf("%w: unknown profile kind %d", ErrInvalidArgument, int(kind))
	}
	return nil
}
