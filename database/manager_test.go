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

package database

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_DataSource(t *testing.T) {
	for _, tc := range []struct {
		cfg    ConnectionConfig
		driver string
		dsn    string
	}{
		{
			cfg:    ConnectionConfig{Type: "postgres", Host: "h", Port: 5432, Username: "u", Password: "p", DBName: "d", ConnectTimeout: Duration(3e9)},
			driver: "postgres",
			dsn:    "postgres://u:p@h:5432/d?sslmode=disable&connect_timeout=3",
		},
		{
			cfg:    ConnectionConfig{Type: "sqlite"},
			driver: "sqlite",
			dsn:    "file::memory:?cache=shared",
		},
		{
			cfg:    ConnectionConfig{Type: "sqlite3", DBName: "strata"},
			driver: "sqlite",
			dsn:    "strata.db",
		},
		{
			cfg:    ConnectionConfig{Type: "mysql", DSN: "u:p@/d"},
			driver: "mysql",
			dsn:    "u:p@/d",
		},
	} {
		cfg := tc.cfg
		dm := NewDatabaseManager(&cfg).(*defaultDatabaseManager)
		driver, dsn, err := dm.dataSource()
		require.NoError(t, err)
		if tc.driver != "sqlite" {
			assert.Equal(t, tc.driver, driver)
		}
		assert.Equal(t, tc.dsn, dsn)
	}

	_, _, err := NewDatabaseManager(&ConnectionConfig{Type: "oracle"}).(*defaultDatabaseManager).dataSource()
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestManager_ConnectHealthStats(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DSN = "file:manager_health?mode=memory&cache=shared"
	cfg.MaxOpenConns = 2
	cfg.HealthCheckInterval = 0

	m := NewDatabaseManager(cfg)
	require.Error(t, m.Ping(ctx))
	assert.False(t, m.HealthCheck(ctx).Healthy)

	require.NoError(t, m.Connect(ctx))
	require.NoError(t, m.Connect(ctx), "second connect is a no-op")
	require.NoError(t, m.Ping(ctx))
	assert.NotNil(t, m.GetSQLDB())

	status := m.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.MaxOpenConns)
	assert.Equal(t, 2, m.GetStats().MaxOpenConns)

	require.NoError(t, m.Reconnect(ctx))
	require.NoError(t, m.Disconnect())
	assert.Nil(t, m.GetDB())
	assert.Equal(t, &DBStats{}, m.GetStats())
}

func TestFactory_CreateFromConfig(t *testing.T) {
	f := NewDatabaseFactory()
	_, err := f.CreateFromConfig(nil)
	assert.Error(t, err)

	_, err = f.CreateFromConfig(&ConnectionConfig{Type: "oracle"})
	assert.ErrorContains(t, err, "unsupported database type")

	assert.Error(t, f.InitializeDatabase(context.Background()))
	assert.False(t, f.GetHealthStatus(context.Background()).Healthy)
	assert.Nil(t, f.GetDB())

	cfg := DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DSN = "file:factory?mode=memory&cache=shared"
	cfg.HealthCheckInterval = 0
	_, err = f.CreateFromConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, f.InitializeDatabase(context.Background()))
	assert.NotNil(t, f.GetDB())
	assert.True(t, f.GetHealthStatus(context.Background()).Healthy)
	require.NoError(t, f.Close())
}

func TestInitDB_Global(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetDB())

	cfg := &Config{ConnectionConfig: *DefaultConnectionConfig()}
	cfg.ConnectionConfig.Type = "sqlite"
	cfg.ConnectionConfig.DSN = "file:global?mode=memory&cache=shared"
	cfg.ConnectionConfig.HealthCheckInterval = 0

	db, err := InitDB(ctx, cfg)
	require.NoError(t, err)
	assert.Same(t, db, GetDB())
	assert.Same(t, cfg, GetConfig())
	assert.NotNil(t, GetDatabaseManager())
	assert.True(t, GetHealthStatus(ctx).Healthy)

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.False(t, GetHealthStatus(ctx).Healthy)
	assert.Equal(t, &DBStats{}, GetDatabaseStats())
}

func TestQueryHooks(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	var counter QueryCounter
	var buf bytes.Buffer
	db.AddQueryHook(&counter)
	db.AddQueryHook(NewQueryLogHook("STRATA_TEST_SQL_LOG").WithWriter(&buf))

	t.Setenv("STRATA_TEST_SQL_LOG", "1")
	_, err := db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "mode 1 prints failures only")

	_, err = db.ExecContext(ctx, "SELECT * FROM missing")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "SELECT * FROM missing")

	buf.Reset()
	t.Setenv("STRATA_TEST_SQL_LOG", "2")
	_, err = db.ExecContext(ctx, "INSERT INTO t (id) VALUES (1)")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "INSERT INTO t (id) VALUES (1)")

	assert.EqualValues(t, 3, counter.Count())
	counter.Reset()
	assert.Zero(t, counter.Count())
}
