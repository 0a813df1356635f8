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
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// AbstractDatabaseManager defines the operations for managing a database
// connection, bootstrapping schema files and reporting health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// AbstractDatabaseConfigProvider exposes configuration loading.
type AbstractDatabaseConfigProvider interface {
	ConfigLoader() *Config
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql pool statistics.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to connect to a database and tune its pool.
// Durations in YAML/TOML files are written as Go duration strings ("30s").
type ConnectionConfig struct {
	Type                string   `json:"type" yaml:"type" toml:"type"` // postgres, mysql, sqlite
	Host                string   `json:"host" yaml:"host" toml:"host"`
	Port                int      `json:"port" yaml:"port" toml:"port"`
	Username            string   `json:"username" yaml:"username" toml:"username"`
	Password            string   `json:"password" yaml:"password" toml:"password"`
	DBName              string   `json:"dbname" yaml:"dbname" toml:"dbname"`
	SSLMode             string   `json:"sslmode" yaml:"sslmode" toml:"sslmode"`
	DSN                 string   `json:"dsn" yaml:"dsn" toml:"dsn"` // overrides the fields above when set
	MaxIdleConns        int      `json:"max_idle_conns" yaml:"max_idle_conns" toml:"max_idle_conns"`
	MaxOpenConns        int      `json:"max_open_conns" yaml:"max_open_conns" toml:"max_open_conns"`
	ConnMaxLifetime     Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" toml:"conn_max_lifetime"`
	ConnMaxIdleTime     Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time" toml:"conn_max_idle_time"`
	ConnectTimeout      Duration `json:"connect_timeout" yaml:"connect_timeout" toml:"connect_timeout"`
	ReadTimeout         Duration `json:"read_timeout" yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout        Duration `json:"write_timeout" yaml:"write_timeout" toml:"write_timeout"`
	EnableReconnect     bool     `json:"enable_reconnect" yaml:"enable_reconnect" toml:"enable_reconnect"`
	ReconnectInterval   Duration `json:"reconnect_interval" yaml:"reconnect_interval" toml:"reconnect_interval"`
	MaxReconnectTries   int      `json:"max_reconnect_tries" yaml:"max_reconnect_tries" toml:"max_reconnect_tries"`
	HealthCheckInterval Duration `json:"health_check_interval" yaml:"health_check_interval" toml:"health_check_interval"`
	EnableQueryLog      bool     `json:"enable_query_log" yaml:"enable_query_log" toml:"enable_query_log"`
	SlowQueryTime       Duration `json:"slow_query_time" yaml:"slow_query_time" toml:"slow_query_time"`
}

// DataInitConfig controls schema bootstrap on startup.
type DataInitConfig struct {
	AutoInitOnStartup bool   `json:"auto_init_on_startup" yaml:"auto_init_on_startup" toml:"auto_init_on_startup"`
	Filepath          string `json:"filepath" yaml:"filepath" toml:"filepath"`
}

// Config aggregates connection and bootstrap settings.
type Config struct {
	ConnectionConfig ConnectionConfig `json:"connection_config" yaml:"connection" toml:"connection"`
	DataInitConfig   DataInitConfig   `json:"data_init_config" yaml:"data_init" toml:"data_init"`
}

// ConfigLoader lets a *Config serve as its own provider.
func (c *Config) ConfigLoader() *Config { return c }

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     Duration(time.Hour),
		ConnMaxIdleTime:     Duration(time.Minute * 30),
		ConnectTimeout:      Duration(time.Second * 10),
		ReadTimeout:         Duration(time.Second * 30),
		WriteTimeout:        Duration(time.Second * 30),
		EnableReconnect:     true,
		ReconnectInterval:   Duration(time.Second * 5),
		MaxReconnectTries:   3,
		HealthCheckInterval: Duration(time.Minute * 5),
		EnableQueryLog:      false,
		SlowQueryTime:       Duration(time.Second * 2),
	}
}
