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
	"embed"
	"io/fs"
)

//go:embed sql
var ddl embed.FS

// DDL returns the table definitions laid out as <dialect>/NNN_name.sql, the
// layout database.SQLInitManager reads.
func DDL() fs.FS {
	sub, err := fs.Sub(ddl, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}
