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

package types

import "strings"

// Values reported by enums for anything outside their declared set.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum is the contract of the named integer enums of the domain.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// ParseEnum returns the member of values whose Name matches name, ignoring
// case. ok is false when none does.
func ParseEnum[E BaseEnum](values []E, name string) (e E, ok bool) {
	name = strings.TrimSpace(name)
	for _, v := range values {
		if v.IsValid() && strings.EqualFold(v.Name(), name) {
			return v, true
		}
	}
	return e, false
}

// EnumNames returns the names of the valid members of values, in order.
func EnumNames[E BaseEnum](values []E) []string {
	names := make([]string, 0, len(values))
	for _, v := range values {
		if v.IsValid() {
			names = append(names, v.Name())
		}
	}
	return names
}
