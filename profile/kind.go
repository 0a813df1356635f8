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
	"github.com/tomoncle/strata/models"
	"github.com/tomoncle/strata/types"
)

// Kind identifies a profile type.
type Kind int

const (
	Athena Kind = iota + 1
	CommonCore
)

var _ types.BaseEnum = Athena

var kindNames = map[Kind][2]string{
	Athena:     {models.Athena, "battle royale cosmetics and stats"},
	CommonCore: {models.CommonCore, "currencies and account wide state"},
}

// ParseKind returns the Kind named s, or an invalid Kind.
func ParseKind(s string) Kind {
	if k, ok := types.ParseEnum(Kinds(), s); ok {
		return k
	}
	return Kind(types.IllegalValue)
}

// Kinds returns every valid Kind in ascending order.
func Kinds() []Kind {
	return []Kind{Athena, CommonCore}
}

func (k Kind) IsValid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) Number() int {
	if !k.IsValid() {
		return types.IllegalValue
	}
	return int(k)
}

func (k Kind) Name() string {
	if v, ok := kindNames[k]; ok {
		return v[0]
	}
	return types.IllegalName
}

func (k Kind) String() string { return k.Name() }

func (k Kind) Desc() string {
	if v, ok := kindNames[k]; ok {
		return v[1]
	}
	return types.IllegalDesc
}
