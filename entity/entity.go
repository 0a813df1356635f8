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

package entity

// Entity is implemented by every persisted record. An identity of zero means
// the record has not been stored yet.
type Entity interface {
	GetID() int64
	SetID(id int64)
}

// Base carries the identity column and implements Entity. Embed it by value
// and use the pointer type as the repository type parameter.
type Base struct {
	ID int64 `json:"id"`
}

func (b *Base) GetID() int64 {
	return b.ID
}

func (b *Base) SetID(id int64) {
	b.ID = id
}

// IsPersisted reports whether e already owns a store-assigned identity.
func IsPersisted(e Entity) bool {
	return e.GetID() > 0
}
