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

import "fmt"

// MappingError reports that a shape, or a statement built from it, cannot be
// translated into valid SQL.
type MappingError struct {
	Shape  string
	Reason string
	Err    error
}

func (e *MappingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("entity: cannot map %s: %s: %v", e.Shape, e.Reason, e.Err)
	}
	return fmt.Sprintf("entity: cannot map %s: %s", e.Shape, e.Reason)
}

func (e *MappingError) Unwrap() error { return e.Err }

func mappingErrorf(shape, format string, args ...interface{}) *MappingError {
	return &MappingError{Shape: shape, Reason: fmt.Sprintf(format, args...)}
}
