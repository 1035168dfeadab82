// Copyright 2024 The strime Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scan

import "fmt"

// TokenizationError is returned when an accumulated literal (true/false/
// null) does not match its expected spelling.
type TokenizationError struct {
	// Pos is the logical byte offset where the literal began.
	Pos int64
	// Got is the bytes actually accumulated before the mismatch was found.
	Got string
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("scan: invalid literal %q at byte offset %d", e.Got, e.Pos)
}
