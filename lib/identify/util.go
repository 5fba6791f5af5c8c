// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identify

import "fmt"

func typeName(value any) string {
	if value == nil {
		return "null"
	}
	return fmt.Sprintf("%T", value)
}
