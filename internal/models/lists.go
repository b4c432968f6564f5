// Copyright (C) 2025  The Mailroom Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package models

import (
	"database/sql/driver"
	"encoding/json"
)

// StringList is a list of plain strings stored as a single json column. It is
// used for reply-chain header values, which are opaque message ids rather
// than addresses.
type StringList []string

// Contains reports whether the list holds s.
func (l StringList) Contains(s string) bool {
	for _, candidate := range l {
		if candidate == s {
			return true
		}
	}

	return false
}

// Scan implements the sql.Scanner interface.
func (l *StringList) Scan(src interface{}) error {
	s, err := driver.String.ConvertValue(src)
	if err != nil {
		return err
	}

	var list []string
	if err := json.Unmarshal([]byte(s.(string)), &list); err != nil {
		return err
	}

	*l = list
	return nil
}

// Value implements the sql/driver.Valuer interface.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}

	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}

	return string(b), nil
}
