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

package sla

import (
	"errors"
	"fmt"
)

// TransitionError is returned when a state change is rejected, because the
// entity is not in a state the transition is allowed from. The request is
// refused synchronously and nothing is written.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("sla: cannot move %s from %q to %q", e.Entity, e.From, e.To)
}

// IsTransitionError checks if an error is a TransitionError.
func IsTransitionError(err error) bool {
	var transitionErr *TransitionError
	return errors.As(err, &transitionErr)
}
