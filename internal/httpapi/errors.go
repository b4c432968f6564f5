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

package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/sla"
)

// httpError is the json error body of the api.
type httpError struct {
	Error string `json:"error"`
}

// validationError rejects a request before any state is touched.
type validationError struct {
	message string
}

func (e *validationError) Error() string {
	return e.message
}

func invalidf(format string, v ...interface{}) error {
	return &validationError{message: fmt.Sprintf(format, v...)}
}

// respondError maps internal failures to http responses. Unknown rows map to
// 404, rejected state transitions and conflicting writes to 409 and
// validation problems to 400. Everything else is a plain 500 with the detail
// kept in the log.
func respondError(c echo.Context, err error) error {
	var validationErr *validationError

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, httpError{Error: validationErr.message})

	case database.IsErrNoRows(err):
		return c.JSON(http.StatusNotFound, httpError{Error: "not found"})

	case sla.IsTransitionError(err):
		return c.JSON(http.StatusConflict, httpError{Error: err.Error()})

	case database.IsErrUnique(err):
		return c.JSON(http.StatusConflict, httpError{Error: "already exists"})
	}

	log.Error().
		Err(err).
		Str("path", c.Request().URL.Path).
		Msg("request failed")

	return c.JSON(http.StatusInternalServerError, httpError{Error: "internal error"})
}
