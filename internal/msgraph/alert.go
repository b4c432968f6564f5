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

package msgraph

import (
	"context"

	"github.com/ledgerline/mailroom/internal/log"
)

// Alerter escalates conditions that stay broken when nobody reacts, such as
// an expired webhook subscription. Deployments are expected to bind a pager
// or chat hook here.
type Alerter interface {
	Alert(ctx context.Context, summary string)
}

// NewLogAlerter creates an Alerter backed by the error log.
func NewLogAlerter() Alerter {
	return logAlerter{}
}

type logAlerter struct{}

func (logAlerter) Alert(ctx context.Context, summary string) {
	log.ErrorContext(ctx).
		Bool("alert", true).
		Msg(summary)
}
