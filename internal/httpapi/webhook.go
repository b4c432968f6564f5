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
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ledgerline/mailroom/internal/log"
)

type notificationBatch struct {
	Value []notification `json:"value"`
}

type notification struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientState    string `json:"clientState"`
	Resource       string `json:"resource"`
	ChangeType     string `json:"changeType"`
}

// graphWebhook accepts change notifications from the mail provider. The
// handler only acknowledges receipt. The actual mailbox drain runs in the
// background, because the provider expects an answer within seconds and
// retries whole batches on timeout.
func (s *Server) graphWebhook(c echo.Context) error {
	// Subscription handshake. The provider probes the endpoint with a
	// validation token that must be echoed back verbatim.
	if token := c.QueryParam("validationToken"); token != "" {
		return c.String(http.StatusOK, token)
	}

	var batch notificationBatch
	if err := c.Bind(&batch); err != nil {
		return c.JSON(http.StatusBadRequest, httpError{Error: "malformed notification"})
	}

	ctx := requestContext(c)

	for _, n := range batch.Value {
		s.dispatchNotification(ctx, n)
	}

	return c.NoContent(http.StatusAccepted)
}

// dispatchNotification verifies a single notification against the stored
// subscription and schedules a sync of the affected inbox. Notifications
// for unknown subscriptions or with a wrong client state are dropped.
func (s *Server) dispatchNotification(ctx context.Context, n notification) {
	subscription, err := s.SubscriptionDao.FindByID(ctx, s.Database, n.SubscriptionID)
	if err != nil {
		log.WarnContext(ctx).
			Str("subscription", n.SubscriptionID).
			Msg("notification for unknown subscription")
		return
	}

	if subscription.ClientState != n.ClientState {
		log.WarnContext(ctx).
			Str("subscription", n.SubscriptionID).
			Msg("notification with mismatched client state")
		return
	}

	go func() {
		ctx := log.WithOrigin(context.Background(), "webhook")

		if err := s.Syncer.SyncInbox(ctx, subscription.InboxID); err != nil {
			log.ErrorContext(log.WithInbox(ctx, subscription.InboxID)).
				Err(err).
				Msg("could not sync inbox after notification")
		}
	}()
}
