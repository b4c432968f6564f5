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
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/models"
	"github.com/ledgerline/mailroom/internal/msgraph"
)

func (s *ServerTestSuite) TestWebhookHandshake() {
	recorder := s.request(http.MethodPost, "/webhooks/graph?validationToken=probe-123", nil)

	s.Equal(http.StatusOK, recorder.Code)
	s.Equal("probe-123", recorder.Body.String())
}

func (s *ServerTestSuite) TestWebhookDispatchesSync() {
	s.seedSubscription("sub-1", "secret-state")

	s.client.On("DeltaMessages", mock.Anything, s.inbox.Address, "inbox", "").
		Return(&msgraph.Page{Cursor: "delta-1", More: false}, nil).
		Once()

	recorder := s.request(http.MethodPost, "/webhooks/graph", map[string]interface{}{
		"value": []map[string]string{
			{
				"subscriptionId": "sub-1",
				"clientState":    "secret-state",
				"changeType":     "created",
			},
		},
	})

	s.Require().Equal(http.StatusAccepted, recorder.Code)

	// The drain runs in the background, wait for the cursor to land.
	s.Eventually(func() bool {
		state, err := s.server.SyncStateDao.FindByInboxAndFolder(
			s.ctx, s.conn, s.inbox.ID, "inbox")

		return err == nil && state.Cursor == "delta-1"
	}, time.Second, 5*time.Millisecond)
}

func (s *ServerTestSuite) TestWebhookDropsUnknownSubscription() {
	recorder := s.request(http.MethodPost, "/webhooks/graph", map[string]interface{}{
		"value": []map[string]string{
			{"subscriptionId": "nope", "clientState": "whatever"},
		},
	})

	// Acknowledged but not dispatched, the mock would reject any sync call.
	s.Equal(http.StatusAccepted, recorder.Code)
}

func (s *ServerTestSuite) TestWebhookDropsMismatchedClientState() {
	s.seedSubscription("sub-1", "secret-state")

	recorder := s.request(http.MethodPost, "/webhooks/graph", map[string]interface{}{
		"value": []map[string]string{
			{"subscriptionId": "sub-1", "clientState": "forged"},
		},
	})

	s.Equal(http.StatusAccepted, recorder.Code)

	_, err := s.server.SyncStateDao.FindByInboxAndFolder(s.ctx, s.conn, s.inbox.ID, "inbox")
	s.True(database.IsErrNoRows(err))
}

func (s *ServerTestSuite) TestWebhookRejectsMalformedBody() {
	request := httptest.NewRequest(http.MethodPost, "/webhooks/graph", strings.NewReader("{"))
	request.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	recorder := httptest.NewRecorder()
	s.echo.ServeHTTP(recorder, request)

	s.Equal(http.StatusBadRequest, recorder.Code)
}

func (s *ServerTestSuite) seedSubscription(id, clientState string) {
	subscription := models.WebhookSubscriptionEntity{
		ID:          id,
		InboxID:     s.inbox.ID,
		Resource:    "users/office@ledgerline.example/mailFolders('inbox')/messages",
		ClientState: clientState,
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		CreatedAt:   1,
	}

	s.Require().NoError(s.server.SubscriptionDao.Insert(s.ctx, s.conn, &subscription))
}
