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
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/models"
	"github.com/ledgerline/mailroom/internal/msgraph"
)

func (s *ServerTestSuite) TestCompleteThread() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	message := s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodPost, "/api/v1/threads/"+message.ThreadID+"/complete",
		map[string]string{"by": "jane.doe"})
	s.Require().Equal(http.StatusNoContent, recorder.Code)

	thread, err := s.server.ThreadDao.FindByID(s.ctx, s.conn, message.ThreadID)
	s.Require().NoError(err)

	s.Equal(models.SLAComplete, thread.State)
	s.Equal("jane.doe", thread.CompletedBy.String)
}

func (s *ServerTestSuite) TestCompleteThreadTwiceConflicts() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	message := s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	first := s.request(http.MethodPost, "/api/v1/threads/"+message.ThreadID+"/complete",
		map[string]string{"by": "jane.doe"})
	s.Require().Equal(http.StatusNoContent, first.Code)

	second := s.request(http.MethodPost, "/api/v1/threads/"+message.ThreadID+"/complete",
		map[string]string{"by": "jane.doe"})
	s.Equal(http.StatusConflict, second.Code)
}

func (s *ServerTestSuite) TestCompleteThreadRequiresActor() {
	recorder := s.request(http.MethodPost, "/api/v1/threads/t1/complete",
		map[string]string{})
	s.Equal(http.StatusBadRequest, recorder.Code)
}

func (s *ServerTestSuite) TestSnoozeThread() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	message := s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	until := time.Now().Add(time.Hour).Unix()

	recorder := s.request(http.MethodPost, "/api/v1/threads/"+message.ThreadID+"/snooze",
		map[string]int64{"until": until})
	s.Require().Equal(http.StatusNoContent, recorder.Code)

	thread, err := s.server.ThreadDao.FindByID(s.ctx, s.conn, message.ThreadID)
	s.Require().NoError(err)

	s.Equal(models.SLASnoozed, thread.State)
	s.Equal(until, thread.SnoozeUntil.Int64)
}

func (s *ServerTestSuite) TestSnoozeThreadRejectsPastTime() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	message := s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodPost, "/api/v1/threads/"+message.ThreadID+"/snooze",
		map[string]int64{"until": time.Now().Add(-time.Hour).Unix()})
	s.Equal(http.StatusBadRequest, recorder.Code)
}

func (s *ServerTestSuite) TestOverrideClassification() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	message := s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodPost, "/api/v1/messages/"+message.ID+"/override",
		map[string]string{
			"sentiment":   "negative",
			"urgency":     "high",
			"opportunity": "advisory",
			"reason":      "client is unhappy about the deadline",
			"by":          "jane.doe",
		})
	s.Require().Equal(http.StatusNoContent, recorder.Code)

	classification, err := s.server.ClassificationDao.FindByMessage(s.ctx, s.conn, message.ID)
	s.Require().NoError(err)

	s.Equal(models.SentimentNegative, classification.Sentiment)
	s.Equal(models.UrgencyHigh, classification.Urgency)
	s.Equal(models.SourceOverride, classification.Source)

	overrides, err := s.server.OverrideDao.FindByMessage(s.ctx, s.conn, message.ID)
	s.Require().NoError(err)
	s.Require().Len(overrides, 1)
	s.Equal("jane.doe", overrides[0].CreatedBy)
}

func (s *ServerTestSuite) TestOverrideClassificationUnknownTier() {
	recorder := s.request(http.MethodPost, "/api/v1/messages/m1/override",
		map[string]string{
			"sentiment":   "meh",
			"urgency":     "high",
			"opportunity": "none",
			"by":          "jane.doe",
		})
	s.Equal(http.StatusBadRequest, recorder.Code)
}

func (s *ServerTestSuite) TestOverrideClassificationUnknownMessage() {
	recorder := s.request(http.MethodPost, "/api/v1/messages/nope/override",
		map[string]string{
			"sentiment":   "neutral",
			"urgency":     "low",
			"opportunity": "none",
			"by":          "jane.doe",
		})
	s.Equal(http.StatusNotFound, recorder.Code)
}

func (s *ServerTestSuite) TestSetWorkflow() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	message := s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodPost, "/api/v1/messages/"+message.ID+"/workflow",
		map[string]string{"state": "working", "by": "jane.doe"})
	s.Require().Equal(http.StatusNoContent, recorder.Code)

	workflow, err := s.server.WorkflowDao.FindByMessage(s.ctx, s.conn, message.ID)
	s.Require().NoError(err)

	s.Equal(models.WorkflowWorking, workflow.State)
	s.Equal("jane.doe", workflow.UpdatedBy)
}

func (s *ServerTestSuite) TestSetWorkflowUnknownState() {
	recorder := s.request(http.MethodPost, "/api/v1/messages/m1/workflow",
		map[string]string{"state": "paused", "by": "jane.doe"})
	s.Equal(http.StatusBadRequest, recorder.Code)
}

func (s *ServerTestSuite) TestConfirmQuarantine() {
	parked := s.parkMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")
	clientID := s.seedClient("Acme Ltd")

	recorder := s.request(http.MethodPost, "/api/v1/quarantine/"+parked.ID+"/confirm",
		map[string]interface{}{"clientId": clientID, "by": "jane.doe"})
	s.Require().Equal(http.StatusNoContent, recorder.Code)

	message, err := s.server.MessageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	s.Equal(clientID, message.ClientID.Int64)
	s.Equal(models.ConfidenceHigh, message.MatchConfidence)

	_, err = s.server.UnmatchedDao.FindByID(s.ctx, s.conn, parked.ID)
	s.True(database.IsErrNoRows(err))
}

func (s *ServerTestSuite) TestConfirmQuarantineUnknownClient() {
	parked := s.parkMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodPost, "/api/v1/quarantine/"+parked.ID+"/confirm",
		map[string]interface{}{"clientId": 999, "by": "jane.doe"})
	s.Equal(http.StatusNotFound, recorder.Code)
}

func (s *ServerTestSuite) TestDismissQuarantine() {
	parked := s.parkMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodPost, "/api/v1/quarantine/"+parked.ID+"/dismiss",
		map[string]string{"by": "jane.doe"})
	s.Require().Equal(http.StatusNoContent, recorder.Code)

	_, err := s.server.UnmatchedDao.FindByID(s.ctx, s.conn, parked.ID)
	s.True(database.IsErrNoRows(err))

	email, err := s.server.InboxEmailDao.FindByInboxAndProviderID(s.ctx, s.conn, s.inbox.ID, "p1")
	s.Require().NoError(err)
	s.Equal(models.ReplyStatusNoAction, email.Status)
}

func (s *ServerTestSuite) TestMarkNoAction() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	email, err := s.server.InboxEmailDao.FindByInboxAndProviderID(s.ctx, s.conn, s.inbox.ID, "p1")
	s.Require().NoError(err)

	recorder := s.request(http.MethodPost, "/api/v1/inbox-emails/"+itoa(email.ID)+"/no-action",
		map[string]string{"by": "jane.doe"})
	s.Require().Equal(http.StatusNoContent, recorder.Code)

	email, err = s.server.InboxEmailDao.FindByID(s.ctx, s.conn, email.ID)
	s.Require().NoError(err)

	s.Equal(models.ReplyStatusNoAction, email.Status)
	s.Equal("jane.doe", email.StaffUser.String)
}

func (s *ServerTestSuite) TestTriggerSync() {
	s.client.On("DeltaMessages", mock.Anything, s.inbox.Address, "inbox", "").
		Return(&msgraph.Page{Cursor: "delta-1", More: false}, nil).
		Once()

	recorder := s.request(http.MethodPost, "/api/v1/inboxes/"+itoa(s.inbox.ID)+"/sync", nil)
	s.Require().Equal(http.StatusNoContent, recorder.Code)

	state, err := s.server.SyncStateDao.FindByInboxAndFolder(s.ctx, s.conn, s.inbox.ID, "inbox")
	s.Require().NoError(err)
	s.Equal("delta-1", state.Cursor)
}

func (s *ServerTestSuite) TestTriggerSyncUnknownInbox() {
	recorder := s.request(http.MethodPost, "/api/v1/inboxes/999/sync", nil)
	s.Equal(http.StatusNotFound, recorder.Code)
}

func (s *ServerTestSuite) TestCreateSubscription() {
	expiry := time.Now().Add(168 * time.Hour).Truncate(time.Second)

	s.client.On("CreateSubscription", mock.Anything, mock.Anything).
		Return(&msgraph.SubscriptionResult{
			ID:        "sub-1",
			Resource:  "users/office@ledgerline.example/mailFolders('inbox')/messages",
			ExpiresAt: expiry,
		}, nil).
		Once()

	recorder := s.request(http.MethodPost, "/api/v1/inboxes/"+itoa(s.inbox.ID)+"/subscriptions",
		map[string]string{"folder": "inbox"})
	s.Require().Equal(http.StatusCreated, recorder.Code)

	var response subscriptionResponse
	s.decode(recorder, &response)

	s.Equal("sub-1", response.ID)
	s.Equal(expiry.Unix(), response.ExpiresAt)

	stored, err := s.server.SubscriptionDao.FindByID(s.ctx, s.conn, "sub-1")
	s.Require().NoError(err)
	s.Equal(s.inbox.ID, stored.InboxID)
}

func (s *ServerTestSuite) TestCreateSubscriptionRequiresFolder() {
	recorder := s.request(http.MethodPost, "/api/v1/inboxes/"+itoa(s.inbox.ID)+"/subscriptions",
		map[string]string{})
	s.Equal(http.StatusBadRequest, recorder.Code)
}
