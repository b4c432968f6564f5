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
)

func (s *ServerTestSuite) TestListThreads() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	message := s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodGet, "/api/v1/threads", nil)
	s.Require().Equal(http.StatusOK, recorder.Code)

	var threads []threadResponse
	s.decode(recorder, &threads)

	s.Require().Len(threads, 1)
	s.Equal(message.ThreadID, threads[0].ID)
	s.Equal("VAT Return Q3", threads[0].Subject)
	s.Equal("active", threads[0].State)
}

func (s *ServerTestSuite) TestListThreadsFilteredByState() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodGet, "/api/v1/threads?state=complete", nil)
	s.Require().Equal(http.StatusOK, recorder.Code)

	var threads []threadResponse
	s.decode(recorder, &threads)
	s.Empty(threads)
}

func (s *ServerTestSuite) TestListThreadsUnknownState() {
	recorder := s.request(http.MethodGet, "/api/v1/threads?state=bogus", nil)
	s.Equal(http.StatusBadRequest, recorder.Code)
}

func (s *ServerTestSuite) TestGetThread() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	message := s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodGet, "/api/v1/threads/"+message.ThreadID, nil)
	s.Require().Equal(http.StatusOK, recorder.Code)

	var response struct {
		Thread   threadResponse    `json:"thread"`
		Messages []messageResponse `json:"messages"`
	}

	s.decode(recorder, &response)

	s.Equal(message.ThreadID, response.Thread.ID)
	s.Require().Len(response.Messages, 1)
	s.Equal(message.ID, response.Messages[0].ID)
	s.Equal("jane@acme.example", response.Messages[0].Sender)
}

func (s *ServerTestSuite) TestGetThreadUnknown() {
	recorder := s.request(http.MethodGet, "/api/v1/threads/nope", nil)
	s.Equal(http.StatusNotFound, recorder.Code)
}

func (s *ServerTestSuite) TestGetMessage() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	message := s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodGet, "/api/v1/messages/"+message.ID, nil)
	s.Require().Equal(http.StatusOK, recorder.Code)

	var response struct {
		Message        messageResponse         `json:"message"`
		Classification *classificationResponse `json:"classification"`
		Workflow       *workflowResponse       `json:"workflow"`
		Overrides      []overrideResponse      `json:"overrides"`
	}

	s.decode(recorder, &response)

	s.Equal(message.ID, response.Message.ID)
	s.Equal("inbound", response.Message.Direction)
	s.True(response.Message.HasBody)

	// Classification runs asynchronously and has not happened yet.
	s.Nil(response.Classification)
	s.Nil(response.Workflow)
	s.Empty(response.Overrides)
}

func (s *ServerTestSuite) TestGetMessageBody() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	message := s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodGet, "/api/v1/messages/"+message.ID+"/body", nil)

	s.Require().Equal(http.StatusOK, recorder.Code)
	s.Equal("please find attached", recorder.Body.String())
}

func (s *ServerTestSuite) TestGetMessageBodyUnknownMessage() {
	recorder := s.request(http.MethodGet, "/api/v1/messages/nope/body", nil)
	s.Equal(http.StatusNotFound, recorder.Code)
}

func (s *ServerTestSuite) TestListQuarantine() {
	parked := s.parkMail("p1", "<m1@stranger.example>", "sam@stranger.example", "Sam Doe")

	recorder := s.request(http.MethodGet, "/api/v1/quarantine", nil)
	s.Require().Equal(http.StatusOK, recorder.Code)

	var queue []unmatchedResponse
	s.decode(recorder, &queue)

	s.Require().Len(queue, 1)
	s.Equal(parked.ID, queue[0].ID)
	s.Equal("sam@stranger.example", queue[0].Sender)
}

func (s *ServerTestSuite) TestGetClient() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	domain := s.request(http.MethodPost, "/api/v1/clients/"+itoa(clientID)+"/domains",
		map[string]string{"name": "acme.example"})
	s.Require().Equal(http.StatusCreated, domain.Code)

	recorder := s.request(http.MethodGet, "/api/v1/clients/"+itoa(clientID), nil)
	s.Require().Equal(http.StatusOK, recorder.Code)

	var response struct {
		Client  clientResponse   `json:"client"`
		Aliases []aliasResponse  `json:"aliases"`
		Domains []domainResponse `json:"domains"`
	}

	s.decode(recorder, &response)

	s.Equal("Acme Ltd", response.Client.Name)
	s.Require().Len(response.Aliases, 1)
	s.Equal("jane@acme.example", response.Aliases[0].Address)
	s.Require().Len(response.Domains, 1)
	s.Equal("acme.example", response.Domains[0].Name)
}

func (s *ServerTestSuite) TestGetClientUnknown() {
	recorder := s.request(http.MethodGet, "/api/v1/clients/999", nil)
	s.Equal(http.StatusNotFound, recorder.Code)
}

func (s *ServerTestSuite) TestListInboxes() {
	recorder := s.request(http.MethodGet, "/api/v1/inboxes", nil)
	s.Require().Equal(http.StatusOK, recorder.Code)

	var inboxes []inboxResponse
	s.decode(recorder, &inboxes)

	s.Require().Len(inboxes, 1)
	s.Equal("office@ledgerline.example", inboxes[0].Address)
	s.True(inboxes[0].Active)
}

func (s *ServerTestSuite) TestGetInbox() {
	recorder := s.request(http.MethodGet, "/api/v1/inboxes/"+itoa(s.inbox.ID), nil)
	s.Require().Equal(http.StatusOK, recorder.Code)

	var response struct {
		Inbox         inboxResponse          `json:"inbox"`
		SyncStates    []syncStateResponse    `json:"syncStates"`
		Subscriptions []subscriptionResponse `json:"subscriptions"`
	}

	s.decode(recorder, &response)

	s.Equal(s.inbox.ID, response.Inbox.ID)
	s.Empty(response.SyncStates)
	s.Empty(response.Subscriptions)
}

func (s *ServerTestSuite) TestListInboxEmails() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodGet, "/api/v1/inboxes/"+itoa(s.inbox.ID)+"/emails", nil)
	s.Require().Equal(http.StatusOK, recorder.Code)

	var emails []inboxEmailResponse
	s.decode(recorder, &emails)

	s.Require().Len(emails, 1)
	s.Equal("pending_reply", emails[0].Status)
}

func (s *ServerTestSuite) TestListInboxEmailsFilteredByStatus() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	s.ingestMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodGet,
		"/api/v1/inboxes/"+itoa(s.inbox.ID)+"/emails?status=replied", nil)
	s.Require().Equal(http.StatusOK, recorder.Code)

	var emails []inboxEmailResponse
	s.decode(recorder, &emails)
	s.Empty(emails)
}

func (s *ServerTestSuite) TestListInboxEmailsUnknownStatus() {
	recorder := s.request(http.MethodGet,
		"/api/v1/inboxes/"+itoa(s.inbox.ID)+"/emails?status=bogus", nil)
	s.Equal(http.StatusBadRequest, recorder.Code)
}

func (s *ServerTestSuite) TestListInboxEmailsUnknownInbox() {
	recorder := s.request(http.MethodGet, "/api/v1/inboxes/999/emails", nil)
	s.Equal(http.StatusNotFound, recorder.Code)
}
