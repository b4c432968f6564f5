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
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/models"
)

func (s *Server) listThreads(c echo.Context) error {
	var (
		ctx     = requestContext(c)
		threads []models.ThreadEntity
		err     error
	)

	if state := c.QueryParam("state"); state != "" {
		if !models.SLAState(state).Valid() {
			return respondError(c, invalidf("unknown thread state %q", state))
		}

		threads, err = s.ThreadDao.FindAllByState(ctx, s.Database, models.SLAState(state))
	} else {
		threads, err = s.ThreadDao.FindAll(ctx, s.Database)
	}

	if err != nil {
		return respondError(c, err)
	}

	response := make([]threadResponse, 0, len(threads))
	for i := range threads {
		response = append(response, newThreadResponse(&threads[i]))
	}

	return c.JSON(http.StatusOK, response)
}

func (s *Server) getThread(c echo.Context) error {
	ctx := requestContext(c)

	thread, err := s.ThreadDao.FindByID(ctx, s.Database, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	messages, err := s.MessageDao.FindByThread(ctx, s.Database, thread.ID)
	if err != nil {
		return respondError(c, err)
	}

	messageResponses := make([]messageResponse, 0, len(messages))
	for i := range messages {
		messageResponses = append(messageResponses, newMessageResponse(&messages[i]))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"thread":   newThreadResponse(thread),
		"messages": messageResponses,
	})
}

func (s *Server) getMessage(c echo.Context) error {
	ctx := requestContext(c)

	message, err := s.MessageDao.FindByID(ctx, s.Database, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	classification, err := s.ClassificationDao.FindByMessage(ctx, s.Database, message.ID)
	if err != nil && !database.IsErrNoRows(err) {
		return respondError(c, err)
	}

	workflow, err := s.WorkflowDao.FindByMessage(ctx, s.Database, message.ID)
	if err != nil && !database.IsErrNoRows(err) {
		return respondError(c, err)
	}

	overrides, err := s.OverrideDao.FindByMessage(ctx, s.Database, message.ID)
	if err != nil {
		return respondError(c, err)
	}

	overrideResponses := make([]overrideResponse, 0, len(overrides))
	for i := range overrides {
		overrideResponses = append(overrideResponses, newOverrideResponse(&overrides[i]))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message":        newMessageResponse(message),
		"classification": newClassificationResponse(classification),
		"workflow":       newWorkflowResponse(workflow),
		"overrides":      overrideResponses,
	})
}

// getMessageBody streams the stored body without buffering it whole.
func (s *Server) getMessageBody(c echo.Context) error {
	ctx := requestContext(c)

	message, err := s.MessageDao.FindByID(ctx, s.Database, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	if !message.BodyID.Valid {
		return respondError(c, invalidf("message has no stored body"))
	}

	body, err := s.Bodies.Reader(message.BodyID.String)
	if err != nil {
		return respondError(c, err)
	}
	defer body.Close()

	return c.Stream(http.StatusOK, echo.MIMETextPlainCharsetUTF8, body)
}

func (s *Server) listQuarantine(c echo.Context) error {
	parked, err := s.Queue.List(requestContext(c))
	if err != nil {
		return respondError(c, err)
	}

	response := make([]unmatchedResponse, 0, len(parked))
	for i := range parked {
		response = append(response, newUnmatchedResponse(&parked[i]))
	}

	return c.JSON(http.StatusOK, response)
}

func (s *Server) listClients(c echo.Context) error {
	clients, err := s.ClientDao.FindAll(requestContext(c), s.Database)
	if err != nil {
		return respondError(c, err)
	}

	response := make([]clientResponse, 0, len(clients))
	for i := range clients {
		response = append(response, newClientResponse(&clients[i]))
	}

	return c.JSON(http.StatusOK, response)
}

func (s *Server) getClient(c echo.Context) error {
	ctx := requestContext(c)

	id, err := paramInt64(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	client, err := s.ClientDao.FindByID(ctx, s.Database, id)
	if err != nil {
		return respondError(c, err)
	}

	aliases, err := s.ClientAliasDao.FindByClient(ctx, s.Database, client.ID)
	if err != nil {
		return respondError(c, err)
	}

	domains, err := s.ClientDomainDao.FindByClient(ctx, s.Database, client.ID)
	if err != nil {
		return respondError(c, err)
	}

	aliasResponses := make([]aliasResponse, 0, len(aliases))
	for i := range aliases {
		aliasResponses = append(aliasResponses, newAliasResponse(&aliases[i]))
	}

	domainResponses := make([]domainResponse, 0, len(domains))
	for i := range domains {
		domainResponses = append(domainResponses, newDomainResponse(&domains[i]))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"client":  newClientResponse(client),
		"aliases": aliasResponses,
		"domains": domainResponses,
	})
}

func (s *Server) listInboxes(c echo.Context) error {
	inboxes, err := s.InboxDao.FindAll(requestContext(c), s.Database)
	if err != nil {
		return respondError(c, err)
	}

	response := make([]inboxResponse, 0, len(inboxes))
	for i := range inboxes {
		response = append(response, newInboxResponse(&inboxes[i]))
	}

	return c.JSON(http.StatusOK, response)
}

func (s *Server) getInbox(c echo.Context) error {
	ctx := requestContext(c)

	id, err := paramInt64(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	inbox, err := s.InboxDao.FindByID(ctx, s.Database, id)
	if err != nil {
		return respondError(c, err)
	}

	states, err := s.SyncStateDao.FindByInbox(ctx, s.Database, inbox.ID)
	if err != nil {
		return respondError(c, err)
	}

	subscriptions, err := s.SubscriptionDao.FindByInbox(ctx, s.Database, inbox.ID)
	if err != nil {
		return respondError(c, err)
	}

	stateResponses := make([]syncStateResponse, 0, len(states))
	for i := range states {
		stateResponses = append(stateResponses, newSyncStateResponse(&states[i]))
	}

	subscriptionResponses := make([]subscriptionResponse, 0, len(subscriptions))
	for i := range subscriptions {
		subscriptionResponses = append(subscriptionResponses, newSubscriptionResponse(&subscriptions[i]))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"inbox":         newInboxResponse(inbox),
		"syncStates":    stateResponses,
		"subscriptions": subscriptionResponses,
	})
}

func (s *Server) listInboxEmails(c echo.Context) error {
	ctx := requestContext(c)

	id, err := paramInt64(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if _, err := s.InboxDao.FindByID(ctx, s.Database, id); err != nil {
		return respondError(c, err)
	}

	var emails []models.InboxEmailEntity

	if status := c.QueryParam("status"); status != "" {
		if !models.ReplyStatus(status).Valid() {
			return respondError(c, invalidf("unknown reply status %q", status))
		}

		emails, err = s.InboxEmailDao.FindByInboxAndStatus(ctx, s.Database, id, models.ReplyStatus(status))
	} else {
		emails, err = s.InboxEmailDao.FindByInbox(ctx, s.Database, id)
	}

	if err != nil {
		return respondError(c, err)
	}

	response := make([]inboxEmailResponse, 0, len(emails))
	for i := range emails {
		response = append(response, newInboxEmailResponse(&emails[i]))
	}

	return c.JSON(http.StatusOK, response)
}

// paramInt64 parses a numeric path parameter.
func paramInt64(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, invalidf("malformed %s parameter", name)
	}

	return id, nil
}
