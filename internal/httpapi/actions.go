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

	"github.com/labstack/echo/v4"

	"github.com/ledgerline/mailroom/internal/classify"
	"github.com/ledgerline/mailroom/internal/models"
)

// Every mutating endpoint carries the acting staff member for the audit
// trail. Requests without an actor are rejected before any state is touched.

type completeRequest struct {
	By string `json:"by"`
}

func (s *Server) completeThread(c echo.Context) error {
	var request completeRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, err)
	}

	if request.By == "" {
		return respondError(c, invalidf("missing actor"))
	}

	if err := s.Tracker.Complete(requestContext(c), c.Param("id"), request.By); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

type snoozeRequest struct {
	Until int64 `json:"until"`
}

func (s *Server) snoozeThread(c echo.Context) error {
	var request snoozeRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, err)
	}

	if request.Until <= time.Now().Unix() {
		return respondError(c, invalidf("snooze time must be in the future"))
	}

	if err := s.Tracker.Snooze(requestContext(c), c.Param("id"), request.Until); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

type overrideRequest struct {
	Sentiment   string `json:"sentiment"`
	Urgency     string `json:"urgency"`
	Opportunity string `json:"opportunity"`
	Reason      string `json:"reason"`
	By          string `json:"by"`
}

func (s *Server) overrideClassification(c echo.Context) error {
	var request overrideRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, err)
	}

	result := classify.Result{
		Sentiment:   models.Sentiment(request.Sentiment),
		Urgency:     models.Urgency(request.Urgency),
		Opportunity: models.Opportunity(request.Opportunity),
	}

	switch {
	case request.By == "":
		return respondError(c, invalidf("missing actor"))
	case !result.Sentiment.Valid():
		return respondError(c, invalidf("unknown sentiment %q", request.Sentiment))
	case !result.Urgency.Valid():
		return respondError(c, invalidf("unknown urgency %q", request.Urgency))
	case !result.Opportunity.Valid():
		return respondError(c, invalidf("unknown opportunity %q", request.Opportunity))
	}

	err := s.Overlay.Override(requestContext(c), c.Param("id"), result, request.By, request.Reason)
	if err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

type workflowRequest struct {
	State string `json:"state"`
	By    string `json:"by"`
}

func (s *Server) setWorkflow(c echo.Context) error {
	var request workflowRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, err)
	}

	if request.By == "" {
		return respondError(c, invalidf("missing actor"))
	}

	state := models.WorkflowState(request.State)
	if !state.Valid() {
		return respondError(c, invalidf("unknown workflow state %q", request.State))
	}

	if err := s.Overlay.SetWorkflow(requestContext(c), c.Param("id"), state, request.By); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

type confirmRequest struct {
	ClientID int64  `json:"clientId"`
	By       string `json:"by"`
}

func (s *Server) confirmQuarantine(c echo.Context) error {
	var request confirmRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, err)
	}

	switch {
	case request.By == "":
		return respondError(c, invalidf("missing actor"))
	case request.ClientID == 0:
		return respondError(c, invalidf("missing clientId"))
	}

	err := s.Queue.Confirm(requestContext(c), c.Param("id"), request.ClientID, request.By)
	if err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

type dismissRequest struct {
	By string `json:"by"`
}

func (s *Server) dismissQuarantine(c echo.Context) error {
	var request dismissRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, err)
	}

	if request.By == "" {
		return respondError(c, invalidf("missing actor"))
	}

	if err := s.Queue.Dismiss(requestContext(c), c.Param("id"), request.By); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

type noActionRequest struct {
	By string `json:"by"`
}

func (s *Server) markNoAction(c echo.Context) error {
	id, err := paramInt64(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var request noActionRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, err)
	}

	if request.By == "" {
		return respondError(c, invalidf("missing actor"))
	}

	if err := s.Tracker.NoAction(requestContext(c), id, request.By); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// triggerSync drains an inbox on demand. The drain runs synchronously, so
// staff see provider problems in the response instead of digging through
// logs.
func (s *Server) triggerSync(c echo.Context) error {
	id, err := paramInt64(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := s.Syncer.SyncInbox(requestContext(c), id); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

type subscribeRequest struct {
	Folder string `json:"folder"`
}

func (s *Server) createSubscription(c echo.Context) error {
	id, err := paramInt64(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var request subscribeRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, err)
	}

	if request.Folder == "" {
		return respondError(c, invalidf("missing folder"))
	}

	subscription, err := s.Subscriber.Subscribe(requestContext(c), id, request.Folder)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, newSubscriptionResponse(subscription))
}

// bindRequest decodes an action body.
func bindRequest(c echo.Context, request interface{}) error {
	if err := c.Bind(request); err != nil {
		return invalidf("malformed request body")
	}

	return nil
}
