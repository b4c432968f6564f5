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
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ledgerline/mailroom/internal/models"
)

type createClientRequest struct {
	Name string `json:"name"`
}

func (s *Server) createClient(c echo.Context) error {
	var request createClientRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, err)
	}

	if request.Name == "" {
		return respondError(c, invalidf("missing name"))
	}

	client := models.ClientEntity{
		Name:      request.Name,
		CreatedAt: time.Now().Unix(),
	}

	if err := s.ClientDao.Insert(requestContext(c), s.Database, &client); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, newClientResponse(&client))
}

type createAliasRequest struct {
	Address     string `json:"address"`
	DisplayName string `json:"displayName"`
}

// createAlias registers a correspondent address for a client. Future mail
// from the address matches with high confidence and the parked backlog is
// reconciled against the new alias right away.
func (s *Server) createAlias(c echo.Context) error {
	ctx := requestContext(c)

	clientID, err := paramInt64(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var request createAliasRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, err)
	}

	address, err := models.ParseNormalized(request.Address)
	if err != nil {
		return respondError(c, invalidf("malformed address %q", request.Address))
	}

	if _, err := s.ClientDao.FindByID(ctx, s.Database, clientID); err != nil {
		return respondError(c, err)
	}

	alias := models.ClientAliasEntity{
		ClientID:    clientID,
		Address:     address,
		DisplayName: request.DisplayName,
		CreatedAt:   time.Now().Unix(),
	}

	if err := s.ClientAliasDao.Insert(ctx, s.Database, &alias); err != nil {
		return respondError(c, err)
	}

	s.Reconciler.WakeUp()

	return c.JSON(http.StatusCreated, newAliasResponse(&alias))
}

type createDomainRequest struct {
	Name string `json:"name"`
}

// createDomain allow-lists a whole mail domain for a client. Like aliases,
// a new domain wakes the reconciler to rescue parked mail.
func (s *Server) createDomain(c echo.Context) error {
	ctx := requestContext(c)

	clientID, err := paramInt64(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var request createDomainRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, err)
	}

	if request.Name == "" {
		return respondError(c, invalidf("missing name"))
	}

	name, err := models.DomainToUnicode(request.Name)
	if err != nil {
		return respondError(c, invalidf("malformed domain %q", request.Name))
	}

	if _, err := s.ClientDao.FindByID(ctx, s.Database, clientID); err != nil {
		return respondError(c, err)
	}

	domain := models.ClientDomainEntity{
		ClientID:  clientID,
		Name:      name,
		CreatedAt: time.Now().Unix(),
	}

	if err := s.ClientDomainDao.Insert(ctx, s.Database, &domain); err != nil {
		return respondError(c, err)
	}

	s.Reconciler.WakeUp()

	return c.JSON(http.StatusCreated, newDomainResponse(&domain))
}

type createInboxRequest struct {
	Address     string `json:"address"`
	DisplayName string `json:"displayName"`
	Kind        string `json:"kind"`
	StaffUser   string `json:"staffUser"`
}

func (s *Server) createInbox(c echo.Context) error {
	var request createInboxRequest
	if err := bindRequest(c, &request); err != nil {
		return respondError(c, err)
	}

	address, err := models.ParseNormalized(request.Address)
	if err != nil {
		return respondError(c, invalidf("malformed address %q", request.Address))
	}

	kind := models.InboxKind(request.Kind)
	if !kind.Valid() {
		return respondError(c, invalidf("unknown inbox kind %q", request.Kind))
	}

	inbox := models.InboxEntity{
		Address:     address,
		DisplayName: request.DisplayName,
		Kind:        kind,
		Active:      true,
		CreatedAt:   time.Now().Unix(),
	}

	if request.StaffUser != "" {
		inbox.StaffUser = sql.NullString{String: request.StaffUser, Valid: true}
	}

	if err := s.InboxDao.Insert(requestContext(c), s.Database, &inbox); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, newInboxResponse(&inbox))
}
