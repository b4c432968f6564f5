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
)

func (s *ServerTestSuite) TestCreateClient() {
	recorder := s.request(http.MethodPost, "/api/v1/clients",
		map[string]string{"name": "Acme Ltd"})
	s.Require().Equal(http.StatusCreated, recorder.Code)

	var response clientResponse
	s.decode(recorder, &response)

	s.NotZero(response.ID)
	s.Equal("Acme Ltd", response.Name)
}

func (s *ServerTestSuite) TestCreateClientRequiresName() {
	recorder := s.request(http.MethodPost, "/api/v1/clients", map[string]string{})
	s.Equal(http.StatusBadRequest, recorder.Code)
}

func (s *ServerTestSuite) TestCreateAlias() {
	clientID := s.seedClient("Acme Ltd")

	recorder := s.request(http.MethodPost, "/api/v1/clients/"+itoa(clientID)+"/aliases",
		map[string]string{"address": "jane@acme.example", "displayName": "Jane Roe"})
	s.Require().Equal(http.StatusCreated, recorder.Code)

	var response aliasResponse
	s.decode(recorder, &response)

	s.Equal("jane@acme.example", response.Address)
	s.Equal(clientID, response.ClientID)
}

// A new alias has to rescue mail already sitting in quarantine.
func (s *ServerTestSuite) TestCreateAliasRescuesParkedMail() {
	parked := s.parkMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")
	clientID := s.seedClient("Acme Ltd")

	recorder := s.request(http.MethodPost, "/api/v1/clients/"+itoa(clientID)+"/aliases",
		map[string]string{"address": "jane@acme.example", "displayName": "Jane Roe"})
	s.Require().Equal(http.StatusCreated, recorder.Code)

	s.Eventually(func() bool {
		message, err := s.server.MessageDao.FindByInternetMessageID(
			s.ctx, s.conn, parked.InternetMessageID)

		return err == nil && message.ClientID.Int64 == clientID
	}, time.Second, 5*time.Millisecond)
}

func (s *ServerTestSuite) TestCreateAliasMalformedAddress() {
	clientID := s.seedClient("Acme Ltd")

	recorder := s.request(http.MethodPost, "/api/v1/clients/"+itoa(clientID)+"/aliases",
		map[string]string{"address": "not-an-address"})
	s.Equal(http.StatusBadRequest, recorder.Code)
}

func (s *ServerTestSuite) TestCreateAliasUnknownClient() {
	recorder := s.request(http.MethodPost, "/api/v1/clients/999/aliases",
		map[string]string{"address": "jane@acme.example"})
	s.Equal(http.StatusNotFound, recorder.Code)
}

func (s *ServerTestSuite) TestCreateAliasDuplicateConflicts() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	recorder := s.request(http.MethodPost, "/api/v1/clients/"+itoa(clientID)+"/aliases",
		map[string]string{"address": "jane@acme.example"})
	s.Equal(http.StatusConflict, recorder.Code)
}

func (s *ServerTestSuite) TestCreateDomainNormalizesPunycode() {
	clientID := s.seedClient("Acme Ltd")

	recorder := s.request(http.MethodPost, "/api/v1/clients/"+itoa(clientID)+"/domains",
		map[string]string{"name": "xn--dmin-moa0i.example"})
	s.Require().Equal(http.StatusCreated, recorder.Code)

	var response domainResponse
	s.decode(recorder, &response)

	s.Equal("dömäin.example", response.Name)
}

func (s *ServerTestSuite) TestCreateInbox() {
	recorder := s.request(http.MethodPost, "/api/v1/inboxes", map[string]string{
		"address":     "payroll@ledgerline.example",
		"displayName": "Payroll",
		"kind":        "shared",
	})
	s.Require().Equal(http.StatusCreated, recorder.Code)

	var response inboxResponse
	s.decode(recorder, &response)

	s.NotZero(response.ID)
	s.Equal("payroll@ledgerline.example", response.Address)
	s.True(response.Active)
	s.Nil(response.StaffUser)
}

func (s *ServerTestSuite) TestCreateInboxWithStaffUser() {
	recorder := s.request(http.MethodPost, "/api/v1/inboxes", map[string]string{
		"address":     "jane@ledgerline.example",
		"displayName": "Jane Doe",
		"kind":        "user",
		"staffUser":   "jane.doe",
	})
	s.Require().Equal(http.StatusCreated, recorder.Code)

	var response inboxResponse
	s.decode(recorder, &response)

	s.Require().NotNil(response.StaffUser)
	s.Equal("jane.doe", *response.StaffUser)
}

func (s *ServerTestSuite) TestCreateInboxUnknownKind() {
	recorder := s.request(http.MethodPost, "/api/v1/inboxes", map[string]string{
		"address": "payroll@ledgerline.example",
		"kind":    "robot",
	})
	s.Equal(http.StatusBadRequest, recorder.Code)
}
