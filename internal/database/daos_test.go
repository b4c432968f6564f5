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

package database

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/stretchr/testify/suite"

	"github.com/ledgerline/mailroom/internal/models"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: true}
}

type baseDatabaseTestSuite struct {
	suite.Suite

	ctx  context.Context
	conn Conn
}

func (s *baseDatabaseTestSuite) SetupTest() {
	conn, err := openInMemory()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.conn = conn
}

func (s *baseDatabaseTestSuite) TearDownTest() {
	s.Require().NoError(s.conn.Close())
}

func (s *baseDatabaseTestSuite) requireExec(query string) {
	_, err := s.conn.ExecContext(s.ctx, query)
	s.Require().NoError(err)
}

func (s *baseDatabaseTestSuite) assertQuery(query string, expectedRows ...[]string) {
	rows, err := s.conn.QueryxContext(s.ctx, query)
	s.Require().NoError(err)

	defer rows.Close()

	for _, expectedValues := range expectedRows {
		s.Require().True(rows.Next())

		actualValues, err := rows.SliceScan()
		s.Require().NoError(err)
		s.Require().Len(actualValues, len(expectedValues))

		for i, actualValue := range actualValues {
			actualValueAsString, err := driver.String.ConvertValue(actualValue)
			s.Assert().NoError(err)
			s.Assert().Equal(expectedValues[i], actualValueAsString)
		}
	}

	s.Assert().False(rows.Next())
}

func (s *baseDatabaseTestSuite) mustParseAddress(raw string) models.Address {
	addr, err := models.Parse(raw)
	s.Require().NoError(err)
	return addr
}

// seedClient inserts a client row to satisfy foreign keys.
func (s *baseDatabaseTestSuite) seedClient() {
	s.requireExec(
		`
			insert into "clients" ( "id", "name", "created_at" )
			values ( 1, 'Acme Ltd', 1000 ) ;
		`)
}

// seedInbox inserts an inbox row to satisfy foreign keys.
func (s *baseDatabaseTestSuite) seedInbox() {
	s.requireExec(
		`
			insert into "inboxes"
				( "id", "address", "display_name", "kind", "staff_user", "active", "created_at" )
			values
				( 1, 'team@firm.example', 'Team', 'shared', null, 1, 1000 ) ;
		`)
}

// seedThread inserts a bare thread row to satisfy foreign keys.
func (s *baseDatabaseTestSuite) seedThread(id string) {
	s.requireExec(
		`
			insert into "threads" (
				"id", "subject", "subject_stem", "thread_key", "participants",
				"client_id", "first_message_at", "last_message_at", "message_count",
				"last_preview", "last_direction", "last_message_id", "state",
				"became_active_at", "created_at"
			) values (
				'` + id + `', 'Subject', 'subject', 'key', 'a@example.com',
				null, 1000, 1000, 0,
				'', 'inbound', '', 'active',
				1000, 1000
			) ;
		`)
}

// newMessage builds a message entity with enough defaults for an insert.
func (s *baseDatabaseTestSuite) newMessage(id, threadID string, position int64) *models.MessageEntity {
	return &models.MessageEntity{
		ID:                id,
		ThreadID:          threadID,
		ThreadPosition:    position,
		InternetMessageID: "<" + id + "@example.com>",
		ThreadKey:         "key",
		Direction:         models.DirectionInbound,
		Sender:            s.mustParseAddress("sender@example.com"),
		RecipientsTo:      models.AddressList{s.mustParseAddress("team@firm.example")},
		RecipientsCc:      models.AddressList{},
		Subject:           "Subject",
		SubjectStem:       "subject",
		Preview:           "preview",
		References:        models.StringList{},
		MatchConfidence:   models.ConfidenceHigh,
		MatchBasis:        models.BasisAliasExact,
		SentAt:            1000,
		ReceivedAt:        1000,
		CreatedAt:         1000,
	}
}
