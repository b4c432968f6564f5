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

package quarantine

import (
	"time"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/ingest"
	"github.com/ledgerline/mailroom/internal/models"
)

func (s *QuarantineTestSuite) TestSweepPromotesNewlyResolvable() {
	parked := s.parkMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	s.Require().NoError(s.reconciler.sweep(s.ctx))

	message, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	s.Equal(clientID, message.ClientID.Int64)
	s.Equal(models.ConfidenceHigh, message.MatchConfidence)

	_, err = s.unmatchedDao.FindByID(s.ctx, s.conn, parked.ID)
	s.True(database.IsErrNoRows(err))

	// The promoted mail keeps its reply tracking.
	email, err := s.inboxEmailDao.FindByInboxAndProviderID(s.ctx, s.conn, s.inbox.ID, "p1")
	s.Require().NoError(err)

	s.Equal(message.ID, email.MessageID.String)
	s.Equal(models.ReplyStatusPending, email.Status)
}

func (s *QuarantineTestSuite) TestSweepRecordsFailedAttempts() {
	parked := s.parkMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	s.Require().NoError(s.reconciler.sweep(s.ctx))
	s.Require().NoError(s.reconciler.sweep(s.ctx))

	parked, err := s.unmatchedDao.FindByID(s.ctx, s.conn, parked.ID)
	s.Require().NoError(err)

	s.Equal(2, parked.RetryCount)
	s.True(parked.LastAttemptAt.Valid)
	s.False(parked.CandidateClientID.Valid)
}

func (s *QuarantineTestSuite) TestSweepRefreshesCandidate() {
	parked := s.parkMail("p1", "<m1@web.example>", "jane.roe@web.example", "Roe, Jane")

	// A similar display name on another address is only a candidate, the
	// mail stays parked until somebody confirms it.
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	s.Require().NoError(s.reconciler.sweep(s.ctx))

	parked, err := s.unmatchedDao.FindByID(s.ctx, s.conn, parked.ID)
	s.Require().NoError(err)

	s.Equal(1, parked.RetryCount)
	s.Equal(clientID, parked.CandidateClientID.Int64)
	s.Equal(models.BasisHeuristic, parked.CandidateBasis)

	_, err = s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@web.example>")
	s.True(database.IsErrNoRows(err))
}

func (s *QuarantineTestSuite) TestSweepAlreadyIngestedIsNoDuplicate() {
	parked := s.parkMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	// The same mail got matched through a second mailbox in the meantime.
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	shared := &models.InboxEntity{
		Address:     s.mustParseAddr("shared@ledgerline.example"),
		DisplayName: "Shared",
		Kind:        models.InboxShared,
		Active:      true,
		CreatedAt:   1,
	}
	s.Require().NoError(database.NewInboxDao().Insert(s.ctx, s.conn, shared))

	envelope := &ingest.Envelope{
		ID:                "p2",
		InternetMessageID: "<m1@acme.example>",
		Subject:           "VAT Return Q3",
		BodyPreview:       "please find attached",
		From: ingest.Recipient{
			EmailAddress: ingest.EmailAddress{Name: "Jane Roe", Address: "jane@acme.example"},
		},
		ToRecipients: []ingest.Recipient{
			{EmailAddress: ingest.EmailAddress{Name: "Shared", Address: "shared@ledgerline.example"}},
		},
		SentDateTime:     time.Unix(990, 0),
		ReceivedDateTime: time.Unix(1000, 0),
	}

	s.Require().NoError(s.pipeline.Ingest(s.ctx, shared, envelope, nil))

	s.Require().NoError(s.reconciler.sweep(s.ctx))

	message, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	count, err := s.messageDao.CountByThread(s.ctx, s.conn, message.ThreadID)
	s.Require().NoError(err)
	s.EqualValues(1, count)

	_, err = s.unmatchedDao.FindByID(s.ctx, s.conn, parked.ID)
	s.True(database.IsErrNoRows(err))
}

func (s *QuarantineTestSuite) TestWakeUpRunsSweepInBackground() {
	parked := s.parkMail("p1", "<m1@acme.example>", "jane@acme.example", "Jane Roe")

	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	s.reconciler.WakeUp()

	s.Eventually(func() bool {
		_, err := s.unmatchedDao.FindByID(s.ctx, s.conn, parked.ID)
		return database.IsErrNoRows(err)
	}, 5*time.Second, 10*time.Millisecond)
}
