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

package ingest

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/ledgerline/mailroom/internal/crypto"
	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/match"
	"github.com/ledgerline/mailroom/internal/models"
	"github.com/ledgerline/mailroom/internal/storage"
	"github.com/ledgerline/mailroom/internal/thread"
)

// queueRecorder collects classification enqueues instead of running a worker.
type queueRecorder struct {
	ids []string
}

func (q *queueRecorder) Enqueue(messageID string) {
	q.ids = append(q.ids, messageID)
}

type PipelineTestSuite struct {
	suite.Suite

	ctx  context.Context
	conn database.Conn

	pipeline *Pipeline
	bodies   storage.Bodies
	queue    *queueRecorder

	inboxDao      database.InboxDao
	messageDao    database.MessageDao
	threadDao     database.ThreadDao
	inboxEmailDao database.InboxEmailDao
	unmatchedDao  database.UnmatchedDao

	inbox *models.InboxEntity
}

func TestPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (s *PipelineTestSuite) SetupTest() {
	viper.Set("storage.database.filename", ":memory:")
	viper.Set("storage.database.journalmode", "memory")
	viper.Set("match.enable", true)
	viper.Set("ingest.firmdomains", []string{})
	viper.Set("ingest.participantoverlap", 1.0)

	conn, err := database.OpenConnection()
	s.Require().NoError(err)

	s.ctx = context.TODO()
	s.conn = conn

	idGenerator := crypto.NewIDGenerator()

	s.bodies, err = storage.NewBodies(afero.NewMemMapFs(), idGenerator,
		storage.BodiesOptions{Foldername: "/bodies"})
	s.Require().NoError(err)

	s.inboxDao = database.NewInboxDao()
	s.messageDao = database.NewMessageDao()
	s.threadDao = database.NewThreadDao()
	s.inboxEmailDao = database.NewInboxEmailDao()
	s.unmatchedDao = database.NewUnmatchedDao()

	s.queue = new(queueRecorder)

	s.pipeline = NewPipeline(
		conn,
		NewNormalizer(),
		match.NewMatcher(database.NewClientAliasDao(), database.NewClientDomainDao()),
		thread.NewAggregator(s.threadDao, s.messageDao),
		s.queue,
		s.bodies,
		idGenerator,
		s.messageDao,
		s.threadDao,
		s.inboxEmailDao,
		s.unmatchedDao,
	)

	s.inbox = s.seedInbox("office@ledgerline.example")
}

func (s *PipelineTestSuite) TearDownTest() {
	s.NoError(s.conn.Close())
}

func (s *PipelineTestSuite) TestIngestMatchedInbound() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	envelope := s.inboundEnvelope("p1", "<m1@acme.example>", "Re: VAT Return Q3")
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, envelope, nil))

	message, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	s.Equal(models.DirectionInbound, message.Direction)
	s.Equal(models.ConfidenceHigh, message.MatchConfidence)
	s.Equal(models.BasisAliasExact, message.MatchBasis)
	s.Equal(clientID, message.ClientID.Int64)
	s.Equal("vat return q3", message.SubjectStem)
	s.EqualValues(1, message.ThreadPosition)

	conversation, err := s.threadDao.FindByID(s.ctx, s.conn, message.ThreadID)
	s.Require().NoError(err)

	s.EqualValues(1, conversation.MessageCount)
	s.Equal(models.SLAActive, conversation.State)
	s.Equal(clientID, conversation.ClientID.Int64)

	s.Require().True(message.BodyID.Valid)
	s.Equal("body of Re: VAT Return Q3", s.readBody(message.BodyID.String))

	email, err := s.inboxEmailDao.FindByInboxAndProviderID(s.ctx, s.conn, s.inbox.ID, "p1")
	s.Require().NoError(err)

	s.Equal(models.ReplyStatusPending, email.Status)
	s.Equal(message.ID, email.MessageID.String)
	s.EqualValues(message.ReceivedAt+48*3600, email.SLADeadline.Int64)

	s.Equal([]string{message.ID}, s.queue.ids)
}

func (s *PipelineTestSuite) TestIngestReplayIsNoOp() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	envelope := s.inboundEnvelope("p1", "<m1@acme.example>", "VAT Return Q3")
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, envelope, nil))
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, envelope, nil))

	message, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	count, err := s.messageDao.CountByThread(s.ctx, s.conn, message.ThreadID)
	s.Require().NoError(err)

	s.EqualValues(1, count)
	s.Len(s.queue.ids, 1)
}

func (s *PipelineTestSuite) TestIngestUnknownSenderParked() {
	envelope := s.inboundEnvelope("p1", "<m1@acme.example>", "VAT Return Q3")
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, envelope, nil))

	parked, err := s.unmatchedDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	s.Equal(models.ReasonNoClientMatch, parked.Reason)
	s.Equal("jane@acme.example", parked.Sender.String())
	s.False(parked.CandidateClientID.Valid)
	s.True(parked.BodyID.Valid)

	_, err = s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.True(database.IsErrNoRows(err))

	// The reply obligation starts while the mail is still unmatched.
	email, err := s.inboxEmailDao.FindByInboxAndProviderID(s.ctx, s.conn, s.inbox.ID, "p1")
	s.Require().NoError(err)

	s.Equal(models.ReplyStatusPending, email.Status)
	s.False(email.MessageID.Valid)

	s.Empty(s.queue.ids)

	// Replaying a parked mail is a no-op as well.
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, envelope, nil))

	queue, err := s.unmatchedDao.FindAll(s.ctx, s.conn)
	s.Require().NoError(err)
	s.Len(queue, 1)
}

func (s *PipelineTestSuite) TestIngestLowConfidenceNeverWritesClient() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	envelope := s.inboundEnvelope("p1", "<m1@other.example>", "VAT Return Q3")
	envelope.From = recipient("Roe, Jane", "jane.roe@web.example")

	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, envelope, nil))

	parked, err := s.unmatchedDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@other.example>")
	s.Require().NoError(err)

	s.Equal(models.ReasonNoContactMatch, parked.Reason)
	s.Equal(clientID, parked.CandidateClientID.Int64)
	s.Equal(models.BasisHeuristic, parked.CandidateBasis)

	_, err = s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@other.example>")
	s.True(database.IsErrNoRows(err))
}

func (s *PipelineTestSuite) TestIngestDisabledParked() {
	viper.Set("match.enable", false)
	defer viper.Set("match.enable", true)

	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	envelope := s.inboundEnvelope("p1", "<m1@acme.example>", "VAT Return Q3")
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, envelope, nil))

	parked, err := s.unmatchedDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	s.Equal(models.ReasonDisabled, parked.Reason)
}

func (s *PipelineTestSuite) TestIngestInternalMailHasNoClient() {
	envelope := s.inboundEnvelope("p1", "<m1@ledgerline.example>", "Team meeting")
	envelope.From = recipient("Payroll", "payroll@ledgerline.example")

	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, envelope, nil))

	message, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@ledgerline.example>")
	s.Require().NoError(err)

	s.Equal(models.DirectionInternal, message.Direction)
	s.False(message.ClientID.Valid)
	s.Equal(models.ConfidenceNone, message.MatchConfidence)

	// Internal mail is neither tracked nor classified.
	email, err := s.inboxEmailDao.FindByInboxAndProviderID(s.ctx, s.conn, s.inbox.ID, "p1")
	s.Require().NoError(err)

	s.Equal(models.ReplyStatusNone, email.Status)
	s.Empty(s.queue.ids)
}

func (s *PipelineTestSuite) TestIngestThreadsByReferences() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	first := s.inboundEnvelope("p1", "<m1@acme.example>", "VAT Return Q3")
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, first, nil))

	// The subject changed entirely, only the reply header connects them.
	second := s.inboundEnvelope("p2", "<m2@acme.example>", "One more thing")
	second.ReceivedDateTime = first.ReceivedDateTime.Add(time.Hour)
	second.InternetMessageHeaders = []Header{
		{Name: "In-Reply-To", Value: "<m1@acme.example>"},
	}

	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, second, nil))

	m1, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)
	m2, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m2@acme.example>")
	s.Require().NoError(err)

	s.Equal(m1.ThreadID, m2.ThreadID)
	s.EqualValues(2, m2.ThreadPosition)

	conversation, err := s.threadDao.FindByID(s.ctx, s.conn, m1.ThreadID)
	s.Require().NoError(err)

	s.EqualValues(2, conversation.MessageCount)
	s.Equal(m2.ID, conversation.LastMessageID)
}

func (s *PipelineTestSuite) TestIngestThreadsByConversationID() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	first := s.inboundEnvelope("p1", "<m1@acme.example>", "VAT Return Q3")
	first.ConversationID = "conv1"
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, first, nil))

	second := s.inboundEnvelope("p2", "<m2@acme.example>", "Missing receipts")
	second.ConversationID = "conv1"
	second.ReceivedDateTime = first.ReceivedDateTime.Add(time.Hour)
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, second, nil))

	m1, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)
	m2, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m2@acme.example>")
	s.Require().NoError(err)

	s.Equal(m1.ThreadID, m2.ThreadID)
}

func (s *PipelineTestSuite) TestIngestThreadsBySubjectFallback() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")
	s.seedAlias(clientID, "bob@acme.example", "Bob Shelby")

	first := s.inboundEnvelope("p1", "<m1@acme.example>", "VAT Return Q3")
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, first, nil))

	// Same stem and audience, no usable headers.
	second := s.inboundEnvelope("p2", "<m2@acme.example>", "Re: VAT Return Q3")
	second.ReceivedDateTime = first.ReceivedDateTime.Add(time.Hour)
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, second, nil))

	// Same stem, different audience.
	third := s.inboundEnvelope("p3", "<m3@acme.example>", "Re: VAT Return Q3")
	third.From = recipient("Bob Shelby", "bob@acme.example")
	third.ReceivedDateTime = first.ReceivedDateTime.Add(2 * time.Hour)
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, third, nil))

	m1, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)
	m2, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m2@acme.example>")
	s.Require().NoError(err)
	m3, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m3@acme.example>")
	s.Require().NoError(err)

	s.Equal(m1.ThreadID, m2.ThreadID)
	s.NotEqual(m1.ThreadID, m3.ThreadID)
}

func (s *PipelineTestSuite) TestIngestReopensCompletedThread() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	first := s.inboundEnvelope("p1", "<m1@acme.example>", "VAT Return Q3")
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, first, nil))

	m1, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	s.completeThread(m1.ThreadID)

	second := s.inboundEnvelope("p2", "<m2@acme.example>", "Re: VAT Return Q3")
	second.ReceivedDateTime = first.ReceivedDateTime.Add(time.Hour)
	second.InternetMessageHeaders = []Header{
		{Name: "In-Reply-To", Value: "<m1@acme.example>"},
	}

	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, second, nil))

	conversation, err := s.threadDao.FindByID(s.ctx, s.conn, m1.ThreadID)
	s.Require().NoError(err)

	s.Equal(models.SLAActive, conversation.State)
	s.Equal(second.ReceivedDateTime.Unix(), conversation.BecameActiveAt)
	s.False(conversation.CompletedAt.Valid)
}

func (s *PipelineTestSuite) TestIngestOutboundMarksReplied() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	inbound := s.inboundEnvelope("p1", "<m1@acme.example>", "VAT Return Q3")
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, inbound, nil))

	reply := s.inboundEnvelope("p2", "<m2@ledgerline.example>", "Re: VAT Return Q3")
	reply.From = recipient("Office", "office@ledgerline.example")
	reply.ToRecipients = []Recipient{recipient("Jane Roe", "jane@acme.example")}
	reply.ReceivedDateTime = inbound.ReceivedDateTime.Add(time.Hour)
	reply.InternetMessageHeaders = []Header{
		{Name: "In-Reply-To", Value: "<m1@acme.example>"},
	}

	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, reply, nil))

	email, err := s.inboxEmailDao.FindByInboxAndProviderID(s.ctx, s.conn, s.inbox.ID, "p1")
	s.Require().NoError(err)

	s.Equal(models.ReplyStatusReplied, email.Status)
	s.Equal(reply.ReceivedDateTime.Unix(), email.RepliedAt.Int64)

	// The reply itself is outbound and therefore untracked.
	replyEmail, err := s.inboxEmailDao.FindByInboxAndProviderID(s.ctx, s.conn, s.inbox.ID, "p2")
	s.Require().NoError(err)

	s.Equal(models.ReplyStatusNone, replyEmail.Status)
}

func (s *PipelineTestSuite) TestIngestOutOfOrderKeepsLatestRollups() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	late := s.inboundEnvelope("p1", "<m2@acme.example>", "Re: VAT Return Q3")
	late.ReceivedDateTime = time.Unix(2000, 0)
	late.InternetMessageHeaders = []Header{
		{Name: "In-Reply-To", Value: "<m1@acme.example>"},
	}

	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, late, nil))

	early := s.inboundEnvelope("p2", "<m1@acme.example>", "VAT Return Q3")
	early.ReceivedDateTime = time.Unix(1500, 0)

	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, early, nil))

	m2, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m2@acme.example>")
	s.Require().NoError(err)
	m1, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	// The parent arrived second and is grouped by the child's reply header.
	s.Equal(m2.ThreadID, m1.ThreadID)
	s.EqualValues(1, m2.ThreadPosition)
	s.EqualValues(2, m1.ThreadPosition)

	conversation, err := s.threadDao.FindByID(s.ctx, s.conn, m2.ThreadID)
	s.Require().NoError(err)

	s.EqualValues(1500, conversation.FirstMessageAt)
	s.EqualValues(2000, conversation.LastMessageAt)
	s.Equal(m2.ID, conversation.LastMessageID)
}

func (s *PipelineTestSuite) TestIngestSecondInboxRecordsSighting() {
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	shared := s.seedInbox("shared@ledgerline.example")

	envelope := s.inboundEnvelope("p1", "<m1@acme.example>", "VAT Return Q3")
	envelope.ToRecipients = append(envelope.ToRecipients,
		recipient("Shared", "shared@ledgerline.example"))

	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, envelope, nil))

	// The same mail synced through the second mailbox under another
	// provider id.
	sighting := *envelope
	sighting.ID = "p2"

	s.Require().NoError(s.pipeline.Ingest(s.ctx, shared, &sighting, nil))

	message, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	count, err := s.messageDao.CountByThread(s.ctx, s.conn, message.ThreadID)
	s.Require().NoError(err)
	s.EqualValues(1, count)

	email, err := s.inboxEmailDao.FindByInboxAndProviderID(s.ctx, s.conn, shared.ID, "p2")
	s.Require().NoError(err)

	s.Equal(message.ID, email.MessageID.String)
	s.Equal(models.ReplyStatusPending, email.Status)

	s.Len(s.queue.ids, 1)
}

func (s *PipelineTestSuite) TestPromoteParkedMail() {
	envelope := s.inboundEnvelope("p1", "<m1@acme.example>", "VAT Return Q3")
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, envelope, nil))

	parked, err := s.unmatchedDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	clientID := s.seedClient("Acme Ltd")

	resolution := match.Match{
		Tier:     models.ConfidenceHigh,
		ClientID: clientID,
		Basis:    models.BasisAliasExact,
	}

	s.Require().NoError(s.pipeline.Promote(s.ctx, parked, resolution))

	message, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	s.Equal(clientID, message.ClientID.Int64)
	s.Equal(models.ConfidenceHigh, message.MatchConfidence)
	s.Equal(parked.BodyID, message.BodyID)

	_, err = s.unmatchedDao.FindByID(s.ctx, s.conn, parked.ID)
	s.True(database.IsErrNoRows(err))

	email, err := s.inboxEmailDao.FindByInboxAndProviderID(s.ctx, s.conn, s.inbox.ID, "p1")
	s.Require().NoError(err)

	s.Equal(message.ID, email.MessageID.String)
	s.Equal(clientID, email.ClientID.Int64)
	s.Equal(models.ReplyStatusPending, email.Status)

	s.Equal([]string{message.ID}, s.queue.ids)
}

func (s *PipelineTestSuite) TestPromoteAlreadyIngestedClearsQueue() {
	envelope := s.inboundEnvelope("p1", "<m1@acme.example>", "VAT Return Q3")
	s.Require().NoError(s.pipeline.Ingest(s.ctx, s.inbox, envelope, nil))

	parked, err := s.unmatchedDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	// The mail got matched through another path in the meantime.
	clientID := s.seedClient("Acme Ltd")
	s.seedAlias(clientID, "jane@acme.example", "Jane Roe")

	replay := s.inboundEnvelope("p2", "<m1@acme.example>", "VAT Return Q3")
	shared := s.seedInbox("shared@ledgerline.example")
	replay.ToRecipients = append(replay.ToRecipients,
		recipient("Shared", "shared@ledgerline.example"))

	s.Require().NoError(s.pipeline.Ingest(s.ctx, shared, replay, nil))

	resolution := match.Match{
		Tier:     models.ConfidenceHigh,
		ClientID: clientID,
		Basis:    models.BasisAliasExact,
	}

	s.Require().NoError(s.pipeline.Promote(s.ctx, parked, resolution))

	message, err := s.messageDao.FindByInternetMessageID(s.ctx, s.conn, "<m1@acme.example>")
	s.Require().NoError(err)

	count, err := s.messageDao.CountByThread(s.ctx, s.conn, message.ThreadID)
	s.Require().NoError(err)
	s.EqualValues(1, count)

	_, err = s.unmatchedDao.FindByID(s.ctx, s.conn, parked.ID)
	s.True(database.IsErrNoRows(err))

	s.Len(s.queue.ids, 1)
}

func (s *PipelineTestSuite) seedInbox(address string) *models.InboxEntity {
	inbox := models.InboxEntity{
		Address:     mustParseAddr(s.T(), address),
		DisplayName: "Office",
		Kind:        models.InboxShared,
		Active:      true,
		CreatedAt:   1,
	}

	s.Require().NoError(s.inboxDao.Insert(s.ctx, s.conn, &inbox))
	return &inbox
}

func (s *PipelineTestSuite) seedClient(name string) int64 {
	client := models.ClientEntity{Name: name, CreatedAt: 1}
	s.Require().NoError(database.NewClientDao().Insert(s.ctx, s.conn, &client))

	return client.ID
}

func (s *PipelineTestSuite) seedAlias(clientID int64, address, displayName string) {
	alias := models.ClientAliasEntity{
		ClientID:    clientID,
		Address:     mustParseAddr(s.T(), address),
		DisplayName: displayName,
		CreatedAt:   1,
	}

	s.Require().NoError(database.NewClientAliasDao().Insert(s.ctx, s.conn, &alias))
}

func (s *PipelineTestSuite) completeThread(threadID string) {
	conversation, err := s.threadDao.FindByID(s.ctx, s.conn, threadID)
	s.Require().NoError(err)

	conversation.State = models.SLAComplete
	conversation.CompletedAt = nullInt64(5000)
	conversation.CompletedBy = nullStr("jane.doe")

	s.Require().NoError(s.threadDao.Update(s.ctx, s.conn, conversation))
}

func (s *PipelineTestSuite) readBody(id string) string {
	r, err := s.bodies.Reader(id)
	s.Require().NoError(err)

	defer r.Close()

	content, err := io.ReadAll(r)
	s.Require().NoError(err)

	return string(content)
}

func (s *PipelineTestSuite) inboundEnvelope(providerID, internetMessageID, subject string) *Envelope {
	return &Envelope{
		ID:                providerID,
		InternetMessageID: internetMessageID,
		Subject:           subject,
		BodyPreview:       "preview of " + subject,
		Body:              Body{ContentType: "text", Content: "body of " + subject},
		From:              recipient("Jane Roe", "jane@acme.example"),
		ToRecipients:      []Recipient{recipient("Office", "office@ledgerline.example")},
		SentDateTime:      time.Unix(990, 0),
		ReceivedDateTime:  time.Unix(1000, 0),
	}
}

func recipient(name, address string) Recipient {
	return Recipient{EmailAddress: EmailAddress{Name: name, Address: address}}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func nullStr(v string) sql.NullString {
	return sql.NullString{String: v, Valid: true}
}

func TestContainment(t *testing.T) {
	for _, testCase := range []struct {
		a        string
		b        string
		expected float64
	}{
		{"a@x.example|b@y.example", "a@x.example|b@y.example", 1},
		{"a@x.example|b@y.example|c@z.example", "a@x.example|b@y.example", 1},
		{"a@x.example|b@y.example", "a@x.example|c@z.example", 0.5},
		{"a@x.example", "b@y.example", 0},
		{"", "a@x.example", 0},
	} {
		assert.InDelta(t, testCase.expected, containment(testCase.a, testCase.b), 0.001,
			"a = %q, b = %q", testCase.a, testCase.b)
	}
}
