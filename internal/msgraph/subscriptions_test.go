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

package msgraph

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/models"
)

// alertRecorder collects alerts instead of escalating them.
type alertRecorder struct {
	summaries []string
}

func (a *alertRecorder) Alert(_ context.Context, summary string) {
	a.summaries = append(a.summaries, summary)
}

type SubscriptionsTestSuite struct {
	suite.Suite

	ctx        context.Context
	conn       database.Conn
	client     *MockClient
	alerts     *alertRecorder
	subscriber *Subscriber
	worker     *RenewalWorker

	inboxDao        database.InboxDao
	subscriptionDao database.SubscriptionDao

	inbox *models.InboxEntity
}

func TestSubscriptionsTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionsTestSuite))
}

func (s *SubscriptionsTestSuite) SetupTest() {
	viper.Set("storage.database.filename", ":memory:")
	viper.Set("storage.database.journalmode", "memory")
	viper.Set("sync.notificationurl", "https://hooks.ledgerline.example/webhooks/graph")
	viper.Set("sync.subscriptionttl", "168h")
	viper.Set("sync.renewlead", "24h")

	conn, err := database.OpenConnection()
	s.Require().NoError(err)

	s.ctx = context.TODO()
	s.conn = conn
	s.client = new(MockClient)
	s.alerts = new(alertRecorder)

	s.inboxDao = database.NewInboxDao()
	s.subscriptionDao = database.NewSubscriptionDao()

	s.subscriber = NewSubscriber(conn, s.client, s.inboxDao, s.subscriptionDao)
	s.worker = NewRenewalWorker(conn, s.client, s.alerts, s.inboxDao, s.subscriptionDao)

	s.inbox = s.seedInbox("office@ledgerline.example", true)
}

func (s *SubscriptionsTestSuite) TearDownTest() {
	s.client.AssertExpectations(s.T())
	s.NoError(s.conn.Close())
}

func (s *SubscriptionsTestSuite) TestSubscribeStoresSubscription() {
	expiry := time.Now().Add(100 * time.Hour).Truncate(time.Second)

	s.client.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(request SubscriptionRequest) bool {
		return request.Resource == "users/office@ledgerline.example/mailFolders('inbox')/messages" &&
			request.NotificationURL == "https://hooks.ledgerline.example/webhooks/graph" &&
			request.ClientState != ""
	})).
		Return(&SubscriptionResult{ID: "sub-1", ExpiresAt: expiry}, nil).
		Once()

	subscription, err := s.subscriber.Subscribe(s.ctx, s.inbox.ID, "inbox")
	s.Require().NoError(err)

	stored, err := s.subscriptionDao.FindByID(s.ctx, s.conn, "sub-1")
	s.Require().NoError(err)

	s.Equal(s.inbox.ID, stored.InboxID)
	s.Equal(subscription.ClientState, stored.ClientState)
	s.NotEmpty(stored.ClientState)
	s.Equal(expiry.Unix(), stored.ExpiresAt)
	s.False(stored.RenewedAt.Valid)
}

func (s *SubscriptionsTestSuite) TestSubscribeReplacesStaleSubscription() {
	s.seedSubscription("sub-0", "inbox", time.Now().Unix()-10)

	s.client.On("CreateSubscription", mock.Anything, mock.Anything).
		Return(&SubscriptionResult{ID: "sub-1", ExpiresAt: time.Now().Add(time.Hour)}, nil).
		Once()

	_, err := s.subscriber.Subscribe(s.ctx, s.inbox.ID, "inbox")
	s.Require().NoError(err)

	subscriptionSlice, err := s.subscriptionDao.FindByInbox(s.ctx, s.conn, s.inbox.ID)
	s.Require().NoError(err)

	s.Require().Len(subscriptionSlice, 1)
	s.Equal("sub-1", subscriptionSlice[0].ID)
}

func (s *SubscriptionsTestSuite) TestSubscribeDeletesOrphanWhenStoringFails() {
	// A row with the same provider id but another resource does not count as
	// stale and forces the insert into a conflict.
	s.seedSubscription("sub-1", "sentitems", time.Now().Unix()+100)

	s.client.On("CreateSubscription", mock.Anything, mock.Anything).
		Return(&SubscriptionResult{ID: "sub-1", ExpiresAt: time.Now().Add(time.Hour)}, nil).
		Once()

	s.client.On("DeleteSubscription", mock.Anything, "sub-1").
		Return(nil).
		Once()

	_, err := s.subscriber.Subscribe(s.ctx, s.inbox.ID, "inbox")
	s.Error(err)
}

func (s *SubscriptionsTestSuite) TestUnsubscribeRemovesSubscription() {
	s.seedSubscription("sub-1", "inbox", time.Now().Unix()+100)

	s.client.On("DeleteSubscription", mock.Anything, "sub-1").
		Return(nil).
		Once()

	s.Require().NoError(s.subscriber.Unsubscribe(s.ctx, "sub-1"))

	_, err := s.subscriptionDao.FindByID(s.ctx, s.conn, "sub-1")
	s.True(database.IsErrNoRows(err))
}

func (s *SubscriptionsTestSuite) TestUnsubscribeToleratesUnknownSubscription() {
	s.seedSubscription("sub-1", "inbox", time.Now().Unix()+100)

	s.client.On("DeleteSubscription", mock.Anything, "sub-1").
		Return(&ProviderError{StatusCode: http.StatusNotFound, Message: "unknown"}).
		Once()

	s.Require().NoError(s.subscriber.Unsubscribe(s.ctx, "sub-1"))

	_, err := s.subscriptionDao.FindByID(s.ctx, s.conn, "sub-1")
	s.True(database.IsErrNoRows(err))
}

func (s *SubscriptionsTestSuite) TestSweepRenewsInsideLeadWindow() {
	s.seedSubscription("sub-1", "inbox", time.Now().Add(time.Hour).Unix())

	renewedExpiry := time.Now().Add(168 * time.Hour).Truncate(time.Second)

	s.client.On("RenewSubscription", mock.Anything, "sub-1", mock.Anything).
		Return(&SubscriptionResult{ID: "sub-1", ExpiresAt: renewedExpiry}, nil).
		Once()

	s.Require().NoError(s.worker.Sweep(s.ctx))

	stored, err := s.subscriptionDao.FindByID(s.ctx, s.conn, "sub-1")
	s.Require().NoError(err)

	s.Equal(renewedExpiry.Unix(), stored.ExpiresAt)
	s.True(stored.RenewedAt.Valid)
	s.Empty(s.alerts.summaries)
}

func (s *SubscriptionsTestSuite) TestSweepLeavesDistantExpiryAlone() {
	s.seedSubscription("sub-1", "inbox", time.Now().Add(100*time.Hour).Unix())

	s.Require().NoError(s.worker.Sweep(s.ctx))

	stored, err := s.subscriptionDao.FindByID(s.ctx, s.conn, "sub-1")
	s.Require().NoError(err)
	s.False(stored.RenewedAt.Valid)
}

func (s *SubscriptionsTestSuite) TestSweepKeepsRowOnRenewFailure() {
	expiresAt := time.Now().Add(time.Hour).Unix()
	s.seedSubscription("sub-1", "inbox", expiresAt)

	s.client.On("RenewSubscription", mock.Anything, "sub-1", mock.Anything).
		Return(nil, &ProviderError{StatusCode: http.StatusBadGateway, Message: "upstream"}).
		Once()

	s.Require().NoError(s.worker.Sweep(s.ctx))

	stored, err := s.subscriptionDao.FindByID(s.ctx, s.conn, "sub-1")
	s.Require().NoError(err)

	s.Equal(expiresAt, stored.ExpiresAt)
	s.Empty(s.alerts.summaries)
}

func (s *SubscriptionsTestSuite) TestSweepEscalatesExpiredSubscription() {
	s.seedSubscription("sub-1", "inbox", time.Now().Unix()-10)

	s.Require().NoError(s.worker.Sweep(s.ctx))

	s.Require().Len(s.alerts.summaries, 1)
	s.Contains(s.alerts.summaries[0], "sub-1")

	inbox, err := s.inboxDao.FindByID(s.ctx, s.conn, s.inbox.ID)
	s.Require().NoError(err)
	s.False(inbox.Active)

	// The dead row stays visible for triage.
	_, err = s.subscriptionDao.FindByID(s.ctx, s.conn, "sub-1")
	s.NoError(err)
}

func (s *SubscriptionsTestSuite) TestSweepEscalatesOnlyOnce() {
	s.seedSubscription("sub-1", "inbox", time.Now().Unix()-10)

	s.Require().NoError(s.worker.Sweep(s.ctx))
	s.Require().NoError(s.worker.Sweep(s.ctx))

	s.Len(s.alerts.summaries, 1)
}

func (s *SubscriptionsTestSuite) seedInbox(address string, active bool) *models.InboxEntity {
	addr, err := models.ParseNormalized(address)
	s.Require().NoError(err)

	inbox := models.InboxEntity{
		Address:     addr,
		DisplayName: "Office",
		Kind:        models.InboxShared,
		Active:      active,
		CreatedAt:   1,
	}

	s.Require().NoError(s.inboxDao.Insert(s.ctx, s.conn, &inbox))
	return &inbox
}

func (s *SubscriptionsTestSuite) seedSubscription(id, folder string, expiresAt int64) {
	subscription := models.WebhookSubscriptionEntity{
		ID:          id,
		InboxID:     s.inbox.ID,
		Resource:    "users/office@ledgerline.example/mailFolders('" + folder + "')/messages",
		ClientState: "secret-" + id,
		ExpiresAt:   expiresAt,
		CreatedAt:   1,
	}

	s.Require().NoError(s.subscriptionDao.Insert(s.ctx, s.conn, &subscription))
}
