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
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/models"
)

func init() {
	viper.SetDefault("sync.notificationurl", "")
	viper.SetDefault("sync.subscriptionttl", "168h")
	viper.SetDefault("sync.renewlead", "24h")
	viper.SetDefault("sync.renewinterval", "15m")
}

// Subscriber manages the provider webhook subscriptions of the managed
// inboxes.
type Subscriber struct {
	database        database.Conn
	client          Client
	inboxDao        database.InboxDao
	subscriptionDao database.SubscriptionDao
}

// NewSubscriber creates a new Subscriber.
func NewSubscriber(
	conn database.Conn,
	client Client,
	inboxDao database.InboxDao,
	subscriptionDao database.SubscriptionDao,
) *Subscriber {
	return &Subscriber{
		database:        conn,
		client:          client,
		inboxDao:        inboxDao,
		subscriptionDao: subscriptionDao,
	}
}

// Subscribe registers a webhook subscription for new mail in a folder of an
// inbox. The generated client state is a shared secret the provider echoes
// back on every notification. A stale subscription for the same folder is
// replaced.
func (s *Subscriber) Subscribe(
	ctx context.Context,
	inboxID int64,
	folder string,
) (*models.WebhookSubscriptionEntity, error) {
	inbox, err := s.inboxDao.FindByID(ctx, s.database, inboxID)
	if err != nil {
		return nil, err
	}

	var (
		resource    = fmt.Sprintf("users/%s/mailFolders('%s')/messages", inbox.Address, folder)
		clientState = uuid.NewString()
	)

	created, err := s.client.CreateSubscription(ctx, SubscriptionRequest{
		Resource:        resource,
		NotificationURL: viper.GetString("sync.notificationurl"),
		ClientState:     clientState,
		ExpiresAt:       time.Now().Add(viper.GetDuration("sync.subscriptionttl")),
	})

	if err != nil {
		return nil, err
	}

	subscription := models.WebhookSubscriptionEntity{
		ID:          created.ID,
		InboxID:     inbox.ID,
		Resource:    resource,
		ClientState: clientState,
		ExpiresAt:   created.ExpiresAt.Unix(),
		CreatedAt:   time.Now().Unix(),
	}

	if err := s.replaceSubscription(ctx, &subscription); err != nil {
		return nil, err
	}

	log.InfoContext(log.WithInbox(ctx, inbox.ID)).
		Str("subscription", subscription.ID).
		Str("resource", resource).
		Msg("subscribed to provider notifications")

	return &subscription, nil
}

// replaceSubscription stores a freshly created subscription and drops stale
// rows of the same resource. When the local write fails, the provider side
// subscription is deleted again, otherwise it would notify forever without a
// matching client state on record.
func (s *Subscriber) replaceSubscription(
	ctx context.Context,
	subscription *models.WebhookSubscriptionEntity,
) error {
	tx, err := s.database.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.RollbackWith(s.rollbackSubscription(ctx, subscription.ID))

	staleSlice, err := s.subscriptionDao.FindByInbox(ctx, tx, subscription.InboxID)
	if err != nil {
		return err
	}

	for i := range staleSlice {
		if staleSlice[i].Resource != subscription.Resource {
			continue
		}

		if err := s.subscriptionDao.Delete(ctx, tx, &staleSlice[i]); err != nil {
			return err
		}
	}

	if err := s.subscriptionDao.Insert(ctx, tx, subscription); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Subscriber) rollbackSubscription(ctx context.Context, id string) func() {
	return func() {
		if err := s.client.DeleteSubscription(ctx, id); err != nil {
			log.WarnContext(ctx).
				Err(err).
				Str("subscription", id).
				Msg("could not delete orphaned subscription")
		}
	}
}

// Unsubscribe deletes a subscription at the provider and locally. A
// subscription the provider no longer knows is already gone, local cleanup
// proceeds anyway.
func (s *Subscriber) Unsubscribe(ctx context.Context, subscriptionID string) error {
	subscription, err := s.subscriptionDao.FindByID(ctx, s.database, subscriptionID)
	if err != nil {
		return err
	}

	if err := s.client.DeleteSubscription(ctx, subscription.ID); err != nil {
		var providerErr *ProviderError
		if !errors.As(err, &providerErr) || providerErr.StatusCode != http.StatusNotFound {
			return err
		}
	}

	return s.subscriptionDao.Delete(ctx, s.database, subscription)
}

// RenewalWorker keeps webhook subscriptions alive. Subscriptions are renewed
// inside a lead window before their expiry. A subscription that expired
// anyway means notifications are already being missed, which is silent data
// loss: the inbox is taken out of rotation and an alert raised.
type RenewalWorker struct {
	database        database.Conn
	client          Client
	alerter         Alerter
	inboxDao        database.InboxDao
	subscriptionDao database.SubscriptionDao
}

// NewRenewalWorker creates a new RenewalWorker.
func NewRenewalWorker(
	conn database.Conn,
	client Client,
	alerter Alerter,
	inboxDao database.InboxDao,
	subscriptionDao database.SubscriptionDao,
) *RenewalWorker {
	return &RenewalWorker{
		database:        conn,
		client:          client,
		alerter:         alerter,
		inboxDao:        inboxDao,
		subscriptionDao: subscriptionDao,
	}
}

// Run sweeps the subscriptions on a fixed interval until ctx is cancelled.
func (w *RenewalWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(viper.GetDuration("sync.renewinterval"))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				log.ErrorContext(ctx).
					Err(err).
					Msg("could not sweep subscriptions")
			}
		}
	}
}

// Sweep renews every subscription due inside the lead window. Expired
// subscriptions are escalated instead of renewed, a renew cannot bring back
// the notifications missed since the expiry.
func (w *RenewalWorker) Sweep(ctx context.Context) error {
	deadline := time.Now().Add(viper.GetDuration("sync.renewlead"))

	dueSlice, err := w.subscriptionDao.FindExpiringBefore(ctx, w.database, deadline.Unix())
	if err != nil {
		return err
	}

	now := time.Now().Unix()

	for i := range dueSlice {
		subscription := &dueSlice[i]

		if subscription.ExpiresAt <= now {
			w.escalateExpired(ctx, subscription)
			continue
		}

		w.renew(ctx, subscription)
	}

	return nil
}

// renew extends a subscription at the provider and records the new expiry.
// A failed renew is retried on the next sweep, persistent failure eventually
// trips the expiry escalation.
func (w *RenewalWorker) renew(ctx context.Context, subscription *models.WebhookSubscriptionEntity) {
	expiresAt := time.Now().Add(viper.GetDuration("sync.subscriptionttl"))

	renewed, err := w.client.RenewSubscription(ctx, subscription.ID, expiresAt)
	if err != nil {
		log.ErrorContext(ctx).
			Err(err).
			Str("subscription", subscription.ID).
			Msg("could not renew subscription")

		return
	}

	subscription.ExpiresAt = renewed.ExpiresAt.Unix()
	subscription.RenewedAt = sql.NullInt64{Int64: time.Now().Unix(), Valid: true}

	if err := w.subscriptionDao.Update(ctx, w.database, subscription); err != nil {
		log.ErrorContext(ctx).
			Err(err).
			Str("subscription", subscription.ID).
			Msg("could not record subscription renewal")

		return
	}

	log.InfoContext(ctx).
		Str("subscription", subscription.ID).
		Time("expires", renewed.ExpiresAt).
		Msg("renewed subscription")
}

// escalateExpired handles a subscription that ran out. The inbox is
// deactivated until an operator resubscribes and a fresh delta sync closes
// the gap. The dead subscription row stays visible for triage. An inbox that
// is already inactive was escalated before.
func (w *RenewalWorker) escalateExpired(ctx context.Context, subscription *models.WebhookSubscriptionEntity) {
	ctx = log.WithInbox(ctx, subscription.InboxID)

	inbox, err := w.inboxDao.FindByID(ctx, w.database, subscription.InboxID)
	if err != nil {
		log.ErrorContext(ctx).
			Err(err).
			Str("subscription", subscription.ID).
			Msg("could not load inbox of expired subscription")

		return
	}

	if !inbox.Active {
		return
	}

	w.alerter.Alert(ctx, fmt.Sprintf(
		"webhook subscription %s of inbox %q expired, notifications are being missed",
		subscription.ID, inbox.Address))

	inbox.Active = false

	if err := w.inboxDao.Update(ctx, w.database, inbox); err != nil {
		log.ErrorContext(ctx).
			Err(err).
			Msg("could not deactivate inbox")

		return
	}

	log.ErrorContext(ctx).
		Str("subscription", subscription.ID).
		Msg("inbox deactivated after subscription expiry")
}
