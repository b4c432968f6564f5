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

	"github.com/ledgerline/mailroom/internal/models"
)

// SubscriptionDao is a data access object for webhook subscriptions.
type SubscriptionDao interface {
	// Insert inserts a new subscription.
	Insert(context.Context, Queryer, *models.WebhookSubscriptionEntity) error
	// Update updates the expiry bookkeeping of a subscription.
	Update(context.Context, Queryer, *models.WebhookSubscriptionEntity) error
	// Delete deletes an existing subscription.
	Delete(context.Context, Queryer, *models.WebhookSubscriptionEntity) error
	// FindAll returns all subscriptions.
	FindAll(context.Context, Queryer) ([]models.WebhookSubscriptionEntity, error)
	// FindByID returns the subscription with the given provider id.
	FindByID(context.Context, Queryer, string) (*models.WebhookSubscriptionEntity, error)
	// FindByInbox returns all subscriptions of an inbox.
	FindByInbox(context.Context, Queryer, int64) ([]models.WebhookSubscriptionEntity, error)
	// FindExpiringBefore returns subscriptions whose expiry lies before the
	// given deadline.
	FindExpiringBefore(context.Context, Queryer, int64) ([]models.WebhookSubscriptionEntity, error)
}

// subscriptionDao is the sqlite implementation of SubscriptionDao.
type subscriptionDao struct{}

// NewSubscriptionDao creates a new SubscriptionDao.
func NewSubscriptionDao() SubscriptionDao {
	return subscriptionDao{}
}

func (subscriptionDao) Insert(
	ctx context.Context,
	q Queryer,
	subscription *models.WebhookSubscriptionEntity,
) error {
	const query = `
		insert into "webhook_subscriptions" (
			"id" ,
			"inbox_id" ,
			"resource" ,
			"client_state" ,
			"expires_at" ,
			"renewed_at" ,
			"created_at"
		) values (
			:id ,
			:inbox_id ,
			:resource ,
			:client_state ,
			:expires_at ,
			:renewed_at ,
			:created_at
		) ;
	`

	result, err := execNamed(ctx, q, query, subscription)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (subscriptionDao) Update(
	ctx context.Context,
	q Queryer,
	subscription *models.WebhookSubscriptionEntity,
) error {
	const query = `
		update "webhook_subscriptions"
		set "expires_at" = :expires_at ,
		    "renewed_at" = :renewed_at
		where "id" = :id ;
	`

	result, err := execNamed(ctx, q, query, subscription)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (subscriptionDao) Delete(
	ctx context.Context,
	q Queryer,
	subscription *models.WebhookSubscriptionEntity,
) error {
	const query = `
		delete from "webhook_subscriptions"
		where "id" = :id ;
	`

	result, err := execNamed(ctx, q, query, subscription)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (subscriptionDao) FindAll(
	ctx context.Context,
	q Queryer,
) ([]models.WebhookSubscriptionEntity, error) {
	const query = `
		select *
		from "webhook_subscriptions"
		order by "expires_at" ;
	`

	var subscriptionSlice []models.WebhookSubscriptionEntity

	if err := selectSlice(ctx, q, &subscriptionSlice, query); err != nil {
		return nil, err
	}

	return subscriptionSlice, nil
}

func (subscriptionDao) FindByID(
	ctx context.Context,
	q Queryer,
	id string,
) (*models.WebhookSubscriptionEntity, error) {
	const query = `
		select *
		from "webhook_subscriptions"
		where "id" = $1 ;
	`

	var subscription models.WebhookSubscriptionEntity

	if err := selectOne(ctx, q, &subscription, query, id); err != nil {
		return nil, err
	}

	return &subscription, nil
}

func (subscriptionDao) FindByInbox(
	ctx context.Context,
	q Queryer,
	inboxID int64,
) ([]models.WebhookSubscriptionEntity, error) {
	const query = `
		select *
		from "webhook_subscriptions"
		where "inbox_id" = $1
		order by "resource" ;
	`

	var subscriptionSlice []models.WebhookSubscriptionEntity

	if err := selectSlice(ctx, q, &subscriptionSlice, query, inboxID); err != nil {
		return nil, err
	}

	return subscriptionSlice, nil
}

func (subscriptionDao) FindExpiringBefore(
	ctx context.Context,
	q Queryer,
	deadline int64,
) ([]models.WebhookSubscriptionEntity, error) {
	const query = `
		select *
		from "webhook_subscriptions"
		where "expires_at" < $1
		order by "expires_at" ;
	`

	var subscriptionSlice []models.WebhookSubscriptionEntity

	if err := selectSlice(ctx, q, &subscriptionSlice, query, deadline); err != nil {
		return nil, err
	}

	return subscriptionSlice, nil
}
