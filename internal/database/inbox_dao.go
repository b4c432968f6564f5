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

// InboxDao is a data access object for all managed mailbox queries.
type InboxDao interface {
	// Insert inserts a new inbox.
	Insert(context.Context, Queryer, *models.InboxEntity) error
	// Update updates an existing inbox.
	Update(context.Context, Queryer, *models.InboxEntity) error
	// FindAll returns all inboxes.
	FindAll(context.Context, Queryer) ([]models.InboxEntity, error)
	// FindAllActive returns all inboxes that take part in syncing.
	FindAllActive(context.Context, Queryer) ([]models.InboxEntity, error)
	// FindByID returns the inbox with the given id.
	FindByID(context.Context, Queryer, int64) (*models.InboxEntity, error)
	// FindByAddress returns the inbox with the given address.
	FindByAddress(context.Context, Queryer, models.Address) (*models.InboxEntity, error)
}

// inboxDao is the sqlite implementation of InboxDao.
type inboxDao struct{}

// NewInboxDao creates a new InboxDao.
func NewInboxDao() InboxDao {
	return inboxDao{}
}

func (inboxDao) Insert(ctx context.Context, q Queryer, inbox *models.InboxEntity) error {
	const query = `
		insert into "inboxes" (
			"address" ,
			"display_name" ,
			"kind" ,
			"staff_user" ,
			"active" ,
			"created_at"
		) values (
			:address ,
			:display_name ,
			:kind ,
			:staff_user ,
			:active ,
			:created_at
		) ;
	`

	result, err := execNamed(ctx, q, query, inbox)
	if err != nil {
		return err
	}

	if err := ensureRowsAffected(result); err != nil {
		return err
	}

	inbox.ID, err = result.LastInsertId()
	return err
}

func (inboxDao) Update(ctx context.Context, q Queryer, inbox *models.InboxEntity) error {
	const query = `
		update "inboxes"
		set "display_name" = :display_name ,
		    "kind" = :kind ,
		    "staff_user" = :staff_user ,
		    "active" = :active
		where "id" = :id ;
	`

	result, err := execNamed(ctx, q, query, inbox)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (inboxDao) FindAll(ctx context.Context, q Queryer) ([]models.InboxEntity, error) {
	const query = `
		select *
		from "inboxes"
		order by "address" ;
	`

	var inboxSlice []models.InboxEntity

	if err := selectSlice(ctx, q, &inboxSlice, query); err != nil {
		return nil, err
	}

	return inboxSlice, nil
}

func (inboxDao) FindAllActive(ctx context.Context, q Queryer) ([]models.InboxEntity, error) {
	const query = `
		select *
		from "inboxes"
		where "active" = 1
		order by "address" ;
	`

	var inboxSlice []models.InboxEntity

	if err := selectSlice(ctx, q, &inboxSlice, query); err != nil {
		return nil, err
	}

	return inboxSlice, nil
}

func (inboxDao) FindByID(ctx context.Context, q Queryer, id int64) (*models.InboxEntity, error) {
	const query = `
		select *
		from "inboxes"
		where "id" = $1 ;
	`

	var inbox models.InboxEntity

	if err := selectOne(ctx, q, &inbox, query, id); err != nil {
		return nil, err
	}

	return &inbox, nil
}

func (inboxDao) FindByAddress(
	ctx context.Context,
	q Queryer,
	address models.Address,
) (*models.InboxEntity, error) {
	const query = `
		select *
		from "inboxes"
		where "address" = $1
		limit 1 ;
	`

	var inbox models.InboxEntity

	if err := selectOne(ctx, q, &inbox, query, address); err != nil {
		return nil, err
	}

	return &inbox, nil
}
