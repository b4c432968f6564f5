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

// ClientDomainDao is a data access object for all allow-listed domain queries.
// Domain names are stored in unicode normal form.
type ClientDomainDao interface {
	// Insert inserts a new domain entry.
	Insert(context.Context, Queryer, *models.ClientDomainEntity) error
	// Delete deletes an existing domain entry.
	Delete(context.Context, Queryer, *models.ClientDomainEntity) error
	// FindByClient returns all domain entries of a client.
	FindByClient(context.Context, Queryer, int64) ([]models.ClientDomainEntity, error)
	// FindByName returns the domain entry with the given name.
	FindByName(context.Context, Queryer, string) (*models.ClientDomainEntity, error)
}

// clientDomainDao is the sqlite implementation of ClientDomainDao.
type clientDomainDao struct{}

// NewClientDomainDao creates a new ClientDomainDao.
func NewClientDomainDao() ClientDomainDao {
	return clientDomainDao{}
}

func (clientDomainDao) Insert(
	ctx context.Context,
	q Queryer,
	domain *models.ClientDomainEntity,
) error {
	const query = `
		insert into "client_domains" (
			"client_id" ,
			"name" ,
			"created_at"
		) values (
			:client_id ,
			:name ,
			:created_at
		) ;
	`

	result, err := execNamed(ctx, q, query, domain)
	if err != nil {
		return err
	}

	if err := ensureRowsAffected(result); err != nil {
		return err
	}

	domain.ID, err = result.LastInsertId()
	return err
}

func (clientDomainDao) Delete(
	ctx context.Context,
	q Queryer,
	domain *models.ClientDomainEntity,
) error {
	const query = `
		delete from "client_domains"
		where "id" = :id ;
	`

	result, err := execNamed(ctx, q, query, domain)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (clientDomainDao) FindByClient(
	ctx context.Context,
	q Queryer,
	clientID int64,
) ([]models.ClientDomainEntity, error) {
	const query = `
		select *
		from "client_domains"
		where "client_id" = $1
		order by "name" ;
	`

	var domainSlice []models.ClientDomainEntity

	if err := selectSlice(ctx, q, &domainSlice, query, clientID); err != nil {
		return nil, err
	}

	return domainSlice, nil
}

func (clientDomainDao) FindByName(
	ctx context.Context,
	q Queryer,
	name string,
) (*models.ClientDomainEntity, error) {
	const query = `
		select *
		from "client_domains"
		where "name" = $1
		limit 1 ;
	`

	var domain models.ClientDomainEntity

	if err := selectOne(ctx, q, &domain, query, name); err != nil {
		return nil, err
	}

	return &domain, nil
}
