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

// ClientDao is a data access object for all client related queries.
type ClientDao interface {
	// Insert inserts a new client.
	Insert(context.Context, Queryer, *models.ClientEntity) error
	// Update updates an existing client.
	Update(context.Context, Queryer, *models.ClientEntity) error
	// FindAll returns all clients ordered by name.
	FindAll(context.Context, Queryer) ([]models.ClientEntity, error)
	// FindByID returns the client with the given id.
	FindByID(context.Context, Queryer, int64) (*models.ClientEntity, error)
}

// clientDao is the sqlite implementation of ClientDao.
type clientDao struct{}

// NewClientDao creates a new ClientDao.
func NewClientDao() ClientDao {
	return clientDao{}
}

func (clientDao) Insert(ctx context.Context, q Queryer, client *models.ClientEntity) error {
	const query = `
		insert into "clients" (
			"name" ,
			"created_at"
		) values (
			:name ,
			:created_at
		) ;
	`

	result, err := execNamed(ctx, q, query, client)
	if err != nil {
		return err
	}

	if err := ensureRowsAffected(result); err != nil {
		return err
	}

	client.ID, err = result.LastInsertId()
	return err
}

func (clientDao) Update(ctx context.Context, q Queryer, client *models.ClientEntity) error {
	const query = `
		update "clients"
		set "name" = :name
		where "id" = :id ;
	`

	result, err := execNamed(ctx, q, query, client)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (clientDao) FindAll(ctx context.Context, q Queryer) ([]models.ClientEntity, error) {
	const query = `
		select *
		from "clients"
		order by "name" ;
	`

	var clientSlice []models.ClientEntity

	if err := selectSlice(ctx, q, &clientSlice, query); err != nil {
		return nil, err
	}

	return clientSlice, nil
}

func (clientDao) FindByID(ctx context.Context, q Queryer, id int64) (*models.ClientEntity, error) {
	const query = `
		select *
		from "clients"
		where "id" = $1 ;
	`

	var client models.ClientEntity

	if err := selectOne(ctx, q, &client, query, id); err != nil {
		return nil, err
	}

	return &client, nil
}
