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

// ClientAliasDao is a data access object for all client alias related queries.
// Aliases are stored with normalized addresses, lookups expect the caller to
// normalize first.
type ClientAliasDao interface {
	// Insert inserts a new alias.
	Insert(context.Context, Queryer, *models.ClientAliasEntity) error
	// Delete deletes an existing alias.
	Delete(context.Context, Queryer, *models.ClientAliasEntity) error
	// FindByClient returns all aliases of a client.
	FindByClient(context.Context, Queryer, int64) ([]models.ClientAliasEntity, error)
	// FindByAddress returns the alias entry for a normalized address.
	FindByAddress(context.Context, Queryer, models.Address) (*models.ClientAliasEntity, error)
	// FindAllNamed returns every alias that carries a person display name.
	FindAllNamed(context.Context, Queryer) ([]models.ClientAliasEntity, error)
}

// clientAliasDao is the sqlite implementation of ClientAliasDao.
type clientAliasDao struct{}

// NewClientAliasDao creates a new ClientAliasDao.
func NewClientAliasDao() ClientAliasDao {
	return clientAliasDao{}
}

func (clientAliasDao) Insert(ctx context.Context, q Queryer, alias *models.ClientAliasEntity) error {
	const query = `
		insert into "client_aliases" (
			"client_id" ,
			"address" ,
			"display_name" ,
			"created_at"
		) values (
			:client_id ,
			:address ,
			:display_name ,
			:created_at
		) ;
	`

	result, err := execNamed(ctx, q, query, alias)
	if err != nil {
		return err
	}

	if err := ensureRowsAffected(result); err != nil {
		return err
	}

	alias.ID, err = result.LastInsertId()
	return err
}

func (clientAliasDao) Delete(ctx context.Context, q Queryer, alias *models.ClientAliasEntity) error {
	const query = `
		delete from "client_aliases"
		where "id" = :id ;
	`

	result, err := execNamed(ctx, q, query, alias)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (clientAliasDao) FindByClient(
	ctx context.Context,
	q Queryer,
	clientID int64,
) ([]models.ClientAliasEntity, error) {
	const query = `
		select *
		from "client_aliases"
		where "client_id" = $1
		order by "address" ;
	`

	var aliasSlice []models.ClientAliasEntity

	if err := selectSlice(ctx, q, &aliasSlice, query, clientID); err != nil {
		return nil, err
	}

	return aliasSlice, nil
}

func (clientAliasDao) FindByAddress(
	ctx context.Context,
	q Queryer,
	address models.Address,
) (*models.ClientAliasEntity, error) {
	const query = `
		select *
		from "client_aliases"
		where "address" = $1
		limit 1 ;
	`

	var alias models.ClientAliasEntity

	if err := selectOne(ctx, q, &alias, query, address); err != nil {
		return nil, err
	}

	return &alias, nil
}

func (clientAliasDao) FindAllNamed(
	ctx context.Context,
	q Queryer,
) ([]models.ClientAliasEntity, error) {
	const query = `
		select *
		from "client_aliases"
		where "display_name" <> '' ;
	`

	var aliasSlice []models.ClientAliasEntity

	if err := selectSlice(ctx, q, &aliasSlice, query); err != nil {
		return nil, err
	}

	return aliasSlice, nil
}
