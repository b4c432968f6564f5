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

// OverrideDao is a data access object for human classification overrides.
// The table is append-only, there is no update or delete.
type OverrideDao interface {
	// Insert appends a new override.
	Insert(context.Context, Queryer, *models.ClassificationOverrideEntity) error
	// FindByMessage returns the override audit trail of a message in
	// chronological order.
	FindByMessage(context.Context, Queryer, string) ([]models.ClassificationOverrideEntity, error)
}

// overrideDao is the sqlite implementation of OverrideDao.
type overrideDao struct{}

// NewOverrideDao creates a new OverrideDao.
func NewOverrideDao() OverrideDao {
	return overrideDao{}
}

func (overrideDao) Insert(
	ctx context.Context,
	q Queryer,
	override *models.ClassificationOverrideEntity,
) error {
	const query = `
		insert into "classification_overrides" (
			"message_id" ,
			"sentiment" ,
			"urgency" ,
			"opportunity" ,
			"reason" ,
			"created_by" ,
			"created_at"
		) values (
			:message_id ,
			:sentiment ,
			:urgency ,
			:opportunity ,
			:reason ,
			:created_by ,
			:created_at
		) ;
	`

	result, err := execNamed(ctx, q, query, override)
	if err != nil {
		return err
	}

	if err := ensureRowsAffected(result); err != nil {
		return err
	}

	override.ID, err = result.LastInsertId()
	return err
}

func (overrideDao) FindByMessage(
	ctx context.Context,
	q Queryer,
	messageID string,
) ([]models.ClassificationOverrideEntity, error) {
	const query = `
		select *
		from "classification_overrides"
		where "message_id" = $1
		order by "created_at" , "id" ;
	`

	var overrideSlice []models.ClassificationOverrideEntity

	if err := selectSlice(ctx, q, &overrideSlice, query, messageID); err != nil {
		return nil, err
	}

	return overrideSlice, nil
}
