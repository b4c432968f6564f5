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

// ClassificationDao is a data access object for the displayed classification
// of a message. Automatic writers must consult HasOverride before upserting.
type ClassificationDao interface {
	// Upsert inserts or replaces the classification of a message.
	Upsert(context.Context, Queryer, *models.ClassificationEntity) error
	// FindByMessage returns the classification of a message.
	FindByMessage(context.Context, Queryer, string) (*models.ClassificationEntity, error)
	// HasOverride reports whether a human override exists for a message.
	HasOverride(context.Context, Queryer, string) (bool, error)
}

// classificationDao is the sqlite implementation of ClassificationDao.
type classificationDao struct{}

// NewClassificationDao creates a new ClassificationDao.
func NewClassificationDao() ClassificationDao {
	return classificationDao{}
}

func (classificationDao) Upsert(
	ctx context.Context,
	q Queryer,
	classification *models.ClassificationEntity,
) error {
	const query = `
		insert into "classifications" (
			"message_id" ,
			"sentiment" ,
			"urgency" ,
			"opportunity" ,
			"source" ,
			"classified_at"
		) values (
			:message_id ,
			:sentiment ,
			:urgency ,
			:opportunity ,
			:source ,
			:classified_at
		)
		on conflict ( "message_id" ) do update
		set "sentiment" = "excluded"."sentiment" ,
		    "urgency" = "excluded"."urgency" ,
		    "opportunity" = "excluded"."opportunity" ,
		    "source" = "excluded"."source" ,
		    "classified_at" = "excluded"."classified_at" ;
	`

	result, err := execNamed(ctx, q, query, classification)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (classificationDao) FindByMessage(
	ctx context.Context,
	q Queryer,
	messageID string,
) (*models.ClassificationEntity, error) {
	const query = `
		select *
		from "classifications"
		where "message_id" = $1 ;
	`

	var classification models.ClassificationEntity

	if err := selectOne(ctx, q, &classification, query, messageID); err != nil {
		return nil, err
	}

	return &classification, nil
}

func (classificationDao) HasOverride(
	ctx context.Context,
	q Queryer,
	messageID string,
) (bool, error) {
	const query = `
		select exists (
			select 1
			from "classification_overrides"
			where "message_id" = $1
		) ;
	`

	var hasOverride bool

	if err := selectOne(ctx, q, &hasOverride, query, messageID); err != nil {
		return false, err
	}

	return hasOverride, nil
}
