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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerline/mailroom/internal/classify"
	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/httpapi"
	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/msgraph"
	"github.com/ledgerline/mailroom/internal/quarantine"
	"github.com/ledgerline/mailroom/internal/sla"
)

func init() {
	viper.SetDefault("sla.sweepinterval", "1m")
}

type startCommand struct {
	Database      database.Conn
	Overlay       *classify.Overlay
	Tracker       *sla.Tracker
	Reconciler    *quarantine.Reconciler
	Syncer        *msgraph.Syncer
	RenewalWorker *msgraph.RenewalWorker
	Server        *httpapi.Server
}

func (s *startCommand) run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer s.Database.Close()

	go s.Overlay.Run(ctx)
	go s.RenewalWorker.Run(ctx)
	go s.runObligationSweeps(ctx)
	go s.catchUp(ctx)

	s.Reconciler.WakeUp()

	return s.Server.ListenAndServe(ctx)
}

// catchUp drains every active inbox once at startup to cover notifications
// missed while the process was down.
func (s *startCommand) catchUp(ctx context.Context) {
	ctx = log.WithOrigin(ctx, "startup")

	if err := s.Syncer.SyncAll(ctx); err != nil {
		log.ErrorContext(ctx).
			Err(err).
			Msg("could not catch up on inboxes")
	}
}

// runObligationSweeps advances time based sla state: snoozes expire and
// pending mail past its deadline becomes overdue.
func (s *startCommand) runObligationSweeps(ctx context.Context) {
	ticker := time.NewTicker(viper.GetDuration("sla.sweepinterval"))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepObligations(ctx)
		}
	}
}

func (s *startCommand) sweepObligations(ctx context.Context) {
	ctx = log.WithOrigin(ctx, "sweep")

	woken, err := s.Tracker.ExpireSnoozes(ctx)
	if err != nil {
		log.ErrorContext(ctx).
			Err(err).
			Msg("could not expire snoozes")
	} else if woken > 0 {
		log.InfoContext(ctx).
			Int("threads", woken).
			Msg("woke snoozed threads")
	}

	overdue, err := s.Tracker.SweepOverdue(ctx)
	if err != nil {
		log.ErrorContext(ctx).
			Err(err).
			Msg("could not sweep overdue mail")
	} else if overdue > 0 {
		log.InfoContext(ctx).
			Int("emails", overdue).
			Msg("marked mail overdue")
	}
}
