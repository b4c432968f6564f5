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

package quarantine

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/ingest"
	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/match"
	"github.com/ledgerline/mailroom/internal/models"
)

func init() {
	viper.SetDefault("quarantine.sweepinterval", "1h")
}

// Reconciler re-runs matching over the unmatched queue. It is woken whenever
// new matching signals appear, such as a freshly registered alias or domain,
// and additionally on a slow safety interval. At most one sweep runs at a
// time, wake up calls during a sweep schedule another run instead of piling
// up goroutines.
type Reconciler struct {
	database     database.Conn
	pipeline     *ingest.Pipeline
	normalizer   *ingest.Normalizer
	matcher      match.Matcher
	unmatchedDao database.UnmatchedDao
	inboxDao     database.InboxDao

	mu      sync.Mutex
	alarm   *time.Timer
	busy    bool
	pending bool
}

// NewReconciler creates a new Reconciler.
func NewReconciler(
	conn database.Conn,
	pipeline *ingest.Pipeline,
	normalizer *ingest.Normalizer,
	matcher match.Matcher,
	unmatchedDao database.UnmatchedDao,
	inboxDao database.InboxDao,
) *Reconciler {
	return &Reconciler{
		database:     conn,
		pipeline:     pipeline,
		normalizer:   normalizer,
		matcher:      matcher,
		unmatchedDao: unmatchedDao,
		inboxDao:     inboxDao,
	}
}

// WakeUp triggers a sweep over the unmatched queue. It returns immediately,
// the sweep runs in the background. A sweep already in progress is followed
// by another one, because the signal may have arrived after the running
// sweep read the queue.
func (r *Reconciler) WakeUp() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.alarm != nil {
		r.alarm.Stop()
		r.alarm = nil
	}

	if r.busy {
		r.pending = true
		return
	}

	r.busy = true
	go r.work()
}

func (r *Reconciler) work() {
	ctx := context.Background()

	for {
		if err := r.sweep(ctx); err != nil {
			log.Error().
				Err(err).
				Msg("could not sweep unmatched queue")
		}

		r.mu.Lock()

		if r.pending {
			r.pending = false
			r.mu.Unlock()

			continue
		}

		r.busy = false
		r.sleep(viper.GetDuration("quarantine.sweepinterval"))
		r.mu.Unlock()

		return
	}
}

func (r *Reconciler) sleep(d time.Duration) {
	if d > 0 {
		r.alarm = time.AfterFunc(d, r.WakeUp)
	}
}

// sweep attempts every parked mail once. Failures of a single mail are
// recorded on its row and do not stop the rest of the sweep.
func (r *Reconciler) sweep(ctx context.Context) error {
	queue, err := r.unmatchedDao.FindAll(ctx, r.database)
	if err != nil {
		return err
	}

	if len(queue) == 0 {
		return nil
	}

	log.InfoContext(ctx).
		Int("queued", len(queue)).
		Msg("sweeping unmatched queue")

	for i := range queue {
		r.attempt(ctx, &queue[i])
	}

	return nil
}

// attempt retries matching for a single parked mail. A confirmed resolution
// promotes the mail through the regular pipeline path, everything else only
// updates the retry bookkeeping.
func (r *Reconciler) attempt(ctx context.Context, parked *models.UnmatchedEmailEntity) {
	counterpart, counterpartName, ok := counterpartOf(
		ctx, r.normalizer, r.inboxDao, r.database, parked)

	if !ok {
		r.recordAttempt(ctx, parked, match.Match{Tier: models.ConfidenceNone})
		return
	}

	resolution, err := r.matcher.Resolve(ctx, r.database, counterpart, counterpartName)
	if err != nil {
		if errors.Is(err, match.ErrDisabled) {
			log.DebugContext(ctx).
				Msg("matching is disabled, leaving queue untouched")

			return
		}

		log.ErrorContext(ctx).
			Err(err).
			Str("unmatched", parked.ID).
			Msg("could not re-match parked mail")

		return
	}

	switch resolution.Tier {
	case models.ConfidenceHigh, models.ConfidenceMedium:
		if err := r.pipeline.Promote(ctx, parked, resolution); err != nil {
			log.ErrorContext(ctx).
				Err(err).
				Str("unmatched", parked.ID).
				Msg("could not promote parked mail")

			r.recordAttempt(ctx, parked, resolution)
		}

	default:
		r.recordAttempt(ctx, parked, resolution)
	}
}

// recordAttempt increments the retry bookkeeping and keeps the candidate of
// the latest attempt visible for triage.
func (r *Reconciler) recordAttempt(
	ctx context.Context,
	parked *models.UnmatchedEmailEntity,
	resolution match.Match,
) {
	parked.RetryCount++
	parked.LastAttemptAt = sql.NullInt64{Int64: time.Now().Unix(), Valid: true}

	if resolution.Tier == models.ConfidenceLow {
		parked.CandidateClientID = sql.NullInt64{Int64: resolution.ClientID, Valid: true}
		parked.CandidateBasis = resolution.Basis
	} else {
		parked.CandidateClientID = sql.NullInt64{}
		parked.CandidateBasis = ""
	}

	if err := r.unmatchedDao.Update(ctx, r.database, parked); err != nil {
		log.ErrorContext(ctx).
			Err(err).
			Str("unmatched", parked.ID).
			Msg("could not update retry bookkeeping")
	}
}
