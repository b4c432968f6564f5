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

package match

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/spf13/viper"
	"golang.org/x/text/cases"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/models"
)

func init() {
	viper.SetDefault("match.enable", true)
	viper.SetDefault("match.namethreshold", 0.8)
}

// ErrDisabled is returned by Resolve while matching is switched off via
// `match.enable`. Messages arriving in that window are quarantined, not
// guessed.
var ErrDisabled = errors.New("match: matching is disabled")

// Match is the outcome of client resolution for a single counterpart address.
// Only high and medium tiers may be written to a message. A low tier is a
// candidate awaiting human confirmation.
type Match struct {
	Tier        models.Confidence
	ClientID    int64
	Basis       models.MatchBasis
	DisplayName string
}

// Matcher resolves counterpart addresses to clients of the practice.
type Matcher interface {
	// Resolve determines the client for a counterpart address. The address
	// must be normalized. An exact alias yields a high tier, an allow-listed
	// domain a medium tier and a display name similarity hit a low tier
	// candidate.
	Resolve(
		ctx context.Context,
		q database.Queryer,
		address models.Address,
		displayName string,
	) (Match, error)
}

// NewMatcher creates a new Matcher on top of the alias and domain registries.
func NewMatcher(
	clientAliasDao database.ClientAliasDao,
	clientDomainDao database.ClientDomainDao,
) Matcher {
	return &matcher{
		clientAliasDao:  clientAliasDao,
		clientDomainDao: clientDomainDao,
	}
}

type matcher struct {
	clientAliasDao  database.ClientAliasDao
	clientDomainDao database.ClientDomainDao
}

func (m *matcher) Resolve(
	ctx context.Context,
	q database.Queryer,
	address models.Address,
	displayName string,
) (Match, error) {
	if !viper.GetBool("match.enable") {
		return Match{Tier: models.ConfidenceNone}, ErrDisabled
	}

	alias, err := m.clientAliasDao.FindByAddress(ctx, q, address)
	if err == nil {
		return Match{
			Tier:        models.ConfidenceHigh,
			ClientID:    alias.ClientID,
			Basis:       models.BasisAliasExact,
			DisplayName: alias.DisplayName,
		}, nil
	}

	if !database.IsErrNoRows(err) {
		return Match{}, err
	}

	domain, err := m.clientDomainDao.FindByName(ctx, q, address.Domain())
	if err == nil {
		return Match{
			Tier:     models.ConfidenceMedium,
			ClientID: domain.ClientID,
			Basis:    models.BasisDomain,
		}, nil
	}

	if !database.IsErrNoRows(err) {
		return Match{}, err
	}

	if displayName != "" {
		return m.resolveByDisplayName(ctx, q, displayName)
	}

	return Match{Tier: models.ConfidenceNone}, nil
}

// resolveByDisplayName compares the sender display name against every alias
// that carries a person name. The best hit at or above `match.namethreshold`
// becomes a low tier candidate. A tie between different clients is treated as
// no candidate at all.
func (m *matcher) resolveByDisplayName(
	ctx context.Context,
	q database.Queryer,
	displayName string,
) (Match, error) {
	aliasSlice, err := m.clientAliasDao.FindAllNamed(ctx, q)
	if err != nil {
		return Match{}, err
	}

	threshold := viper.GetFloat64("match.namethreshold")

	var (
		best      Match
		bestScore float64
		ambiguous bool
	)

	for _, alias := range aliasSlice {
		score := similarity(displayName, alias.DisplayName)
		if score < threshold {
			continue
		}

		switch {
		case score > bestScore:
			best = Match{
				Tier:        models.ConfidenceLow,
				ClientID:    alias.ClientID,
				Basis:       models.BasisHeuristic,
				DisplayName: alias.DisplayName,
			}
			bestScore = score
			ambiguous = false

		case score == bestScore && alias.ClientID != best.ClientID:
			ambiguous = true
		}
	}

	if bestScore == 0 || ambiguous {
		return Match{Tier: models.ConfidenceNone}, nil
	}

	return best, nil
}

// CounterpartOf selects the address a message is attributed to. Inbound mail
// is attributed to its sender, outbound mail to the first recipient for which
// external reports true, in to before cc order. Internal mail and mail the
// inbox was merely copied on yield no counterpart and therefore no client.
func CounterpartOf(
	direction models.Direction,
	sender models.Address,
	senderName string,
	to models.AddressList,
	cc models.AddressList,
	external func(models.Address) bool,
) (models.Address, string, bool) {
	switch direction {
	case models.DirectionInbound:
		return sender, senderName, true

	case models.DirectionOutbound:
		for _, recipient := range to {
			if external(recipient) {
				return recipient, "", true
			}
		}

		for _, recipient := range cc {
			if external(recipient) {
				return recipient, "", true
			}
		}
	}

	return models.ZeroAddress, "", false
}

// fold is a cases.Caser to fold unicode text for name comparison.
var fold = cases.Fold()

// similarity scores two person names by comparing their folded token sets.
// The score is the share of tokens of the larger set that occur in both, so
// word order and punctuation do not matter.
func similarity(a, b string) float64 {
	left := nameTokens(a)
	right := nameTokens(b)

	if len(left) == 0 || len(right) == 0 {
		return 0
	}

	shared := 0
	for token := range left {
		if right[token] {
			shared++
		}
	}

	larger := len(left)
	if len(right) > larger {
		larger = len(right)
	}

	return float64(shared) / float64(larger)
}

// nameTokens splits a display name into a set of folded words. Anything that
// is neither letter nor digit separates, so "Roe, Jane" and "Jane Roe"
// produce the same set.
func nameTokens(name string) map[string]bool {
	fields := strings.FieldsFunc(fold.String(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make(map[string]bool, len(fields))
	for _, field := range fields {
		tokens[field] = true
	}

	return tokens
}
