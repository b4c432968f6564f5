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

package ingest

import (
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/text/cases"

	"github.com/ledgerline/mailroom/internal/crypto"
	"github.com/ledgerline/mailroom/internal/models"
)

func init() {
	viper.SetDefault("ingest.firmdomains", []string{})
}

// Normalizer derives the correlation identities of a message: the subject
// stem, the participant signature, the thread key and the direction relative
// to the firm. Display surfaces keep the original values, normalization is
// for matching only.
type Normalizer struct {
	firmDomains map[string]bool
}

// NewNormalizer creates a new Normalizer. The firm's own domains are read
// from `ingest.firmdomains`.
func NewNormalizer() *Normalizer {
	domains := make(map[string]bool)

	for _, domain := range viper.GetStringSlice("ingest.firmdomains") {
		domains[fold.String(domain)] = true
	}

	return &Normalizer{firmDomains: domains}
}

// fold is a cases.Caser to fold unicode text during normalization.
var fold = cases.Fold()

// subjectPrefix matches a single reply or forward marker at the start of a
// subject, including bracketed counters such as "Re[2]:".
var subjectPrefix = regexp.MustCompile(`^(?i:re|aw|fwd|fw|wg)(\[\d+\])?\s*:\s*`)

// trailingReference matches list style suffixes such as "(was: old topic)".
var trailingReference = regexp.MustCompile(`\s*\(was:[^)]*\)\s*$`)

// SubjectStem reduces a subject to the part shared by every message of a
// conversation. Reply and forward markers are stripped repeatedly, case is
// folded and whitespace collapsed.
func (n *Normalizer) SubjectStem(subject string) string {
	stem := strings.TrimSpace(subject)

	for {
		stripped := subjectPrefix.ReplaceAllString(stem, "")
		if stripped == stem {
			break
		}

		stem = strings.TrimSpace(stripped)
	}

	stem = trailingReference.ReplaceAllString(stem, "")
	stem = fold.String(stem)

	return strings.Join(strings.Fields(stem), " ")
}

// ParticipantSignature builds the identity of a conversation's audience: the
// normalized addresses of sender and recipients, deduplicated, sorted and
// "|" joined.
func (n *Normalizer) ParticipantSignature(
	sender models.Address,
	to models.AddressList,
	cc models.AddressList,
) string {
	set := make(map[string]bool)
	set[sender.Normalized().String()] = true

	for _, list := range []models.AddressList{to, cc} {
		for _, addr := range list {
			set[addr.Normalized().String()] = true
		}
	}

	participants := make([]string, 0, len(set))
	for participant := range set {
		participants = append(participants, participant)
	}

	sort.Strings(participants)
	return strings.Join(participants, "|")
}

// ThreadKey combines the subject stem with a digest of the participant
// signature. Messages with equal keys are candidates for the same
// conversation even without reply headers.
func (n *Normalizer) ThreadKey(subjectStem, signature string) string {
	return subjectStem + "#" + crypto.Digest(signature)
}

// Direction classifies a message relative to the firm and the receiving
// inbox. Mail from a firm address is outbound when any recipient is
// external, otherwise internal. Mail from outside is inbound when the inbox
// is among the primary recipients and merely copied-in correspondence
// otherwise.
func (n *Normalizer) Direction(
	inbox *models.InboxEntity,
	sender models.Address,
	to models.AddressList,
	cc models.AddressList,
) models.Direction {
	if n.IsFirmAddress(inbox, sender) {
		for _, list := range []models.AddressList{to, cc} {
			for _, addr := range list {
				if !n.IsFirmAddress(inbox, addr) {
					return models.DirectionOutbound
				}
			}
		}

		return models.DirectionInternal
	}

	if to.Contains(inbox.Address) {
		return models.DirectionInbound
	}

	return models.DirectionExternal
}

// IsFirmAddress reports whether an address belongs to the practice. The
// inbox's own domain always counts as firm, additional domains come from
// `ingest.firmdomains`.
func (n *Normalizer) IsFirmAddress(inbox *models.InboxEntity, addr models.Address) bool {
	domain := fold.String(addr.Domain())

	if domain == fold.String(inbox.Address.Domain()) {
		return true
	}

	return n.firmDomains[domain]
}
