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

package classify

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ledgerline/mailroom/internal/models"
)

// Result is a full classification of one message.
type Result struct {
	Sentiment   models.Sentiment
	Urgency     models.Urgency
	Opportunity models.Opportunity
}

// Classifier scores the tone and intent of a message. Implementations may
// call out to external services. The shipped default scores against keyword
// tables and never fails.
type Classifier interface {
	Classify(ctx context.Context, subject, preview string) (Result, error)
}

// NewLexiconClassifier creates the built in keyword table classifier.
func NewLexiconClassifier() Classifier {
	return lexiconClassifier{}
}

type lexiconClassifier struct{}

func (lexiconClassifier) Classify(_ context.Context, subject, preview string) (Result, error) {
	text := fold.String(subject + " " + preview)

	return Result{
		Sentiment:   scoreSentiment(text),
		Urgency:     scoreUrgency(text),
		Opportunity: scoreOpportunity(text),
	}, nil
}

// fold is a cases.Caser to fold unicode text before keyword lookup.
var fold = cases.Fold()

// The keyword tables of the shipped scorer. Hits are substring matches on the
// folded subject and preview, so multi word phrases are allowed.
var (
	negativeWords = []string{
		"complaint", "unhappy", "disappointed", "unacceptable", "frustrat",
		"upset", "mistake", "wrong", "error", "still waiting", "chasing",
	}

	positiveWords = []string{
		"thank", "great", "appreciate", "excellent", "wonderful", "pleased",
		"happy with", "well done",
	}

	urgentWords = []string{
		"urgent", "asap", "immediately", "deadline", "final notice",
		"penalty", "today", "by end of day",
	}

	relaxedWords = []string{
		"no rush", "no hurry", "whenever", "fyi", "for your information",
	}

	opportunityTables = []struct {
		opportunity models.Opportunity
		words       []string
	}{
		{models.OpportunityNewBusiness, []string{
			"new company", "incorporat", "referral", "recommend you",
			"quote for", "proposal", "engagement letter",
		}},
		{models.OpportunityAdvisory, []string{
			"advice", "advise", "guidance", "tax planning", "restructur",
			"forecast",
		}},
		{models.OpportunityRenewal, []string{
			"renew", "next year", "annual accounts", "re-engage",
		}},
	}
)

func scoreSentiment(text string) models.Sentiment {
	negative := countHits(text, negativeWords)
	positive := countHits(text, positiveWords)

	switch {
	case negative > positive:
		return models.SentimentNegative
	case positive > negative:
		return models.SentimentPositive
	}

	return models.SentimentNeutral
}

func scoreUrgency(text string) models.Urgency {
	if countHits(text, urgentWords) > 0 {
		return models.UrgencyHigh
	}

	if countHits(text, relaxedWords) > 0 {
		return models.UrgencyLow
	}

	return models.UrgencyNormal
}

func scoreOpportunity(text string) models.Opportunity {
	for _, table := range opportunityTables {
		if countHits(text, table.words) > 0 {
			return table.opportunity
		}
	}

	return models.OpportunityNone
}

func countHits(text string, words []string) int {
	hits := 0

	for _, word := range words {
		if strings.Contains(text, word) {
			hits++
		}
	}

	return hits
}
