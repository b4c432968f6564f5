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
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ledgerline/mailroom/internal/models"
)

var (
	// ErrMalformedEnvelope is used when a provider payload is not parseable
	// json at all.
	ErrMalformedEnvelope = errors.New("ingest: malformed envelope")

	// ErrInvalidEnvelope is used when a payload parses, but violates the
	// envelope schema.
	ErrInvalidEnvelope = errors.New("ingest: invalid envelope")
)

//go:embed envelope_schema.json
var envelopeSchemaSource []byte

var envelopeSchema = mustCompileEnvelopeSchema()

func mustCompileEnvelopeSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(envelopeSchemaSource))
	if err != nil {
		panic(err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("envelope_schema.json", doc); err != nil {
		panic(err)
	}

	schema, err := compiler.Compile("envelope_schema.json")
	if err != nil {
		panic(err)
	}

	return schema
}

// Envelope is a single message as the provider hands it over. Field names
// follow the provider wire format, so a raw sync fragment unmarshals without
// a mapping layer in between.
type Envelope struct {
	ID                     string      `json:"id"`
	InternetMessageID      string      `json:"internetMessageId"`
	ConversationID         string      `json:"conversationId"`
	Subject                string      `json:"subject"`
	BodyPreview            string      `json:"bodyPreview"`
	Body                   Body        `json:"body"`
	From                   Recipient   `json:"from"`
	ToRecipients           []Recipient `json:"toRecipients"`
	CcRecipients           []Recipient `json:"ccRecipients"`
	SentDateTime           time.Time   `json:"sentDateTime"`
	ReceivedDateTime       time.Time   `json:"receivedDateTime"`
	HasAttachments         bool        `json:"hasAttachments"`
	InternetMessageHeaders []Header    `json:"internetMessageHeaders"`
}

// Body is the content block of an envelope.
type Body struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Recipient is a display name and address pair.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// EmailAddress is the inner address object of a Recipient.
type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Header is a single rfc#5322 header line carried along by the provider.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParseEnvelope validates a raw provider payload against the envelope schema
// and unmarshals it. Schema violations are reported before any field is
// interpreted, so a rejected payload never reaches correlation.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	if err := envelopeSchema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	return &envelope, nil
}

// Normalized parses the recipient address into its canonical comparison form.
func (r Recipient) Normalized() (models.Address, error) {
	return models.ParseNormalized(r.EmailAddress.Address)
}

// Addresses normalizes a recipient list. Entries that do not parse as
// addresses are dropped, because providers occasionally emit distribution
// list stubs without a usable smtp address.
func Addresses(recipients []Recipient) models.AddressList {
	list := make(models.AddressList, 0, len(recipients))

	for _, recipient := range recipients {
		addr, err := recipient.Normalized()
		if err != nil {
			continue
		}

		list = append(list, addr)
	}

	return list
}

// HeaderValue returns the value of the first header with the given name.
// Header names are compared case-insensitively.
func (e *Envelope) HeaderValue(name string) string {
	for _, header := range e.InternetMessageHeaders {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}

	return ""
}

// InReplyTo returns the message id this envelope replies to, if any.
func (e *Envelope) InReplyTo() string {
	return strings.TrimSpace(e.HeaderValue("In-Reply-To"))
}

// ReferenceChain returns the ancestor message ids of this envelope, oldest
// first. The "In-Reply-To" id is appended when the "References" header does
// not already carry it, which some clients omit.
func (e *Envelope) ReferenceChain() []string {
	chain := strings.Fields(e.HeaderValue("References"))

	if inReplyTo := e.InReplyTo(); inReplyTo != "" {
		var seen bool
		for _, id := range chain {
			if id == inReplyTo {
				seen = true
				break
			}
		}

		if !seen {
			chain = append(chain, inReplyTo)
		}
	}

	return chain
}
