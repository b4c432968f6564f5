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

package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerline/mailroom/internal/models"
)

func init() {
	viper.SetDefault("sync.graph.endpoint", "https://graph.microsoft.com/v1.0")
	viper.SetDefault("sync.graph.token", "")
	viper.SetDefault("sync.graph.timeout", "30s")
}

// restClient talks to the provider over its http api. Authentication is a
// bearer token provisioned outside of this process.
type restClient struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

func newRestClient() *restClient {
	return &restClient{
		httpClient: &http.Client{Timeout: viper.GetDuration("sync.graph.timeout")},
		endpoint:   strings.TrimSuffix(viper.GetString("sync.graph.endpoint"), "/"),
		token:      viper.GetString("sync.graph.token"),
	}
}

// deltaResponse is the wire shape of a delta page. Exactly one of the two
// links is set: nextLink inside an enumeration, deltaLink after the last
// page.
type deltaResponse struct {
	Value     []json.RawMessage `json:"value"`
	NextLink  string            `json:"@odata.nextLink"`
	DeltaLink string            `json:"@odata.deltaLink"`
}

func (c *restClient) DeltaMessages(
	ctx context.Context,
	mailbox models.Address,
	folder string,
	cursor string,
) (*Page, error) {
	// The cursor is a complete url minted by the provider. Only a fresh
	// enumeration starts from the folder resource.
	requestURL := cursor
	if requestURL == "" {
		requestURL = fmt.Sprintf("%s/users/%s/mailFolders/%s/messages/delta",
			c.endpoint, url.PathEscape(mailbox.String()), url.PathEscape(folder))
	}

	var response deltaResponse
	if err := c.doJSON(ctx, http.MethodGet, requestURL, nil, &response); err != nil {
		return nil, err
	}

	page := Page{
		Messages: make([][]byte, 0, len(response.Value)),
		Cursor:   response.DeltaLink,
		More:     response.NextLink != "",
	}

	if page.More {
		page.Cursor = response.NextLink
	}

	for _, value := range response.Value {
		page.Messages = append(page.Messages, value)
	}

	return &page, nil
}

func (c *restClient) RawMessage(
	ctx context.Context,
	mailbox models.Address,
	messageID string,
) (io.ReadCloser, error) {
	requestURL := fmt.Sprintf("%s/users/%s/messages/%s/$value",
		c.endpoint, url.PathEscape(mailbox.String()), url.PathEscape(messageID))

	response, err := c.do(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	return response.Body, nil
}

// subscriptionPayload is the wire shape of a subscription in both requests
// and responses.
type subscriptionPayload struct {
	ID                 string `json:"id,omitempty"`
	ChangeType         string `json:"changeType,omitempty"`
	NotificationURL    string `json:"notificationUrl,omitempty"`
	Resource           string `json:"resource,omitempty"`
	ClientState        string `json:"clientState,omitempty"`
	ExpirationDateTime string `json:"expirationDateTime,omitempty"`
}

func (p *subscriptionPayload) result() (*SubscriptionResult, error) {
	expiresAt, err := time.Parse(time.RFC3339, p.ExpirationDateTime)
	if err != nil {
		return nil, fmt.Errorf("msgraph: unparseable subscription expiry %q: %w",
			p.ExpirationDateTime, err)
	}

	return &SubscriptionResult{
		ID:        p.ID,
		Resource:  p.Resource,
		ExpiresAt: expiresAt,
	}, nil
}

func (c *restClient) CreateSubscription(
	ctx context.Context,
	request SubscriptionRequest,
) (*SubscriptionResult, error) {
	payload := subscriptionPayload{
		ChangeType:         "created",
		NotificationURL:    request.NotificationURL,
		Resource:           request.Resource,
		ClientState:        request.ClientState,
		ExpirationDateTime: request.ExpiresAt.UTC().Format(time.RFC3339),
	}

	var response subscriptionPayload
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint+"/subscriptions", &payload, &response); err != nil {
		return nil, err
	}

	return response.result()
}

func (c *restClient) RenewSubscription(
	ctx context.Context,
	id string,
	expiresAt time.Time,
) (*SubscriptionResult, error) {
	payload := subscriptionPayload{
		ExpirationDateTime: expiresAt.UTC().Format(time.RFC3339),
	}

	var response subscriptionPayload
	requestURL := c.endpoint + "/subscriptions/" + url.PathEscape(id)

	if err := c.doJSON(ctx, http.MethodPatch, requestURL, &payload, &response); err != nil {
		return nil, err
	}

	return response.result()
}

func (c *restClient) DeleteSubscription(ctx context.Context, id string) error {
	requestURL := c.endpoint + "/subscriptions/" + url.PathEscape(id)

	response, err := c.do(ctx, http.MethodDelete, requestURL, nil)
	if err != nil {
		return err
	}

	return response.Body.Close()
}

// doJSON sends one request and decodes the json response body.
func (c *restClient) doJSON(
	ctx context.Context,
	method string,
	requestURL string,
	payload interface{},
	response interface{},
) error {
	var body io.Reader

	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		body = bytes.NewReader(encoded)
	}

	res, err := c.do(ctx, method, requestURL, body)
	if err != nil {
		return err
	}

	defer res.Body.Close()
	return json.NewDecoder(res.Body).Decode(response)
}

// do sends one request and checks the status code. Non-2xx responses become
// ProviderErrors carrying the status. The response body is only returned on
// success and must be closed by the caller.
func (c *restClient) do(
	ctx context.Context,
	method string,
	requestURL string,
	body io.Reader,
) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, err
	}

	request.Header.Set("Authorization", "Bearer "+c.token)

	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		defer response.Body.Close()

		message, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return nil, &ProviderError{
			StatusCode: response.StatusCode,
			Message:    strings.TrimSpace(string(message)),
		}
	}

	return response, nil
}
