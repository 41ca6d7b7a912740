package gmail

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/diagimmo/suiviclientpro/internal/google"
)

// pageSize is the number of message ids requested per list call.
const pageSize = 100

// Client wraps the Gmail Users service of the authorised account.
type Client struct {
	svc *gmail.UsersService
}

// NewClient creates a client authorised with the token in store.
func NewClient(ctx context.Context, conf *oauth2.Config, store *google.TokenStore) (*Client, error) {
	hc, err := google.HTTPClient(ctx, conf, store)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(ctx, hc)
}

// NewWithHTTPClient creates a client that sends requests through hc.
func NewWithHTTPClient(ctx context.Context, hc *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(hc)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// Profile returns the address of the authorised account.
func (c *Client) Profile(ctx context.Context) (string, error) {
	p, err := c.svc.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	return p.EmailAddress, nil
}

// ListMessageIDs returns one page of the ids of messages matching query and carrying
// every label of labelIDs, and the token of the next page.
func (c *Client) ListMessageIDs(ctx context.Context, query string, labelIDs []string, pageToken string) ([]string, string, error) {
	req := c.svc.Messages.List("me").Q(query).MaxResults(pageSize).Context(ctx)
	if len(labelIDs) > 0 {
		req = req.LabelIds(labelIDs...)
	}
	if pageToken != "" {
		req = req.PageToken(pageToken)
	}
	res, err := req.Do()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list messages: %w", err)
	}
	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
	}
	return ids, res.NextPageToken, nil
}
