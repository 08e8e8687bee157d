package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type GraphQLError struct {
	Message    string `json:"message"`
	Path       []any  `json:"path,omitempty"`
	Extensions struct {
		Code string `json:"code,omitempty"`
	} `json:"extensions,omitempty"`
}

type GraphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// PostGraphQL sends one query to a shop's admin GraphQL endpoint,
// authenticated with the shop's access token.
func PostGraphQL[T any](ctx context.Context, hc *http.Client, shopDomain, apiVersion, accessToken, query string, variables any) (*GraphQLResponse[T], int, error) {
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, apiVersion)

	body := map[string]any{
		"query":     query,
		"variables": variables,
	}
	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	res, err := hc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)

	var out GraphQLResponse[T]
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, res.StatusCode, err
	}

	return &out, res.StatusCode, nil
}

// Client wraps admin API access for one API version. Per-shop credentials
// come in as a Session on each call.
type Client struct {
	APIVersion string
	HTTP       *http.Client
}

func NewClient(apiVersion string) *Client {
	return &Client{
		APIVersion: apiVersion,
		HTTP:       &http.Client{Timeout: 30 * time.Second},
	}
}

func joinGraphQLErrors(errs []GraphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
