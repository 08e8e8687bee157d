package shopify

import (
	"context"
	"fmt"
)

const productTagsQuery = `
query GetProductTags($id: ID!) {
  product(id: $id) {
    tags
  }
}`

type productTagsData struct {
	Product *struct {
		Tags []string `json:"tags"`
	} `json:"product"`
}

// ProductTags fetches the tag set for one product. Webhook payloads carry no
// product tags, so the reconciler calls this per distinct product.
func (c *Client) ProductTags(ctx context.Context, sess *Session, productGID string) ([]string, error) {
	res, status, err := PostGraphQL[productTagsData](ctx, c.HTTP, sess.Shop, c.APIVersion, sess.AccessToken, productTagsQuery, map[string]any{"id": productGID})
	if err != nil {
		return nil, fmt.Errorf("product tags query: %w", err)
	}
	if status != 200 {
		return nil, fmt.Errorf("product tags query: status %d", status)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("product tags query: %s", joinGraphQLErrors(res.Errors))
	}
	if res.Data.Product == nil {
		return nil, nil
	}
	return res.Data.Product.Tags, nil
}
