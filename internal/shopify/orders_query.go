package shopify

import (
	"context"
	"fmt"
)

const ordersQuery = `
query GetOrders($limit: Int!, $cursor: String) {
  orders(first: $limit, after: $cursor, sortKey: CREATED_AT, reverse: true) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        name
        createdAt
        updatedAt
        displayFulfillmentStatus
        displayFinancialStatus
        customer {
          displayName
          email
          phone
        }
        totalPriceSet {
          shopMoney {
            amount
            currencyCode
          }
        }
        tags
        note
        lineItems(first: 100) {
          edges {
            node {
              id
              title
              variantTitle
              sku
              quantity
              originalUnitPriceSet {
                shopMoney {
                  amount
                }
              }
              product {
                id
                productType
                tags
              }
              variant {
                id
              }
            }
          }
        }
      }
    }
  }
}`

type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type MoneySet struct {
	ShopMoney Money `json:"shopMoney"`
}

type CustomerNode struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

type ProductNode struct {
	ID          string   `json:"id"`
	ProductType string   `json:"productType"`
	Tags        []string `json:"tags"`
}

type LineItemNode struct {
	ID                   string       `json:"id"`
	Title                string       `json:"title"`
	VariantTitle         string       `json:"variantTitle"`
	SKU                  string       `json:"sku"`
	Quantity             int          `json:"quantity"`
	OriginalUnitPriceSet *MoneySet    `json:"originalUnitPriceSet"`
	Product              *ProductNode `json:"product"`
	Variant              *struct {
		ID string `json:"id"`
	} `json:"variant"`
}

type LineItemEdge struct {
	Node LineItemNode `json:"node"`
}

type LineItemConnection struct {
	Edges []LineItemEdge `json:"edges"`
}

type OrderNode struct {
	ID                       string             `json:"id"`
	Name                     string             `json:"name"`
	CreatedAt                string             `json:"createdAt"`
	UpdatedAt                string             `json:"updatedAt"`
	DisplayFulfillmentStatus string             `json:"displayFulfillmentStatus"`
	DisplayFinancialStatus   string             `json:"displayFinancialStatus"`
	Customer                 *CustomerNode      `json:"customer"`
	TotalPriceSet            *MoneySet          `json:"totalPriceSet"`
	Tags                     []string           `json:"tags"`
	Note                     string             `json:"note"`
	LineItems                LineItemConnection `json:"lineItems"`
}

type ordersQueryData struct {
	Orders struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node OrderNode `json:"node"`
		} `json:"edges"`
	} `json:"orders"`
}

// OrdersPage is one page of the order collection, newest first.
type OrdersPage struct {
	Orders      []OrderNode
	HasNextPage bool
	EndCursor   string
}

func (c *Client) FetchOrdersPage(ctx context.Context, sess *Session, cursor string, pageSize int) (*OrdersPage, error) {
	vars := map[string]any{"limit": pageSize}
	if cursor != "" {
		vars["cursor"] = cursor
	}

	res, status, err := PostGraphQL[ordersQueryData](ctx, c.HTTP, sess.Shop, c.APIVersion, sess.AccessToken, ordersQuery, vars)
	if err != nil {
		return nil, fmt.Errorf("orders query: %w", err)
	}
	if status != 200 {
		return nil, fmt.Errorf("orders query: status %d", status)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("orders query: %s", joinGraphQLErrors(res.Errors))
	}

	page := &OrdersPage{
		HasNextPage: res.Data.Orders.PageInfo.HasNextPage,
		EndCursor:   res.Data.Orders.PageInfo.EndCursor,
	}
	for _, e := range res.Data.Orders.Edges {
		page.Orders = append(page.Orders, e.Node)
	}
	return page, nil
}
