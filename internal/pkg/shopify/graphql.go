package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// graphql runs a single admin-API GraphQL operation and decodes the data
// object into out. GraphQL-level errors surface as RemoteAPIError so
// callers treat them like any other remote failure.
func (c *Client) graphql(ctx context.Context, shopDomain, accessToken, query string, variables map[string]interface{}, out interface{}) error {
	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}

	_, err := c.doJSON(ctx, http.MethodPost, c.graphqlURL(shopDomain), accessToken,
		graphqlRequest{Query: query, Variables: variables}, &envelope)
	if err != nil {
		return err
	}
	if len(envelope.Errors) > 0 {
		return &RemoteAPIError{Status: http.StatusOK, Body: fmt.Sprintf("graphql error: %s", envelope.Errors[0].Message)}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return err
		}
	}
	return nil
}
