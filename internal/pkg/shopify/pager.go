package shopify

import (
	"context"
	"net/http"
	"strings"
)

// Pager walks a cursor-paginated REST listing by following the RFC 5988
// Link rel="next" headers the platform emits. It is pull-based and
// restartable: constructing a new pager from the first URL starts over.
type Pager struct {
	client      *Client
	shopDomain  string
	accessToken string
	nextURL     string
}

func (c *Client) newPager(shopDomain, accessToken, firstURL string) *Pager {
	return &Pager{
		client:      c,
		shopDomain:  shopDomain,
		accessToken: accessToken,
		nextURL:     firstURL,
	}
}

// Next fetches the next page into out and reports whether a page was
// fetched. Once the platform stops sending a next link, Next returns
// false with no error.
func (p *Pager) Next(ctx context.Context, out interface{}) (bool, error) {
	if p.nextURL == "" {
		return false, nil
	}

	resp, err := p.client.doJSON(ctx, http.MethodGet, p.nextURL, p.accessToken, nil, out)
	if err != nil {
		return false, err
	}
	p.nextURL = parseNextLink(resp.Header.Get("Link"))
	return true, nil
}

// parseNextLink extracts the rel="next" target from a Link header, or ""
// when there is no further page.
func parseNextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(strings.TrimSpace(part), ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, attr := range segments[1:] {
			attr = strings.TrimSpace(attr)
			if attr == `rel="next"` || attr == "rel=next" {
				return strings.Trim(target, "<>")
			}
		}
	}
	return ""
}
