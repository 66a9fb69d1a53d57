package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/deusflow/nrfinsight/internal/article"
)

const (
	// NaverAPIURL is the keyword news search endpoint.
	NaverAPIURL = "https://openapi.naver.com/v1/search/news.json"

	naverDisplay = 10
)

// Naver queries the keyword-search JSON API, newest first.
type Naver struct {
	endpoint     string
	clientID     string
	clientSecret string
	client       *http.Client
}

type naverResponse struct {
	Items []naverItem `json:"items"`
}

type naverItem struct {
	Title        string `json:"title"`
	OriginalLink string `json:"originallink"`
	Link         string `json:"link"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"`
}

// NewNaver builds the adapter. An empty endpoint means NaverAPIURL; a nil client gets a default one.
func NewNaver(endpoint, clientID, clientSecret string, client *http.Client) *Naver {
	if endpoint == "" {
		endpoint = NaverAPIURL
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Naver{endpoint: endpoint, clientID: clientID, clientSecret: clientSecret, client: client}
}

func (n *Naver) Name() string { return "naver" }

// Raw returns the upstream payload unmodified along with its status code.
// A transport failure returns status 0 and an error.
func (n *Naver) Raw(ctx context.Context, query string) ([]byte, int, error) {
	u, err := url.Parse(n.endpoint)
	if err != nil {
		return nil, 0, fmt.Errorf("naver: bad endpoint: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("display", strconv.Itoa(naverDisplay))
	q.Set("sort", "date")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("naver: build request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", n.clientID)
	req.Header.Set("X-Naver-Client-Secret", n.clientSecret)

	body, err := get(n.client, req, n.Name())
	var se *StatusError
	switch {
	case err == nil:
		return body, http.StatusOK, nil
	case errors.As(err, &se):
		return body, se.Code, err
	default:
		return nil, 0, err
	}
}

func (n *Naver) Fetch(ctx context.Context, query string) ([]article.Raw, error) {
	body, _, err := n.Raw(ctx, query)
	if err != nil {
		return nil, err
	}

	var resp naverResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("naver: %w: %v", ErrParse, err)
	}

	items := limit(resp.Items, naverDisplay)
	out := make([]article.Raw, 0, len(items))
	for _, it := range items {
		link := it.OriginalLink
		if link == "" {
			link = it.Link
		}
		out = append(out, article.Raw{
			Title:          it.Title,
			Link:           link,
			Source:         outletFromLink(it.OriginalLink),
			Date:           it.PubDate,
			Snippet:        it.Description,
			FallbackSource: article.DefaultSource,
		})
	}
	return out, nil
}

// outletFromLink turns https://www.chosun.com/... into chosun.com.
func outletFromLink(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
