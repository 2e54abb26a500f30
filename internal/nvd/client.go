// file: internal/nvd/client.go
// version: 1.0.0
// guid: db16d43d-66ca-45bf-8549-a6928ca146c6

package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jdfalk/cpe-resolver/internal/matcher"
	"github.com/jdfalk/cpe-resolver/internal/models"
	"github.com/jdfalk/cpe-resolver/internal/ratelimit"
)

// DefaultBaseURL is the public CPE dictionary endpoint
const DefaultBaseURL = "https://services.nvd.nist.gov/rest/json/cpes/2.0"

// DefaultMinInterval is the spacing required for unauthenticated callers
const DefaultMinInterval = 6 * time.Second

// Title is a localized product title
type Title struct {
	Title string `json:"title"`
	Lang  string `json:"lang"`
}

// CPE is the cpe object of one product entry
type CPE struct {
	Deprecated bool    `json:"deprecated"`
	CPEName    string  `json:"cpeName"`
	CPENameID  string  `json:"cpeNameId"`
	Titles     []Title `json:"titles"`
}

// Product is one entry of the products array
type Product struct {
	CPE CPE `json:"cpe"`
}

// SearchResponse represents the API response from the CPE search endpoint
type SearchResponse struct {
	ResultsPerPage int       `json:"resultsPerPage"`
	StartIndex     int       `json:"startIndex"`
	TotalResults   int       `json:"totalResults"`
	Products       []Product `json:"products"`
}

// StatusError is returned for non-200 responses
type StatusError struct {
	Keyword    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nvd search %q returned status %d: %s", e.Keyword, e.StatusCode, e.Body)
}

// Client queries the CPE dictionary. All requests pass through the shared limiter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *ratelimit.MinInterval
}

// NewClient creates a client. A nil limiter gets the unauthenticated default spacing.
func NewClient(baseURL, apiKey string, limiter *ratelimit.MinInterval) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limiter == nil {
		limiter = ratelimit.NewMinInterval(DefaultMinInterval)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    limiter,
	}
}

// Search runs a keyword search and returns the raw product entries
func (c *Client) Search(ctx context.Context, keyword string) ([]Product, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("nvd search: empty keyword")
	}
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("nvd search %q: waiting for rate limiter: %w", keyword, err)
	}

	searchURL := fmt.Sprintf("%s?keywordSearch=%s", c.baseURL, url.QueryEscape(keyword))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("nvd search %q: creating request: %w", keyword, err)
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nvd search %q: %w", keyword, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Keyword: keyword, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var sr SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("nvd search %q: decoding response: %w", keyword, err)
	}
	return sr.Products, nil
}

// SearchCandidates runs a keyword search and converts the non-deprecated
// entries into catalog candidates. Unparseable names are skipped.
func (c *Client) SearchCandidates(ctx context.Context, keyword string) ([]models.Candidate, error) {
	products, err := c.Search(ctx, keyword)
	if err != nil {
		return nil, err
	}
	out := make([]models.Candidate, 0, len(products))
	for _, p := range products {
		if p.CPE.Deprecated {
			continue
		}
		cand, err := matcher.ParseCPE(p.CPE.CPEName)
		if err != nil {
			log.Printf("[WARN] nvd: skipping %q: %v", p.CPE.CPEName, err)
			continue
		}
		cand.CatalogID = p.CPE.CPENameID
		if cand.CatalogID == "" {
			cand.CatalogID = p.CPE.CPEName
		}
		out = append(out, cand)
	}
	return out, nil
}
