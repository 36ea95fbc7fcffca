package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/imroc/req/v3"

	"github.com/corvid-labs/agentstream/agent"
)

// maxFetchBytes caps the body size returned to the model.
const maxFetchBytes = 64 * 1024

// FetchURL retrieves a web page and returns its body text, citing the
// fetched URL.
type FetchURL struct {
	client *req.Client
}

// NewFetchURL creates the tool with a dedicated HTTP client.
func NewFetchURL(timeout time.Duration) *FetchURL {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FetchURL{
		client: req.C().
			SetTimeout(timeout).
			SetUserAgent("agentstream/1.0"),
	}
}

type fetchURLArgs struct {
	URL string `json:"url" jsonschema:"description=The http or https URL to fetch,required"`
}

func (t *FetchURL) Name() string { return "fetch_url" }

func (t *FetchURL) Description() string {
	return "Fetch a web page by URL and return its raw body text."
}

func (t *FetchURL) Parameters() map[string]any {
	return agent.SchemaFor(&fetchURLArgs{})
}

// Call fetches the page. The URL is validated to be absolute http(s) before
// any request is made.
func (t *FetchURL) Call(ctx context.Context, args json.RawMessage, tc *agent.ToolContext) (any, error) {
	var a fetchURLArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	u, err := url.Parse(a.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", a.URL)
	}

	resp, err := t.client.R().SetContext(ctx).Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("fetching %s: status %s", u, resp.Status)
	}

	body := truncateBody(resp.String())
	tc.AddSource(uuid.NewString(), u.String(), u.Host)
	return body, nil
}

// truncateBody caps the body at maxFetchBytes without splitting a multi-byte
// rune, so the result stays valid UTF-8.
func truncateBody(body string) string {
	if len(body) <= maxFetchBytes {
		return body
	}
	cut := maxFetchBytes
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
