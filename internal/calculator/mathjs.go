package calculator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
)

const maxReplyBytes = 1 << 10

// MathJSProvider evaluates expressions with the public mathjs HTTP API
// (GET <base>?expr=...).
type MathJSProvider struct {
	baseURL string
	client  *http.Client
}

func NewMathJSProvider(baseURL string, client *http.Client) *MathJSProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &MathJSProvider{baseURL: baseURL, client: client}
}

func (p *MathJSProvider) Name() string { return "mathjs" }

func (p *MathJSProvider) Evaluate(ctx context.Context, expr string) (string, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", errx.Upstream("calculation provider misconfigured", err)
	}
	q := u.Query()
	// mathjs uses ^ for exponentiation
	q.Set("expr", strings.ReplaceAll(expr, "**", "^"))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errx.Upstream("calculation provider request failed", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", errx.Upstream("calculation provider unavailable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", errx.Upstream("calculation provider unavailable", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errx.Upstream("calculation provider rejected expression",
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 64)))
	}
	return strings.TrimSpace(string(body)), nil
}
