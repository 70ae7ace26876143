package riotapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// throttleBackOff waits exactly as long as the last 429 asked, with no cap on attempts.
type throttleBackOff struct {
	next time.Duration
}

func (b *throttleBackOff) NextBackOff() time.Duration { return b.next }

func (b *throttleBackOff) Reset() { b.next = DefaultRetryAfter }

// makeRequest issues a GET through the limiter and returns the response body.
// 429 responses are retried after Retry-After; any other failure is permanent.
func (c *Client) makeRequest(ctx context.Context, endpoint, url string) ([]byte, error) {
	policy := &throttleBackOff{}
	var body []byte

	operation := func() error {
		if err := c.limiter.Admit(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error creating request: %w", err))
		}
		req.Header.Set("X-Riot-Token", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error sending request: %w", err))
		}
		defer resp.Body.Close()

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, resp.Body)
			policy.next = retryAfter(resp.Header)
			throttledTotal.Inc()
			return &RiotAPIError{
				StatusCode: resp.StatusCode,
				Message:    "rate limit exceeded",
				Headers:    resp.Header,
				URL:        url,
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(&RiotAPIError{
				StatusCode: resp.StatusCode,
				Message:    string(msg),
				Headers:    resp.Header,
				URL:        url,
			})
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error reading response: %w", err))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Dur("retry_after", wait).
			Msgf("429 Received. Sleeping %.0fs", wait.Seconds())
	}

	if err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(policy, ctx), notify, c.timer); err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Str("url", url).Msg("API Error")
		return nil, err
	}

	return body, nil
}

// getJSON fetches url and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, url string, out any) error {
	body, err := c.makeRequest(ctx, endpoint, url)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("API Error: undecodable response")
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// Get fetches an arbitrary Riot API url through the limiter and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, url string, out any) error {
	return c.getJSON(ctx, "other", url, out)
}

// GetRaw fetches an arbitrary Riot API url and returns the body verbatim.
func (c *Client) GetRaw(ctx context.Context, url string) (json.RawMessage, error) {
	body, err := c.makeRequest(ctx, "other", url)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: response is not valid JSON", url)
	}
	return json.RawMessage(body), nil
}
