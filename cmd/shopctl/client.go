package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront-sync/internal/session"
)

// client talks to a storefront-sync server and carries the session id
// between calls the way a browser tab would.
type client struct {
	http    *http.Client
	baseURL string
	session string
	out     io.Writer
	quiet   bool
	verbose bool
}

func newClient(baseURL, sessionID string, out io.Writer) *client {
	return &client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		session: sessionID,
		out:     out,
	}
}

// httpError is a non-2xx response from the server.
type httpError struct {
	Status int
	Code   string
	Body   string
}

func (e *httpError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// do sends a request and decodes the JSON response into out (when non-nil).
// The session id the server assigns is remembered for later calls.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	var reqJSON []byte
	if body != nil {
		var err error
		reqJSON, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	req, err := c.newRequest(ctx, method, path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.verbose {
		printRequest(c.out, method, path, reqJSON)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.remember(resp)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if c.verbose {
		printResponse(c.out, resp.StatusCode, respBody, time.Since(start))
	}

	if resp.StatusCode >= 400 {
		herr := &httpError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &env) == nil {
			herr.Code = env.Error.Code
		}
		return herr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// sseEvent is one Server-Sent Event frame.
type sseEvent struct {
	Name string
	Data string
}

// stream opens GET path and calls fn for every event until ctx ends,
// the server closes the stream, or fn returns an error.
func (c *client) stream(ctx context.Context, path string, fn func(sseEvent) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// Streams outlive the request timeout.
	streaming := &http.Client{Transport: c.http.Transport}
	resp, err := streaming.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.remember(resp)

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return &httpError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var ev sseEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if ev.Name != "" || ev.Data != "" {
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev = sseEvent{}
		case strings.HasPrefix(line, ":"):
			// heartbeat
		case strings.HasPrefix(line, "event: "):
			ev.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.Data = strings.TrimPrefix(line, "data: ")
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

func (c *client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	value, err := session.FormatHeader(session.Header{ID: c.session, Version: session.ServerVersion})
	if err != nil {
		return nil, fmt.Errorf("formatting session header: %w", err)
	}
	req.Header.Set(session.HeaderName, value)
	return req, nil
}

func (c *client) remember(resp *http.Response) {
	raw := resp.Header.Get(session.HeaderName)
	if raw == "" {
		return
	}
	if h, err := session.ParseHeader(raw); err == nil && h.ID != "" {
		c.session = h.ID
	}
}

func printRequest(w io.Writer, method, path string, body []byte) {
	fmt.Fprintf(w, "%s→ %s %s%s\n", colorBlue, method, path, colorReset)
	if len(body) > 0 {
		printJSON(w, body, "  ")
	}
}

func printResponse(w io.Writer, status int, body []byte, duration time.Duration) {
	color := colorGreen
	if status >= 400 {
		color = colorRed
	}
	fmt.Fprintf(w, "%s← %d%s %s(%s)%s\n", color, status, colorReset, colorGray, duration.Round(time.Millisecond), colorReset)
	printJSON(w, body, "  ")
}

func printJSON(w io.Writer, data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Fprintf(w, "%s%s\n", prefix, string(data))
		return
	}
	fmt.Fprintln(w, prefix+pretty.String())
}
