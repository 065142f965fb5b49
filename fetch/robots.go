package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsCache fetches and caches per-host robots.txt groups. The check is
// advisory: only an explicit blanket disallow blocks a host, and any failure
// to obtain or parse robots.txt permits the fetch.
type robotsCache struct {
	client *http.Client
	agent  string
	logger *slog.Logger

	mu    sync.Mutex
	hosts map[string]*robotstxt.Group // nil entry means no usable data
}

func newRobotsCache(client *http.Client, agent string, logger *slog.Logger) *robotsCache {
	return &robotsCache{
		client: client,
		agent:  agent,
		logger: logger,
		hosts:  make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether crawling u is permitted. Blocks only when the
// host's robots.txt disallows the site root for our agent.
func (c *robotsCache) Allowed(ctx context.Context, u *url.URL) bool {
	group := c.group(ctx, u)
	if group == nil {
		return true
	}
	if !group.Test("/") {
		c.logger.Warn("robots.txt disallows all crawling", "host", u.Host)
		return false
	}
	return true
}

func (c *robotsCache) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	c.mu.Lock()
	group, ok := c.hosts[u.Host]
	c.mu.Unlock()
	if ok {
		return group
	}

	group = c.fetchGroup(ctx, u)

	c.mu.Lock()
	c.hosts[u.Host] = group
	c.mu.Unlock()
	return group
}

func (c *robotsCache) fetchGroup(ctx context.Context, u *url.URL) *robotstxt.Group {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.agent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("robots.txt unavailable, proceeding", "host", u.Host, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}
	robots, err := robotstxt.FromBytes(data)
	if err != nil {
		c.logger.Debug("robots.txt unparseable, proceeding", "host", u.Host, "error", err)
		return nil
	}
	return robots.FindGroup(c.agent)
}
