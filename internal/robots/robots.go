// Package robots implements the advisory courtesy check: before a page is
// fetched, the site's crawl-permission declaration at /robots.txt is
// consulted for the generic user agent. The check fails open — an
// unreachable or unparsable policy never blocks retrieval.
package robots

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Checker evaluates crawl permissions per origin. Policies are cached in
// memory for EntryExpiry and, when a PolicyCache is configured, shared
// across processes through it.
type Checker struct {
	HTTPClient *http.Client
	// UserAgent is the agent token evaluated against the policy groups.
	// Empty means the wildcard agent.
	UserAgent string
	// Timeout bounds the policy fetch so a slow robots endpoint cannot
	// stall the pipeline. Default 5s.
	Timeout time.Duration
	// EntryExpiry bounds the in-memory policy cache. Default 30m.
	EntryExpiry time.Duration
	// Cache optionally shares policy bodies across callers. Nil disables.
	Cache PolicyCache

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

// PolicyCache stores raw policy bodies per origin. Implementations must
// treat a miss as (nil, false, nil).
type PolicyCache interface {
	Get(ctx context.Context, origin string) ([]byte, bool, error)
	Set(ctx context.Context, origin string, body []byte) error
}

type memEntry struct {
	rules  rules
	expiry time.Time
}

// Allowed reports whether the URL may be fetched. Any failure along the way
// (bad URL aside) resolves to true: the check is advisory, not
// authoritative.
func (c *Checker) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	origin := u.Scheme + "://" + u.Host

	r, ok := c.cachedRules(origin)
	if !ok {
		body, err := c.fetchPolicy(ctx, origin)
		if err != nil {
			// Fail open and remember the empty (allow-all) policy so the
			// origin is not hammered again this run.
			log.Debug().Str("origin", origin).Err(err).Msg("courtesy policy unavailable, allowing")
			c.storeRules(origin, rules{})
			return true
		}
		r = parsePolicy(string(body))
		c.storeRules(origin, r)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return r.allowed(c.UserAgent, path)
}

func (c *Checker) cachedRules(origin string) (rules, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now == nil {
		c.now = time.Now
	}
	ent, ok := c.mem[origin]
	if !ok || c.now().After(ent.expiry) {
		return rules{}, false
	}
	return ent.rules, true
}

func (c *Checker) storeRules(origin string, r rules) {
	exp := c.EntryExpiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now == nil {
		c.now = time.Now
	}
	if c.mem == nil {
		c.mem = make(map[string]memEntry)
	}
	c.mem[origin] = memEntry{rules: r, expiry: c.now().Add(exp)}
}

func (c *Checker) fetchPolicy(ctx context.Context, origin string) ([]byte, error) {
	if c.Cache != nil {
		if body, ok, err := c.Cache.Get(ctx, origin); err == nil && ok {
			return body, nil
		}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, err
	}
	if c.Cache != nil {
		if err := c.Cache.Set(ctx, origin, body); err != nil {
			log.Debug().Str("origin", origin).Err(err).Msg("policy cache write failed")
		}
	}
	return body, nil
}

type statusError struct{ status int }

func (e *statusError) Error() string { return "robots status " + http.StatusText(e.status) }

// rules is a parsed policy: ordered agent groups of allow/disallow patterns.
type rules struct {
	groups []group
}

type group struct {
	agents   []string
	allow    []string
	disallow []string
}

func parsePolicy(text string) rules {
	var groups []group
	cur := group{}
	inDirectives := false
	flush := func() {
		if len(cur.agents) > 0 || len(cur.allow) > 0 || len(cur.disallow) > 0 {
			groups = append(groups, cur)
		}
		cur = group{}
		inDirectives = false
	}
	for _, line := range strings.Split(text, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:colon]))
		val := strings.TrimSpace(line[colon+1:])
		switch key {
		case "user-agent":
			if inDirectives {
				flush()
			}
			cur.agents = append(cur.agents, strings.ToLower(val))
		case "allow":
			cur.allow = append(cur.allow, val)
			inDirectives = true
		case "disallow":
			cur.disallow = append(cur.disallow, val)
			inDirectives = true
		}
	}
	flush()
	return rules{groups: groups}
}

// allowed applies the standard precedence: pick the most specific matching
// agent group, then the most specific matching directive; ties go to allow;
// no match means allow.
func (r rules) allowed(userAgent, path string) bool {
	gi := r.groupFor(userAgent)
	if gi < 0 {
		return true
	}
	g := r.groups[gi]

	bestLen := -1
	bestAllow := true
	consider := func(patterns []string, isAllow bool) {
		for _, p := range patterns {
			if p == "" {
				continue
			}
			if !patternMatches(p, path) {
				continue
			}
			n := len(strings.ReplaceAll(strings.TrimSuffix(p, "$"), "*", ""))
			if n > bestLen || (n == bestLen && isAllow && !bestAllow) {
				bestLen = n
				bestAllow = isAllow
			}
		}
	}
	consider(g.disallow, false)
	consider(g.allow, true)
	if bestLen == -1 {
		return true
	}
	return bestAllow
}

// groupFor selects the group with the longest agent token contained in the
// user agent; the wildcard group matches everything but loses to any named
// match.
func (r rules) groupFor(userAgent string) int {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	best, bestScore := -1, -1
	for i, g := range r.groups {
		for _, a := range g.agents {
			var score int
			switch {
			case a == "*":
				score = 0
			case a != "" && strings.Contains(ua, a):
				score = len(a)
			default:
				continue
			}
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
	}
	return best
}

// patternMatches anchors the pattern at the path start, with '*' matching
// any run and a trailing '$' anchoring the end.
func patternMatches(pattern, path string) bool {
	anchorEnd := strings.HasSuffix(pattern, "$")
	p := strings.TrimSuffix(pattern, "$")
	var b strings.Builder
	b.WriteString("^")
	for _, rn := range p {
		if rn == '*' {
			b.WriteString(".*")
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(rn)))
	}
	if anchorEnd {
		b.WriteString("$")
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(path)
}
