package core

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LogTimeLayout is the timestamp format used in section A, e.g.
// "20/Mar/2013:10:12:55 +0100".
const LogTimeLayout = "02/Jan/2006:15:04:05 -0700"

// DefaultTimestampCacheSize bounds the number of distinct timestamps kept by
// a TimestampCache when no size is configured.
const DefaultTimestampCacheSize = 4096

// ParseLogTime converts an audit-log timestamp to Unix epoch seconds.
// ok is false when the string does not follow LogTimeLayout.
func ParseLogTime(s string) (unix int64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	t, err := time.Parse(LogTimeLayout, s)
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}

type parsedTime struct {
	unix int64
	ok   bool
}

// TimestampCache memoizes ParseLogTime. Audit logs written under load carry
// long runs of records stamped with the same second.
type TimestampCache struct {
	cache *lru.Cache[string, parsedTime]
}

// NewTimestampCache creates a cache holding up to size timestamps.
func NewTimestampCache(size int) (*TimestampCache, error) {
	if size <= 0 {
		size = DefaultTimestampCacheSize
	}
	c, err := lru.New[string, parsedTime](size)
	if err != nil {
		return nil, err
	}
	return &TimestampCache{cache: c}, nil
}

// Parse returns the cached conversion of s, computing it on a miss.
func (c *TimestampCache) Parse(s string) (int64, bool) {
	if v, found := c.cache.Get(s); found {
		return v.unix, v.ok
	}
	unix, ok := ParseLogTime(s)
	c.cache.Add(s, parsedTime{unix: unix, ok: ok})
	return unix, ok
}

// Len returns the number of cached timestamps.
func (c *TimestampCache) Len() int {
	return c.cache.Len()
}
