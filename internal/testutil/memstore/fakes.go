package memstore

import (
	"context"
	"strings"
	"time"

	"sme-lending-backend/internal/infrastructure/cache"
	"sme-lending-backend/internal/notify"
)

// Cache is a map-backed cache.Store that records invalidations.
type Cache struct {
	m           map[string][]byte
	Invalidated []string
}

var _ cache.Store = (*Cache)(nil)

func NewCache() *Cache { return &Cache{m: map[string][]byte{}} }

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := c.m[key]
	return v, ok
}

func (c *Cache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	c.m[key] = value
}

func (c *Cache) Invalidate(_ context.Context, keys ...string) {
	for _, k := range keys {
		delete(c.m, k)
		c.Invalidated = append(c.Invalidated, k)
	}
}

func (c *Cache) InvalidatePrefix(_ context.Context, prefix string) {
	for k := range c.m {
		if strings.HasPrefix(k, prefix) {
			delete(c.m, k)
		}
	}
	c.Invalidated = append(c.Invalidated, prefix+"*")
}

func (c *Cache) Has(key string) bool { _, ok := c.m[key]; return ok }

// Dispatcher records every notification instead of sending it.
type Dispatcher struct {
	Sent []SentNotification
	Err  error
}

type SentNotification struct {
	Recipient string
	Template  string
	Fields    map[string]string
}

var _ notify.Dispatcher = (*Dispatcher)(nil)

func (d *Dispatcher) Send(_ context.Context, recipient, template string, fields map[string]string) error {
	d.Sent = append(d.Sent, SentNotification{Recipient: recipient, Template: template, Fields: fields})
	return d.Err
}
