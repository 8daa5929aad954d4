package tile_proxy

import (
	"sync"
	"time"
)

// CacheItem 缓存项
type CacheItem struct {
	Data        []byte
	ContentType string
	ExpiresAt   time.Time
}

// CacheStats 缓存命中统计
type CacheStats struct {
	Size   int   `json:"size"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// TileCache 瓦片缓存
type TileCache struct {
	mu      sync.RWMutex
	items   map[string]*CacheItem
	maxSize int
	ttl     time.Duration
	hits    int64
	misses  int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewTileCache 创建瓦片缓存并启动过期清理
func NewTileCache(maxSize int, ttl time.Duration) *TileCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	cache := &TileCache{
		items:   make(map[string]*CacheItem),
		maxSize: maxSize,
		ttl:     ttl,
		stop:    make(chan struct{}),
	}

	go cache.cleanupLoop(time.Minute)

	return cache
}

// Get 获取未过期的缓存
func (c *TileCache) Get(key string) (*CacheItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || time.Now().After(item.ExpiresAt) {
		c.misses++
		return nil, false
	}
	c.hits++
	return item, true
}

// Set 设置缓存，已满时淘汰最早过期的项
func (c *TileCache) Set(key string, data []byte, contentType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictOldest()
	}

	c.items[key] = &CacheItem{
		Data:        data,
		ContentType: contentType,
		ExpiresAt:   time.Now().Add(c.ttl),
	}
}

func (c *TileCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range c.items {
		if oldestKey == "" || item.ExpiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.ExpiresAt
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

func (c *TileCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *TileCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
		}
	}
}

// Close 停止清理协程
func (c *TileCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Clear 清空缓存
func (c *TileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*CacheItem)
}

func (c *TileCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Size: len(c.items), Hits: c.hits, Misses: c.misses}
}
