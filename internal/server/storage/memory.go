package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps blobs in memory. Used by tests and local runs without
// object storage. It serves its own download links via ServeHTTP, mounted
// under baseURL.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]Object
	baseURL string
	now     func() time.Time
}

// Object is one stored blob.
type Object struct {
	Data        []byte
	ContentType string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: map[string]Object{}, baseURL: baseURL, now: time.Now}
}

func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: buf.Bytes(), ContentType: contentType}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.objects, k)
	}
	return nil
}

func (m *MemoryStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	_, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("presign %s: no such object", key)
	}
	return fmt.Sprintf("%s/%s?expires=%d", m.baseURL, url.PathEscape(key), m.now().Add(ttl).Unix()), nil
}

// ServeHTTP answers a link made by PresignGet. The request path, with the
// mount prefix stripped, is the key. Expired links get 403.
func (m *MemoryStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	exp, err := strconv.ParseInt(r.URL.Query().Get("expires"), 10, 64)
	if err != nil || m.now().Unix() > exp {
		http.Error(w, "link expired", http.StatusForbidden)
		return
	}
	o, ok := m.Get(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", o.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(o.Data)))
	if r.Method == http.MethodGet {
		_, _ = w.Write(o.Data)
	}
}

// Get returns a stored object.
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}

// Keys lists stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
