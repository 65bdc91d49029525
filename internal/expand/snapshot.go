package expand

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Snapshot is an ordered, immutable view of environment variables captured
// once per invocation. The zero value is an empty snapshot.
type Snapshot struct {
	keys   []string
	values map[string]string
}

// NewSnapshot builds a snapshot from pairs, in order. Later pairs override
// earlier ones but keep the original key position.
func NewSnapshot(pairs ...[2]string) Snapshot {
	b := newBuilder(len(pairs))
	for _, pair := range pairs {
		b.set(pair[0], pair[1])
	}
	return b.snapshot()
}

// FromMap builds a snapshot from a map. Keys are ordered lexically because map
// iteration order carries no meaning.
func FromMap(values map[string]string) Snapshot {
	return Snapshot{}.With(values)
}

// FromEnviron parses KEY=VALUE entries such as os.Environ() output. Entries
// without '=' are ignored.
func FromEnviron(environ []string) Snapshot {
	b := newBuilder(len(environ))
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		b.set(key, value)
	}
	return b.snapshot()
}

// LoadDotenv returns a copy of s overlaid with the variables in each dotenv
// file, applied in argument order.
func (s Snapshot) LoadDotenv(paths ...string) (Snapshot, error) {
	out := s
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			return Snapshot{}, fmt.Errorf("read env file %s: %w", path, err)
		}
		out = out.With(values)
	}
	return out, nil
}

// With returns a copy of s with overrides applied. New keys are appended in
// lexical order.
func (s Snapshot) With(overrides map[string]string) Snapshot {
	b := newBuilder(len(s.keys) + len(overrides))
	for _, key := range s.keys {
		b.set(key, s.values[key])
	}
	added := make([]string, 0, len(overrides))
	for key := range overrides {
		added = append(added, key)
	}
	sort.Strings(added)
	for _, key := range added {
		b.set(key, overrides[key])
	}
	return b.snapshot()
}

// Lookup returns the value for key and whether it is present.
func (s Snapshot) Lookup(key string) (string, bool) {
	value, ok := s.values[key]
	return value, ok
}

// Get returns the value for key or the empty string.
func (s Snapshot) Get(key string) string {
	return s.values[key]
}

// Keys returns variable names in snapshot order.
func (s Snapshot) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of variables.
func (s Snapshot) Len() int {
	return len(s.keys)
}

type builder struct {
	keys   []string
	values map[string]string
}

func newBuilder(capacity int) *builder {
	return &builder{
		keys:   make([]string, 0, capacity),
		values: make(map[string]string, capacity),
	}
}

func (b *builder) set(key, value string) {
	if key == "" {
		return
	}
	if _, exists := b.values[key]; !exists {
		b.keys = append(b.keys, key)
	}
	b.values[key] = value
}

func (b *builder) snapshot() Snapshot {
	return Snapshot{keys: b.keys, values: b.values}
}
