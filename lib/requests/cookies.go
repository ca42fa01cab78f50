package requests

import (
	"iter"
	"slices"
	"strings"
	"sync"
)

// CookieJar maps cookie names to values, it remembers the order names
// were first set in. It is safe for concurrent use.
type CookieJar struct {
	mu     sync.RWMutex
	names  []string
	values map[string]string
}

func NewCookieJar() *CookieJar {
	return &CookieJar{values: map[string]string{}}
}

// CookieJarFrom creates a jar out of a map, names are inserted in sorted order.
func CookieJarFrom(cookies map[string]string) *CookieJar {
	jar := NewCookieJar()
	jar.UpdateMap(cookies)
	return jar
}

// Set overwrites the value of `name`, an existing name keeps its position.
func (j *CookieJar) Set(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.set(name, value)
}

func (j *CookieJar) set(name, value string) {
	if j.values == nil {
		j.values = map[string]string{}
	}
	if _, exists := j.values[name]; !exists {
		j.names = append(j.names, name)
	}
	j.values[name] = value
}

func (j *CookieJar) Get(name string) (string, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	value, ok := j.values[name]
	return value, ok
}

func (j *CookieJar) Delete(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, exists := j.values[name]; !exists {
		return
	}
	delete(j.values, name)
	j.names = slices.DeleteFunc(j.names, func(n string) bool {
		return n == name
	})
}

func (j *CookieJar) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.names)
}

// Names returns every cookie name in insertion order.
func (j *CookieJar) Names() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return slices.Clone(j.names)
}

// Dict returns a copy of the jar as a plain map.
func (j *CookieJar) Dict() map[string]string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make(map[string]string, len(j.values))
	for name, value := range j.values {
		out[name] = value
	}
	return out
}

type cookiePair struct {
	name  string
	value string
}

func (j *CookieJar) snapshot() []cookiePair {
	j.mu.RLock()
	defer j.mu.RUnlock()
	pairs := make([]cookiePair, len(j.names))
	for i, name := range j.names {
		pairs[i] = cookiePair{name: name, value: j.values[name]}
	}
	return pairs
}

// All iterates over a snapshot of the jar in insertion order.
func (j *CookieJar) All() iter.Seq2[string, string] {
	pairs := j.snapshot()
	return func(yield func(string, string) bool) {
		for _, p := range pairs {
			if !yield(p.name, p.value) {
				return
			}
		}
	}
}

// Update copies every cookie of `other` into the jar, values of `other` win.
func (j *CookieJar) Update(other *CookieJar) {
	if other == nil {
		return
	}
	pairs := other.snapshot()

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, p := range pairs {
		j.set(p.name, p.value)
	}
}

// UpdateMap copies `cookies` into the jar, new names are inserted in sorted order.
func (j *CookieJar) UpdateMap(cookies map[string]string) {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	slices.Sort(names)

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, name := range names {
		j.set(name, cookies[name])
	}
}

func (j *CookieJar) Clone() *CookieJar {
	clone := NewCookieJar()
	clone.Update(j)
	return clone
}

// String renders the jar as a cookie header value: "k1=v1; k2=v2".
func (j *CookieJar) String() string {
	pairs := j.snapshot()
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.name + "=" + p.value
	}
	return strings.Join(parts, "; ")
}
