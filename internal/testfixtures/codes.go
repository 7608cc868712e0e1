package testfixtures

import (
	"fmt"
	"sync"
)

// CodeGenerator yields predictable invitation and auth codes.
type CodeGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewCodeGenerator returns a generator producing "<prefix>-1", "<prefix>-2", ...
// An empty prefix defaults to "code".
func NewCodeGenerator(prefix string) *CodeGenerator {
	if prefix == "" {
		prefix = "code"
	}
	return &CodeGenerator{prefix: prefix}
}

// Next returns the next code in the sequence.
func (g *CodeGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc exposes Next for constructors that take a func() string.
func (g *CodeGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}
