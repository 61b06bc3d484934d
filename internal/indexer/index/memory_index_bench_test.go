package index

import (
	"fmt"
	"testing"
)

func BenchmarkPut(b *testing.B) {
	m := NewMemoryIndex()
	content := make(map[string]int, 100)
	for i := range 100 {
		content[fmt.Sprintf("term%d", i)] = i%5 + 1
	}
	title := map[string]int{"term1": 1, "title": 1}
	b.ReportAllocs()
	i := int64(0)
	for b.Loop() {
		i++
		m.Put(i%10000, 1, title, content)
	}
}

func BenchmarkLookup(b *testing.B) {
	m := NewMemoryIndex()
	for i := range int64(10000) {
		m.Put(i, i%10, nil, map[string]int{"common": 1, fmt.Sprintf("rare%d", i): 1})
	}
	b.ReportAllocs()
	for b.Loop() {
		m.Lookup("common")
	}
}
