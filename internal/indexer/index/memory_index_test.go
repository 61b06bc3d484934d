package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndLookup(t *testing.T) {
	m := NewMemoryIndex()
	m.Put(2, 42, map[string]int{"java": 1}, map[string]int{"java": 2, "spring": 1})
	m.Put(1, 7, nil, map[string]int{"java": 1})

	got := m.Lookup("java")
	require.Len(t, got, 2)
	assert.Equal(t, Posting{DocID: 1, ContentFreq: 1}, got[0])
	assert.Equal(t, Posting{DocID: 2, TitleFreq: 1, ContentFreq: 2}, got[1])

	assert.Equal(t, 2, m.DocFreq("java"))
	assert.Equal(t, 1, m.DocFreq("spring"))
	assert.Zero(t, m.DocFreq("missing"))
	assert.Nil(t, m.Lookup("missing"))

	owner, ok := m.Owner(2)
	assert.True(t, ok)
	assert.EqualValues(t, 42, owner)
	assert.Equal(t, Stats{Documents: 2, Terms: 2}, m.Stats())
}

func TestPutReplacesPreviousPostings(t *testing.T) {
	m := NewMemoryIndex()
	m.Put(1, 42, map[string]int{"old": 1}, map[string]int{"shared": 3})
	m.Put(1, 42, map[string]int{"new": 1}, map[string]int{"shared": 1})

	assert.Nil(t, m.Lookup("old"), "stale term must be pruned")
	assert.Equal(t, PostingList{{DocID: 1, ContentFreq: 1}}, m.Lookup("shared"))
	assert.Equal(t, PostingList{{DocID: 1, TitleFreq: 1}}, m.Lookup("new"))
	assert.Equal(t, 1, m.DocCount())
}

func TestPutSkipsZeroCounters(t *testing.T) {
	m := NewMemoryIndex()
	m.Put(1, 1, map[string]int{"ghost": 0}, map[string]int{"real": 1})
	assert.Nil(t, m.Lookup("ghost"))
	assert.Equal(t, 1, m.TermCount())
}

func TestDelete(t *testing.T) {
	m := NewMemoryIndex()
	m.Put(1, 42, nil, map[string]int{"java": 1, "only": 1})
	m.Put(2, 42, nil, map[string]int{"java": 1})

	assert.True(t, m.Delete(1))
	assert.False(t, m.Delete(1), "second delete is a no-op")
	assert.False(t, m.Delete(99))

	_, ok := m.Owner(1)
	assert.False(t, ok)
	assert.Equal(t, PostingList{{DocID: 2, ContentFreq: 1}}, m.Lookup("java"))
	assert.Nil(t, m.Lookup("only"))
	assert.Equal(t, 1, m.DocCount())
}

func TestReset(t *testing.T) {
	m := NewMemoryIndex()
	m.Put(1, 1, nil, map[string]int{"a": 1})
	m.Reset()
	assert.Equal(t, Stats{}, m.Stats())
	assert.Nil(t, m.Lookup("a"))
}

// After concurrent writers settle, every remaining posting belongs to a
// document with an owner entry and the term map holds no stale entries.
func TestConcurrentWritersKeepPostingsOwned(t *testing.T) {
	m := NewMemoryIndex()
	const docs = 50
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			for _, p := range m.Lookup("shared") {
				m.Owner(p.DocID)
			}
			m.Stats()
		}
	}()

	var writers sync.WaitGroup
	for w := range 4 {
		writers.Add(1)
		go func(w int) {
			defer writers.Done()
			for i := range 200 {
				id := int64(i%docs + 1)
				if (i+w)%3 == 0 {
					m.Delete(id)
					continue
				}
				m.Put(id, int64(w), nil, map[string]int{"shared": 1, fmt.Sprintf("t%d", i%7): 1})
			}
		}(w)
	}
	writers.Wait()
	close(stop)
	wg.Wait()

	shared := m.Lookup("shared")
	assert.Len(t, shared, m.DocCount())
	for _, p := range shared {
		_, ok := m.Owner(p.DocID)
		assert.True(t, ok)
	}
}
