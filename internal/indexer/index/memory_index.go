// Package index holds the in-memory inverted index: term to per-document
// frequencies, plus document to owner. The term map is split into
// lock-striped shards so writers touching different terms do not contend.
package index

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const (
	termShards = 32
	docStripes = 64
)

type termShard struct {
	mu    sync.RWMutex
	terms map[string]map[int64]*Posting
}

// MemoryIndex is safe for concurrent use. Writes for the same document are
// serialised by a per-document stripe lock; writes for different documents
// only meet on the shards of the terms they share.
type MemoryIndex struct {
	shards [termShards]termShard

	docMu    sync.RWMutex
	owners   map[int64]int64
	docTerms map[int64][]string

	stripes [docStripes]sync.Mutex
}

func NewMemoryIndex() *MemoryIndex {
	m := &MemoryIndex{
		owners:   make(map[int64]int64),
		docTerms: make(map[int64][]string),
	}
	for i := range m.shards {
		m.shards[i].terms = make(map[string]map[int64]*Posting)
	}
	return m
}

func (m *MemoryIndex) shardFor(term string) *termShard {
	return &m.shards[xxhash.Sum64String(term)%termShards]
}

func (m *MemoryIndex) stripeFor(docID int64) *sync.Mutex {
	return &m.stripes[uint64(docID)%docStripes]
}

// Put replaces everything stored for docID with the given frequencies.
// Terms whose counters are both zero are skipped.
func (m *MemoryIndex) Put(docID, ownerID int64, titleFreq, contentFreq map[string]int) {
	postings := make(map[string]*Posting, len(titleFreq)+len(contentFreq))
	for term, n := range titleFreq {
		postings[term] = &Posting{DocID: docID, TitleFreq: n}
	}
	for term, n := range contentFreq {
		if p, ok := postings[term]; ok {
			p.ContentFreq = n
			continue
		}
		postings[term] = &Posting{DocID: docID, ContentFreq: n}
	}
	terms := make([]string, 0, len(postings))
	for term, p := range postings {
		if p.Empty() {
			delete(postings, term)
			continue
		}
		terms = append(terms, term)
	}

	stripe := m.stripeFor(docID)
	stripe.Lock()
	defer stripe.Unlock()

	m.docMu.RLock()
	previous := m.docTerms[docID]
	m.docMu.RUnlock()
	m.stripPostings(docID, previous)

	m.docMu.Lock()
	m.owners[docID] = ownerID
	m.docTerms[docID] = terms
	m.docMu.Unlock()

	for term, p := range postings {
		shard := m.shardFor(term)
		shard.mu.Lock()
		docs, ok := shard.terms[term]
		if !ok {
			docs = make(map[int64]*Posting)
			shard.terms[term] = docs
		}
		docs[docID] = p
		shard.mu.Unlock()
	}
}

// Delete removes docID's postings and then its owner entry. It reports
// whether the document was present.
func (m *MemoryIndex) Delete(docID int64) bool {
	stripe := m.stripeFor(docID)
	stripe.Lock()
	defer stripe.Unlock()

	m.docMu.RLock()
	terms, ok := m.docTerms[docID]
	m.docMu.RUnlock()
	if !ok {
		return false
	}
	m.stripPostings(docID, terms)

	m.docMu.Lock()
	delete(m.owners, docID)
	delete(m.docTerms, docID)
	m.docMu.Unlock()
	return true
}

func (m *MemoryIndex) stripPostings(docID int64, terms []string) {
	for _, term := range terms {
		shard := m.shardFor(term)
		shard.mu.Lock()
		if docs, ok := shard.terms[term]; ok {
			delete(docs, docID)
			if len(docs) == 0 {
				delete(shard.terms, term)
			}
		}
		shard.mu.Unlock()
	}
}

// Lookup returns a copy of the postings for term, sorted by DocID.
func (m *MemoryIndex) Lookup(term string) PostingList {
	shard := m.shardFor(term)
	shard.mu.RLock()
	docs, ok := shard.terms[term]
	if !ok {
		shard.mu.RUnlock()
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, p := range docs {
		result = append(result, *p)
	}
	shard.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// DocFreq is the number of documents containing term.
func (m *MemoryIndex) DocFreq(term string) int {
	shard := m.shardFor(term)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	return len(shard.terms[term])
}

// Owner returns the owner recorded for docID.
func (m *MemoryIndex) Owner(docID int64) (int64, bool) {
	m.docMu.RLock()
	defer m.docMu.RUnlock()
	owner, ok := m.owners[docID]
	return owner, ok
}

// DocCount is the number of indexed documents across all owners.
func (m *MemoryIndex) DocCount() int {
	m.docMu.RLock()
	defer m.docMu.RUnlock()
	return len(m.owners)
}

// TermCount is the number of distinct terms with at least one posting.
func (m *MemoryIndex) TermCount() int {
	n := 0
	for i := range m.shards {
		m.shards[i].mu.RLock()
		n += len(m.shards[i].terms)
		m.shards[i].mu.RUnlock()
	}
	return n
}

func (m *MemoryIndex) Stats() Stats {
	return Stats{Documents: m.DocCount(), Terms: m.TermCount()}
}

// Reset drops every document.
func (m *MemoryIndex) Reset() {
	for i := range m.stripes {
		m.stripes[i].Lock()
	}
	defer func() {
		for i := range m.stripes {
			m.stripes[i].Unlock()
		}
	}()
	for i := range m.shards {
		m.shards[i].mu.Lock()
		m.shards[i].terms = make(map[string]map[int64]*Posting)
		m.shards[i].mu.Unlock()
	}
	m.docMu.Lock()
	m.owners = make(map[int64]int64)
	m.docTerms = make(map[int64][]string)
	m.docMu.Unlock()
}
