// Package ranker scores documents with title-boosted TF times smoothed IDF
// and orders them for a results page.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

const (
	// TitleBoost weighs one title occurrence against one content occurrence.
	TitleBoost = 3.0
	// MinScore is the relevance floor; lower-scoring documents are dropped.
	MinScore = 0.1
)

type ScoredDoc struct {
	DocID int64
	Score float64
}

// TermPostings pairs a query term with its postings over the whole index.
type TermPostings struct {
	Term     string
	Postings index.PostingList
}

// IDF is ln((N+1)/(df+1)), with 1 for an index of at most one document and
// 0 for a term no document contains.
func IDF(totalDocs, docFreq int) float64 {
	if totalDocs <= 1 {
		return 1.0
	}
	if docFreq == 0 {
		return 0.0
	}
	return math.Log(float64(totalDocs+1) / float64(docFreq+1))
}

func TF(p index.Posting) float64 {
	return p.TF(TitleBoost)
}

// Rank sums TF*IDF per document over terms, in the order given, for the
// postings allow accepts. Documents under MinScore are dropped; the rest
// are sorted by score descending, then id ascending.
func Rank(terms []TermPostings, totalDocs int, allow func(docID int64) bool) []ScoredDoc {
	scores := make(map[int64]float64)
	order := make([]int64, 0)
	for _, tp := range terms {
		idf := IDF(totalDocs, len(tp.Postings))
		for _, p := range tp.Postings {
			if allow != nil && !allow(p.DocID) {
				continue
			}
			if _, seen := scores[p.DocID]; !seen {
				order = append(order, p.DocID)
			}
			scores[p.DocID] += TF(p) * idf
		}
	}

	result := make([]ScoredDoc, 0, len(order))
	for _, docID := range order {
		if score := scores[docID]; score >= MinScore {
			result = append(result, ScoredDoc{DocID: docID, Score: score})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	return result
}
