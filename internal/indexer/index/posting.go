package index

// Posting is the per-document frequency record for one term.
type Posting struct {
	DocID       int64
	TitleFreq   int
	ContentFreq int
}

// Empty reports whether the posting carries no occurrences.
func (p Posting) Empty() bool {
	return p.TitleFreq == 0 && p.ContentFreq == 0
}

// TF is the title-boosted term frequency.
func (p Posting) TF(titleBoost float64) float64 {
	return float64(p.ContentFreq) + titleBoost*float64(p.TitleFreq)
}

// PostingList is sorted by DocID.
type PostingList []Posting

// Stats is a point-in-time view of the index size.
type Stats struct {
	Documents int
	Terms     int
}
