package persistence

import "time"

// TokenLayout formats UpdatedAt tokens.
const TokenLayout = time.RFC3339Nano

// NextToken returns the UpdatedAt token for a write at now following prev.
// Tokens are UTC and strictly increasing per document: when the clock has not
// moved past prev the new token is prev plus one nanosecond.
func NextToken(prev string, now time.Time) string {
	next := now.UTC()
	if prev != "" {
		if last, err := time.Parse(TokenLayout, prev); err == nil && !next.After(last) {
			next = last.Add(time.Nanosecond)
		}
	}
	return next.Format(TokenLayout)
}

// Stamp prepares doc for storage: it assigns the next token and revision and
// normalizes empty collections.
func Stamp(doc Document, prev *Document, now time.Time) Document {
	out := doc.Clone()
	prevToken := ""
	var prevRevision int64
	if prev != nil {
		prevToken = prev.UpdatedAt
		prevRevision = prev.Revision
	}
	out.UpdatedAt = NextToken(prevToken, now)
	out.Revision = prevRevision + 1
	if out.Kind == KindLive {
		out.BaseLiveUpdatedAt = ""
	}
	out.EnsureSlices()
	return out
}
