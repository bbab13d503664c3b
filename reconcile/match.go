package reconcile

import (
	"log"
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"

	"ptsync/catalog"
	"ptsync/peertube"
)

// defaultMatchCutoff is the minimum title similarity for a fuzzy match.
const defaultMatchCutoff = 0.9

// Matcher recovers identity-ledger mappings in bulk by walking the full
// remote catalog and matching remote names against local titles. Unlike the
// resolver's exact-equality recovery, bulk matching normalizes titles and
// falls back to a similarity match, because remote titles accumulate small
// manual edits over time.
type Matcher struct {
	ledger TransferLedger
	// Cutoff is the minimum similarity (0..1) for a fuzzy match.
	Cutoff float64

	dmp *diffmatchpatch.DiffMatchPatch
}

// NewMatcher creates a bulk matcher recording into the given ledger.
func NewMatcher(led TransferLedger) *Matcher {
	return &Matcher{
		ledger: led,
		Cutoff: defaultMatchCutoff,
		dmp:    diffmatchpatch.New(),
	}
}

// MatchSummary is the outcome of one bulk matching pass.
type MatchSummary struct {
	// Mapped counts newly recorded mappings.
	Mapped int
	// Unmatched lists remote videos no local title could be matched to.
	Unmatched []peertube.Video
}

// Match walks remoteVideos and records a mapping for every one whose name
// matches a local title. Remote videos already known to the identity ledger
// are left untouched (mappings are insert-only).
func (m *Matcher) Match(locals []*catalog.VideoRecord, remoteVideos []peertube.Video) *MatchSummary {
	index := make(map[string][]string) // normalized title -> local ids
	mapped := make(map[string]bool)    // local ids that already have a mapping
	for _, local := range locals {
		key := normalizeTitle(local.Title)
		if key == "" {
			continue
		}
		index[key] = append(index[key], local.LocalID)
		if _, ok := m.ledger.RemoteID(local.LocalID); ok {
			mapped[local.LocalID] = true
		}
	}

	summary := &MatchSummary{}
	for i := range remoteVideos {
		remote := &remoteVideos[i]

		localID, ok := m.matchTitle(remote.Name, index)
		if !ok {
			summary.Unmatched = append(summary.Unmatched, *remote)
			continue
		}
		if mapped[localID] {
			continue
		}

		if err := m.ledger.RecordRemoteID(localID, remote.RemoteID()); err != nil {
			log.Printf("match: recording %s -> %s failed: %v", localID, remote.RemoteID(), err)
			continue
		}
		mapped[localID] = true
		summary.Mapped++
		log.Printf("match: mapped %s -> %s (%q)", localID, remote.RemoteID(), remote.Name)
	}

	return summary
}

// matchTitle finds the local id whose normalized title matches name, first
// exactly, then by similarity above the cutoff. Several local videos with
// the same normalized title tie-break to the first in catalog order.
func (m *Matcher) matchTitle(name string, index map[string][]string) (string, bool) {
	key := normalizeTitle(name)
	if key == "" {
		return "", false
	}

	if ids, ok := index[key]; ok {
		return ids[0], true
	}

	cutoff := m.Cutoff
	if cutoff == 0 {
		cutoff = defaultMatchCutoff
	}

	bestScore := 0.0
	bestID := ""
	for candidate, ids := range index {
		score := m.similarity(key, candidate)
		if score > bestScore {
			bestScore = score
			bestID = ids[0]
		}
	}
	if bestScore >= cutoff {
		return bestID, true
	}
	return "", false
}

// similarity is 1 minus the normalized Levenshtein distance.
func (m *Matcher) similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}

	diffs := m.dmp.DiffMain(a, b, false)
	distance := m.dmp.DiffLevenshtein(diffs)
	return 1 - float64(distance)/float64(longest)
}

// normalizeTitle lowercases a title and strips everything that is not a
// letter or digit, so punctuation and whitespace edits don't break matching.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
