// Package changes compares newly fetched content against stored versions
// and applies the versioning policy.
package changes

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultSignificanceThreshold is the changed-word percentage above which
// a change is considered significant.
const DefaultSignificanceThreshold = 5.0

// maxPercentage clamps the change percentage.
const maxPercentage = 100.0

// Change describes the difference between two content versions.
type Change struct {
	Percentage   float64 `json:"change_percentage"`
	WordsAdded   int     `json:"words_added"`
	WordsRemoved int     `json:"words_removed"`
	Summary      string  `json:"summary"`
	Significant  bool    `json:"significant"`
}

// Detector computes word-level diffs between content versions.
type Detector struct {
	dmp       *diffmatchpatch.DiffMatchPatch
	threshold float64
}

// NewDetector creates a detector with the given significance threshold in
// percent. A non-positive threshold falls back to the default.
func NewDetector(threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultSignificanceThreshold
	}
	return &Detector{
		dmp:       diffmatchpatch.New(),
		threshold: threshold,
	}
}

// Detect compares two content versions word by word. The percentage is
// (added + removed words) / total words in the diff. Byte-identical inputs
// yield exactly 0.
func (d *Detector) Detect(oldContent, newContent string) Change {
	if oldContent == newContent {
		return Change{Summary: "no change"}
	}

	added, removed, unchanged := d.wordDiff(oldContent, newContent)

	total := added + removed + unchanged
	if total == 0 {
		return Change{Summary: "no change"}
	}

	percentage := float64(added+removed) / float64(total) * maxPercentage
	if percentage > maxPercentage {
		percentage = maxPercentage
	}

	return Change{
		Percentage:   percentage,
		WordsAdded:   added,
		WordsRemoved: removed,
		Summary: fmt.Sprintf("+%d/-%d words (%.1f%% changed)",
			added, removed, percentage),
		Significant: percentage > d.threshold,
	}
}

// wordDiff counts added, removed, and unchanged words between two texts.
// Words are mapped to placeholder runes so diffmatchpatch diffs at word
// granularity rather than character granularity.
func (d *Detector) wordDiff(oldContent, newContent string) (added, removed, unchanged int) {
	oldWords := strings.Join(strings.Fields(oldContent), "\n")
	newWords := strings.Join(strings.Fields(newContent), "\n")

	oldChars, newChars, lineArray := d.dmp.DiffLinesToChars(oldWords+"\n", newWords+"\n")
	diffs := d.dmp.DiffMain(oldChars, newChars, false)
	diffs = d.dmp.DiffCharsToLines(diffs, lineArray)

	for _, diff := range diffs {
		words := len(strings.Fields(diff.Text))
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			added += words
		case diffmatchpatch.DiffDelete:
			removed += words
		case diffmatchpatch.DiffEqual:
			unchanged += words
		}
	}

	return added, removed, unchanged
}
