package changes_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewatch/sitewatch/internal/changes"
)

func TestDetector_IdenticalContent(t *testing.T) {
	d := changes.NewDetector(0)

	change := d.Detect("the quick brown fox", "the quick brown fox")

	assert.Zero(t, change.Percentage)
	assert.False(t, change.Significant)
	assert.Equal(t, "no change", change.Summary)
}

func TestDetector_SmallChangeNotSignificant(t *testing.T) {
	d := changes.NewDetector(0)

	// One word changed out of 100: 2% of the diff total, below the 5%
	// default threshold.
	words := make([]string, 100)
	for i := range words {
		words[i] = "stable"
	}
	oldContent := strings.Join(words, " ")
	words[50] = "different"
	newContent := strings.Join(words, " ")

	change := d.Detect(oldContent, newContent)

	assert.Positive(t, change.Percentage)
	assert.False(t, change.Significant, "percentage was %.2f", change.Percentage)
}

func TestDetector_LargeChangeSignificant(t *testing.T) {
	d := changes.NewDetector(0)

	change := d.Detect(
		"alpha beta gamma delta epsilon",
		"one two three four five six seven",
	)

	assert.True(t, change.Significant)
	assert.Positive(t, change.WordsAdded)
	assert.Positive(t, change.WordsRemoved)
	assert.Contains(t, change.Summary, "% changed")
}

func TestDetector_PercentageBounds(t *testing.T) {
	d := changes.NewDetector(0)

	cases := [][2]string{
		{"", "entirely new content here"},
		{"entirely old content here", ""},
		{"a b c", "x y z"},
		{"shared one two three", "shared four five six"},
	}

	for _, tc := range cases {
		change := d.Detect(tc[0], tc[1])
		assert.GreaterOrEqual(t, change.Percentage, 0.0)
		assert.LessOrEqual(t, change.Percentage, 100.0)
	}
}

func TestDetector_CustomThreshold(t *testing.T) {
	strict := changes.NewDetector(0.5)
	lenient := changes.NewDetector(90)

	oldContent := strings.Repeat("word ", 50) + "tail"
	newContent := strings.Repeat("word ", 50) + "changed"

	require.True(t, strict.Detect(oldContent, newContent).Significant)
	require.False(t, lenient.Detect(oldContent, newContent).Significant)
}
