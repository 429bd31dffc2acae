package moderation

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/jasurbek-jolanboyev/safechat.uz/errors"
)

const replacementChar = '*'

// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, replacementChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		hits     int
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
			hits:     1,
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
			hits:     3,
		},
		{
			name: "Leet speak and internal punctuation",
			// B (index 9) . 4 . d . g . € r (index 20) -> 10 characters
			input:    "Look at B.4.d.g.€r !",
			expected: "Look at ********** !",
			hits:     1,
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
			hits:     2,
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Un été avec un badger",
			expected: "Un été avec un ******",
			hits:     1,
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "I love badger!",
			expected: "I love ******!",
			hits:     1,
		},
		{
			name:     "Nothing to censor",
			input:    "SafeChat is amazing",
			expected: "SafeChat is amazing",
			hits:     0,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			hits:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, hits := mod.Censor(tt.input)
			req.Equal(tt.expected, content, "test=%s,", tt.name)
			req.Equal(tt.hits, hits)
		})
	}
}

func TestLoadAll_Merges_And_Deduplicates(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"censored/en.txt": {Data: []byte("# english\nbadger\nsnake\n\nbadger\n")},
		"censored/fr.txt": {Data: []byte("blaireau\nsnake\n")},
		"censored/notes":  {Data: []byte("ignored, not a txt file")},
	}

	list, err := LoadAll(fsys, "censored")

	req.NoError(err)
	req.ElementsMatch([]string{"en", "fr"}, list.Languages)
	req.ElementsMatch([]string{"badger", "snake", "blaireau"}, list.Words)
}

func TestLoadAll_Empty_Word_List(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"censored/en.txt": {Data: []byte("# only comments\n\n")},
	}

	_, err := LoadAll(fsys, "censored")

	req.ErrorIs(err, errors.ErrEmptyWordList)
}

func TestLoadEmbedded_Ships_Words(t *testing.T) {
	req := require.New(t)

	list, err := LoadEmbedded()

	req.NoError(err)
	req.NotEmpty(list.Words)
	req.Contains(list.Languages, "en")
}
