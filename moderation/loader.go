package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"path"
	"strings"

	"github.com/samber/lo"

	"github.com/jasurbek-jolanboyev/safechat.uz/errors"
)

//go:embed censored/*.txt
var censoredFolder embed.FS

// WordList is the flattened censored vocabulary, one file per language.
type WordList struct {
	Languages []string
	Words     []string
}

// LoadEmbedded reads the word lists shipped with the binary.
func LoadEmbedded() (WordList, error) {
	return LoadAll(censoredFolder, "censored")
}

// LoadAll reads every *.txt file under dir, one word per line, ignoring
// blank lines and # comments. Duplicate words across languages are kept once.
func LoadAll(fsys fs.FS, dir string) (WordList, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return WordList{}, err
	}

	var list WordList
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return WordList{}, err
		}
		list.Languages = append(list.Languages, strings.TrimSuffix(entry.Name(), ".txt"))

		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word == "" || strings.HasPrefix(word, "#") {
				continue
			}
			list.Words = append(list.Words, strings.ToLower(word))
		}
		if err := scanner.Err(); err != nil {
			return WordList{}, err
		}
	}

	list.Words = lo.Uniq(list.Words)
	if len(list.Words) == 0 {
		return WordList{}, errors.ErrEmptyWordList
	}
	return list, nil
}
