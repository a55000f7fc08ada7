package namemlp

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Terminator marks both the start of a word (as context padding) and its end.
const Terminator = '.'

// TerminatorCode is the reserved code the terminator always maps to.
const TerminatorCode = 0

// Vocab is a bijective mapping between the corpus alphabet plus the
// terminator and dense integer codes 0..Size()-1. Built once, immutable.
type Vocab struct {
	codes map[rune]int
	runes []rune
}

// BuildVocab derives the alphabet from the word list, assigns the terminator
// code 0 and the remaining characters sorted, increasing codes from 1.
func BuildVocab(words []string) (*Vocab, error) {
	seen := make(map[rune]bool)
	for _, w := range words {
		for _, r := range w {
			if r == Terminator {
				return nil, fmt.Errorf("reserved terminator %q appears in corpus word %q", Terminator, w)
			}
			seen[r] = true
		}
	}

	alphabet := make([]rune, 0, len(seen))
	for r := range seen {
		alphabet = append(alphabet, r)
	}
	sort.Slice(alphabet, func(i, j int) bool { return alphabet[i] < alphabet[j] })

	v := &Vocab{
		codes: make(map[rune]int, len(alphabet)+1),
		runes: make([]rune, 0, len(alphabet)+1),
	}
	v.codes[Terminator] = TerminatorCode
	v.runes = append(v.runes, Terminator)
	for i, r := range alphabet {
		v.codes[r] = i + 1
		v.runes = append(v.runes, r)
	}
	return v, nil
}

// Size returns the vocabulary size including the terminator.
func (v *Vocab) Size() int { return len(v.runes) }

// Encode maps a single character to its code.
func (v *Vocab) Encode(r rune) (int, error) {
	code, ok := v.codes[r]
	if !ok {
		return 0, fmt.Errorf("unknown symbol %q", r)
	}
	return code, nil
}

// EncodeWord maps every character of w. No terminator is appended here;
// the dataset builder owns that.
func (v *Vocab) EncodeWord(w string) ([]int, error) {
	codes := make([]int, 0, len(w))
	for _, r := range w {
		code, err := v.Encode(r)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// Decode maps a code back to its character. Codes outside 0..Size()-1 are a
// programmer error and panic.
func (v *Vocab) Decode(code int) rune { return v.runes[code] }

type vocabFile struct {
	ToCode map[string]int `json:"to_code"`
	Size   int            `json:"size"`
}

// SaveVocab writes the mapping as indented JSON.
func SaveVocab(path string, v *Vocab) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := vocabFile{ToCode: make(map[string]int, v.Size()), Size: v.Size()}
	for r, code := range v.codes {
		data.ToCode[string(r)] = code
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// LoadVocab reads a mapping previously written by SaveVocab.
func LoadVocab(path string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var data vocabFile
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return nil, err
	}
	if len(data.ToCode) != data.Size {
		return nil, fmt.Errorf("vocab file %s: %d symbols but declared size %d", path, len(data.ToCode), data.Size)
	}

	v := &Vocab{
		codes: make(map[rune]int, data.Size),
		runes: make([]rune, data.Size),
	}
	for s, code := range data.ToCode {
		rs := []rune(s)
		if len(rs) != 1 {
			return nil, fmt.Errorf("vocab file %s: symbol %q for code %d is not a single character", path, s, code)
		}
		r := rs[0]
		if code < 0 || code >= data.Size {
			return nil, fmt.Errorf("vocab file %s: code %d for %q out of range", path, code, s)
		}
		v.codes[r] = code
		v.runes[code] = r
	}
	if v.runes[TerminatorCode] != Terminator {
		return nil, fmt.Errorf("vocab file %s: terminator not at code %d", path, TerminatorCode)
	}
	return v, nil
}
