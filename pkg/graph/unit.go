package graph

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/loader"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkoukk/tiktoken-go"
)

var tableDelimRe = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)+\|?\s*$`)

// transformIntoUnits packs consecutive sentences into units of at most
// maxTokens tokens. A sentence that alone exceeds the limit becomes its own
// unit. Start and End are sentence indices, End exclusive.
func transformIntoUnits(
	text string,
	fileID string,
	encoder string,
	maxTokens int,
) ([]common.Unit, error) {
	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	units := make([]common.Unit, 0)
	start := 0
	flush := func(end int) error {
		uID, err := gonanoid.New()
		if err != nil {
			return err
		}
		units = append(units, common.Unit{
			ID:     uID,
			FileID: fileID,
			Start:  start,
			End:    end,
			Text:   strings.Join(sentences[start:end], " "),
		})
		start = end
		return nil
	}

	for i := 1; i < len(sentences); i++ {
		candidate := strings.Join(sentences[start:i+1], " ")
		if len(enc.Encode(candidate, nil, nil)) <= maxTokens {
			continue
		}
		if err := flush(i); err != nil {
			return nil, err
		}
	}
	if err := flush(len(sentences)); err != nil {
		return nil, err
	}

	return units, nil
}

// getUnitsFromText loads the text of file and splits it into units. The
// file's own MaxTokens wins over the client default.
func getUnitsFromText(
	ctx context.Context,
	file loader.GraphFile,
	encoder string,
	maxTokens int,
) ([]common.Unit, error) {
	textBytes, err := file.GetText(ctx)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(textBytes))
	if text == "" {
		return nil, nil
	}

	if file.MaxTokens > 0 {
		maxTokens = file.MaxTokens
	}
	return transformIntoUnits(text, file.ID, encoder, maxTokens)
}

// splitIntoSentences splits text at sentence punctuation and blank lines.
// Markdown tables (header row followed by a delimiter row) stay together as
// one sentence; other lines containing "|" are kept as single sentences.
func splitIntoSentences(text string) []string {
	lines := strings.Split(text, "\n")

	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	addProse := func(line string) {
		for _, sentence := range splitLineIntoSentences(line) {
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(sentence)
			if strings.HasSuffix(sentence, ".") ||
				strings.HasSuffix(sentence, "!") ||
				strings.HasSuffix(sentence, "?") {
				flush()
			}
		}
	}

	inTable := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		row := isTableRow(trimmed)

		switch {
		case inTable && row:
			current.WriteString("\n")
			current.WriteString(line)
		case inTable:
			inTable = false
			flush()
			if trimmed != "" {
				addProse(trimmed)
			}
		case row && i+1 < len(lines) && tableDelimRe.MatchString(strings.TrimSpace(lines[i+1])):
			flush()
			inTable = true
			current.WriteString(line)
		case row:
			flush()
			sentences = append(sentences, trimmed)
		case trimmed == "":
			flush()
		default:
			addProse(trimmed)
		}
	}
	flush()

	return sentences
}

func isTableRow(trimmed string) bool {
	return trimmed != "" && strings.Contains(trimmed, "|")
}

// splitLineIntoSentences splits a single line after '.', '!' or '?'.
// Repeated punctuation and closing quotes or brackets stay with the
// sentence; a period after a digit does not end a sentence when a space or
// another digit follows.
func splitLineIntoSentences(line string) []string {
	var sentences []string
	var current strings.Builder

	for i := 0; i < len(line); i++ {
		current.WriteByte(line[i])
		if !isSentenceEnd(line[i]) {
			continue
		}
		if i > 0 && unicode.IsDigit(rune(line[i-1])) && i+1 < len(line) &&
			(line[i+1] == ' ' || unicode.IsDigit(rune(line[i+1]))) {
			// list marker or decimal such as PM2.5
			continue
		}

		j := i + 1
		for j < len(line) && isSentenceEnd(line[j]) {
			current.WriteByte(line[j])
			j++
		}
		for j < len(line) && strings.IndexByte("\"')]}", line[j]) >= 0 {
			current.WriteByte(line[j])
			j++
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
		i = j - 1
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}
