package extract

import (
	"strings"
	"unicode"
)

// realRegionCodes is the closed set of 2-digit codes that can start a
// region line in the batch PDFs. Covers 01–95 plus the detached 99.
var realRegionCodes = func() map[string]bool {
	codes := make(map[string]bool, 96)
	for i := 1; i <= 95; i++ {
		codes[padCode(i)] = true
	}
	codes["99"] = true
	return codes
}()

func padCode(i int) string {
	if i < 10 {
		return "0" + string(rune('0'+i))
	}
	return string(rune('0'+i/10)) + string(rune('0'+i%10))
}

// regionBlock is one region's physically re-joined text: PDF line wrapping
// splits a region row across lines, so continuation lines are appended
// until the next region start.
type regionBlock struct {
	Code string
	Text string
}

// mergeRegionBlocks walks lines and groups them into per-region blocks.
// start decides whether a line opens a new region and returns its code.
func mergeRegionBlocks(text string, start func(line string) (string, bool)) []regionBlock {
	var blocks []regionBlock
	var cur *regionBlock

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if code, ok := start(line); ok {
			if cur != nil {
				blocks = append(blocks, *cur)
			}
			cur = &regionBlock{Code: code, Text: line}
			continue
		}
		if cur != nil {
			cur.Text += " " + line
		}
	}
	if cur != nil {
		blocks = append(blocks, *cur)
	}
	return blocks
}

// isRegionNameLine reports whether a line opens a region row: a known
// 2-digit code, a space, and alphabetic region-name content shortly after.
// The alpha check rejects table rows that happen to start with two digits.
func isRegionNameLine(line string) (string, bool) {
	if len(line) < 3 {
		return "", false
	}
	code := line[:2]
	if !realRegionCodes[code] || line[2] != ' ' {
		return "", false
	}
	runes := []rune(line)
	if len(runes) <= 10 {
		return "", false
	}
	for _, r := range runes[3:10] {
		if unicode.IsLetter(r) {
			return code, true
		}
	}
	return "", false
}
