// Package numeric converts digit and kanji-number spans into the
// numeral writing variants a Japanese IME offers: kanji numerals, the
// formal daiji forms, fullwidth digits and comma-separated figures.
// All functions are pure; the package holds no state.
package numeric

import (
	"strings"
	"unicode"
)

// Style tags one writing variant.
type Style uint8

const (
	StyleArabic Style = iota
	StyleSeparatedArabic
	StyleFullWidth
	StyleKanji
	StyleOldKanji
)

// Variant is one alternative rendering of a number span.
type Variant struct {
	Value       string
	Description string
	Style       Style
}

const (
	descNumber   = "数字"
	descKanji    = "漢数字"
	descOldKanji = "大字"
)

var (
	kanjiDigits = [10]string{"〇", "一", "二", "三", "四", "五", "六", "七", "八", "九"}
	oldDigits   = [10]string{"", "壱", "弐", "参", "四", "五", "六", "七", "八", "九"}
	fullDigits  = [10]string{"０", "１", "２", "３", "４", "５", "６", "７", "８", "９"}

	smallRanks    = [4]string{"", "十", "百", "千"}
	bigRanks      = [5]string{"", "万", "億", "兆", "京"}
	oldSmallRanks = [4]string{"", "拾", "百", "阡"}
	oldBigRanks   = [5]string{"", "萬", "億", "兆", "京"}
)

// maxDigits bounds conversion; anything longer than 京京 territory is
// not a number a typist wants spelled out.
const maxDigits = 20

// IsDecimal reports whether s is a non-empty run of halfwidth digits.
func IsDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Decode finds the first number span in text (halfwidth digits,
// fullwidth digits, or kanji numerals) and returns the text rewritten
// with each numeral variant substituted for the span. Text with no
// number span decodes to nothing.
func Decode(text string) []Variant {
	start, end, arabic := findNumberSpan(text)
	if arabic == "" {
		return nil
	}
	prefix, suffix := text[:start], text[end:]

	variants := Convert(arabic)
	if prefix == "" && suffix == "" {
		return variants
	}
	out := make([]Variant, 0, len(variants))
	for _, v := range variants {
		v.Value = prefix + v.Value + suffix
		out = append(out, v)
	}
	return out
}

// Convert renders a halfwidth digit string in every supported style.
// The plain input itself is not repeated.
func Convert(arabic string) []Variant {
	if !IsDecimal(arabic) || len(arabic) > maxDigits {
		return nil
	}
	var variants []Variant

	if sep := SeparateWithCommas(arabic); sep != arabic {
		variants = append(variants, Variant{Value: sep, Description: descNumber, Style: StyleSeparatedArabic})
	}
	variants = append(variants, Variant{Value: toFullWidth(arabic), Description: descNumber, Style: StyleFullWidth})

	trimmed := strings.TrimLeft(arabic, "0")
	if trimmed == "" {
		// Zero has a single kanji form and the shared daiji zero.
		variants = append(variants, Variant{Value: "〇", Description: descKanji, Style: StyleKanji})
		variants = append(variants, Variant{Value: "零", Description: descOldKanji, Style: StyleOldKanji})
		return variants
	}

	if kanji, ok := toKanji(trimmed, false); ok {
		variants = append(variants, Variant{Value: kanji, Description: descKanji, Style: StyleKanji})
	}
	if old, ok := toKanji(trimmed, true); ok {
		variants = append(variants, Variant{Value: old, Description: descOldKanji, Style: StyleOldKanji})
	}
	// The bare rank daiji are conventional for exactly ten and one
	// thousand.
	switch trimmed {
	case "10":
		variants = append(variants, Variant{Value: "拾", Description: descOldKanji, Style: StyleOldKanji})
	case "1000":
		variants = append(variants, Variant{Value: "阡", Description: descOldKanji, Style: StyleOldKanji})
	}
	return variants
}

// SeparateWithCommas groups a digit string in threes: 1234567 ->
// 1,234,567. Inputs that are not plain digit runs come back unchanged.
func SeparateWithCommas(arabic string) string {
	if !IsDecimal(arabic) || len(arabic) <= 3 {
		return arabic
	}
	var b strings.Builder
	head := len(arabic) % 3
	if head > 0 {
		b.WriteString(arabic[:head])
	}
	for i := head; i < len(arabic); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(arabic[i : i+3])
	}
	return b.String()
}

func toFullWidth(arabic string) string {
	var b strings.Builder
	for _, r := range arabic {
		b.WriteString(fullDigits[r-'0'])
	}
	return b.String()
}

// toKanji renders a digit string (no leading zeros) as kanji numerals.
// old selects the daiji digits and ranks. The reading drops 一 before
// 十/百/千 in the modern style; daiji always spell the digit out.
func toKanji(digits string, old bool) (string, bool) {
	if len(digits) == 0 || len(digits) > maxDigits {
		return "", false
	}
	numGroups := (len(digits) + 3) / 4
	if numGroups > len(bigRanks) {
		return "", false
	}

	digitNames, smalls, bigs := kanjiDigits, smallRanks, bigRanks
	if old {
		for i := 1; i < 10; i++ {
			digitNames[i] = oldDigits[i]
		}
		smalls, bigs = oldSmallRanks, oldBigRanks
	}

	var b strings.Builder
	for g := 0; g < numGroups; g++ {
		groupEnd := len(digits) - (numGroups-1-g)*4
		groupStart := groupEnd - 4
		if groupStart < 0 {
			groupStart = 0
		}
		group := digits[groupStart:groupEnd]

		empty := true
		for i := 0; i < len(group); i++ {
			d := int(group[i] - '0')
			if d == 0 {
				continue
			}
			empty = false
			rankIdx := len(group) - 1 - i
			if d == 1 && rankIdx > 0 && !old {
				b.WriteString(smalls[rankIdx])
				continue
			}
			b.WriteString(digitNames[d])
			b.WriteString(smalls[rankIdx])
		}
		if !empty {
			b.WriteString(bigs[numGroups-1-g])
		}
	}
	return b.String(), true
}

// KanjiToArabic parses a kanji number (positional like 一二三 or
// rank-based like 百二十三万) into a halfwidth digit string.
func KanjiToArabic(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	var total, section, num uint64
	sawDigit := false

	for _, r := range s {
		if d, ok := kanjiDigitValue(r); ok {
			if num > (^uint64(0)-d)/10 {
				return "", false
			}
			num = num*10 + d
			sawDigit = true
			continue
		}
		if v, ok := smallRankValue(r); ok {
			if num == 0 {
				num = 1
			}
			section += num * v
			num = 0
			sawDigit = true
			continue
		}
		if v, ok := bigRankValue(r); ok {
			section += num
			if section == 0 {
				return "", false
			}
			inc := section * v
			if inc/v != section || total > ^uint64(0)-inc {
				return "", false
			}
			total += inc
			section, num = 0, 0
			continue
		}
		return "", false
	}
	if !sawDigit && total == 0 {
		return "", false
	}
	total += section + num
	return formatUint(total), true
}

func kanjiDigitValue(r rune) (uint64, bool) {
	for i, k := range kanjiDigits {
		if string(r) == k {
			return uint64(i), true
		}
	}
	for i := 1; i < 10; i++ {
		if string(r) == oldDigits[i] {
			return uint64(i), true
		}
	}
	return 0, false
}

func smallRankValue(r rune) (uint64, bool) {
	switch r {
	case '十', '拾':
		return 10, true
	case '百':
		return 100, true
	case '千', '阡':
		return 1000, true
	}
	return 0, false
}

func bigRankValue(r rune) (uint64, bool) {
	switch r {
	case '万', '萬':
		return 1e4, true
	case '億':
		return 1e8, true
	case '兆':
		return 1e12, true
	case '京':
		return 1e16, true
	}
	return 0, false
}

// findNumberSpan locates the first run of halfwidth digits, fullwidth
// digits or kanji numerals and returns its byte range plus the
// halfwidth digit reading of the run.
func findNumberSpan(text string) (start, end int, arabic string) {
	runes := []rune(text)
	byteOff := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if isHalfDigit(r) || isFullDigit(r) || isKanjiNumeral(r) {
			start = byteOff
			var run []rune
			j := i
			for j < len(runes) && sameNumberClass(runes[i], runes[j]) {
				run = append(run, runes[j])
				j++
			}
			end = start
			for _, rr := range run {
				end += len(string(rr))
			}
			return start, end, normalizeRun(run)
		}
		byteOff += len(string(r))
	}
	return 0, 0, ""
}

func isHalfDigit(r rune) bool { return r >= '0' && r <= '9' }
func isFullDigit(r rune) bool { return r >= '０' && r <= '９' }

func isKanjiNumeral(r rune) bool {
	if !unicode.In(r, unicode.Han) {
		return false
	}
	if _, ok := kanjiDigitValue(r); ok {
		return true
	}
	if _, ok := smallRankValue(r); ok {
		return true
	}
	_, ok := bigRankValue(r)
	return ok
}

// sameNumberClass keeps a run homogeneous: arabic digits (half or
// fullwidth) never mix with kanji numerals in one span.
func sameNumberClass(first, r rune) bool {
	if isHalfDigit(first) || isFullDigit(first) {
		return isHalfDigit(r) || isFullDigit(r)
	}
	return isKanjiNumeral(r)
}

func normalizeRun(run []rune) string {
	if len(run) == 0 {
		return ""
	}
	if isHalfDigit(run[0]) || isFullDigit(run[0]) {
		var b strings.Builder
		for _, r := range run {
			if isFullDigit(r) {
				b.WriteRune('0' + (r - '０'))
			} else {
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	arabic, ok := KanjiToArabic(string(run))
	if !ok {
		return ""
	}
	return arabic
}

func formatUint(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
