package numeric

import (
	"strings"
	"testing"
)

func findVariant(t *testing.T, variants []Variant, style Style) Variant {
	t.Helper()
	for _, v := range variants {
		if v.Style == style {
			return v
		}
	}
	t.Fatalf("no variant with style %d in %v", style, variants)
	return Variant{}
}

func hasValue(variants []Variant, value string) bool {
	for _, v := range variants {
		if v.Value == value {
			return true
		}
	}
	return false
}

func TestConvertStyles(t *testing.T) {
	tests := []struct {
		desc   string
		input  string
		style  Style
		expect string
	}{
		{"small number to kanji", "123", StyleKanji, "百二十三"},
		{"ten drops the leading one", "10", StyleKanji, "十"},
		{"round ten-thousand", "20000", StyleKanji, "二万"},
		{"million", "1000000", StyleKanji, "百万"},
		{"mixed ranks", "1234", StyleKanji, "千二百三十四"},
		{"daiji spells every digit", "123", StyleOldKanji, "壱百弐拾参"},
		{"daiji thousand", "1234", StyleOldKanji, "壱阡弐百参拾四"},
		{"fullwidth digits", "2024", StyleFullWidth, "２０２４"},
		{"comma grouping", "1234567", StyleSeparatedArabic, "1,234,567"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := findVariant(t, Convert(tt.input), tt.style)
			if got.Value != tt.expect {
				t.Errorf("Convert(%q) style %d = %q, want %q", tt.input, tt.style, got.Value, tt.expect)
			}
		})
	}
}

func TestConvertZero(t *testing.T) {
	variants := Convert("0")
	if !hasValue(variants, "〇") {
		t.Error("zero should offer 〇")
	}
	if !hasValue(variants, "零") {
		t.Error("zero should offer 零")
	}
}

func TestConvertConventionalDaiji(t *testing.T) {
	if !hasValue(Convert("10"), "拾") {
		t.Error("ten should offer the bare daiji 拾")
	}
	if !hasValue(Convert("1000"), "阡") {
		t.Error("one thousand should offer the bare daiji 阡")
	}
}

func TestConvertDescriptions(t *testing.T) {
	variants := Convert("123")
	for _, v := range variants {
		var want string
		switch v.Style {
		case StyleKanji:
			want = "漢数字"
		case StyleOldKanji:
			want = "大字"
		default:
			want = "数字"
		}
		if v.Description != want {
			t.Errorf("variant %q: description %q, want %q", v.Value, v.Description, want)
		}
	}
}

func TestConvertRejectsNonNumbers(t *testing.T) {
	for _, input := range []string{"", "12a", "１２", "abc", "123456789012345678901"} {
		if got := Convert(input); got != nil {
			t.Errorf("Convert(%q) = %v, want nil", input, got)
		}
	}
}

func TestDecodeReattachesSurroundingText(t *testing.T) {
	variants := Decode("12時")
	if !hasValue(variants, "十二時") {
		t.Errorf("expected 十二時 in %v", variants)
	}
	if !hasValue(variants, "１２時") {
		t.Errorf("expected １２時 in %v", variants)
	}
}

func TestDecodeFullWidthInput(t *testing.T) {
	if !hasValue(Decode("１００"), "百") {
		t.Error("fullwidth digits should decode like halfwidth ones")
	}
}

func TestDecodeKanjiInput(t *testing.T) {
	variants := Decode("二万")
	if !hasValue(variants, "20,000") {
		t.Errorf("expected comma-separated reading in %v", variants)
	}
	if !hasValue(variants, "２００００") {
		t.Errorf("expected fullwidth reading in %v", variants)
	}
}

func TestDecodeNoNumber(t *testing.T) {
	if got := Decode("こんにちは"); got != nil {
		t.Errorf("Decode without a number span = %v, want nil", got)
	}
}

func TestKanjiToArabic(t *testing.T) {
	tests := []struct {
		desc  string
		input string
		want  string
		ok    bool
	}{
		{"positional digits", "一二三", "123", true},
		{"rank based", "百二十三", "123", true},
		{"implicit one before rank", "十", "10", true},
		{"big rank", "二万三千", "23000", true},
		{"daiji", "壱拾", "10", true},
		{"kanji zero", "〇", "0", true},
		{"bare big rank rejected", "万", "", false},
		{"positional run past uint64 rejected", strings.Repeat("九", 21), "", false},
		{"long positional run within range accepted", strings.Repeat("九", 18), "999999999999999999", true},
		{"non-numeral rejected", "犬", "", false},
		{"empty rejected", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, ok := KanjiToArabic(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("KanjiToArabic(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSeparateWithCommas(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1", "1"},
		{"123", "123"},
		{"1234", "1,234"},
		{"1234567", "1,234,567"},
		{"12345678", "12,345,678"},
		{"not a number", "not a number"},
	}
	for _, tt := range tests {
		if got := SeparateWithCommas(tt.input); got != tt.want {
			t.Errorf("SeparateWithCommas(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsDecimal(t *testing.T) {
	if !IsDecimal("0123") {
		t.Error("digit run should be decimal")
	}
	for _, s := range []string{"", "１２", "12a", "一"} {
		if IsDecimal(s) {
			t.Errorf("IsDecimal(%q) = true, want false", s)
		}
	}
}
