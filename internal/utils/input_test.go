package utils

import "testing"

func TestContainsDigits(t *testing.T) {
	tests := []struct {
		desc  string
		input string
		want  bool
	}{
		{"halfwidth digits", "abc123", true},
		{"fullwidth digits", "１２３", true},
		{"kanji digits", "三百人", true},
		{"kanji rank alone", "万が一", true},
		{"plain kana", "こんにちは", false},
		{"plain ascii", "hello", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := ContainsDigits(tt.input); got != tt.want {
				t.Errorf("ContainsDigits(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsOnlyDigits(t *testing.T) {
	if !IsOnlyDigits("0123456789") {
		t.Error("digit run should pass")
	}
	for _, s := range []string{"", "12a", "１２", "一二"} {
		if IsOnlyDigits(s) {
			t.Errorf("IsOnlyDigits(%q) = true, want false", s)
		}
	}
}

func TestIsRepetitive(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"あああ", true},
		{"wwww", true},
		{"ああ", false},
		{"あいあ", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsRepetitive(tt.input); got != tt.want {
			t.Errorf("IsRepetitive(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLooksSensitive(t *testing.T) {
	tests := []struct {
		desc  string
		key   string
		value string
		want  bool
	}{
		{"phone number", "でんわ", "090-1234-5678", true},
		{"kanji number value", "さんびゃく", "三百", true},
		{"digits in key", "123", "一二三", true},
		{"long ascii run", "ぱす", "correcthorsebattery", true},
		{"short ascii", "おけ", "ok", false},
		{"plain word", "きょう", "今日", false},
		{"spaced ascii resets the run", "ぶん", "one two three", false},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := LooksSensitive(tt.key, tt.value); got != tt.want {
				t.Errorf("LooksSensitive(%q, %q) = %v, want %v", tt.key, tt.value, got, tt.want)
			}
		})
	}
}

func TestValidKey(t *testing.T) {
	tests := []struct {
		desc  string
		input string
		max   int
		want  bool
	}{
		{"normal reading", "きょう", 60, true},
		{"empty rejected", "", 60, false},
		{"over max runes", "あいうえお", 4, false},
		{"short repetition allowed", "あああ", 60, true},
		{"long repetition rejected", "ああああああ", 60, false},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := ValidKey(tt.input, tt.max); got != tt.want {
				t.Errorf("ValidKey(%q, %d) = %v, want %v", tt.input, tt.max, got, tt.want)
			}
		})
	}
}

func TestTrimKey(t *testing.T) {
	if got := TrimKey("  きょう\t"); got != "きょう" {
		t.Errorf("TrimKey = %q", got)
	}
}
