package aggregate

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// defaultZeroQuery is the builtin trigger table: committed surface
// form -> follow-up candidates offered on an empty key.
func defaultZeroQuery() map[string][]string {
	return map[string][]string{
		"おめでとう":   {"🎉", "🎊", "ございます"},
		"ありがとう":   {"ございます", "ございました", "😊"},
		"おはよう":    {"ございます", "☀️"},
		"よろしく":    {"お願いします", "お願いいたします"},
		"お疲れ様":    {"です", "でした"},
		"誕生日":     {"おめでとう", "🎂"},
		"クリスマス":   {"🎄", "プレゼント"},
		"今日":      {"は", "の", "も"},
		"明日":      {"は", "の", "から"},
		"すみません":   {"でした", "が"},
		"いただき":    {"ます", "ました"},
		"お願い":     {"します", "いたします", "🙏"},
	}
}

// defaultNumberSuffixes are offered after a bare number commit.
func defaultNumberSuffixes() []string {
	return []string{"個", "円", "人", "時", "分", "回", "階", "歳", "日", "月"}
}

// LoadZeroQueryFile merges a TSV trigger table into the aggregator:
// value<TAB>candidate[,candidate...]. File entries override builtins
// for the same trigger.
func (a *Aggregator) LoadZeroQueryFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open zero-query table %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	loaded := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			a.log.Warnf("zero-query table %s:%d: want trigger<TAB>candidates", path, lineNum)
			continue
		}
		candidates := strings.Split(fields[1], ",")
		if len(candidates) == 0 {
			continue
		}
		a.zeroQuery[fields[0]] = candidates
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read zero-query table %s: %w", path, err)
	}
	a.log.Debugf("loaded %d zero-query triggers from %s", loaded, path)
	return nil
}
