package dictionary

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// defaultCost is assumed when a dictionary line omits the cost column.
const defaultCost = 8000

// LoadFile reads a TSV dictionary into d. Each line is
// key<TAB>value<TAB>pos<TAB>cost; pos and cost are optional. Malformed
// lines are skipped with a warning, not fatal.
func (d *Dictionary) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dictionary %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
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
			log.Warnf("dictionary %s:%d: want at least key<TAB>value, got %d fields", path, lineNum, len(fields))
			continue
		}
		token := Token{Key: fields[0], Value: fields[1], Cost: defaultCost}
		if len(fields) > 2 {
			token.POS = fields[2]
		}
		if len(fields) > 3 {
			cost, err := strconv.Atoi(fields[3])
			if err != nil {
				log.Warnf("dictionary %s:%d: bad cost %q", path, lineNum, fields[3])
			} else {
				token.Cost = cost
			}
		}
		d.AddToken(token)
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read dictionary %s: %w", path, err)
	}
	log.Debugf("loaded %d dictionary tokens from %s", loaded, path)
	return nil
}

// LoadSingleKanjiFile reads the single-kanji table. Each line is
// reading<TAB>kanji[,kanji...].
func (d *Dictionary) LoadSingleKanjiFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open single-kanji table %s: %w", path, err)
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
			log.Warnf("single-kanji table %s:%d: want reading<TAB>kanji", path, lineNum)
			continue
		}
		d.AddSingleKanji(fields[0], strings.Split(fields[1], ",")...)
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read single-kanji table %s: %w", path, err)
	}
	log.Debugf("loaded %d single-kanji readings from %s", loaded, path)
	return nil
}
