// Package filter implements the suggestion blacklist as a Bloom-style
// existence filter. Everything in the build dataset is reported bad;
// a small, build-time-configured fraction of legitimate values is
// rejected too. That trade keeps the footprint sub-linear in the
// blacklist size.
package filter

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
)

// Filter is an immutable probabilistic membership test. Build once at
// startup; there is no insertion API after that.
type Filter struct {
	bits    []uint64
	numBits uint64
	k       uint32
	count   int
}

// optimalSize computes the bit count and hash count for the target
// false-positive rate: m = -n*ln(p)/ln(2)^2, k = (m/n)*ln(2).
func optimalSize(n int, fpRate float64) (uint64, uint32) {
	if n <= 0 {
		n = 1
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.0001
	}
	m := float64(-n) * math.Log(fpRate) / (math.Ln2 * math.Ln2)
	k := uint32(math.Ceil((m / float64(n)) * math.Ln2))
	if k < 1 {
		k = 1
	}
	numBits := (uint64(math.Ceil(m)) + 63) / 64 * 64
	if numBits == 0 {
		numBits = 64
	}
	return numBits, k
}

// Build constructs a filter over the given values.
func Build(values []string, fpRate float64) *Filter {
	numBits, k := optimalSize(len(values), fpRate)
	f := &Filter{
		bits:    make([]uint64, numBits/64),
		numBits: numBits,
		k:       k,
	}
	for _, v := range values {
		f.add(v)
	}
	return f
}

// LoadFile builds a filter from a newline-separated dataset file.
// Blank lines and lines starting with '#' are skipped.
func LoadFile(path string, fpRate float64) (*Filter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open filter dataset: %w", err)
	}
	defer file.Close()

	var values []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		values = append(values, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read filter dataset: %w", err)
	}
	log.Debugf("built suggestion filter from %d entries", len(values))
	return Build(values, fpRate), nil
}

// IsBad reports whether value is (probably) in the blacklist. A false
// return is definitive.
func (f *Filter) IsBad(value string) bool {
	if f == nil || f.count == 0 {
		return false
	}
	h1, h2 := f.hashes(value)
	for i := uint32(0); i < f.k; i++ {
		pos := (h1 + uint64(i)*h2) % f.numBits
		if f.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// Len returns how many values were added at build time.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return f.count
}

func (f *Filter) add(value string) {
	h1, h2 := f.hashes(value)
	for i := uint32(0); i < f.k; i++ {
		pos := (h1 + uint64(i)*h2) % f.numBits
		f.bits[pos/64] |= 1 << (pos % 64)
	}
	f.count++
}

// hashes derives two independent hashes for double hashing. h2 is
// forced odd so every probe sequence covers the table.
func (f *Filter) hashes(value string) (uint64, uint64) {
	h1 := xxhash.Sum64String(value)
	var d xxhash.Digest
	d.Reset()
	_, _ = d.WriteString("\x00bf")
	_, _ = d.WriteString(value)
	h2 := d.Sum64() | 1
	return h1, h2
}
