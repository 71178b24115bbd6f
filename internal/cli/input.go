// Package cli handles cmd line input and candidate display for DBG and testing various features
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bastiangx/kanaserve/pkg/history"
	"github.com/bastiangx/kanaserve/pkg/prediction"
	"github.com/charmbracelet/log"
)

// InputHandler processes user input from stdin, showing ranked
// candidates for each typed key. Committing via ":c <n>" feeds the
// selection back into the history so learning can be exercised
// interactively.
type InputHandler struct {
	predictor    *prediction.Predictor
	hist         *history.History
	mode         prediction.Mode
	limit        int
	requestCount int

	lastResults []prediction.Result
	lastKey     string
	preceding   []prediction.Segment
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(predictor *prediction.Predictor, hist *history.History, mode prediction.Mode, limit int) *InputHandler {
	return &InputHandler{
		predictor: predictor,
		hist:      hist,
		mode:      mode,
		limit:     limit,
	}
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin,
// and passes the trimmed input for processing.
// Loop terminates if an error occurs while reading from stdin
func (h *InputHandler) Start() error {
	log.Print("kanaserve CLI [DBG]")
	reader := bufio.NewReader(os.Stdin)
	log.Print("type a key and press Enter to see candidates (':c <n>' commits, Ctrl+C to exit):")

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":c") {
			h.handleCommit(line)
			continue
		}
		h.handleKey(line)
	}
}

// handleKey runs one prediction and prints the ranked candidates.
func (h *InputHandler) handleKey(key string) {
	h.requestCount++

	start := time.Now()
	results := h.predictor.Predict(context.Background(), prediction.Request{
		Key:           key,
		Mode:          h.mode,
		MaxCandidates: h.limit,
		Context:       prediction.Context{PrecedingSegments: h.preceding},
	})
	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for key '%s'", elapsed, key)

	if len(results) == 0 {
		log.Warnf("No candidates found for key: '%s'", key)
		return
	}
	h.lastResults = results
	h.lastKey = key

	log.Printf("Found %d candidates for key '%s':", len(results), key)
	for i, r := range results {
		clValue := fmt.Sprintf("\033[38;5;75m%s\033[0m", r.Value)
		log.Printf("%2d. %-40s (%s, score: %6d)", i+1, clValue, r.Source, r.Score)
	}
}

// handleCommit records a displayed candidate as a committed segment.
func (h *InputHandler) handleCommit(line string) {
	var n int
	if _, err := fmt.Sscanf(line, ":c %d", &n); err != nil || n < 1 || n > len(h.lastResults) {
		log.Errorf("Usage: ':c <n>' with n in 1..%d", len(h.lastResults))
		return
	}
	picked := h.lastResults[n-1]
	seg := prediction.Segment{Key: h.lastKey, Value: picked.Value}
	h.hist.Learn([]prediction.Segment{seg})
	h.preceding = append(h.preceding, seg)
	if len(h.preceding) > 4 {
		h.preceding = h.preceding[len(h.preceding)-4:]
	}
	log.Printf("Committed '%s' for key '%s'", picked.Value, h.lastKey)
}
