/*
Package main implements the kanaserve prediction server and CLI [DBG] application.

kanaserve is an input-method prediction engine: it takes a partially
typed reading, merges candidates from the static dictionary, numeric
decoding, zero-query triggers and the user's own commit history, and
returns one ranked list. Committed conversions are learned and persist
across sessions in an encrypted history file.

# Usage

Start the IPC server with default settings:

	kanaserve

Use a custom dictionary and enable debug logs:

	kanaserve -dict /path/to/dict.tsv -d

Run in CLI mode for interactive testing:

	kanaserve -c -limit 10

# IPC Protocol

The server communicates via msgpack over stdin/stdout. See the server
package docs for the message shapes.

# Configuration

Runtime configuration is managed through a TOML file:

	[predictor]
	default_limit = 12
	enable_filter = true

	[history]
	capacity = 10000
	save_interval_secs = 300

The config file is automatically created with defaults if it doesn't exist.
*/
package main

import (
	"flag"
	"os"
	"time"

	"github.com/bastiangx/kanaserve/internal/cli"
	"github.com/bastiangx/kanaserve/pkg/aggregate"
	"github.com/bastiangx/kanaserve/pkg/config"
	"github.com/bastiangx/kanaserve/pkg/dictionary"
	"github.com/bastiangx/kanaserve/pkg/filter"
	"github.com/bastiangx/kanaserve/pkg/history"
	"github.com/bastiangx/kanaserve/pkg/prediction"
	"github.com/bastiangx/kanaserve/pkg/server"
	"github.com/bastiangx/kanaserve/pkg/storage"
	"github.com/charmbracelet/log"
)

// filterFPRate is the false-positive budget for the bad-value filter.
const filterFPRate = 0.0001

func main() {
	configPath := flag.String("config", "", "Path to config.toml")
	dictPath := flag.String("dict", "", "Path to dictionary TSV (overrides config)")
	kanjiPath := flag.String("kanji", "", "Path to single-kanji table (overrides config)")
	zeroQueryPath := flag.String("zeroquery", "", "Path to zero-query trigger table (overrides config)")
	badWordsPath := flag.String("badwords", "", "Path to suggestion blacklist dataset")
	historyPath := flag.String("history", "", "Path to encrypted history file (overrides config)")
	cliMode := flag.Bool("c", false, "Run in interactive CLI mode")
	limit := flag.Int("limit", 0, "Candidate limit for CLI mode")
	debug := flag.Bool("d", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, activePath, _ := config.LoadConfigWithPriority(*configPath)
	cfg.Clamp()
	log.Debugf("Active config: %s", config.GetActiveConfigPath(activePath))

	dict := loadDictionary(cfg, *dictPath, *kanjiPath)
	badFilter := loadFilter(cfg, *badWordsPath)
	hist := buildHistory(cfg, *historyPath)
	defer hist.Stop()

	agg := aggregate.New(dict, nil,
		aggregate.WithSourceTimeout(time.Duration(cfg.Aggregate.SourceTimeoutMS)*time.Millisecond),
		aggregate.WithMaxTokens(cfg.Dict.MaxTokens),
	)
	zqPath := firstNonEmpty(*zeroQueryPath, cfg.Aggregate.ZeroQueryPath)
	if zqPath != "" {
		if err := agg.LoadZeroQueryFile(zqPath); err != nil {
			log.Warnf("Zero-query table not loaded: %v", err)
		}
	}

	var gate prediction.BadValueFilter
	if cfg.Predictor.EnableFilter && badFilter != nil {
		gate = badFilter
	}
	predictor := prediction.NewPredictor(hist, agg, gate, cfg.Predictor.DefaultLimit, cfg.Server.MaxLimit)
	predictor.SetSuggestionLimit(cfg.Predictor.SuggestionLimit)

	if *cliMode {
		cliLimit := *limit
		if cliLimit < 1 {
			cliLimit = cfg.Predictor.DefaultLimit
		}
		handler := cli.NewInputHandler(predictor, hist, prediction.ModePrediction, cliLimit)
		if err := handler.Start(); err != nil {
			log.Errorf("CLI exited: %v", err)
			os.Exit(1)
		}
		return
	}

	srv := server.NewServer(predictor, hist, dict, badFilter, cfg)
	if err := srv.Start(); err != nil {
		log.Errorf("Server exited: %v", err)
		os.Exit(1)
	}
}

func loadDictionary(cfg *config.Config, dictPath, kanjiPath string) *dictionary.Dictionary {
	dict := dictionary.New()
	if path := firstNonEmpty(dictPath, cfg.Dict.Path); path != "" {
		if err := dict.LoadFile(path); err != nil {
			log.Warnf("Dictionary not loaded: %v", err)
		}
	}
	if path := firstNonEmpty(kanjiPath, cfg.Dict.SingleKanjiPath); path != "" {
		if err := dict.LoadSingleKanjiFile(path); err != nil {
			log.Warnf("Single-kanji table not loaded: %v", err)
		}
	}
	return dict
}

func loadFilter(cfg *config.Config, badWordsPath string) *filter.Filter {
	if badWordsPath == "" {
		return nil
	}
	f, err := filter.LoadFile(badWordsPath, filterFPRate)
	if err != nil {
		log.Warnf("Suggestion filter not loaded: %v", err)
		return nil
	}
	return f
}

// buildHistory wires the history source to its encrypted store. Every
// failure degrades to an in-memory history; a session never refuses to
// start over persistence.
func buildHistory(cfg *config.Config, historyPath string) *history.History {
	path := firstNonEmpty(historyPath, cfg.Storage.Path)
	if path == "" {
		if dir, err := config.GetConfigDir(); err == nil {
			path = dir + "/history.db"
		}
	}

	var store history.Store
	if path != "" {
		secret := os.Getenv("KANASERVE_SECRET")
		if secret == "" {
			// Local obfuscation only when no secret is configured.
			secret = "kanaserve-local"
			log.Warn("KANASERVE_SECRET not set, using builtin key for history encryption")
		}
		s, err := storage.NewEncryptedFileStore(path, secret)
		if err != nil {
			log.Warnf("History storage unavailable, running in-memory: %v", err)
		} else {
			store = s
		}
	}

	hist := history.New(cfg.History.Capacity, cfg.History.MaxSuggestions, store)
	hist.SetCompactAfterDays(cfg.History.CompactAfterDays)
	hist.Load()
	hist.StartAutoSave(time.Duration(cfg.History.SaveIntervalSecs) * time.Second)
	return hist
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
