/*
Package server implements msgpack IPC for the prediction engine.

The server provides a minimal interface over stdin/stdout using msgpack
serialization. Each message carries an ID and a command; responses echo
the ID back. Messages are processed synchronously with timing info
included in responses.

A prediction request looks like:

	{"id": "req_001", "cmd": "predict", "k": "おは", "m": "suggestion", "l": 8}

and comes back ranked:

	{"id": "req_001", "c": [{"v": "おはようございます", "s": "history"}], "n": 1, "t": 210}

Commit notifications feed learning:

	{"id": "lrn_001", "cmd": "learn", "segs": [{"k": "おはよう", "v": "おはようございます"}]}

Management commands cover history clearing, an explicit save trigger
for the idle watchdog, health and stats.
*/
package server

// PredictRequest - prediction request
type PredictRequest struct {
	ID        string    `msgpack:"id"`
	Command   string    `msgpack:"cmd"`
	Key       string    `msgpack:"k,omitempty"`
	Mode      string    `msgpack:"m,omitempty"`
	Limit     int       `msgpack:"l,omitempty"`
	Preceding []Segment `msgpack:"ctx,omitempty"`
	Segments  []Segment `msgpack:"segs,omitempty"`
}

// Segment - one committed conversion unit
type Segment struct {
	Key   string `msgpack:"k"`
	Value string `msgpack:"v"`
}

// Candidate - one ranked response entry
type Candidate struct {
	Value       string `msgpack:"v"`
	Description string `msgpack:"d,omitempty"`
	Source      string `msgpack:"s"`
}

// PredictResponse - prediction response
type PredictResponse struct {
	ID         string      `msgpack:"id"`
	Candidates []Candidate `msgpack:"c"`
	Count      int         `msgpack:"n"`
	TimeTaken  int64       `msgpack:"t"`
}

// StatusResponse - ack for learn/clear/save/health
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// StatsResponse - engine statistics
type StatsResponse struct {
	ID           string `msgpack:"id"`
	HistorySize  int    `msgpack:"history_size"`
	DictTokens   int    `msgpack:"dict_tokens"`
	FilterValues int    `msgpack:"filter_values"`
}

// ErrorResponse holds basic error information for failed requests
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
