package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bastiangx/kanaserve/internal/utils"
	"github.com/bastiangx/kanaserve/pkg/config"
	"github.com/bastiangx/kanaserve/pkg/dictionary"
	"github.com/bastiangx/kanaserve/pkg/filter"
	"github.com/bastiangx/kanaserve/pkg/history"
	"github.com/bastiangx/kanaserve/pkg/prediction"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Server handles the IPC for prediction requests.
type Server struct {
	predictor *prediction.Predictor
	hist      *history.History
	dict      *dictionary.Dictionary
	filter    *filter.Filter
	cfg       *config.Config

	dec *msgpack.Decoder
	enc *msgpack.Encoder
}

// NewServer creates a prediction server using stdin/stdout for IPC.
func NewServer(predictor *prediction.Predictor, hist *history.History, dict *dictionary.Dictionary, f *filter.Filter, cfg *config.Config) *Server {
	return &Server{
		predictor: predictor,
		hist:      hist,
		dict:      dict,
		filter:    f,
		cfg:       cfg,
		dec:       msgpack.NewDecoder(os.Stdin),
		enc:       msgpack.NewEncoder(os.Stdout),
	}
}

// Start begins listening for IPC requests. It returns on EOF.
func (s *Server) Start() error {
	log.Debug("Starting server.")
	s.sendResponse(StatusResponse{Status: "ready"})

	for {
		var request PredictRequest
		if err := s.dec.Decode(&request); err != nil {
			if err == io.EOF {
				return nil
			}
			log.Errorf("Decoding request: %v", err)
			s.sendError("", "Invalid msgpack request", 400)
			continue
		}
		s.handleRequest(request)
	}
}

// handleRequest dispatches on the command field.
func (s *Server) handleRequest(request PredictRequest) {
	switch request.Command {
	case "predict":
		s.handlePredict(request)
	case "learn":
		s.handleLearn(request)
	case "clear":
		s.hist.Clear()
		s.sendResponse(StatusResponse{ID: request.ID, Status: "ok"})
	case "save":
		// Idle watchdog entry point; trigger only, never block.
		s.hist.PersistNow()
		s.sendResponse(StatusResponse{ID: request.ID, Status: "ok"})
	case "stats":
		s.handleStats(request)
	case "health":
		s.sendResponse(StatusResponse{ID: request.ID, Status: "ok"})
	default:
		s.sendError(request.ID, fmt.Sprintf("Unknown command: %s", request.Command), 400)
	}
}

// handlePredict validates the request and runs the predictor. A key
// that fails validation yields an empty candidate list, not an error;
// the typing loop never sees a failure.
func (s *Server) handlePredict(request PredictRequest) {
	key := utils.TrimKey(request.Key)
	// An empty key passes through for the zero-query path.
	if key != "" && !utils.ValidKey(key, s.cfg.Server.MaxKeyLen) {
		log.Debugf("Key rejected by input gate, returning empty")
		s.sendResponse(PredictResponse{ID: request.ID, Candidates: []Candidate{}})
		return
	}

	req := prediction.Request{
		Key:           key,
		Mode:          parseMode(request.Mode),
		MaxCandidates: request.Limit,
		Context:       toContext(request.Preceding),
	}

	start := time.Now()
	results := s.predictor.Predict(context.Background(), req)
	elapsed := time.Since(start)

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, Candidate{
			Value:       r.Value,
			Description: r.Description,
			Source:      r.Source.String(),
		})
	}

	s.sendResponse(PredictResponse{
		ID:         request.ID,
		Candidates: candidates,
		Count:      len(candidates),
		TimeTaken:  elapsed.Microseconds(),
	})
}

func (s *Server) handleLearn(request PredictRequest) {
	if len(request.Segments) == 0 {
		s.sendError(request.ID, "Missing 'segs' parameter", 400)
		return
	}
	segments := make([]prediction.Segment, 0, len(request.Segments))
	for _, seg := range request.Segments {
		segments = append(segments, prediction.Segment{Key: seg.Key, Value: seg.Value})
	}
	s.hist.Learn(segments)
	s.sendResponse(StatusResponse{ID: request.ID, Status: "ok"})
}

func (s *Server) handleStats(request PredictRequest) {
	resp := StatsResponse{ID: request.ID}
	if s.hist != nil {
		resp.HistorySize = s.hist.Len()
	}
	if s.dict != nil {
		resp.DictTokens = s.dict.Len()
	}
	if s.filter != nil {
		resp.FilterValues = s.filter.Len()
	}
	s.sendResponse(resp)
}

// sendResponse encodes the response to stdout.
func (s *Server) sendResponse(response interface{}) {
	if err := s.enc.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.sendResponse(ErrorResponse{ID: id, Error: message, Code: code})
}

func parseMode(mode string) prediction.Mode {
	switch mode {
	case "prediction":
		return prediction.ModePrediction
	case "conversion":
		return prediction.ModeConversion
	default:
		return prediction.ModeSuggestion
	}
}

func toContext(segments []Segment) prediction.Context {
	if len(segments) == 0 {
		return prediction.Context{}
	}
	preceding := make([]prediction.Segment, 0, len(segments))
	for _, seg := range segments {
		preceding = append(preceding, prediction.Segment{Key: seg.Key, Value: seg.Value})
	}
	return prediction.Context{PrecedingSegments: preceding}
}
