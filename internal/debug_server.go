package internal

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

// DebugServer is the operator-facing HTTP surface: room occupancy, archived
// history and full-text search. Archive endpoints answer 404 when the archive
// is disabled.
type DebugServer struct {
	log          *slog.Logger
	registry     contract.IRegistry
	repository   repositories.IMessageRepository
	index        repositories.IMessageIndex
	historyLimit int
}

func NewDebugServer(log *slog.Logger, registry contract.IRegistry,
	repository repositories.IMessageRepository, index repositories.IMessageIndex,
	historyLimit int) *DebugServer {
	return &DebugServer{
		log:          log,
		registry:     registry,
		repository:   repository,
		index:        index,
		historyLimit: historyLimit,
	}
}

func (s *DebugServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/rooms", s.handleRooms)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/search", s.handleSearch)
	return mux
}

func (s *DebugServer) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	server := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})
	defer stop()

	s.log.Info("Debug server started", "address", listener.Addr().String())
	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *DebugServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "ok")
}

// handleRooms renders one row per room as a plain text table.
func (s *DebugServer) handleRooms(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Room", "Members", "Messages", "Created"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, room := range s.registry.Rooms() {
		table.Append([]string{
			strconv.Quote(room.Name()),
			strconv.Itoa(room.Size()),
			strconv.Itoa(room.Len()),
			room.CreatedAt().Format(time.RFC3339),
		})
	}
	table.Render()
}

type historyEntry struct {
	Seq  int       `json:"seq"`
	Kind string    `json:"kind"`
	Line string    `json:"line"`
	Lang string    `json:"lang,omitempty"`
	At   time.Time `json:"at"`
}

// handleHistory returns the archived lines of ?room= (the empty name is a valid room).
func (s *DebugServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.repository == nil {
		http.Error(w, errors.ErrArchiveDisabled.Error(), http.StatusNotFound)
		return
	}
	query := r.URL.Query()
	if !query.Has("room") {
		http.Error(w, "missing room parameter", http.StatusBadRequest)
		return
	}
	limit := s.limit(query.Get("limit"))

	messages, err := s.repository.GetMessages(query.Get("room"), limit)
	if err != nil {
		s.log.Error("Failed to read archive", "error", err)
		http.Error(w, "failed to read archive", http.StatusInternalServerError)
		return
	}
	entries := make([]historyEntry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, historyEntry{Seq: m.Seq, Kind: m.Kind, Line: m.Line, Lang: m.Lang, At: m.At})
	}
	writeJSON(w, entries)
}

type searchEntry struct {
	Room  string  `json:"room"`
	Line  string  `json:"line"`
	Score float64 `json:"score"`
}

func (s *DebugServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		http.Error(w, errors.ErrArchiveDisabled.Error(), http.StatusNotFound)
		return
	}
	query := r.URL.Query()
	hits, err := s.index.Search(r.Context(), query.Get("room"), query.Get("q"), s.limit(query.Get("limit")))
	if err != nil {
		s.log.Error("Search failed", "error", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	entries := make([]searchEntry, 0, len(hits))
	for _, hit := range hits {
		entries = append(entries, searchEntry{Room: hit.Room, Line: hit.Line, Score: hit.Score})
	}
	writeJSON(w, entries)
}

func (s *DebugServer) limit(raw string) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= s.historyLimit {
		return n
	}
	return s.historyLimit
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
