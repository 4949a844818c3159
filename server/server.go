package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xhad/walle/internal/models"
	"github.com/xhad/walle/pkg/rag"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the wire format exchanged with the UI. Type is one of
// query, clear, status, response, records, chart or error.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

type chartPoint struct {
	Date string  `json:"date"`
	Rate float64 `json:"rate"`
}

type Config struct {
	Addr string
}

// WSServer serves the conversational analyst over a WebSocket. Each
// connection holds its own conversation history; queries on one connection
// never share retrieval results with another.
type WSServer struct {
	config  Config
	analyst *rag.Analyst
	logger  *slog.Logger
}

func New(config Config, analyst *rag.Analyst, logger *slog.Logger) *WSServer {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &WSServer{
		config:  config,
		analyst: analyst,
		logger:  logger,
	}
}

func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *WSServer) ListenAndServe() error {
	s.logger.Info("starting WebSocket server", "addr", s.config.Addr)
	return http.ListenAndServe(s.config.Addr, s.Handler())
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var history models.Conversation

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("connection closed", "error", err)
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendMessage(conn, "error", "invalid message")
			continue
		}

		if msg.Type == "clear" {
			history.Clear()
			s.sendMessage(conn, "status", "Conversation cleared")
			continue
		}

		s.handleQuery(r.Context(), conn, &history, msg.Content)
	}
}

func (s *WSServer) handleQuery(ctx context.Context, conn *websocket.Conn, history *models.Conversation, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		s.sendMessage(conn, "error", "empty query")
		return
	}

	history.AddUser(query)
	s.sendMessage(conn, "status", "Scanning ledger...")

	analysis, err := s.analyst.Analyze(ctx, query)
	if err != nil {
		// The failed turn keeps the question in history so the client can
		// simply re-submit it.
		s.sendMessage(conn, "error", queryErrorText(err))
		return
	}

	history.AddAssistant(analysis.Answer)

	contents := make([]string, len(analysis.Records))
	for i, rec := range analysis.Records {
		contents[i] = rec.Content
	}
	s.send(conn, Message{Type: "records", Data: contents})

	if len(analysis.Chart) > 0 {
		points := make([]chartPoint, len(analysis.Chart))
		for i, p := range analysis.Chart {
			points[i] = chartPoint{Date: p.Date.Format(time.DateOnly), Rate: p.Rate}
		}
		s.send(conn, Message{Type: "chart", Data: points})
	}

	s.sendMessage(conn, "response", analysis.Answer)
}

func queryErrorText(err error) string {
	var genErr *models.GenerationError
	if errors.As(err, &genErr) && genErr.Timeout {
		return "The analyst timed out. Please re-send your question."
	}
	return err.Error()
}

func (s *WSServer) sendMessage(conn *websocket.Conn, msgType string, content string) {
	s.send(conn, Message{Type: msgType, Content: content})
}

func (s *WSServer) send(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Error("error sending message", "error", err)
	}
}
