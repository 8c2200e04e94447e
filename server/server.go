package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/xhad/mmrag/pkg/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Server is the thin HTTP surface over the engine: upload, query, listing,
// health, and a websocket chat endpoint.
type Server struct {
	engine *engine.Engine
}

func New(eng *engine.Engine) *Server {
	return &Server{engine: eng}
}

type queryRequest struct {
	Product  string `json:"product"`
	Question string `json:"question"`
}

type queryResponse struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

// Message is the websocket chat frame.
type Message struct {
	Type    string `json:"type"`
	Product string `json:"product,omitempty"`
	Content string `json:"content"`
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/rag/query", s.handleQuery)
	mux.HandleFunc("/products", s.handleProducts)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Run blocks serving the API on the given port.
func (s *Server) Run(port string) error {
	log.Printf("Starting server on port %s", port)
	return http.ListenAndServe(":"+port, s.Handler())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "missing file field")
		return
	}
	defer file.Close()

	result, err := s.engine.Ingest(r.Context(), engine.IngestRequest{
		Product:      r.FormValue("product"),
		DocumentName: header.Filename,
		Reader:       file,
	})
	if errors.Is(err, engine.ErrNoCollection) {
		writeError(w, http.StatusBadRequest, "no_collection", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingest_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	answer, err := s.engine.Query(r.Context(), req.Product, req.Question)
	if err != nil {
		status, kind := classifyQueryError(err)
		writeError(w, status, kind, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Answer: answer})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.engine.Products(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: "invalid message"})
			continue
		}

		answer, err := s.engine.Query(r.Context(), msg.Product, msg.Content)
		if err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: err.Error()})
			continue
		}
		s.sendMessage(conn, Message{Type: "response", Content: answer})
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// classifyQueryError maps the engine taxonomy onto HTTP. Validation problems
// are the caller's; everything else is a single generic query failure with
// the cause attached.
func classifyQueryError(err error) (int, string) {
	var unknown *engine.UnknownCollectionError
	switch {
	case errors.Is(err, engine.ErrNoCollection):
		return http.StatusBadRequest, "no_collection"
	case errors.As(err, &unknown):
		return http.StatusBadRequest, "unknown_collection"
	default:
		return http.StatusInternalServerError, "query_failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{ErrorKind: kind, Message: message})
}
