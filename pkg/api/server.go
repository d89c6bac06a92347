// Package api exposes a replica's consensus state over REST and a
// WebSocket commit feed: chain status, the committed block log, command
// submission, and a live push of every newly decided block. It replaces
// the teacher's perp-DEX trading API with an observability surface suited
// to a consensus service, reusing the same gorilla/mux + gorilla/websocket
// + rs/cors wiring.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
	"github.com/hotstuffd/hotstuffd/pkg/replica"
)

// ReplicaView is the subset of *replica.Replica the API needs; a narrow
// interface keeps this package decoupled from replica internals.
type ReplicaView interface {
	Snapshot() replica.Snapshot
	CommittedLog() []protocol.Block
	SubmitCommand(protocol.Command)
}

// Server serves the admin/observability API for one replica.
type Server struct {
	id     string
	rep    ReplicaView
	router *mux.Router
	hub    *Hub
}

// NewServer builds a Server for the given replica, identified by id in
// responses.
func NewServer(id string, rep ReplicaView) *Server {
	s := &Server{id: id, rep: rep, router: mux.NewRouter(), hub: NewHub()}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	apiRouter := s.router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/chain/status", s.handleChainStatus).Methods("GET")
	apiRouter.HandleFunc("/chain/log", s.handleChainLog).Methods("GET")
	apiRouter.HandleFunc("/commands", s.handleSubmitCommand).Methods("POST")
	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the HTTP server; it blocks until the listener fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// NotifyCommit pushes a CommitUpdate to every WebSocket client subscribed
// to the "commits" channel. Wire this to app.KVStore's onEvent callback.
func (s *Server) NotifyCommit(block protocol.Block, appHash protocol.Hash) {
	cmds := make([]string, len(block.Cmds))
	for i, c := range block.Cmds {
		cmds[i] = c.Op
	}
	update := CommitUpdate{
		Type:    "commit",
		View:    uint64(block.View),
		Hash:    block.Hash().String(),
		Cmds:    cmds,
		AppHash: appHash.String(),
	}
	s.hub.BroadcastToChannel("commits", update)
}

func (s *Server) handleChainStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.rep.Snapshot()
	respondJSON(w, ChainStatus{
		Replica:       s.id,
		View:          uint64(snap.View),
		IsLeader:      snap.IsLeader,
		Running:       snap.Running,
		CommittedLen:  snap.CommittedLen,
		HighPrepareQC: snap.HighPrepareQC.BlockHash.String(),
		LockedQC:      snap.LockedQC.BlockHash.String(),
	})
}

func (s *Server) handleChainLog(w http.ResponseWriter, r *http.Request) {
	committed := s.rep.CommittedLog()
	out := make([]BlockInfo, len(committed))
	for i, b := range committed {
		cmds := make([]string, len(b.Cmds))
		for j, c := range b.Cmds {
			cmds[j] = c.Op
		}
		out[i] = BlockInfo{View: uint64(b.View), Hash: b.Hash().String(), Cmds: cmds, Count: len(cmds)}
	}
	respondJSON(w, out)
}

func (s *Server) handleSubmitCommand(w http.ResponseWriter, r *http.Request) {
	var req SubmitCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Op == "" {
		respondError(w, http.StatusBadRequest, "missing op", "")
		return
	}
	s.rep.SubmitCommand(protocol.Command{Op: req.Op, Args: req.Args, ClientID: protocol.NodeID(req.ClientID)})
	respondJSON(w, SubmitCommandResponse{Status: "submitted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: message})
}
