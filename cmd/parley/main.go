package main

import (
	"fmt"
	"net/http"

	"github.com/dmaciel/parley/internal/config"
	"github.com/dmaciel/parley/internal/history"
	"github.com/dmaciel/parley/internal/llm"
	"github.com/dmaciel/parley/internal/logger"
	"github.com/dmaciel/parley/internal/server"
	"github.com/dmaciel/parley/internal/transcript"
	"github.com/dmaciel/parley/internal/turn"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		return
	}
	logger.SetLevel(cfg.Log.Level)

	var recorder turn.Recorder
	if cfg.Transcript.DBPath != "" {
		rec, err := transcript.Open(cfg.Transcript.DBPath)
		if err != nil {
			logger.L.Error("failed to open transcript journal", "error", err)
			return
		}
		defer rec.Close()
		recorder = rec
	}

	store := history.NewStore()
	responder := llm.NewResponder(llm.NewClient(cfg.LLM), cfg.LLM)
	orchestrator := turn.New(store, responder, recorder)

	srv := server.New(store, orchestrator)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.L.Error("failed to start server", "error", err)
	}
}
