package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-captions/internal/config"
	"github.com/loqalabs/loqa-captions/internal/eventstore"
)

const journalPageSize = 10000

// printJournal lists sessions, or the entries of sessionID when it is set.
func printJournal(ctx context.Context, cfg config.EventStoreConfig, w io.Writer, sessionID string, logger *slog.Logger) error {
	store, err := eventstore.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if !store.Enabled() {
		return errors.New("event_store.retention_mode is ephemeral, nothing is journaled")
	}

	if sessionID == "" {
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		for _, s := range sessions {
			fmt.Fprintf(w, "%s  %s  %s\n", s.StartedAt.Format(time.RFC3339), s.ID, s.Source)
		}
		return nil
	}

	entries, err := store.ListSession(ctx, sessionID, journalPageSize)
	if err != nil {
		return fmt.Errorf("list session %s: %w", sessionID, err)
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  [%s] %s\n", e.CreatedAt.Format(time.TimeOnly), e.Kind, e.Text)
	}
	return nil
}
