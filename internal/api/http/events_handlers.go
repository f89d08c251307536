package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

const maxEventBatch = 500

// EventFeed reads the append-only event log in sequence order.
type EventFeed interface {
	Since(ctx context.Context, seq int64, limit int) ([]syncx.Event, error)
}

type eventOut struct {
	syncx.Event
	Data json.RawMessage `json:"data"`
}

// GET /events?since=<seq>&limit=  -> {"events": [...], "next": <seq>}
func EventFeedHandler(feed EventFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var since int64
		if v := q.Get("since"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				writeError(w, r, quiz.Invalidf("since must be a non-negative sequence number"))
				return
			}
			since = n
		}
		limit := parseIntDefault(q.Get("limit"), 100)
		if limit <= 0 || limit > maxEventBatch {
			limit = maxEventBatch
		}
		events, err := feed.Since(r.Context(), since, limit)
		if err != nil {
			writeError(w, r, quiz.Internal("read events", err))
			return
		}
		out := make([]eventOut, 0, len(events))
		next := since
		for _, e := range events {
			data := json.RawMessage(e.DataJSON)
			if !json.Valid(data) {
				data = json.RawMessage("null")
			}
			out = append(out, eventOut{Event: e, Data: data})
			next = e.Seq
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": out, "next": next})
	}
}
