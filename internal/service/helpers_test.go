package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pageza/pantrychef/backend/internal/models"
)

func item(name string, qty float64, unit string) models.StockItem {
	return models.StockItem{ID: uuid.New(), Name: name, Quantity: qty, Unit: unit, Version: 1}
}

func line(name string, qty float64, unit string) models.Line {
	return models.Line{Name: name, Quantity: qty, Unit: unit}
}

func snapshot(items ...models.StockItem) Snapshot {
	return NewSnapshot(items)
}

func names(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

// reply is one scripted generator response.
type reply struct {
	text  string
	err   error
	block bool // wait for the attempt deadline
}

// scriptedGenerator replays replies in order and records every request.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []reply
	calls   []CompletionRequest
}

func newScriptedGenerator(replies ...reply) *scriptedGenerator {
	return &scriptedGenerator{replies: replies}
}

func (g *scriptedGenerator) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	var r reply
	if len(g.replies) > 0 {
		r = g.replies[0]
		g.replies = g.replies[1:]
	}
	g.mu.Unlock()

	if r.block {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(10 * time.Second):
			return "", nil
		}
	}
	return r.text, r.err
}

func (g *scriptedGenerator) Calls() []CompletionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]CompletionRequest(nil), g.calls...)
}
