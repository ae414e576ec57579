package publisher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// WebPublisher serves the latest digest as an HTML page over HTTP.
type WebPublisher struct {
	addr   string
	log    zerolog.Logger
	server *http.Server
	mu     sync.RWMutex
	latest *Digest
}

func NewWebPublisher(addr string, log zerolog.Logger) *WebPublisher {
	wp := &WebPublisher{addr: addr, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/", wp.handleIndex)
	wp.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return wp
}

// Start begins serving HTTP in the background. Call Shutdown to stop.
func (wp *WebPublisher) Start() error {
	ln, err := net.Listen("tcp", wp.addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", wp.addr, err)
	}
	go func() {
		wp.log.Info().Str("addr", wp.addr).Msg("web publisher listening")
		if err := wp.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			wp.log.Error().Err(err).Msg("web publisher server error")
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (wp *WebPublisher) Shutdown(ctx context.Context) error {
	return wp.server.Shutdown(ctx)
}

func (wp *WebPublisher) Publish(_ context.Context, digest *Digest) error {
	wp.mu.Lock()
	wp.latest = digest
	wp.mu.Unlock()
	wp.log.Info().
		Str("date", digest.Date.Format("2006-01-02")).
		Int("papers", len(digest.Papers)).
		Msg("web publisher updated")
	return nil
}

func (wp *WebPublisher) handleIndex(w http.ResponseWriter, r *http.Request) {
	wp.mu.RLock()
	digest := wp.latest
	wp.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if digest == nil {
		fmt.Fprint(w, `<!DOCTYPE html><html><body><h1>Paper Digest</h1><p>No digest available yet. Check back later.</p></body></html>`)
		return
	}

	fmt.Fprint(w, buildHTMLBody(digest))
}
