package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/cityserve/pkg/filter"
	"github.com/bastiangx/cityserve/pkg/markers"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait       = 10 * time.Second
	shutdownTimeout = 5 * time.Second
	maxMessageSize  = 4096
)

// WSServer serves the IPC protocol over websockets. Each connection gets its
// own filter cache and debouncer on top of the shared dataset and index.
type WSServer struct {
	deps     Deps
	upgrader websocket.Upgrader
}

// NewWSServer creates a websocket server.
func NewWSServer(deps Deps) *WSServer {
	return &WSServer{
		deps: deps.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes: /ws for the msgpack protocol,
// /geojson?p=<prefix> for a one-off GeoJSON sample and /health.
func (ws *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.handleWS)
	mux.HandleFunc("/geojson", ws.handleGeoJSON)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	return mux
}

// ServeWS listens on addr until ctx is cancelled.
func (ws *WSServer) ServeWS(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: ws.Handler()}
	errCh := make(chan error, 1)
	go func() {
		ws.deps.Logger.Infof("websocket server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("websocket server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (ws *WSServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.deps.Logger.Errorf("Upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	var writeMu sync.Mutex
	send := func(v any) error {
		data, err := msgpack.Marshal(v)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.BinaryMessage, data)
	}

	c := newClient(ws.deps, r.URL.Query().Get("session"), send)
	defer c.close()
	ws.deps.Logger.Debug("client connected", "remote", r.RemoteAddr, "session", c.sessionID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.deps.Logger.Warnf("Connection closed: %v", err)
			}
			return
		}
		var req Request
		if err := msgpack.Unmarshal(data, &req); err != nil {
			c.replyError("", "invalid msgpack request", 400)
			continue
		}
		c.handle(req)
	}
}

func (ws *WSServer) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("p")
	maxPrefix := ws.deps.Config.Input.MaxPrefix
	if maxPrefix > 0 && utf8.RuneCountInString(prefix) > maxPrefix {
		http.Error(w, fmt.Sprintf("prefix exceeds maximum length of %d characters", maxPrefix), http.StatusBadRequest)
		return
	}

	cache := filter.NewCacheWithIndex(ws.deps.Dataset, ws.deps.Index,
		filter.WithSampleCap(ws.deps.Config.Filter.SampleCap),
		filter.WithMinPerGroup(ws.deps.Config.Filter.MinPerGroup),
		filter.WithLogger(ws.deps.Logger),
	)
	res := cache.Filter(prefix)
	data, err := markers.MarshalGeoJSON(markers.FromSample(res.Sample, utf8.RuneCountInString(res.Query.Prefix)))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}
