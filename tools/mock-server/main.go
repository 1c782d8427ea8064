// Package main implements a mock Amul storefront and ntfy relay for local
// development. It serves the pincode and product listing endpoints from a
// JSON fixture, lets you flip a product's stock to simulate a restock, and
// records every notification published to it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type pincodeRecord struct {
	ID       string `json:"_id"`
	Pincode  string `json:"pincode"`
	Substore string `json:"substore"`
	City     string `json:"city"`
	State    string `json:"state"`
}

type productRecord struct {
	ID                string  `json:"_id"`
	Name              string  `json:"name"`
	Alias             string  `json:"alias"`
	Price             float64 `json:"price"`
	InventoryQuantity float64 `json:"inventory_quantity"`
}

type fixture struct {
	Pincodes []pincodeRecord `json:"pincodes"`
	Products []productRecord `json:"products"`
}

type notification struct {
	Topic    string    `json:"topic"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Priority string    `json:"priority,omitempty"`
	Tags     string    `json:"tags,omitempty"`
	Click    string    `json:"click,omitempty"`
	Received time.Time `json:"received"`
}

// storefront holds the mutable mock state.
type storefront struct {
	mu       sync.Mutex
	pincodes []pincodeRecord
	products []productRecord
	sent     []notification
	log      *slog.Logger
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/catalog.json", "path to catalog fixture")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fx, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "pincodes", len(fx.Pincodes), "products", len(fx.Products))

	sf := newStorefront(fx, logger)

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock storefront", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, sf.routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &fx, nil
}

func newStorefront(fx *fixture, logger *slog.Logger) *storefront {
	return &storefront{
		pincodes: fx.Pincodes,
		products: append([]productRecord(nil), fx.Products...),
		log:      logger,
	}
}

func (s *storefront) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /entity/pincode", s.pincodeHandler)
	mux.HandleFunc("GET /api/1/entity/ms.products", s.productsHandler)
	mux.HandleFunc("POST /_mock/stock/{alias}", s.stockHandler)
	mux.HandleFunc("GET /_mock/notifications", s.notificationsHandler)
	mux.HandleFunc("POST /{topic}", s.publishHandler)
	return mux
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

// pincodeHandler mimics the location API's regex match: any record whose
// pincode starts with the filter value is returned.
func (s *storefront) pincodeHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("filters[0][value]")

	records := []pincodeRecord{}
	for _, p := range s.pincodes {
		if q != "" && strings.HasPrefix(p.Pincode, q) {
			records = append(records, p)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": records})
	s.log.Info("pincode lookup", "pincode", q, "matched", len(records))
}

func (s *storefront) productsHandler(w http.ResponseWriter, r *http.Request) {
	substore := r.URL.Query().Get("substore")
	if !s.knownSubstore(substore) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "unknown substore"})
		return
	}

	limit := len(s.products)
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	s.mu.Lock()
	data := append([]productRecord(nil), s.products[:min(limit, len(s.products))]...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": data})
	s.log.Info("products", "substore", substore, "returned", len(data))
}

// stockHandler sets a product's inventory: POST /_mock/stock/{alias}?qty=5.
func (s *storefront) stockHandler(w http.ResponseWriter, r *http.Request) {
	alias := r.PathValue("alias")
	qty, err := strconv.Atoi(r.URL.Query().Get("qty"))
	if err != nil || qty < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "qty must be a non-negative integer"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.products {
		if s.products[i].Alias == alias {
			s.products[i].InventoryQuantity = float64(qty)
			writeJSON(w, http.StatusOK, s.products[i])
			s.log.Info("stock updated", "alias", alias, "qty", qty)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown product"})
}

// publishHandler accepts an ntfy publish and records it.
func (s *storefront) publishHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading body"})
		return
	}

	n := notification{
		Topic:    r.PathValue("topic"),
		Title:    r.Header.Get("Title"),
		Message:  string(body),
		Priority: r.Header.Get("Priority"),
		Tags:     r.Header.Get("Tags"),
		Click:    r.Header.Get("Click"),
		Received: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sent = append(s.sent, n)
	id := len(s.sent)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"id": strconv.Itoa(id), "topic": n.Topic, "event": "message"})
	s.log.Info("notification received", "topic", n.Topic, "title", n.Title)
}

func (s *storefront) notificationsHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	sent := append([]notification{}, s.sent...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, sent)
}

func (s *storefront) knownSubstore(substore string) bool {
	for _, p := range s.pincodes {
		if p.Substore == substore {
			return true
		}
	}
	return false
}
