package trading_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nexusgrid/energy-engine/internal/model"
	"github.com/nexusgrid/energy-engine/internal/trading"
)

// newTestServer mounts the platform routes the way cmd/server does.
func newTestServer(t *testing.T) (*trading.Platform, *httptest.Server) {
	t.Helper()
	p := newTestPlatform(t)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/participants", p.HandleRegister)
		r.Get("/participants/{participantID}", p.HandleGetParticipant)
		r.Get("/participants/{participantID}/transactions", p.HandleParticipantTransactions)
		r.Get("/sellers", p.HandleListSellers)
		r.Get("/buyers", p.HandleListBuyers)
		r.Post("/links", p.HandleLink)
		r.Delete("/links", p.HandleUnlink)
		r.Post("/trade", p.HandleTrade)
		r.Get("/transactions", p.HandleTransactions)
		r.Get("/network", p.HandleSnapshot)
		r.Get("/network/paths", p.HandlePaths)
		r.Get("/network/clusters", p.HandleClusters)
		r.Get("/stats", p.HandleStats)
		r.Get("/suggestions", p.HandleSuggestions)
		r.Get("/history/prices", p.HandlePriceHistory)
		r.Get("/history/volumes", p.HandleVolumeHistory)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return p, srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func registerBody(id string, surplus, demand, balance float64, kind string) map[string]any {
	return map[string]any{
		"id":      id,
		"name":    id,
		"surplus": surplus,
		"demand":  demand,
		"balance": balance,
		"kind":    kind,
	}
}

func TestHandleRegister(t *testing.T) {
	_, srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/participants",
		registerBody("P1", 100, 0, 0, "producer"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decodeBody[model.Participant](t, resp)
	if created.ID != "P1" || !created.Surplus.Equal(d(100)) {
		t.Errorf("unexpected participant %+v", created)
	}

	// Duplicate id conflicts.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/participants",
		registerBody("P1", 100, 0, 0, "producer"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %d", resp.StatusCode)
	}

	// Invalid registration is a bad request.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/participants",
		registerBody("bad id", 100, 0, 0, "producer"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid id, got %d", resp.StatusCode)
	}
}

func TestHandleGetParticipant(t *testing.T) {
	_, srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/participants",
		registerBody("P1", 100, 0, 0, "producer")).Body.Close()

	resp, err := http.Get(srv.URL + "/api/v1/participants/P1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decodeBody[model.Participant](t, resp)
	if got.ID != "P1" {
		t.Errorf("unexpected participant %+v", got)
	}

	resp, _ = http.Get(srv.URL + "/api/v1/participants/ghost")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHandleTrade(t *testing.T) {
	_, srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/participants",
		registerBody("S", 100, 0, 0, "producer")).Body.Close()
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/participants",
		registerBody("B", 0, 50, 100, "consumer")).Body.Close()

	trade := func(seller, buyer string, energy, price float64) *http.Response {
		return doJSON(t, http.MethodPost, srv.URL+"/api/v1/trade", map[string]any{
			"sellerId":     seller,
			"buyerId":      buyer,
			"energy":       energy,
			"pricePerUnit": price,
		})
	}

	resp := trade("S", "B", 30, 0.10)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	txn := decodeBody[model.Transaction](t, resp)
	if txn.ID == "" || !txn.TotalPrice.Equal(d(3)) {
		t.Errorf("unexpected transaction %+v", txn)
	}

	resp = trade("S", "ghost", 10, 0.10)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown buyer, got %d", resp.StatusCode)
	}

	resp = trade("S", "B", 0, 0.10)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for zero energy, got %d", resp.StatusCode)
	}

	resp = trade("S", "S", 10, 0.10)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for self-trade, got %d", resp.StatusCode)
	}

	resp = trade("S", "B", 500, 0.10)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for infeasible trade, got %d", resp.StatusCode)
	}
}

func TestHandleTransactions_Limit(t *testing.T) {
	p, srv := newTestServer(t)
	register(t, p, "S", 100, 0, 0, model.KindProducer)
	register(t, p, "B", 0, 100, 100, model.KindConsumer)
	for i := 0; i < 3; i++ {
		if _, err := p.ExecuteTrade(context.Background(), "S", "B", d(10), d(0.10)); err != nil {
			t.Fatalf("trade %d: %v", i, err)
		}
	}

	resp, _ := http.Get(srv.URL + "/api/v1/transactions")
	all := decodeBody[[]model.Transaction](t, resp)
	if len(all) != 3 {
		t.Errorf("expected 3 transactions, got %d", len(all))
	}

	resp, _ = http.Get(srv.URL + "/api/v1/transactions?limit=2")
	limited := decodeBody[[]model.Transaction](t, resp)
	if len(limited) != 2 {
		t.Errorf("expected 2 transactions, got %d", len(limited))
	}
}

func TestHandleParticipantTransactions(t *testing.T) {
	p, srv := newTestServer(t)
	register(t, p, "S", 100, 0, 0, model.KindProducer)
	register(t, p, "B", 0, 50, 100, model.KindConsumer)
	if _, err := p.ExecuteTrade(context.Background(), "S", "B", d(10), d(0.10)); err != nil {
		t.Fatalf("trade: %v", err)
	}

	resp, _ := http.Get(srv.URL + "/api/v1/participants/B/transactions")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	txns := decodeBody[[]model.Transaction](t, resp)
	if len(txns) != 1 || txns[0].BuyerID != "B" {
		t.Errorf("unexpected transactions %v", txns)
	}

	resp, _ = http.Get(srv.URL + "/api/v1/participants/ghost/transactions")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown participant, got %d", resp.StatusCode)
	}
}

func TestHandleSnapshot(t *testing.T) {
	p, srv := newTestServer(t)
	for i := 0; i < 3; i++ {
		register(t, p, fmt.Sprintf("N%d", i), 10, 10, 100, model.KindStorage)
	}

	resp, _ := http.Get(srv.URL + "/api/v1/network")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	snap := decodeBody[model.NetworkSnapshot](t, resp)
	if len(snap.Nodes) != 3 || len(snap.Links) != 0 {
		t.Errorf("expected 3 nodes and 0 links, got %d/%d", len(snap.Nodes), len(snap.Links))
	}
}

func TestHandleLinkAndPaths(t *testing.T) {
	p, srv := newTestServer(t)
	register(t, p, "A", 10, 10, 100, model.KindStorage)
	register(t, p, "B", 10, 10, 100, model.KindStorage)
	register(t, p, "C", 10, 10, 100, model.KindStorage)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/links", map[string]string{"from": "A", "to": "B"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/links", map[string]string{"from": "B", "to": "C"}).Body.Close()

	resp, _ = http.Get(srv.URL + "/api/v1/network/paths?from=A&to=C")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	paths := decodeBody[trading.PathsResponse](t, resp)
	if len(paths.Shortest) != 3 {
		t.Errorf("expected 3-node shortest path, got %v", paths.Shortest)
	}
	if len(paths.All) != 1 {
		t.Errorf("expected 1 path, got %v", paths.All)
	}

	// Missing query parameters are a bad request.
	resp, _ = http.Get(srv.URL + "/api/v1/network/paths?from=A")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}

	// Self link is a bad request, unknown node a 404.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/links", map[string]string{"from": "A", "to": "A"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for self link, got %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/links", map[string]string{"from": "A", "to": "ghost"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown node, got %d", resp.StatusCode)
	}
}

func TestHandleStats(t *testing.T) {
	p, srv := newTestServer(t)
	register(t, p, "S", 100, 0, 0, model.KindProducer)
	register(t, p, "B", 0, 50, 100, model.KindConsumer)
	if _, err := p.ExecuteTrade(context.Background(), "S", "B", d(30), d(0.10)); err != nil {
		t.Fatalf("trade: %v", err)
	}

	resp, _ := http.Get(srv.URL + "/api/v1/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	stats := decodeBody[map[string]decimal.Decimal](t, resp)
	if !stats["total_energy_traded"].Equal(d(30)) {
		t.Errorf("total_energy_traded %s, want 30", stats["total_energy_traded"])
	}
	if !stats["transaction_fees"].Equal(d(0.06)) {
		t.Errorf("transaction_fees %s, want 0.06", stats["transaction_fees"])
	}
}

func TestHandleSuggestions(t *testing.T) {
	p, srv := newTestServer(t)
	register(t, p, "S", 100, 0, 0, model.KindProducer)
	register(t, p, "B", 0, 50, 100, model.KindConsumer)

	resp, _ := http.Get(srv.URL + "/api/v1/suggestions")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	suggestions := decodeBody[[]model.TradeSuggestion](t, resp)
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}
	if suggestions[0].SellerID != "S" || suggestions[0].BuyerID != "B" {
		t.Errorf("unexpected suggestion %+v", suggestions[0])
	}
}

func TestHandleHistories(t *testing.T) {
	p, srv := newTestServer(t)
	register(t, p, "S", 100, 0, 0, model.KindProducer)
	register(t, p, "B", 0, 100, 100, model.KindConsumer)
	for i := 0; i < 3; i++ {
		if _, err := p.ExecuteTrade(context.Background(), "S", "B", d(10), d(0.12)); err != nil {
			t.Fatalf("trade %d: %v", i, err)
		}
	}

	resp, _ := http.Get(srv.URL + "/api/v1/history/prices?points=2")
	prices := decodeBody[[]model.HistoryPoint](t, resp)
	if len(prices) != 2 {
		t.Errorf("expected 2 price points, got %d", len(prices))
	}

	resp, _ = http.Get(srv.URL + "/api/v1/history/volumes")
	volumes := decodeBody[[]model.HistoryPoint](t, resp)
	if len(volumes) != 3 {
		t.Errorf("expected 3 volume points, got %d", len(volumes))
	}
}

func TestHandleSellersAndBuyers(t *testing.T) {
	p, srv := newTestServer(t)
	register(t, p, "P1", 100, 0, 0, model.KindProducer)
	register(t, p, "C1", 0, 50, 100, model.KindConsumer)

	resp, _ := http.Get(srv.URL + "/api/v1/sellers")
	sellers := decodeBody[[]model.Participant](t, resp)
	if len(sellers) != 1 || sellers[0].ID != "P1" {
		t.Errorf("unexpected sellers %v", sellers)
	}

	resp, _ = http.Get(srv.URL + "/api/v1/buyers")
	buyers := decodeBody[[]model.Participant](t, resp)
	if len(buyers) != 1 || buyers[0].ID != "C1" {
		t.Errorf("unexpected buyers %v", buyers)
	}
}
