package trading

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nexusgrid/energy-engine/internal/feasibility"
	"github.com/nexusgrid/energy-engine/internal/member"
	"github.com/nexusgrid/energy-engine/internal/model"
)

// --- Request/Response types ---

// TradeRequest is the JSON body for POST /trade.
type TradeRequest struct {
	SellerID     string          `json:"sellerId"`
	BuyerID      string          `json:"buyerId"`
	Energy       decimal.Decimal `json:"energy"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
}

// LinkRequest is the JSON body for POST/DELETE /links.
type LinkRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PathsResponse carries both path queries for a pair of nodes.
type PathsResponse struct {
	Shortest []string   `json:"shortest"`
	All      [][]string `json:"all"`
}

// --- HTTP Handlers ---

// HandleRegister handles POST /api/v1/participants.
func (p *Platform) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var reg member.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	participant, err := p.RegisterParticipant(&reg)
	if err != nil {
		if errors.Is(err, ErrDuplicateParticipant) {
			writeError(w, err.Error(), http.StatusConflict)
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, participant)
}

// HandleGetParticipant handles GET /api/v1/participants/{participantID}.
func (p *Platform) HandleGetParticipant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "participantID")

	participant, ok := p.Participant(id)
	if !ok {
		writeError(w, "participant not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

// HandleListSellers handles GET /api/v1/sellers.
func (p *Platform) HandleListSellers(w http.ResponseWriter, _ *http.Request) {
	sellers := p.Sellers()
	if sellers == nil {
		sellers = []model.Participant{}
	}
	writeJSON(w, http.StatusOK, sellers)
}

// HandleListBuyers handles GET /api/v1/buyers.
func (p *Platform) HandleListBuyers(w http.ResponseWriter, _ *http.Request) {
	buyers := p.Buyers()
	if buyers == nil {
		buyers = []model.Participant{}
	}
	writeJSON(w, http.StatusOK, buyers)
}

// HandleParticipantTransactions handles
// GET /api/v1/participants/{participantID}/transactions.
func (p *Platform) HandleParticipantTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "participantID")

	if _, ok := p.Participant(id); !ok {
		writeError(w, "participant not found", http.StatusNotFound)
		return
	}

	txns, err := p.ParticipantTransactions(r.Context(), id)
	if err != nil {
		writeError(w, "failed to load transactions", http.StatusInternalServerError)
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

// HandleLink handles POST /api/v1/links.
func (p *Platform) HandleLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := p.Link(req.From, req.To); err != nil {
		switch {
		case errors.Is(err, ErrSelfLink):
			writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrUnknownParticipant):
			writeError(w, err.Error(), http.StatusNotFound)
		default:
			writeError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "linked"})
}

// HandleUnlink handles DELETE /api/v1/links.
func (p *Platform) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p.Unlink(req.From, req.To)
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlinked"})
}

// HandleTrade handles POST /api/v1/trade. Rejections map to 400 (bad
// arguments), 404 (unknown participant), or 409 (infeasible trade); the
// registry and ledger are untouched on every rejection.
func (p *Platform) HandleTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	txn, err := p.ExecuteTrade(r.Context(), req.SellerID, req.BuyerID, req.Energy, req.PricePerUnit)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownParticipant):
			writeError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrSelfTrade), errors.Is(err, feasibility.ErrInvalidAmount):
			writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, feasibility.ErrInsufficientSurplus),
			errors.Is(err, feasibility.ErrSellerOverdrawn),
			errors.Is(err, feasibility.ErrInsufficientDemand),
			errors.Is(err, feasibility.ErrInsufficientBalance):
			writeError(w, err.Error(), http.StatusConflict)
		default:
			writeError(w, "failed to record trade", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, txn)
}

// HandleTransactions handles GET /api/v1/transactions?limit=N.
// Without a limit the full ordered history is returned.
func (p *Platform) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)

	var (
		txns []model.Transaction
		err  error
	)
	if limit > 0 {
		txns, err = p.Recent(r.Context(), limit)
	} else {
		txns, err = p.History(r.Context())
	}
	if err != nil {
		writeError(w, "failed to load transactions", http.StatusInternalServerError)
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

// HandleSnapshot handles GET /api/v1/network.
func (p *Platform) HandleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// HandlePaths handles GET /api/v1/network/paths?from=&to=&maxDepth=.
func (p *Platform) HandlePaths(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, "from and to are required", http.StatusBadRequest)
		return
	}
	maxDepth := queryInt(r, "maxDepth", 0)

	resp := PathsResponse{
		Shortest: p.network.ShortestPath(from, to),
		All:      p.network.AllPaths(from, to, maxDepth),
	}
	if resp.Shortest == nil {
		resp.Shortest = []string{}
	}
	if resp.All == nil {
		resp.All = [][]string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleClusters handles GET /api/v1/network/clusters.
func (p *Platform) HandleClusters(w http.ResponseWriter, _ *http.Request) {
	clusters := p.network.Clusters()
	if clusters == nil {
		clusters = [][]string{}
	}
	writeJSON(w, http.StatusOK, clusters)
}

// HandleStats handles GET /api/v1/stats.
func (p *Platform) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := p.MarketStats(r.Context())
	if err != nil {
		writeError(w, "failed to compute market stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleSuggestions handles GET /api/v1/suggestions.
func (p *Platform) HandleSuggestions(w http.ResponseWriter, _ *http.Request) {
	suggestions := p.Suggestions()
	if suggestions == nil {
		suggestions = []model.TradeSuggestion{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// HandlePriceHistory handles GET /api/v1/history/prices?points=N.
func (p *Platform) HandlePriceHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, p.PriceHistory(queryInt(r, "points", 0)))
}

// HandleVolumeHistory handles GET /api/v1/history/volumes?points=N.
func (p *Platform) HandleVolumeHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, p.VolumeHistory(queryInt(r, "points", 0)))
}

// --- helpers ---

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
