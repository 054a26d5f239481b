package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/queue"
	"github.com/botforge/botforge/internal/remote/ledger"
	"github.com/botforge/botforge/internal/request"
	"github.com/botforge/botforge/internal/services/share"
	"github.com/botforge/botforge/internal/validation"
)

// BotHandler handles community bot directory requests
type BotHandler struct {
	bots     *database.BotRepository
	personas *database.PersonaRepository
	share    *share.Service
	ledger   *ledger.Ledger
	jobs     queue.JobQueue
}

// NewBotHandler creates a new bot handler. ledger and jobs may be nil when
// the remote ledger or queue is not wired; the affected endpoints then
// return 503.
func NewBotHandler(bots *database.BotRepository, personas *database.PersonaRepository, share *share.Service, ledger *ledger.Ledger, jobs queue.JobQueue) *BotHandler {
	return &BotHandler{bots: bots, personas: personas, share: share, ledger: ledger, jobs: jobs}
}

// RegisterRoutes registers bot routes on the given router.
// The router should already have the /bots prefix.
func (h *BotHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListBots).Methods("GET")
	r.HandleFunc("", h.DeleteAllBots).Methods("DELETE")
	r.HandleFunc("/search", h.SearchBots).Methods("GET")
	r.HandleFunc("/sync", h.TriggerSync).Methods("POST")
	r.HandleFunc("/{id}", h.GetBot).Methods("GET")
	r.HandleFunc("/{id}", h.DeleteBot).Methods("DELETE")
	r.HandleFunc("/{id}/import", h.ImportBot).Methods("POST")
	r.HandleFunc("/{id}/upvote", h.UpVote).Methods("POST")
	r.HandleFunc("/{id}/downvote", h.DownVote).Methods("POST")
	r.HandleFunc("/{id}/report", h.Report).Methods("POST")
	r.HandleFunc("/{id}/votes", h.VoteStatus).Methods("GET")
}

// VoteStatusResponse reports the caller's standing and the live counts for
// a bot
type VoteStatusResponse struct {
	UpVotes     int64 `json:"up_votes"`
	DownVotes   int64 `json:"down_votes"`
	HasUpVote   bool  `json:"has_up_vote"`
	HasDownVote bool  `json:"has_down_vote"`
	HasReport   bool  `json:"has_report"`
}

// ListBots lists locally synced bots ordered by popularity
func (h *BotHandler) ListBots(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, offset, err := validation.ValidatePagination(limit, offset)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	bots, err := h.bots.List(r.Context(), limit, offset)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to list bots")
		return
	}
	respondJSON(w, http.StatusOK, bots)
}

// SearchBots runs a case-insensitive substring search over the local
// directory copy
func (h *BotHandler) SearchBots(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Missing query parameter q")
		return
	}

	bots, err := h.bots.Search(r.Context(), query)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Search failed")
		return
	}
	respondJSON(w, http.StatusOK, bots)
}

// GetBot returns a single bot by uuid
func (h *BotHandler) GetBot(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	bot, err := h.bots.GetByUUID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Bot not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get bot")
		return
	}
	respondJSON(w, http.StatusOK, bot)
}

// DeleteBot removes a bot from the local directory copy
func (h *BotHandler) DeleteBot(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.bots.Delete(r.Context(), id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete bot")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Bot deleted"})
}

// DeleteAllBots clears the local directory copy. The next sync repopulates
// it from the watermark.
func (h *BotHandler) DeleteAllBots(w http.ResponseWriter, r *http.Request) {
	if err := h.bots.DeleteAll(r.Context()); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete bots")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "All bots deleted"})
}

// ImportBot turns a community bot into a local persona
func (h *BotHandler) ImportBot(w http.ResponseWriter, r *http.Request) {
	if h.share == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Sharing is not configured")
		return
	}

	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	bot, err := h.bots.GetByUUID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Bot not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get bot")
		return
	}

	persona, err := h.share.Import(ctx, bot, h.personas)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to import bot")
		return
	}
	respondJSON(w, http.StatusCreated, persona)
}

// TriggerSync enqueues a directory sync job
func (h *BotHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Queue is not configured")
		return
	}

	job := queue.NewJob(queue.JobTypeDirectorySync, nil)
	if err := h.jobs.Enqueue(r.Context(), job); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to enqueue sync")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID.String()})
}

// UpVote records an up-vote for the bot by the authenticated user
func (h *BotHandler) UpVote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, "up")
}

// DownVote records a down-vote for the bot by the authenticated user
func (h *BotHandler) DownVote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, "down")
}

func (h *BotHandler) vote(w http.ResponseWriter, r *http.Request, direction string) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	if h.ledger == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Vote ledger is not configured")
		return
	}

	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	var err error
	if direction == "up" {
		err = h.ledger.AddUpVote(ctx, id.String(), user.ID)
	} else {
		err = h.ledger.AddDownVote(ctx, id.String(), user.ID)
	}
	if err != nil {
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to record vote")
		return
	}
	h.voteStatus(w, r, id.String(), user.ID)
}

// Report flags a bot for moderation. A repeated report for the same pair is
// a no-op.
func (h *BotHandler) Report(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	if h.ledger == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Vote ledger is not configured")
		return
	}

	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.ledger.AddReport(r.Context(), id.String(), user.ID); err != nil {
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to record report")
		return
	}
	h.voteStatus(w, r, id.String(), user.ID)
}

// VoteStatus returns the live counts plus the caller's standing for a bot
func (h *BotHandler) VoteStatus(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	if h.ledger == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Vote ledger is not configured")
		return
	}

	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	h.voteStatus(w, r, id.String(), user.ID)
}

func (h *BotHandler) voteStatus(w http.ResponseWriter, r *http.Request, botID, userID string) {
	ctx := r.Context()
	respondJSON(w, http.StatusOK, VoteStatusResponse{
		UpVotes:     h.ledger.UpVotes(ctx, botID),
		DownVotes:   h.ledger.DownVotes(ctx, botID),
		HasUpVote:   h.ledger.HasUpVote(ctx, botID, userID),
		HasDownVote: h.ledger.HasDownVote(ctx, botID, userID),
		HasReport:   h.ledger.HasReport(ctx, botID, userID),
	})
}
