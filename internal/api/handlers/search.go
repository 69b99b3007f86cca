package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/anshulj/papershelf/internal/index"
	"github.com/anshulj/papershelf/internal/search"
)

type SearchHandler struct {
	idx    *index.Index
	engine *search.Engine
}

func NewSearchHandler(idx *index.Index, engine *search.Engine) *SearchHandler {
	return &SearchHandler{idx: idx, engine: engine}
}

// Search evaluates q against the latest committed snapshot. Parameters:
// q (required), fields (comma-separated, default title+body), limit, fuzzy.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if strings.TrimSpace(q.Get("q")) == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	fuzzy, _ := strconv.ParseBool(q.Get("fuzzy"))

	req := search.Request{
		Query:  q.Get("q"),
		Fields: h.engine.ParseFields(q.Get("fields")),
		Limit:  limit,
		Fuzzy:  fuzzy,
	}

	// The snapshot pins one generation for the whole evaluation.
	snap := h.idx.Snapshot()
	result := h.engine.Search(snap, req)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hits":       result.Hits,
		"total":      result.Total,
		"generation": snap.Generation(),
	})
}
