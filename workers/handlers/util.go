package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"gorm.io/gorm"
)

// API serves the read-only status endpoints.
type API struct {
	DB       *gorm.DB
	Networks []string
}

func responseJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func responseError(w http.ResponseWriter, msg string, code int) {
	responseJSON(w, &APIResponse{Status: "error", Message: msg}, code)
}

const maxLimit = 1000

// limitParam reads ?limit=, defaulting to 100.
func limitParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 100, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxLimit {
		return 0, false
	}
	return n, true
}
