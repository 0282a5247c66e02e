package handlers

import (
	"net/http"

	"ibetwstbridge/db"
)

// HealthCheck lists every node record and answers 503 when a network has no
// synced node left.
func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) {
	store := db.NodeStore{DB: a.DB}
	resp := &APIHealthResponse{Status: "ok", Nodes: []APINode{}}
	for _, network := range a.Networks {
		records, err := store.ListNodes(r.Context(), network)
		if err != nil {
			responseError(w, "cannot read node status", http.StatusInternalServerError)
			return
		}
		synced := false
		for _, n := range records {
			synced = synced || n.IsSynced
			resp.Nodes = append(resp.Nodes, APINode{
				Network:     n.Network,
				EndpointURI: n.EndpointURI,
				Priority:    n.Priority,
				IsSynced:    n.IsSynced,
			})
		}
		// no records yet means the monitor has not run
		if len(records) > 0 && !synced {
			resp.Down = append(resp.Down, network)
		}
	}

	code := http.StatusOK
	if len(resp.Down) > 0 {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	responseJSON(w, resp, code)
}
