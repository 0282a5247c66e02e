package handlers

import (
	"net/http"
	"time"

	"ibetwstbridge/db"
	"ibetwstbridge/types"
)

// GetFailedTransactions lists failed IbetWST intents, oldest first.
func (a *API) GetFailedTransactions(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r)
	if !ok {
		responseError(w, "invalid limit", http.StatusBadRequest)
		return
	}
	rows, err := db.ListWSTTxByStatus(r.Context(), a.DB, types.TxFailed, limit)
	if err != nil {
		responseJSON(w, nil, http.StatusInternalServerError)
		return
	}
	out := make([]APIWSTTx, 0, len(rows))
	for _, row := range rows {
		out = append(out, APIWSTTx{
			TxID:           row.TxID,
			TxType:         string(row.TxType),
			Status:         row.Status.String(),
			IbetWSTAddress: row.IbetWSTAddress,
			TxParams:       row.TxParams,
			TxSender:       row.TxSender,
			TxHash:         row.TxHash,
			BlockNumber:    row.BlockNumber,
			CreatedAt:      row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	responseJSON(w, out, http.StatusOK)
}

// GetFailedBridgeTransactions lists failed forced unlock/relock intents on ibet.
func (a *API) GetFailedBridgeTransactions(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r)
	if !ok {
		responseError(w, "invalid limit", http.StatusBadRequest)
		return
	}
	rows, err := db.ListBridgeTxByStatus(r.Context(), a.DB, types.TxFailed, limit)
	if err != nil {
		responseJSON(w, nil, http.StatusInternalServerError)
		return
	}
	out := make([]APIBridgeTx, 0, len(rows))
	for _, row := range rows {
		out = append(out, APIBridgeTx{
			TxID:         row.TxID,
			TxType:       string(row.TxType),
			Status:       row.Status.String(),
			TokenAddress: row.TokenAddress,
			TxParams:     row.TxParams,
			TxSender:     row.TxSender,
			TxHash:       row.TxHash,
			CreatedAt:    row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	responseJSON(w, out, http.StatusOK)
}
