package handlers

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

type APIStateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type APINode struct {
	Network     string `json:"network"`
	EndpointURI string `json:"endpoint_uri"`
	Priority    int    `json:"priority"`
	IsSynced    bool   `json:"is_synced"`
}

type APIHealthResponse struct {
	Status string    `json:"status"`
	Nodes  []APINode `json:"nodes"`
	// networks without any synced node
	Down []string `json:"down,omitempty"`
}

type APIWSTTx struct {
	TxID           string  `json:"tx_id"`
	TxType         string  `json:"tx_type"`
	Status         string  `json:"status"`
	IbetWSTAddress *string `json:"ibet_wst_address"`
	TxParams       string  `json:"tx_params"`
	TxSender       string  `json:"tx_sender"`
	TxHash         *string `json:"tx_hash"`
	BlockNumber    *uint64 `json:"block_number"`
	CreatedAt      string  `json:"created_at"`
}

type APIBridgeTx struct {
	TxID         string  `json:"tx_id"`
	TxType       string  `json:"tx_type"`
	Status       string  `json:"status"`
	TokenAddress string  `json:"token_address"`
	TxParams     string  `json:"tx_params"`
	TxSender     string  `json:"tx_sender"`
	TxHash       *string `json:"tx_hash"`
	CreatedAt    string  `json:"created_at"`
}
