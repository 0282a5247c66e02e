package db

import (
	"time"

	"ibetwstbridge/types"
)

// Account is an issuer key owned by the account management API.
type Account struct {
	IssuerAddress string `gorm:"column:issuer_address;primaryKey;size:42"`
	// geth keystore v3 JSON
	Keyfile     string `gorm:"column:keyfile;type:text"`
	EoaPassword string `gorm:"column:eoa_password;type:text"`
	IsDeleted   bool   `gorm:"column:is_deleted;not null;default:false"`
}

func (Account) TableName() string { return "account" }

// Token is an ibet token registered by the token management API.
type Token struct {
	TokenAddress    string  `gorm:"column:token_address;primaryKey;size:42"`
	IssuerAddress   string  `gorm:"column:issuer_address;size:42;index"`
	ABI             string  `gorm:"column:abi;type:text"`
	IbetWSTDeployed bool    `gorm:"column:ibet_wst_deployed;not null;default:false"`
	IbetWSTAddress  *string `gorm:"column:ibet_wst_address;size:42"`
}

func (Token) TableName() string { return "token" }

// EthIbetWSTTx is an outgoing IbetWST transaction intent.
type EthIbetWSTTx struct {
	TxID           string               `gorm:"column:tx_id;primaryKey;size:36"`
	TxType         types.OpType         `gorm:"column:tx_type;size:20;not null"`
	Version        string               `gorm:"column:version;size:2;not null"`
	Status         types.TxStatus       `gorm:"column:status;not null;index"`
	IbetWSTAddress *string              `gorm:"column:ibet_wst_address;size:42"`
	TxParams       string               `gorm:"column:tx_params;type:text;not null"`
	TxSender       string               `gorm:"column:tx_sender;size:42;not null"`
	Authorizer     *string              `gorm:"column:authorizer;size:42"`
	Authorization  *types.Authorization `gorm:"column:authorization;serializer:json;type:text"`
	TxHash         *string              `gorm:"column:tx_hash;size:66"`
	BlockNumber    *uint64              `gorm:"column:block_number"`
	Finalized      bool                 `gorm:"column:finalized;not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (EthIbetWSTTx) TableName() string { return "eth_ibet_wst_tx" }

func (t *EthIbetWSTTx) Params() (types.OpParams, error) {
	return types.DecodeOpParams(t.TxType, []byte(t.TxParams))
}

// EthToIbetBridgeTx is an ibet transaction made in reaction to a WST event.
type EthToIbetBridgeTx struct {
	TxID         string              `gorm:"column:tx_id;primaryKey;size:36"`
	TokenAddress string              `gorm:"column:token_address;size:42;not null"`
	TxType       types.InboundOpType `gorm:"column:tx_type;size:30;not null"`
	Status       types.TxStatus      `gorm:"column:status;not null;index"`
	TxParams     string              `gorm:"column:tx_params;type:text;not null"`
	TxSender     string              `gorm:"column:tx_sender;size:42;not null"`
	TxHash       *string             `gorm:"column:tx_hash;size:66"`
	BlockNumber  *uint64             `gorm:"column:block_number"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (EthToIbetBridgeTx) TableName() string { return "eth_to_ibet_bridge_tx" }

// IbetWSTBridgeSyncedBlockNumber is the checkpoint of one scanned stream.
type IbetWSTBridgeSyncedBlockNumber struct {
	Network           string `gorm:"column:network;primaryKey;size:20"`
	LatestBlockNumber uint64 `gorm:"column:latest_block_number;not null"`
}

func (IbetWSTBridgeSyncedBlockNumber) TableName() string { return "ibet_wst_bridge_synced_block_number" }

// IDXEthIbetWSTTrade is the latest known snapshot of a trade. Values are
// decimal strings so uint256 amounts survive on every engine.
type IDXEthIbetWSTTrade struct {
	IbetWSTAddress         string           `gorm:"column:ibet_wst_address;primaryKey;size:42"`
	Index                  uint64           `gorm:"column:index;primaryKey;autoIncrement:false"`
	SellerSTAccountAddress string           `gorm:"column:seller_st_account_address;size:42;not null;index"`
	BuyerSTAccountAddress  string           `gorm:"column:buyer_st_account_address;size:42;not null;index"`
	SCTokenAddress         string           `gorm:"column:sc_token_address;size:42;not null;index"`
	SellerSCAccountAddress string           `gorm:"column:seller_sc_account_address;size:42;not null"`
	BuyerSCAccountAddress  string           `gorm:"column:buyer_sc_account_address;size:42;not null"`
	STValue                string           `gorm:"column:st_value;size:78;not null"`
	SCValue                string           `gorm:"column:sc_value;size:78;not null"`
	State                  types.TradeState `gorm:"column:state;size:20;not null;index"`
	Memo                   string           `gorm:"column:memo;type:text"`
}

func (IDXEthIbetWSTTrade) TableName() string { return "idx_eth_ibet_wst_trade" }

// Node is the health record of one RPC endpoint.
type Node struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Network     string `gorm:"column:network;size:20;not null;uniqueIndex:idx_node_endpoint"`
	EndpointURI string `gorm:"column:endpoint_uri;size:267;not null;uniqueIndex:idx_node_endpoint"`
	Priority    int    `gorm:"column:priority;not null"`
	IsSynced    bool   `gorm:"column:is_synced;not null"`
}

func (Node) TableName() string { return "ibet_wst_bridge_node" }

func (n Node) Record() types.NodeRecord {
	return types.NodeRecord{
		Network:     n.Network,
		EndpointURI: n.EndpointURI,
		Priority:    n.Priority,
		IsSynced:    n.IsSynced,
	}
}

var allModels = []interface{}{
	&Account{},
	&Token{},
	&EthIbetWSTTx{},
	&EthToIbetBridgeTx{},
	&IbetWSTBridgeSyncedBlockNumber{},
	&IDXEthIbetWSTTrade{},
	&Node{},
}
