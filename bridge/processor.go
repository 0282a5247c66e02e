// Package bridge turns lock events on ibet into IbetWST mint intents and
// IbetWST burns and transfers into forced unlock/relock intents on ibet.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ibetwstbridge/EVMRPC"
	"ibetwstbridge/EVMRPC/ibettoken"
	"ibetwstbridge/EVMRPC/wst"
	"ibetwstbridge/blockscan"
	"ibetwstbridge/config"
	"ibetwstbridge/db"
	"ibetwstbridge/eip712"
	"ibetwstbridge/keys"
	"ibetwstbridge/types"
)

// LogSource queries decoded contract events.
type LogSource interface {
	GetEventLogs(ctx context.Context, contract common.Address, contractABI *abi.ABI, eventName string, from, to uint64) ([]EVMRPC.Event, error)
}

type IbetChain interface {
	LogSource
	LatestBlock(ctx context.Context) (uint64, error)
}

type EthereumChain interface {
	LogSource
	wst.Caller
	FinalizedBlock(ctx context.Context) (uint64, error)
	ChainID() *big.Int
}

type Processor struct {
	DB       *gorm.DB
	Ibet     IbetChain
	Ethereum EthereumChain
	Keys     keys.Store
	Registry *Registry
	WST      *wst.Contract
	// tx sender of every mint intent
	RelayerAddress string
	LotSize        uint64
	Log            logrus.FieldLogger

	// overridable in tests
	NewNonce func() ([32]byte, error)
	NewID    func() string
}

func (p *Processor) newNonce() ([32]byte, error) {
	if p.NewNonce != nil {
		return p.NewNonce()
	}
	return eip712.NewNonce()
}

func (p *Processor) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.NewString()
}

// RunOnce refreshes the pair registry and runs both directions.
func (p *Processor) RunOnce(ctx context.Context) error {
	if err := p.Registry.Refresh(ctx, p.DB); err != nil {
		return err
	}
	if err := p.IbetToEthereum(ctx); err != nil {
		return fmt.Errorf("ibet to ethereum: %w", err)
	}
	if err := p.EthereumToIbet(ctx); err != nil {
		return fmt.Errorf("ethereum to ibet: %w", err)
	}
	return nil
}

// IbetToEthereum scans ibet Lock events up to the latest block.
func (p *Processor) IbetToEthereum(ctx context.Context) error {
	latest, err := p.Ibet.LatestBlock(ctx)
	if err != nil {
		return err
	}
	res, err := blockscan.Scan(ctx, p.DB, config.StreamIbet, latest, p.LotSize, func(tx *gorm.DB, r blockscan.Range) error {
		return p.processLocks(ctx, tx, r)
	})
	if err != nil {
		return err
	}
	if res.Skipped {
		p.Log.Debug("skip process")
	}
	return nil
}

// EthereumToIbet scans IbetWST Burn and Transfer events up to the finalized block.
func (p *Processor) EthereumToIbet(ctx context.Context) error {
	finalized, err := p.Ethereum.FinalizedBlock(ctx)
	if err != nil {
		return err
	}
	res, err := blockscan.Scan(ctx, p.DB, config.StreamEthereum, finalized, p.LotSize, func(tx *gorm.DB, r blockscan.Range) error {
		if err := p.processBurns(ctx, tx, r); err != nil {
			return err
		}
		return p.processTransfers(ctx, tx, r)
	})
	if err != nil {
		return err
	}
	if res.Skipped {
		p.Log.Debug("skip process")
	}
	return nil
}

func (p *Processor) processLocks(ctx context.Context, tx *gorm.DB, r blockscan.Range) error {
	for _, pair := range p.Registry.Pairs() {
		events, err := p.Ibet.GetEventLogs(ctx, pair.IbetToken(), pair.TokenABI, ibettoken.EventLock, r.From, r.To)
		if err != nil {
			return err
		}
		for _, ev := range events {
			lockAddress, err := ev.AddressArg("lockAddress")
			if err != nil || lockAddress != pair.Issuer() {
				continue
			}
			data, err := ev.StringArg("data")
			if err != nil || !types.IsBridgeMarker(data) {
				continue
			}
			if err := p.mint(ctx, tx, pair, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// mint signs and queues one mint intent. Only database errors abort the run;
// a failure to sign skips the event.
func (p *Processor) mint(ctx context.Context, tx *gorm.DB, pair Pair, ev EVMRPC.Event) error {
	issuer, err := p.Keys.Get(ctx, pair.IssuerAddress)
	if errors.Is(err, keys.ErrAccountNotFound) {
		p.Log.Warnf("Cannot find issuer for IbetWST address: %s", pair.WSTAddress)
		return nil
	}
	if err != nil {
		return err
	}

	to, err := ev.AddressArg("accountAddress")
	if err != nil {
		p.Log.Errorf("Failed to mint WST: %s, error: %v", pair.WSTAddress, err)
		return nil
	}
	value, err := ev.BigArg("value")
	if err != nil {
		p.Log.Errorf("Failed to mint WST: %s, error: %v", pair.WSTAddress, err)
		return nil
	}

	params := types.MintParams{ToAddress: to.Hex(), Value: value}
	auth, err := p.authorize(ctx, pair, params, issuer)
	if err != nil {
		p.Log.Errorf("Failed to mint WST: %s, error: %v", pair.WSTAddress, err)
		return nil
	}
	raw, err := types.EncodeOpParams(params)
	if err != nil {
		return err
	}

	id := p.newID()
	wstAddress := pair.WSTAddress
	authorizer := issuer.Address.Hex()
	if err := db.InsertWSTTx(ctx, tx, &db.EthIbetWSTTx{
		TxID:           id,
		TxType:         types.OpMint,
		Version:        types.WSTVersion,
		Status:         types.TxPending,
		IbetWSTAddress: &wstAddress,
		TxParams:       string(raw),
		TxSender:       p.RelayerAddress,
		Authorizer:     &authorizer,
		Authorization:  &auth,
	}); err != nil {
		return err
	}
	p.Log.Infof("Minting IbetWST: %s, to=%s, value=%s, tx_id=%s", pair.WSTAddress, to.Hex(), value, id)
	return nil
}

func (p *Processor) authorize(ctx context.Context, pair Pair, params types.MintParams, issuer *keys.Account) (types.Authorization, error) {
	nonce, err := p.newNonce()
	if err != nil {
		return types.Authorization{}, err
	}
	sep, err := p.WST.DomainSeparator(ctx, p.Ethereum, pair.WST(), p.Ethereum.ChainID())
	if err != nil {
		return types.Authorization{}, err
	}
	digest, err := eip712.BuildDigest(sep, params, nonce)
	if err != nil {
		return types.Authorization{}, err
	}
	return eip712.Sign(digest, nonce, issuer.Key)
}

func (p *Processor) processBurns(ctx context.Context, tx *gorm.DB, r blockscan.Range) error {
	for _, pair := range p.Registry.Pairs() {
		events, err := p.Ethereum.GetEventLogs(ctx, pair.WST(), &p.WST.ABI, wst.EventBurn, r.From, r.To)
		if err != nil {
			return err
		}
		for _, ev := range events {
			from, err := ev.AddressArg("from")
			if err != nil {
				return err
			}
			value, err := ev.BigArg("value")
			if err != nil {
				return err
			}
			err = p.insertInbound(ctx, tx, pair, types.InboundForceUnlock, types.ForceUnlockParams{
				LockAddress:      pair.IssuerAddress,
				AccountAddress:   from.Hex(),
				RecipientAddress: from.Hex(),
				Value:            value,
				Data:             types.BridgeMarker,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Processor) processTransfers(ctx context.Context, tx *gorm.DB, r blockscan.Range) error {
	for _, pair := range p.Registry.Pairs() {
		events, err := p.Ethereum.GetEventLogs(ctx, pair.WST(), &p.WST.ABI, wst.EventTransfer, r.From, r.To)
		if err != nil {
			return err
		}
		for _, ev := range events {
			from, err := ev.AddressArg("from")
			if err != nil {
				return err
			}
			to, err := ev.AddressArg("to")
			if err != nil {
				return err
			}
			// mint and burn
			if from == (common.Address{}) || to == (common.Address{}) {
				continue
			}
			value, err := ev.BigArg("value")
			if err != nil {
				return err
			}
			err = p.insertInbound(ctx, tx, pair, types.InboundForceChangeLockedAccount, types.ForceChangeLockedAccountParams{
				LockAddress:          pair.IssuerAddress,
				BeforeAccountAddress: from.Hex(),
				AfterAccountAddress:  to.Hex(),
				Value:                value,
				Data:                 types.BridgeMarker,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Processor) insertInbound(ctx context.Context, tx *gorm.DB, pair Pair, op types.InboundOpType, params interface{}) error {
	raw, err := jsonParams(params)
	if err != nil {
		return err
	}
	return db.InsertBridgeTx(ctx, tx, &db.EthToIbetBridgeTx{
		TxID:         p.newID(),
		TokenAddress: pair.IbetTokenAddress,
		TxType:       op,
		Status:       types.TxPending,
		TxParams:     raw,
		TxSender:     pair.IssuerAddress,
	})
}

func jsonParams(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
