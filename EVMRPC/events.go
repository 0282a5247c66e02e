package EVMRPC

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Event is a decoded contract log.
type Event struct {
	Name        string
	Address     common.Address
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
	Args        map[string]interface{}
}

func (e Event) AddressArg(name string) (common.Address, error) {
	v, ok := e.Args[name].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: arg %q is %T, want address", e.Name, name, e.Args[name])
	}
	return v, nil
}

func (e Event) BigArg(name string) (*big.Int, error) {
	v, ok := e.Args[name].(*big.Int)
	if !ok || v == nil {
		return nil, fmt.Errorf("%s: arg %q is %T, want uint256", e.Name, name, e.Args[name])
	}
	return v, nil
}

func (e Event) StringArg(name string) (string, error) {
	v, ok := e.Args[name].(string)
	if !ok {
		return "", fmt.Errorf("%s: arg %q is %T, want string", e.Name, name, e.Args[name])
	}
	return v, nil
}

// GetEventLogs returns the decoded eventName logs of contract in [from, to].
//
// An event that is not part of contractABI yields an empty result and no
// error: callers treat "not in the ABI" the same as "no matches".
func (c *Client) GetEventLogs(ctx context.Context, contract common.Address, contractABI *abi.ABI, eventName string, from, to uint64) ([]Event, error) {
	ev, ok := contractABI.Events[eventName]
	if !ok {
		c.log.Debugf("event %s not found in abi of %s", eventName, contract.Hex())
		return []Event{}, nil
	}

	logs, err := WithClient(ctx, c, func(ctx context.Context, client *ethclient.Client) ([]ethtypes.Log, error) {
		return client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{contract},
			Topics:    [][]common.Hash{{ev.ID}},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("filter %s logs %d-%d: %w", eventName, from, to, err)
	}

	events := make([]Event, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		e, err := DecodeLog(ev, l)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// DecodeLog unpacks both the indexed and the data arguments of l.
func DecodeLog(ev abi.Event, l ethtypes.Log) (Event, error) {
	args := make(map[string]interface{})
	if err := ev.Inputs.UnpackIntoMap(args, l.Data); err != nil {
		return Event{}, fmt.Errorf("unpack %s data: %w", ev.Name, err)
	}
	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if len(l.Topics) != len(indexed)+1 {
		return Event{}, fmt.Errorf("unpack %s topics: want %d, got %d", ev.Name, len(indexed)+1, len(l.Topics))
	}
	if err := abi.ParseTopicsIntoMap(args, indexed, l.Topics[1:]); err != nil {
		return Event{}, fmt.Errorf("unpack %s topics: %w", ev.Name, err)
	}
	return Event{
		Name:        ev.Name,
		Address:     l.Address,
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash,
		LogIndex:    l.Index,
		Args:        args,
	}, nil
}
