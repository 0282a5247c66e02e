package bridge

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ibetwstbridge/EVMRPC/ibettoken"
	"ibetwstbridge/db"
	"ibetwstbridge/types"
)

// Pair is a monitored token pair with its parsed ibet token ABI.
type Pair struct {
	types.MonitoredTokenPair
	TokenABI *abi.ABI
}

func (p Pair) WST() common.Address       { return common.HexToAddress(p.WSTAddress) }
func (p Pair) IbetToken() common.Address { return common.HexToAddress(p.IbetTokenAddress) }
func (p Pair) Issuer() common.Address    { return common.HexToAddress(p.IssuerAddress) }

// Registry holds the token pairs a processor watches. It only grows; a pair
// stays watched after its issuer is deleted.
type Registry struct {
	log logrus.FieldLogger

	mu    sync.RWMutex
	pairs map[string]Pair
}

func NewRegistry(logger logrus.FieldLogger) *Registry {
	return &Registry{log: logger, pairs: make(map[string]Pair)}
}

// Refresh adds the pairs deployed since the last call.
func (r *Registry) Refresh(ctx context.Context, database *gorm.DB) error {
	rows, err := db.ListMonitoredPairs(ctx, database)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		if _, ok := r.pairs[row.WSTAddress]; ok {
			continue
		}
		parsed, err := ibettoken.ParseABI(row.IbetABI)
		if err != nil {
			r.log.Warnf("Skipping token %s: %v", row.IbetTokenAddress, err)
			continue
		}
		r.pairs[row.WSTAddress] = Pair{MonitoredTokenPair: row, TokenABI: parsed}
		r.log.Infof("Monitoring IbetWST %s for token %s", row.WSTAddress, row.IbetTokenAddress)
	}
	return nil
}

// Pairs returns the current pairs ordered by WST address.
func (r *Registry) Pairs() []Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Pair, 0, len(r.pairs))
	for _, p := range r.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WSTAddress < out[j].WSTAddress })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pairs)
}
