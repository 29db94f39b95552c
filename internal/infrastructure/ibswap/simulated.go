package ibswap

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

// RateScale is the fixed-point scale of exchange rates (underlying per wrapped)
var RateScale = big.NewInt(1e18)

// DeployConfig holds the constructor arguments of a simulated contract and
// the account deploying it.
type DeployConfig struct {
	Router   common.Address
	WETH     common.Address // wrapped-native ib token, the only accepted value sender
	Governor common.Address
	Now      func() time.Time
	Logger   *logrus.Entry
}

type wrappedToken struct {
	token entities.Token
	rate  *big.Int
}

// Simulator is an in-process model of the swap contract backed by constant
// product pools. It is safe for concurrent use.
type Simulator struct {
	mu              sync.RWMutex
	router          common.Address
	weth            common.Address
	governor        common.Address
	pendingGovernor common.Address
	tokens          map[common.Address]wrappedToken
	supported       map[common.Address]bool
	pools           []*entities.Pair
	balances        map[common.Address]map[common.Address]*big.Int
	received        *big.Int
	nonce           uint64
	now             func() time.Time
	logger          *logrus.Entry
}

// NewSimulator deploys a simulated contract. The WETH ib token is always swappable.
func NewSimulator(cfg DeployConfig) *Simulator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Simulator{
		router:    cfg.Router,
		weth:      cfg.WETH,
		governor:  cfg.Governor,
		tokens:    make(map[common.Address]wrappedToken),
		supported: make(map[common.Address]bool),
		balances:  make(map[common.Address]map[common.Address]*big.Int),
		received:  new(big.Int),
		now:       now,
		logger:    logger.WithField("component", "simulator"),
	}
}

// Router returns the router address the contract was deployed with
func (s *Simulator) Router() common.Address {
	return s.router
}

// RegisterToken makes an ib token known with its exchange rate, scaled by
// RateScale. Registration does not make the token swappable.
func (s *Simulator) RegisterToken(token entities.Token, rate *big.Int) error {
	if !token.IsWrapped() {
		return fmt.Errorf("%s: %w", token.Symbol, entities.ErrUnsupportedToken)
	}
	if rate == nil || rate.Sign() <= 0 {
		return fmt.Errorf("%s: exchange rate must be positive", token.Symbol)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Address] = wrappedToken{token: token, rate: new(big.Int).Set(rate)}
	return nil
}

// Tokens returns the registered ib tokens ordered by address
func (s *Simulator) Tokens() []entities.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Token, 0, len(s.tokens))
	for _, wt := range s.tokens {
		out = append(out, wt.token)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address.Bytes(), out[j].Address.Bytes()) < 0
	})
	return out
}

// SetPool installs a pool, replacing any pool over the same two tokens
func (s *Simulator) SetPool(pair *entities.Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pools {
		if p.Has(pair.Token0.Address) && p.Has(pair.Token1.Address) {
			s.pools[i] = pair.Clone()
			return
		}
	}
	s.pools = append(s.pools, pair.Clone())
}

// Pool returns a copy of the pool trading a against b
func (s *Simulator) Pool(a, b common.Address) (*entities.Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.pool(a, b)
	if p == nil {
		return nil, false
	}
	return p.Clone(), true
}

// Mint credits amount of token to holder
func (s *Simulator) Mint(token, holder common.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credit(token, holder, amount)
}

// BalanceOf returns the token balance of holder
func (s *Simulator) BalanceOf(token, holder common.Address) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.balance(token, holder))
}

// Receive models the contract's receive(): only the WETH ib token may send value
func (s *Simulator) Receive(sender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return entities.ErrNegativeAmount
	}
	if sender != s.weth {
		return entities.NewRevertError(entities.ReasonUnexpectedSender)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received.Add(s.received, amount)
	return nil
}

// SetPendingGovernor nominates the next governor
func (s *Simulator) SetPendingGovernor(caller, pending common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if caller != s.governor {
		return entities.NewRevertError(entities.ReasonNotGovernor)
	}
	s.pendingGovernor = pending
	return nil
}

// AcceptGovernor completes a governor handover
func (s *Simulator) AcceptGovernor(caller common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if caller != s.pendingGovernor || caller == (common.Address{}) {
		return entities.NewRevertError(entities.ReasonNotPendingGovernor)
	}
	s.governor = caller
	s.pendingGovernor = common.Address{}
	return nil
}

// Session returns an Oracle acting on behalf of caller
func (s *Simulator) Session(caller common.Address) *Session {
	return &Session{sim: s, caller: caller}
}

func (s *Simulator) addTokens(caller common.Address, tokens []common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if caller != s.governor {
		return entities.NewRevertError(entities.ReasonNotGovernor)
	}
	for _, t := range tokens {
		if _, ok := s.tokens[t]; !ok {
			return entities.NewRevertError(entities.ReasonUnsupportedToken)
		}
	}
	for _, t := range tokens {
		s.supported[t] = true
	}
	s.logger.WithField("tokens", len(tokens)).Debug("Supported tokens added")
	return nil
}

func (s *Simulator) estimate(tokenIn, tokenOut common.Address, underlyingIn *big.Int) ([]*big.Int, []common.Address, error) {
	if tokenIn == tokenOut {
		return nil, nil, entities.NewRevertError(entities.ReasonSameToken)
	}
	in, ok := s.swappable(tokenIn)
	if !ok {
		return nil, nil, entities.NewRevertError(entities.ReasonUnsupportedToken)
	}
	out, ok := s.swappable(tokenOut)
	if !ok {
		return nil, nil, entities.NewRevertError(entities.ReasonUnsupportedToken)
	}
	if underlyingIn == nil || underlyingIn.Sign() <= 0 {
		return nil, nil, entities.NewRevertError(entities.ReasonInsufficientInput)
	}

	path, err := s.path(in.token.Underlying, out.token.Underlying)
	if err != nil {
		return nil, nil, err
	}

	amounts := make([]*big.Int, len(path))
	amounts[0] = new(big.Int).Set(underlyingIn)
	for i := 0; i < len(path)-1; i++ {
		if amounts[i].Sign() == 0 {
			return nil, nil, entities.NewRevertError(entities.ReasonInsufficientInput)
		}
		amounts[i+1] = s.pool(path[i], path[i+1]).GetAmountOut(amounts[i], path[i])
	}
	return amounts, path, nil
}

// path prefers a direct pool and otherwise routes through the native underlying
func (s *Simulator) path(from, to common.Address) ([]common.Address, error) {
	if s.pool(from, to) != nil {
		return []common.Address{from, to}, nil
	}
	native := s.nativeUnderlying()
	if from != native && to != native && s.pool(from, native) != nil && s.pool(native, to) != nil {
		return []common.Address{from, native, to}, nil
	}
	return nil, entities.NewRevertError(entities.ReasonNoRoute)
}

func (s *Simulator) swap(caller common.Address, req entities.SwapRequest) (*entities.SwapResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Deadline == nil || req.Deadline.Cmp(big.NewInt(s.now().Unix())) < 0 {
		return nil, entities.NewRevertError(entities.ReasonExpired)
	}
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil, entities.NewRevertError(entities.ReasonInsufficientInput)
	}
	if s.balance(req.TokenIn, caller).Cmp(req.AmountIn) < 0 {
		return nil, entities.NewRevertError(entities.ReasonInsufficientFunds)
	}

	in, ok := s.swappable(req.TokenIn)
	if !ok {
		return nil, entities.NewRevertError(entities.ReasonUnsupportedToken)
	}
	amounts, path, err := s.estimate(req.TokenIn, req.TokenOut, toUnderlying(in.rate, req.AmountIn))
	if err != nil {
		return nil, err
	}

	out := s.tokens[req.TokenOut]
	amountOut := toWrapped(out.rate, amounts[len(amounts)-1])
	minOut := req.MinAmountOut
	if minOut == nil {
		minOut = new(big.Int)
	}
	if amountOut.Sign() == 0 || amountOut.Cmp(minOut) < 0 {
		return nil, entities.NewRevertError(entities.ReasonInsufficientOutput)
	}

	for i := 0; i < len(path)-1; i++ {
		s.pool(path[i], path[i+1]).ApplySwap(amounts[i], amounts[i+1], path[i])
	}
	s.debit(req.TokenIn, caller, req.AmountIn)
	s.credit(req.TokenOut, caller, amountOut)

	s.nonce++
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], s.nonce)
	txHash := crypto.Keccak256Hash(caller.Bytes(), n[:])

	s.logger.WithFields(logrus.Fields{
		"caller":     caller.Hex(),
		"token_in":   in.token.Symbol,
		"token_out":  out.token.Symbol,
		"amount_in":  req.AmountIn.String(),
		"amount_out": amountOut.String(),
		"hops":       len(path) - 1,
	}).Debug("Simulated swap")

	return &entities.SwapResult{
		Request:   req,
		AmountOut: amountOut,
		TxHash:    txHash,
	}, nil
}

func (s *Simulator) convert(token common.Address, amount *big.Int, toWrappedUnits bool) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wt, ok := s.tokens[token]
	if !ok {
		return nil, entities.NewRevertError(entities.ReasonUnsupportedToken)
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, entities.ErrNegativeAmount
	}
	if toWrappedUnits {
		return toWrapped(wt.rate, amount), nil
	}
	return toUnderlying(wt.rate, amount), nil
}

func (s *Simulator) swappable(token common.Address) (wrappedToken, bool) {
	wt, ok := s.tokens[token]
	if !ok {
		return wrappedToken{}, false
	}
	return wt, token == s.weth || s.supported[token]
}

func (s *Simulator) nativeUnderlying() common.Address {
	if wt, ok := s.tokens[s.weth]; ok {
		return wt.token.Underlying
	}
	return entities.WETH.Address
}

func (s *Simulator) pool(a, b common.Address) *entities.Pair {
	for _, p := range s.pools {
		if p.Has(a) && p.Has(b) {
			return p
		}
	}
	return nil
}

func (s *Simulator) balance(token, holder common.Address) *big.Int {
	if b, ok := s.balances[token][holder]; ok {
		return b
	}
	return new(big.Int)
}

func (s *Simulator) credit(token, holder common.Address, amount *big.Int) {
	if s.balances[token] == nil {
		s.balances[token] = make(map[common.Address]*big.Int)
	}
	s.balances[token][holder] = new(big.Int).Add(s.balance(token, holder), amount)
}

func (s *Simulator) debit(token, holder common.Address, amount *big.Int) {
	s.balances[token][holder] = new(big.Int).Sub(s.balance(token, holder), amount)
}

func toUnderlying(rate, wrapped *big.Int) *big.Int {
	v := new(big.Int).Mul(wrapped, rate)
	return v.Div(v, RateScale)
}

func toWrapped(rate, underlying *big.Int) *big.Int {
	v := new(big.Int).Mul(underlying, RateScale)
	return v.Div(v, rate)
}

// Session is a caller-bound view of a Simulator
type Session struct {
	sim    *Simulator
	caller common.Address
}

var (
	_ Oracle = (*Session)(nil)
	_ Oracle = (*Client)(nil)
)

// Caller returns the account the session acts as
func (s *Session) Caller() common.Address {
	return s.caller
}

func (s *Session) Governor(ctx context.Context) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	s.sim.mu.RLock()
	defer s.sim.mu.RUnlock()
	return s.sim.governor, nil
}

func (s *Session) PendingGovernor(ctx context.Context) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	s.sim.mu.RLock()
	defer s.sim.mu.RUnlock()
	return s.sim.pendingGovernor, nil
}

func (s *Session) AddSupportedTokens(ctx context.Context, tokens []common.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.sim.addTokens(s.caller, tokens)
}

func (s *Session) EstimateRoutes(ctx context.Context, tokenIn, tokenOut common.Address, underlyingAmountIn *big.Int) ([]*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.sim.mu.RLock()
	defer s.sim.mu.RUnlock()
	amounts, _, err := s.sim.estimate(tokenIn, tokenOut, underlyingAmountIn)
	return amounts, err
}

func (s *Session) Swap(ctx context.Context, req entities.SwapRequest) (*entities.SwapResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.sim.swap(s.caller, req)
}

func (s *Session) WrappedToUnderlying(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.sim.convert(token, amount, false)
}

func (s *Session) UnderlyingToWrapped(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.sim.convert(token, amount, true)
}

func (s *Session) TransferValue(ctx context.Context, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.sim.Receive(s.caller, amount)
}
