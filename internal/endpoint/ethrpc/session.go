// Package ethrpc connects the invocation engine to an Ethereum JSON-RPC
// endpoint. Reads are eth_call; writes are signed transactions whose
// receipts are polled until mined.
package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/abi"
	"github.com/matthewbaird/abiconsole/internal/invoke"
)

// ErrReadOnly is returned by Write when the session has no signer.
var ErrReadOnly = errors.New("session has no signer; only view and pure functions can be called")

// DefaultPollInterval is how often receipts are polled while awaiting
// confirmation.
const DefaultPollInterval = time.Second

// maxLookupFailures is how many receipt lookups in a row may fail, for any
// reason other than the receipt not existing yet, before the wait gives up.
const maxLookupFailures = 30

// Backend is what a session needs from the chain. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Config describes how to reach the endpoint.
type Config struct {
	URL string
	// ChainID signs transactions for this chain; zero asks the endpoint.
	ChainID int64
	// SignerKey is a hex private key. Without it sessions are read only.
	SignerKey    string
	PollInterval time.Duration
}

// Provider dials a new session on every AcquireSession.
type Provider struct {
	cfg Config
	log *zap.Logger
}

// NewProvider creates a provider for cfg.
func NewProvider(cfg Config, log *zap.Logger) *Provider {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Provider{cfg: cfg, log: log.With(zap.String("component", "ethrpc"))}
}

// AcquireSession dials the endpoint and, when a key is configured, prepares
// a transactor for the endpoint's chain.
func (p *Provider) AcquireSession(ctx context.Context) (invoke.Session, error) {
	if p.cfg.URL == "" {
		return nil, invoke.ErrEndpointUnavailable
	}
	client, err := ethclient.DialContext(ctx, p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", p.cfg.URL, err)
	}

	var opts *bind.TransactOpts
	if p.cfg.SignerKey != "" {
		opts, err = p.transactor(ctx, client)
		if err != nil {
			client.Close()
			return nil, err
		}
	}

	p.log.Info("session acquired", zap.String("url", p.cfg.URL), zap.Bool("signer", opts != nil))
	s := NewSession(client, opts, p.log, p.cfg.PollInterval)
	s.closer = client.Close
	return s, nil
}

func (p *Provider) transactor(ctx context.Context, client *ethclient.Client) (*bind.TransactOpts, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(p.cfg.SignerKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing signer key: %w", err)
	}
	chainID := big.NewInt(p.cfg.ChainID)
	if p.cfg.ChainID == 0 {
		if chainID, err = client.ChainID(ctx); err != nil {
			return nil, fmt.Errorf("querying chain id: %w", err)
		}
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("creating transactor: %w", err)
	}
	return opts, nil
}

// Session implements invoke.Session over a Backend.
//
// Close waits for calls in flight: the connection is released once the
// last read returns and the last write is confirmed or has failed.
type Session struct {
	backend Backend
	opts    *bind.TransactOpts
	poll    time.Duration
	log     *zap.Logger
	closer  func()

	mu      sync.Mutex
	users   int
	closing bool
	release sync.Once
}

// NewSession wraps backend. opts may be nil for a read-only session.
func NewSession(backend Backend, opts *bind.TransactOpts, log *zap.Logger, poll time.Duration) *Session {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Session{backend: backend, opts: opts, poll: poll, log: log}
}

// Signer returns the address transactions are sent from, or the zero
// address for read-only sessions.
func (s *Session) Signer() common.Address {
	if s.opts == nil {
		return common.Address{}
	}
	return s.opts.From
}

// Close releases the connection of a dialed session, immediately when it
// is idle and otherwise when the last call in flight finishes.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closing = true
	idle := s.users == 0
	s.mu.Unlock()
	if idle {
		s.shutdown()
	}
	return nil
}

func (s *Session) acquire() {
	s.mu.Lock()
	s.users++
	s.mu.Unlock()
}

func (s *Session) done() {
	s.mu.Lock()
	s.users--
	last := s.closing && s.users == 0
	s.mu.Unlock()
	if last {
		s.shutdown()
	}
}

func (s *Session) shutdown() {
	s.release.Do(func() {
		if s.closer != nil {
			s.closer()
		}
	})
}

// Read performs an eth_call. A single output is returned unwrapped, no
// outputs as nil.
func (s *Session) Read(ctx context.Context, target string, entry abi.Entry, args invoke.Args) (any, error) {
	s.acquire()
	defer s.done()
	bc, params, err := s.bind(target, entry, args)
	if err != nil {
		return nil, err
	}
	var out []any
	if err := bc.Call(&bind.CallOpts{Context: ctx}, &out, entry.Name, params...); err != nil {
		return nil, err
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0], nil
	default:
		return out, nil
	}
}

// Write signs and sends a transaction. It returns once the endpoint has
// accepted it. The session stays open until the returned Pending has been
// awaited.
func (s *Session) Write(ctx context.Context, target string, entry abi.Entry, args invoke.Args) (invoke.Pending, error) {
	if s.opts == nil {
		return nil, ErrReadOnly
	}
	s.acquire()
	bc, params, err := s.bind(target, entry, args)
	if err != nil {
		s.done()
		return nil, err
	}
	opts := *s.opts
	opts.Context = ctx
	tx, err := bc.Transact(&opts, entry.Name, params...)
	if err != nil {
		s.done()
		return nil, err
	}
	s.log.Debug("transaction sent", zap.String("operation", entry.Name), zap.String("tx", tx.Hash().Hex()))
	return &pending{backend: s.backend, hash: tx.Hash(), poll: s.poll, log: s.log, release: s.done}, nil
}

// bind builds a contract binding from the entry alone, so entries the chain
// library cannot parse elsewhere in the interface do not matter.
func (s *Session) bind(target string, entry abi.Entry, args invoke.Args) (*bind.BoundContract, []any, error) {
	if !common.IsHexAddress(target) {
		return nil, nil, &invoke.ArgumentError{
			Code:   invoke.InvalidValue,
			Param:  "target",
			Value:  target,
			Reason: fmt.Sprintf("invalid contract address %q", target),
		}
	}
	fragment, err := functionFragment(entry)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding %s: %w", entry.Name, err)
	}
	parsed, err := gethabi.JSON(bytes.NewReader(fragment))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", entry.Name, err)
	}
	method, ok := parsed.Methods[entry.Name]
	if !ok {
		return nil, nil, fmt.Errorf("%s is not a method", entry.Name)
	}
	params, err := convertArgs(method.Inputs, args)
	if err != nil {
		return nil, nil, err
	}
	bc := bind.NewBoundContract(common.HexToAddress(target), parsed, s.backend, s.backend, s.backend)
	return bc, params, nil
}

// functionFragment returns the entry as a one-element ABI document. An
// entry that omits its type is a function; the chain library insists on
// the type being spelled out.
func functionFragment(entry abi.Entry) ([]byte, error) {
	raw := entry.Raw()
	if entry.Kind == abi.KindFunction && entry.Tag == "" {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		obj["type"] = "function"
		b, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	out := make([]byte, 0, len(raw)+2)
	out = append(out, '[')
	out = append(out, raw...)
	return append(out, ']'), nil
}

type pending struct {
	backend Backend
	hash    common.Hash
	poll    time.Duration
	log     *zap.Logger
	release func()
	once    sync.Once
}

func (p *pending) Hash() string { return p.hash.Hex() }

// AwaitConfirmation polls for the receipt. A mined transaction with a
// failed status is an error; the receipt is still returned. The wait fails
// when the connection has been closed, or after maxLookupFailures lookups
// in a row fail.
func (p *pending) AwaitConfirmation(ctx context.Context) (any, error) {
	if p.release != nil {
		defer p.once.Do(p.release)
	}
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	failures := 0
	for {
		receipt, err := p.backend.TransactionReceipt(ctx, p.hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("transaction %s reverted", p.hash.Hex())
			}
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			failures = 0
		case errors.Is(err, rpc.ErrClientQuit):
			return nil, fmt.Errorf("awaiting receipt of %s: %w", p.hash.Hex(), err)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			failures++
			p.log.Debug("receipt lookup failed",
				zap.String("tx", p.hash.Hex()), zap.Int("failures", failures), zap.Error(err))
			if failures >= maxLookupFailures {
				return nil, fmt.Errorf("awaiting receipt of %s: %d lookups failed: %w", p.hash.Hex(), failures, err)
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
