package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/ll-withdrawer/clients"
	"github.com/lightlink-network/ll-withdrawer/database/models"
	"github.com/lightlink-network/ll-withdrawer/metrics"
	"github.com/lightlink-network/ll-withdrawer/types"
)

const (
	TabWithdraw = "withdraw"
	TabDeposit  = "deposit"
)

var ErrWithdrawalInProgress = errors.New("account already has a withdrawal in progress")

type NoticeKind string

const (
	NoticeInitiated NoticeKind = "initiated"
	NoticeResumed   NoticeKind = "resumed"
	NoticeCompleted NoticeKind = "completed"
	NoticeDeposited NoticeKind = "deposited"
)

// Notice is a milestone surfaced to the user.
type Notice struct {
	Kind   NoticeKind
	TxHash string
	Status types.WithdrawStatus
}

func (n Notice) String() string {
	switch n.Kind {
	case NoticeInitiated:
		return fmt.Sprintf("Withdrawal initiated: %s", n.TxHash)
	case NoticeResumed:
		return fmt.Sprintf("Resumed withdrawal %s (%s)", n.TxHash, n.Status)
	case NoticeCompleted:
		return fmt.Sprintf("Withdrawal completed: %s", n.TxHash)
	case NoticeDeposited:
		return fmt.Sprintf("Deposit confirmed: %s", n.TxHash)
	}
	return string(n.Kind)
}

// ClientSource hands out the current chain clients. clients.Provider implements it.
type ClientSource interface {
	Clients() (*clients.Clients, bool)
}

// Session drives the withdrawal of one account. It holds at most one active
// record, and only one step runs at a time.
type Session struct {
	source      ClientSource
	store       Store
	resumer     *Resumer
	settleDelay time.Duration
	metrics     *metrics.Metrics
	onNotice    func(Notice)
	logger      *slog.Logger

	mu      sync.Mutex
	busy    bool
	address string
	tab     string
	amount  string
	active  *models.Withdrawal
	err     error
	notices []Notice
}

type SessionOpts struct {
	Clients             ClientSource
	Store               Store
	FinalizeSettleDelay time.Duration
	Metrics             *metrics.Metrics
	// OnNotice is called synchronously for every notice.
	OnNotice func(Notice)
	Logger   *slog.Logger
}

func NewSession(opts SessionOpts) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		source:      opts.Clients,
		store:       opts.Store,
		resumer:     NewResumer(opts.Store, opts.Logger),
		settleDelay: opts.FinalizeSettleDelay,
		metrics:     opts.Metrics,
		onNotice:    opts.OnNotice,
		logger:      opts.Logger,
	}
}

// SetAccount records the connected address and selected tab. Selecting the
// withdraw tab with a connected wallet resumes the oldest unfinished
// withdrawal of the address, if any.
//
// While a step is in flight SetAccount returns ErrBusy and changes nothing.
// The call is not queued, callers retry once Loading reports false.
func (s *Session) SetAccount(ctx context.Context, address, tab string) error {
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	s.mu.Lock()
	if !strings.EqualFold(s.address, address) {
		s.active, s.amount = nil, ""
	}
	s.address, s.tab = address, tab
	s.mu.Unlock()

	if tab != TabWithdraw || address == "" {
		return nil
	}
	if _, ok := s.source.Clients(); !ok {
		return nil
	}

	w, err := s.resumer.Resume(ctx, address)
	if err != nil {
		s.setErr(err)
		return err
	}
	if w == nil {
		return nil
	}

	s.mu.Lock()
	s.active, s.amount = w, w.Amount
	s.mu.Unlock()

	s.metrics.RecordResumed()
	s.notify(Notice{Kind: NoticeResumed, TxHash: w.WithdrawalHash, Status: w.Status})
	return nil
}

// Withdraw starts a new withdrawal of amount ETH and drives it as far as
// it goes.
func (s *Session) Withdraw(ctx context.Context, amount string) (*models.Withdrawal, error) {
	if !s.begin() {
		return nil, ErrBusy
	}
	defer s.end()
	s.setErr(nil)

	if _, err := ParseAmount(amount); err != nil {
		s.setErr(err)
		return nil, err
	}

	c, address, err := s.connected(ctx)
	if err != nil {
		s.setErr(err)
		return nil, err
	}

	if active := s.Active(); active != nil && !active.Status.Terminal() {
		err := fmt.Errorf("%w: %s", ErrWithdrawalInProgress, active.WithdrawalHash)
		s.setErr(err)
		return nil, err
	}

	machine := s.machine(c)
	w, err := machine.Initiate(ctx, address, amount)
	if err != nil {
		s.setErr(err)
		return nil, err
	}

	s.mu.Lock()
	s.active, s.amount = w, w.Amount
	s.mu.Unlock()
	s.notify(Notice{Kind: NoticeInitiated, TxHash: w.WithdrawalHash, Status: w.Status})

	return s.drive(ctx, machine, w)
}

// Continue re-enters the machine at the active record's status.
func (s *Session) Continue(ctx context.Context) (*models.Withdrawal, error) {
	if !s.begin() {
		return nil, ErrBusy
	}
	defer s.end()
	s.setErr(nil)

	c, _, err := s.connected(ctx)
	if err != nil {
		s.setErr(err)
		return nil, err
	}

	w := s.Active()
	if w == nil {
		return nil, ErrNoActiveWithdrawal
	}

	return s.drive(ctx, s.machine(c), w)
}

// Deposit sends amount ETH from L1 to the same address on L2.
func (s *Session) Deposit(ctx context.Context, amount string) (*types.Receipt, error) {
	if !s.begin() {
		return nil, ErrBusy
	}
	defer s.end()
	s.setErr(nil)

	if _, err := ParseAmount(amount); err != nil {
		s.setErr(err)
		return nil, err
	}

	c, address, err := s.connected(ctx)
	if err != nil {
		s.setErr(err)
		return nil, err
	}

	receipt, err := s.machine(c).Deposit(ctx, address, amount)
	if err != nil {
		s.setErr(err)
		return nil, err
	}

	s.notify(Notice{Kind: NoticeDeposited, TxHash: receipt.TxHash})
	return receipt, nil
}

func (s *Session) drive(ctx context.Context, machine *Machine, w *models.Withdrawal) (*models.Withdrawal, error) {
	w, err := machine.Run(ctx, w, func(next *models.Withdrawal) {
		s.mu.Lock()
		s.active = next
		s.mu.Unlock()
	})
	if err != nil {
		s.setErr(err)
		return w, err
	}

	if w.Status.Terminal() {
		s.mu.Lock()
		s.active, s.amount = nil, ""
		s.mu.Unlock()
		s.notify(Notice{Kind: NoticeCompleted, TxHash: w.WithdrawalHash, Status: w.Status})
	}
	return w, nil
}

// connected returns the clients and the account to act for, the session
// address if set, else the wallet's first account.
func (s *Session) connected(ctx context.Context) (*clients.Clients, common.Address, error) {
	c, ok := s.source.Clients()
	if !ok {
		return nil, common.Address{}, ErrNotConnected
	}

	s.mu.Lock()
	address := s.address
	s.mu.Unlock()
	if address != "" {
		if !common.IsHexAddress(address) {
			return nil, common.Address{}, fmt.Errorf("invalid address %q", address)
		}
		return c, common.HexToAddress(address), nil
	}

	accounts, err := c.Wallet.RequestAccounts(ctx)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to request accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, common.Address{}, ErrNotConnected
	}

	s.mu.Lock()
	s.address = accounts[0].Hex()
	s.mu.Unlock()
	return c, accounts[0], nil
}

func (s *Session) machine(c *clients.Clients) *Machine {
	return NewMachine(MachineOpts{
		Store:               s.store,
		Clients:             c,
		FinalizeSettleDelay: s.settleDelay,
		Metrics:             s.metrics,
		Logger:              s.logger,
	})
}

func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	s.metrics.SessionBusy(true)
	return true
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.metrics.SessionBusy(false)
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Session) notify(n Notice) {
	s.mu.Lock()
	s.notices = append(s.notices, n)
	s.mu.Unlock()

	s.logger.Info(n.String())
	if s.onNotice != nil {
		s.onNotice(n)
	}
}

// Loading reports whether a step is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Active is the record being driven, nil when there is none.
func (s *Session) Active() *models.Withdrawal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	w := *s.active
	return &w
}

func (s *Session) Amount() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amount
}

func (s *Session) Tab() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Err is the error of the last action, nil after a successful one.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notice(nil), s.notices...)
}

// Steps projects the session state. Links are empty while disconnected.
func (s *Session) Steps() []Step {
	var explorers Explorers
	if c, ok := s.source.Clients(); ok {
		explorers = Explorers{L1: c.L1.ExplorerURL, L2: c.L2.ExplorerURL}
	}
	return StepsOf(s.Active(), s.Loading(), explorers)
}
