package withdrawal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aevon-lab/project-ledger/internal/compliance"
	"github.com/aevon-lab/project-ledger/internal/core/storage/memory"
	"github.com/aevon-lab/project-ledger/internal/custodian"
	"github.com/aevon-lab/project-ledger/internal/ledger"
	ledgerwithdrawal "github.com/aevon-lab/project-ledger/internal/ledger/withdrawal"
	custodianmocks "github.com/aevon-lab/project-ledger/internal/mocks/custodian"
	"github.com/aevon-lab/project-ledger/internal/saga"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T, c custodian.Custodian) (*ledger.Service, *Service) {
	t.Helper()
	ctx := context.Background()
	l := ledger.NewService(memory.NewEventLog())
	_, err := l.OpenAccount(ctx, "acc-1", "alice", "USD")
	require.NoError(t, err)
	require.NoError(t, l.Credit(ctx, "acc-1", d("100"), "opening"))

	screener := compliance.NewScreener([]string{"acc-blocked"}, d("500"))
	return l, NewService(NewSaga(screener, l, c))
}

func balance(t *testing.T, l *ledger.Service) decimal.Decimal {
	t.Helper()
	acc, err := l.Account(context.Background(), "acc-1")
	require.NoError(t, err)
	return acc.Balance()
}

func TestWithdrawal_Completes(t *testing.T) {
	c := custodianmocks.NewCustodian(t)
	c.EXPECT().
		RequestPayout(mock.Anything, mock.MatchedBy(func(req custodian.PayoutRequest) bool {
			return req.ID == "wd-1" && req.Amount.Equal(d("30")) && req.Destination == "bank-123"
		})).
		Return(custodian.Payout{ID: "wd-1", Status: custodian.PayoutPending}, nil).
		Once()

	l, svc := setup(t, c)
	out, err := svc.Execute(context.Background(), Request{
		WithdrawalID: "wd-1", AccountID: "acc-1", Asset: "USD", Amount: d("30"), Destination: "bank-123",
	})
	require.NoError(t, err)
	res := out.Result
	require.Equal(t, saga.StatusCompleted, res.Status)
	require.Equal(t, "wd-1", res.Context[KeyPayoutID])
	require.Equal(t, "cleared", res.Context["compliance"])
	require.True(t, balance(t, l).Equal(d("70")))

	require.Equal(t, ledgerwithdrawal.StatusCompleted, out.Withdrawal.Status())
	require.Equal(t, "wd-1", out.Withdrawal.PayoutID())
	require.Equal(t, "acc-1", out.Withdrawal.AccountID())
}

func TestWithdrawal_PayoutRejectedRefundsAccount(t *testing.T) {
	c := custodianmocks.NewCustodian(t)
	c.EXPECT().RequestPayout(mock.Anything, mock.Anything).
		Return(custodian.Payout{}, custodian.ErrRejected).
		Once()

	l, svc := setup(t, c)
	out, err := svc.Execute(context.Background(), Request{
		WithdrawalID: "wd-1", AccountID: "acc-1", Asset: "USD", Amount: d("30"), Destination: "bank-123",
	})
	require.NoError(t, err)
	res := out.Result
	require.Equal(t, saga.StatusCompensated, res.Status)
	require.ErrorIs(t, res.Err, custodian.ErrRejected)
	require.Equal(t, []string{StepDebitAccount}, res.CompensatedSteps())
	require.True(t, balance(t, l).Equal(d("100")))
	require.Equal(t, ledgerwithdrawal.StatusFailed, out.Withdrawal.Status())
	require.Contains(t, out.Withdrawal.FailureReason(), custodian.ErrRejected.Error())
	c.AssertNotCalled(t, "CancelPayout", mock.Anything, mock.Anything)
}

func TestWithdrawal_ScreeningFailureTouchesNothing(t *testing.T) {
	c := custodianmocks.NewCustodian(t)
	l, svc := setup(t, c)

	out, err := svc.Execute(context.Background(), Request{
		AccountID: "acc-1", Asset: "USD", Amount: d("501"), Destination: "bank-123",
	})
	require.NoError(t, err)
	res := out.Result
	require.Equal(t, saga.StatusCompensated, res.Status)
	require.ErrorIs(t, res.Err, compliance.ErrLimitExceeded)
	require.Len(t, res.ExecutedSteps, 1)
	require.Equal(t, compliance.StepName, res.ExecutedSteps[0].Name)
	require.True(t, balance(t, l).Equal(d("100")))
}

func TestWithdrawal_InsufficientFundsNeverCallsCustodian(t *testing.T) {
	c := custodianmocks.NewCustodian(t)
	l, svc := setup(t, c)

	out, err := svc.Execute(context.Background(), Request{
		AccountID: "acc-1", Asset: "USD", Amount: d("100.5"), Destination: "bank-123",
	})
	require.NoError(t, err)
	res := out.Result
	require.Equal(t, saga.StatusCompensated, res.Status)
	require.Empty(t, res.CompensatedSteps())
	require.True(t, balance(t, l).Equal(d("100")))
}

func TestWithdrawal_RefundFailureIsCompensationFailure(t *testing.T) {
	c := custodianmocks.NewCustodian(t)
	c.EXPECT().RequestPayout(mock.Anything, mock.Anything).
		Return(custodian.Payout{}, custodian.ErrExternalTimeout).
		Once()

	l, _ := setup(t, c)
	refundErr := errors.New("ledger down")
	broken := &refundFails{Service: l, err: refundErr}
	svc := NewService(NewSaga(compliance.NewScreener(nil, decimal.Zero), broken, c))

	req := Request{WithdrawalID: "wd-1", AccountID: "acc-1", Asset: "USD", Amount: d("10"), Destination: "bank-123"}
	out, err := svc.Execute(context.Background(), req)
	require.ErrorIs(t, err, saga.ErrCompensationFailed)
	require.ErrorIs(t, err, refundErr)
	require.Equal(t, saga.StatusCompensationFailed, out.Result.Status)
	require.Equal(t, ledgerwithdrawal.StatusRequested, out.Withdrawal.Status())
	require.True(t, balance(t, l).Equal(d("90")))

	// Unresolved withdrawals are held for an operator, not run again.
	_, err = svc.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrInProgress)
}

func TestWithdrawal_InvalidRequest(t *testing.T) {
	_, svc := setup(t, custodianmocks.NewCustodian(t))

	_, err := svc.Execute(context.Background(), Request{AccountID: "acc-1", Asset: "USD", Amount: d("1")})
	require.Error(t, err)
	_, err = svc.Execute(context.Background(), Request{AccountID: "acc-1", Asset: "USD", Amount: d("-1"), Destination: "x"})
	require.Error(t, err)
}

func TestWithdrawal_RetryAfterCompensationDoesNotPayOut(t *testing.T) {
	c := custodianmocks.NewCustodian(t)
	c.EXPECT().RequestPayout(mock.Anything, mock.Anything).
		Return(custodian.Payout{}, custodian.ErrRejected).
		Once()

	l, svc := setup(t, c)
	req := Request{WithdrawalID: "wd-1", AccountID: "acc-1", Asset: "USD", Amount: d("30"), Destination: "bank-123"}

	first, err := svc.Execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, saga.StatusCompensated, first.Result.Status)

	retry, err := svc.Execute(context.Background(), req)
	require.NoError(t, err)
	require.Nil(t, retry.Result)
	require.Equal(t, ledgerwithdrawal.StatusFailed, retry.Withdrawal.Status())
	require.True(t, balance(t, l).Equal(d("100")))
	c.AssertNumberOfCalls(t, "RequestPayout", 1)
}

func TestWithdrawal_RetryAfterSandboxRejectionLeavesNoPayout(t *testing.T) {
	sandbox := custodian.NewSandbox(0, 1)
	sandbox.FailNext(custodian.OpRequestPayout, custodian.ErrRejected)

	l, svc := setup(t, sandbox)
	req := Request{WithdrawalID: "wd-1", AccountID: "acc-1", Asset: "USD", Amount: d("30"), Destination: "bank-123"}

	for range 2 {
		out, err := svc.Execute(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, ledgerwithdrawal.StatusFailed, out.Withdrawal.Status())
	}
	_, paid := sandbox.Payout("wd-1")
	require.False(t, paid)
	require.True(t, balance(t, l).Equal(d("100")))
}

func TestWithdrawal_ReplayOfCompletedWithdrawal(t *testing.T) {
	c := custodianmocks.NewCustodian(t)
	c.EXPECT().RequestPayout(mock.Anything, mock.Anything).
		Return(custodian.Payout{ID: "wd-1", Status: custodian.PayoutPending}, nil).
		Once()

	l, svc := setup(t, c)
	req := Request{WithdrawalID: "wd-1", AccountID: "acc-1", Asset: "USD", Amount: d("30"), Destination: "bank-123"}

	_, err := svc.Execute(context.Background(), req)
	require.NoError(t, err)
	replay, err := svc.Execute(context.Background(), req)
	require.NoError(t, err)
	require.Nil(t, replay.Result)
	require.Equal(t, ledgerwithdrawal.StatusCompleted, replay.Withdrawal.Status())
	require.True(t, balance(t, l).Equal(d("70")))
}

func TestWithdrawal_ConcurrentRequestsForOneIDDebitOnce(t *testing.T) {
	c := custodianmocks.NewCustodian(t)
	c.EXPECT().RequestPayout(mock.Anything, mock.Anything).
		Return(custodian.Payout{ID: "wd-1", Status: custodian.PayoutPending}, nil).
		Once()

	l, svc := setup(t, c)
	req := Request{WithdrawalID: "wd-1", AccountID: "acc-1", Asset: "USD", Amount: d("30"), Destination: "bank-123"}

	var (
		wg   sync.WaitGroup
		outs [4]*Outcome
		errs [4]error
	)
	for i := range outs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outs[i], errs[i] = svc.Execute(context.Background(), req)
		}()
	}
	wg.Wait()

	ran := 0
	for i := range outs {
		if errs[i] != nil {
			require.ErrorIs(t, errs[i], ErrInProgress)
			continue
		}
		require.Equal(t, ledgerwithdrawal.StatusCompleted, outs[i].Withdrawal.Status())
		if outs[i].Result != nil {
			ran++
		}
	}
	require.Equal(t, 1, ran)
	require.True(t, balance(t, l).Equal(d("70")))
}

type refundFails struct {
	*ledger.Service
	err error
}

func (r *refundFails) Credit(context.Context, string, decimal.Decimal, string) error { return r.err }
