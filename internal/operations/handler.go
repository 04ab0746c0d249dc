package operations

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aevon-lab/project-ledger/internal/compliance"
	"github.com/aevon-lab/project-ledger/internal/core/aggregate"
	httperr "github.com/aevon-lab/project-ledger/internal/core/errors"
	"github.com/aevon-lab/project-ledger/internal/custodian"
	"github.com/aevon-lab/project-ledger/internal/ledger"
	"github.com/aevon-lab/project-ledger/internal/ledger/account"
	"github.com/aevon-lab/project-ledger/internal/ledger/money"
	assettransfer "github.com/aevon-lab/project-ledger/internal/ledger/transfer"
	ledgerwithdrawal "github.com/aevon-lab/project-ledger/internal/ledger/withdrawal"
	"github.com/aevon-lab/project-ledger/internal/saga"
	"github.com/aevon-lab/project-ledger/internal/workflow/deposit"
	"github.com/aevon-lab/project-ledger/internal/workflow/transfer"
	"github.com/aevon-lab/project-ledger/internal/workflow/withdrawal"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInternal       = "Operation failed"
	msgSagaNotFound   = "Saga not found"
)

// opError carries the structured HTTP error shape from a helper back to the handler.
type opError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *opError) Error() string {
	return e.message
}

type transferBody struct {
	TransferID  string          `json:"transfer_id"`
	Source      string          `json:"source" binding:"required"`
	Destination string          `json:"destination" binding:"required"`
	Asset       string          `json:"asset" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

type depositBody struct {
	Reference string          `json:"reference" binding:"required"`
	AccountID string          `json:"account_id" binding:"required"`
	Asset     string          `json:"asset" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

type withdrawalBody struct {
	WithdrawalID string          `json:"withdrawal_id"`
	AccountID    string          `json:"account_id" binding:"required"`
	Asset        string          `json:"asset" binding:"required"`
	Amount       decimal.Decimal `json:"amount"`
	Destination  string          `json:"destination" binding:"required"`
}

type accountView struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	Asset        string `json:"asset"`
	Balance      string `json:"balance"`
	Status       string `json:"status"`
	FreezeReason string `json:"freeze_reason,omitempty"`
	Version      int64  `json:"version"`
}

type transferView struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Source        string `json:"source"`
	Destination   string `json:"destination"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	FailureReason string `json:"failure_reason,omitempty"`
}

func newTransferView(t *assettransfer.AssetTransfer) transferView {
	return transferView{
		ID:            t.ID(),
		Status:        string(t.Status()),
		Source:        t.Source(),
		Destination:   t.Destination(),
		Asset:         t.Asset(),
		Amount:        t.Amount().String(),
		FailureReason: t.FailureReason(),
	}
}

type withdrawalView struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	AccountID     string `json:"account_id"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	Destination   string `json:"destination"`
	PayoutID      string `json:"payout_id,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

func newWithdrawalView(w *ledgerwithdrawal.Withdrawal) withdrawalView {
	return withdrawalView{
		ID:            w.ID(),
		Status:        string(w.Status()),
		AccountID:     w.AccountID(),
		Asset:         w.Asset(),
		Amount:        w.Amount().String(),
		Destination:   w.Destination(),
		PayoutID:      w.PayoutID(),
		FailureReason: w.FailureReason(),
	}
}

// TransferHandler handles POST /v1/transfers.
func (s *Service) TransferHandler(c *gin.Context) {
	var body transferBody
	if err := s.bindJSON(c, &body); err != nil {
		writeError(c, err)
		return
	}

	// A started transfer finishes even if the client goes away.
	ctx := context.WithoutCancel(c.Request.Context())
	outcome, err := s.transfers.Execute(ctx, transfer.Request{
		TransferID:  body.TransferID,
		Source:      body.Source,
		Destination: body.Destination,
		Asset:       body.Asset,
		Amount:      body.Amount,
	})
	if outcome == nil {
		writeError(c, classifyError(err))
		return
	}

	payload := gin.H{"transfer": newTransferView(outcome.Transfer)}
	if outcome.Result == nil {
		payload["replayed"] = true
		c.JSON(http.StatusOK, payload)
		return
	}
	respondSaga(c, outcome.Result, err, payload)
}

type transferBatchBody struct {
	Transfers []transferBody `json:"transfers" binding:"required,min=1,dive"`
}

type batchEntry struct {
	Index      int         `json:"index"`
	StatusCode int         `json:"status_code"`
	Body       interface{} `json:"body"`
}

// TransferBatchHandler handles POST /v1/transfers/batch. Each transfer gets
// the response TransferHandler would have given it.
func (s *Service) TransferBatchHandler(c *gin.Context) {
	var body transferBatchBody
	if err := s.bindJSON(c, &body); err != nil {
		writeError(c, err)
		return
	}
	if len(body.Transfers) > s.maxBatchSize {
		writeError(c, &opError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    "Too many transfers in one batch",
			details:    map[string]interface{}{"max_batch_size": s.maxBatchSize},
		})
		return
	}

	reqs := make([]transfer.Request, len(body.Transfers))
	for i, t := range body.Transfers {
		reqs[i] = transfer.Request{
			TransferID:  t.TransferID,
			Source:      t.Source,
			Destination: t.Destination,
			Asset:       t.Asset,
			Amount:      t.Amount,
		}
	}

	ctx := context.WithoutCancel(c.Request.Context())
	items := s.transfers.ExecuteBatch(ctx, s.batchParallelism, reqs)

	entries := make([]batchEntry, len(items))
	for i, item := range items {
		entry := batchEntry{Index: i}
		switch {
		case item.Outcome == nil:
			entry.StatusCode, entry.Body = classifyError(item.Err).response()
		case item.Outcome.Result == nil:
			entry.StatusCode = http.StatusOK
			entry.Body = gin.H{"transfer": newTransferView(item.Outcome.Transfer), "replayed": true}
		default:
			entry.StatusCode, entry.Body = sagaResponse(item.Outcome.Result, item.Err,
				gin.H{"transfer": newTransferView(item.Outcome.Transfer)})
		}
		entries[i] = entry
	}

	c.JSON(http.StatusMultiStatus, gin.H{"results": entries})
}

// DepositHandler handles POST /v1/deposits.
func (s *Service) DepositHandler(c *gin.Context) {
	var body depositBody
	if err := s.bindJSON(c, &body); err != nil {
		writeError(c, err)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	result, err := s.deposits.Execute(ctx, deposit.Request{
		Reference: body.Reference,
		AccountID: body.AccountID,
		Asset:     body.Asset,
		Amount:    body.Amount,
	})
	if result == nil {
		writeError(c, classifyError(err))
		return
	}
	respondSaga(c, result, err, gin.H{})
}

// WithdrawalHandler handles POST /v1/withdrawals.
func (s *Service) WithdrawalHandler(c *gin.Context) {
	var body withdrawalBody
	if err := s.bindJSON(c, &body); err != nil {
		writeError(c, err)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	outcome, err := s.withdrawals.Execute(ctx, withdrawal.Request{
		WithdrawalID: body.WithdrawalID,
		AccountID:    body.AccountID,
		Asset:        body.Asset,
		Amount:       body.Amount,
		Destination:  body.Destination,
	})
	if outcome == nil {
		writeError(c, classifyError(err))
		return
	}

	payload := gin.H{"withdrawal": newWithdrawalView(outcome.Withdrawal)}
	if outcome.Result == nil {
		payload["replayed"] = true
		c.JSON(http.StatusOK, payload)
		return
	}
	payload["payout_id"] = outcome.Result.Context.String(withdrawal.KeyPayoutID)
	respondSaga(c, outcome.Result, err, payload)
}

// AccountHandler handles GET /v1/accounts/:id.
func (s *Service) AccountHandler(c *gin.Context) {
	acc, err := s.accounts.Account(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, classifyError(err))
		return
	}
	c.JSON(http.StatusOK, accountView{
		ID:           acc.ID(),
		Owner:        acc.Owner(),
		Asset:        acc.Asset(),
		Balance:      acc.Balance().String(),
		Status:       string(acc.Status()),
		FreezeReason: acc.FreezeReason(),
		Version:      acc.Root().Version(),
	})
}

// SagaHandler handles GET /v1/sagas/:id and returns the journaled audit record.
func (s *Service) SagaHandler(c *gin.Context) {
	id := c.Param("id")
	v, err, _ := s.journalReads.Do(id, func() (interface{}, error) {
		// Shared by every caller waiting on id, so no single request may cancel it.
		return s.journal.Get(context.WithoutCancel(c.Request.Context()), id)
	})
	if errors.Is(err, saga.ErrNotFound) {
		writeError(c, &opError{
			statusCode: http.StatusNotFound,
			errorType:  httperr.HttpNotFoundError,
			message:    msgSagaNotFound,
			details:    map[string]interface{}{"saga_id": id},
		})
		return
	}
	if err != nil {
		writeError(c, classifyError(err))
		return
	}
	c.JSON(http.StatusOK, v.(*saga.AuditRecord))
}

// bindJSON reads at most maxBodySizeBytes and binds them into dst.
func (s *Service) bindJSON(c *gin.Context, dst interface{}) *opError {
	maxBytes := int64(s.maxBodySizeBytes)
	bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBytes+1)) // +1 to detect oversized requests
	if err != nil {
		slog.Error("[Operations] Failed to read request body", "error", err)
		return &opError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}
	if int64(len(bodyBytes)) > maxBytes {
		return &opError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	if err := c.ShouldBindJSON(dst); err != nil {
		slog.Warn("[Operations] Invalid request body", "error", err, "payload_size", len(bodyBytes))
		return &opError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    err.Error(),
		}
	}
	return nil
}

// failureKinds maps the business error behind a compensated saga to a response.
// First match wins.
var failureKinds = []struct {
	target     error
	statusCode int
	errorType  string
}{
	{account.ErrInsufficientFunds, http.StatusUnprocessableEntity, httperr.HttpInsufficientFundsError},
	{account.ErrFrozen, http.StatusUnprocessableEntity, httperr.HttpAccountFrozenError},
	{account.ErrNotOpen, http.StatusNotFound, httperr.HttpNotFoundError},
	{ledger.ErrAccountNotFound, http.StatusNotFound, httperr.HttpNotFoundError},
	{compliance.ErrBlocked, http.StatusForbidden, httperr.HttpComplianceError},
	{compliance.ErrLimitExceeded, http.StatusForbidden, httperr.HttpComplianceError},
	{transfer.ErrAssetMismatch, http.StatusUnprocessableEntity, httperr.HttpValidationError},
	{deposit.ErrMismatch, http.StatusUnprocessableEntity, httperr.HttpValidationError},
	{custodian.ErrExternalTimeout, http.StatusGatewayTimeout, httperr.HttpSagaCompensatedError},
}

// respondSaga writes a finished saga. payload is extended with the audit record.
func respondSaga(c *gin.Context, result *saga.Result, err error, payload gin.H) {
	c.JSON(sagaResponse(result, err, payload))
}

// sagaResponse picks the status code and body for a finished saga.
func sagaResponse(result *saga.Result, err error, payload gin.H) (int, interface{}) {
	payload["saga"] = result.Audit()

	switch {
	case err != nil:
		slog.Error("[Operations] Compensation failed",
			"alert", true,
			"saga_id", result.SagaID,
			"saga", result.Name,
			"error", err)
		return (&opError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpCompensationError,
			message:    err.Error(),
			details:    payload,
		}).response()

	case result.IsSuccess():
		return http.StatusCreated, payload

	case result.Status == saga.StatusFailed:
		return (&opError{
			statusCode: http.StatusServiceUnavailable,
			errorType:  httperr.HttpSagaFailedError,
			message:    errorMessage(result.Err),
			details:    payload,
		}).response()
	}

	opErr := &opError{
		statusCode: http.StatusUnprocessableEntity,
		errorType:  httperr.HttpSagaCompensatedError,
		message:    errorMessage(result.Err),
		details:    payload,
	}
	for _, kind := range failureKinds {
		if errors.Is(result.Err, kind.target) {
			opErr.statusCode = kind.statusCode
			opErr.errorType = kind.errorType
			break
		}
	}
	return opErr.response()
}

// classifyError maps an error returned before any saga ran.
func classifyError(err error) *opError {
	switch {
	case errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrInvalidAsset),
		errors.Is(err, assettransfer.ErrSameAccount):
		return &opError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    err.Error(),
		}
	case errors.Is(err, transfer.ErrInProgress),
		errors.Is(err, withdrawal.ErrInProgress):
		return &opError{
			statusCode: http.StatusConflict,
			errorType:  httperr.HttpInProgressError,
			message:    err.Error(),
		}
	case errors.Is(err, aggregate.ErrInvalidStateTransition):
		return &opError{
			statusCode: http.StatusConflict,
			errorType:  httperr.HttpValidationError,
			message:    err.Error(),
		}
	case errors.Is(err, ledger.ErrAccountNotFound):
		return &opError{
			statusCode: http.StatusNotFound,
			errorType:  httperr.HttpNotFoundError,
			message:    err.Error(),
		}
	}

	slog.Error("[Operations] Request failed", "error", err)
	return &opError{
		statusCode: http.StatusInternalServerError,
		errorType:  httperr.HttpInternalError,
		message:    msgInternal,
	}
}

func errorMessage(err error) string {
	if err == nil {
		return "operation did not complete"
	}
	return err.Error()
}

func (e *opError) response() (int, interface{}) {
	return e.statusCode, httperr.ErrorResponse{
		ErrorType: e.errorType,
		Message:   e.message,
		Details:   e.details,
	}
}

// writeError serializes an opError as the JSON HTTP response.
func writeError(c *gin.Context, err *opError) {
	c.JSON(err.response())
}
