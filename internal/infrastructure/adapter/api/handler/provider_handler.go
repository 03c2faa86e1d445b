package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	coreport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/signature"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/api/dto"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/metrics"
)

// Operation type values of the provider envelope
const (
	TypePing      = "ping"
	TypeBalance   = "balance"
	TypeDebit     = "debit"
	TypeCredit    = "credit"
	TypeRollback  = "rollback"
	TypeRoundInfo = "roundinfo"
)

// ProviderHandler serves the single provider endpoint. Every operation rides
// the same envelope and is dispatched on the type field after the signature
// check. Business failures are reported in the envelope with HTTP 200; the
// provider reads status, not the HTTP code.
type ProviderHandler struct {
	gateway usecase.GatewayUseCase
	tracker usecase.RoundTrackerUseCase
	signer  *signature.Signer
	logger  coreport.Logger
	metrics *metrics.Metrics
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(
	gateway usecase.GatewayUseCase,
	tracker usecase.RoundTrackerUseCase,
	signer *signature.Signer,
	logger coreport.Logger,
	m *metrics.Metrics,
) *ProviderHandler {
	return &ProviderHandler{
		gateway: gateway,
		tracker: tracker,
		signer:  signer,
		logger:  logger,
		metrics: m,
	}
}

// Handle processes one provider request
func (h *ProviderHandler) Handle(c *gin.Context) {
	start := time.Now()

	var req dto.ProviderRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respondError(c, "", errs.NewValidationError("body", "malformed request"))
		return
	}

	operation := req.Type
	defer func() {
		if h.metrics != nil {
			h.metrics.RequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		}
	}()

	// Missing-credential short-circuit: no wallet work without a tag
	if req.HMAC == "" {
		h.respondError(c, operation, errs.ErrMissingSignature)
		return
	}
	if !h.signer.Verify(req.SignatureFields(), req.HMAC) {
		h.logger.Warn("Signature verification failed", map[string]any{
			"type":   req.Type,
			"tid":    req.TID,
			"userid": req.UserID,
		})
		h.respondError(c, operation, errs.ErrAuthenticationFailed)
		return
	}

	switch req.Type {
	case TypePing:
		h.respondOK(c, operation, dto.ProviderResponse{})
	case TypeBalance:
		h.handleBalance(c, &req)
	case TypeDebit:
		h.handleDebit(c, &req)
	case TypeCredit:
		h.handleCredit(c, &req)
	case TypeRollback:
		h.handleRollback(c, &req)
	case TypeRoundInfo:
		h.handleRoundInfo(c, &req)
	default:
		h.respondError(c, operation, errs.NewValidationError("type", "unknown operation type"))
	}
}

func (h *ProviderHandler) handleBalance(c *gin.Context, req *dto.ProviderRequest) {
	userID, err := req.UserIDValue()
	if err != nil {
		h.respondError(c, req.Type, errs.NewValidationError("userid", "must be a positive integer"))
		return
	}

	balance, err := h.gateway.Balance(c.Request.Context(), userID, req.Currency)
	if err != nil {
		h.respondError(c, req.Type, err)
		return
	}

	h.respondOK(c, req.Type, dto.ProviderResponse{Balance: balance})
}

func (h *ProviderHandler) handleDebit(c *gin.Context, req *dto.ProviderRequest) {
	userID, err := req.UserIDValue()
	if err != nil {
		h.respondError(c, req.Type, errs.NewValidationError("userid", "must be a positive integer"))
		return
	}

	result, err := h.gateway.Debit(c.Request.Context(), usecase.DebitRequest{
		Reference: req.TID,
		UserID:    userID,
		Currency:  req.Currency,
		Amount:    req.Amount,
		ExtParam:  req.ExtParam,
		Subtype:   req.Subtype,
		Game: usecase.GameContext{
			GameID:   req.GameID,
			GameDesc: req.GameDesc,
			ActionID: req.ActionID,
		},
		RoundStart: req.RoundStart == "1",
		RoundEnded: req.RoundEnded == "1",
	})
	if err != nil {
		h.respondError(c, req.Type, err)
		return
	}

	if result.Replayed && h.metrics != nil {
		h.metrics.ReplaysTotal.WithLabelValues(req.Type).Inc()
	}
	h.respondOK(c, req.Type, dto.ProviderResponse{TID: result.Reference, Balance: result.Balance})
}

func (h *ProviderHandler) handleCredit(c *gin.Context, req *dto.ProviderRequest) {
	userID, err := req.UserIDValue()
	if err != nil {
		h.respondError(c, req.Type, errs.NewValidationError("userid", "must be a positive integer"))
		return
	}

	var game *usecase.GameContext
	if req.GameID != "" || req.GameDesc != "" || req.ActionID != "" {
		game = &usecase.GameContext{
			GameID:   req.GameID,
			GameDesc: req.GameDesc,
			ActionID: req.ActionID,
		}
	}

	result, err := h.gateway.Credit(c.Request.Context(), usecase.CreditRequest{
		Reference:   req.TID,
		UserID:      userID,
		Currency:    req.Currency,
		Amount:      req.Amount,
		ExtParam:    req.ExtParam,
		Subtype:     req.Subtype,
		Game:        game,
		RollbackRef: req.RollbackRef,
		BonusID:     req.BonusID,
		JackpotWin:  req.JackpotWin == "1",
		Flag:        req.Flag,
	})
	if err != nil {
		h.respondError(c, req.Type, err)
		return
	}

	if result.Replayed && h.metrics != nil {
		h.metrics.ReplaysTotal.WithLabelValues(req.Type).Inc()
	}
	h.respondOK(c, req.Type, dto.ProviderResponse{TID: result.Reference, Balance: result.Balance})
}

func (h *ProviderHandler) handleRollback(c *gin.Context, req *dto.ProviderRequest) {
	selections := make([]usecase.RollbackSelection, 0, len(req.Selections))
	for _, sel := range req.Selections {
		selections = append(selections, usecase.RollbackSelection{
			BetID:     sel.BetID,
			BetslipID: sel.BetslipID,
			Status:    sel.Status,
		})
	}

	outcomes, err := h.gateway.Rollback(c.Request.Context(), selections)
	if err != nil {
		h.respondError(c, req.Type, err)
		return
	}

	resp := dto.ProviderResponse{}
	if len(outcomes) > 0 {
		last := outcomes[len(outcomes)-1]
		resp.Balance = entity.CentsToString(last.BalanceCents)
	}
	h.respondOK(c, req.Type, resp)
}

func (h *ProviderHandler) handleRoundInfo(c *gin.Context, req *dto.ProviderRequest) {
	userID, err := req.UserIDValue()
	if err != nil {
		h.respondError(c, req.Type, errs.NewValidationError("userid", "must be a positive integer"))
		return
	}

	actions := make([]usecase.ReportedAction, 0, len(req.Actions))
	for _, action := range req.Actions {
		actions = append(actions, usecase.ReportedAction{
			ActionID:  action.ActionID,
			Kind:      action.Kind,
			Amount:    action.Amount,
			Timestamp: time.UnixMilli(action.Timestamp),
		})
	}

	err = h.tracker.Record(c.Request.Context(), usecase.RoundReport{
		GameRoundID: req.GameRoundID,
		UserID:      userID,
		Currency:    req.Currency,
		GameDesc:    req.GameDesc,
		Actions:     actions,
	})
	if err != nil {
		h.respondError(c, req.Type, err)
		return
	}

	h.respondOK(c, req.Type, dto.ProviderResponse{})
}

// respondOK signs and writes a success envelope
func (h *ProviderHandler) respondOK(c *gin.Context, operation string, resp dto.ProviderResponse) {
	resp.Status = "OK"
	resp.HMAC = h.signer.Sign(resp.SignatureFields())
	if h.metrics != nil {
		h.metrics.RequestsTotal.WithLabelValues(operation, "ok").Inc()
	}
	c.JSON(http.StatusOK, resp)
}

// respondError signs and writes an error envelope
func (h *ProviderHandler) respondError(c *gin.Context, operation string, err error) {
	code := errs.ErrorCode(err)
	resp := dto.ProviderResponse{
		Status: "ERROR",
		Error:  err.Error(),
		Code:   code,
	}
	resp.HMAC = h.signer.Sign(resp.SignatureFields())

	if h.metrics != nil {
		h.metrics.RequestsTotal.WithLabelValues(operation, "error").Inc()
		h.metrics.RejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
	}

	if loggable, ok := err.(interface{ LogFields() map[string]any }); ok {
		h.logger.Warn("Provider request rejected", loggable.LogFields())
	} else {
		h.logger.Warn("Provider request rejected", map[string]any{
			"operation": operation,
			"code":      code,
			"error":     err.Error(),
		})
	}

	c.JSON(http.StatusOK, resp)
}

// rejectionReason buckets an error for the rejection counter
func rejectionReason(err error) string {
	switch {
	case errs.IsAuthenticationError(err):
		return "authentication"
	case errs.IsValidationError(err):
		return "validation"
	case errs.IsInsufficientFundsError(err):
		return "insufficient_funds"
	case errs.IsUnknownTransactionError(err):
		return "unknown_transaction"
	case errs.IsStoreUnavailableError(err):
		return "store_unavailable"
	default:
		return "internal"
	}
}
