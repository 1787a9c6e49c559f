// internal/handlers/wallet.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/internlink/placement-service/internal/i18n"
	"github.com/internlink/placement-service/internal/services"
	"github.com/internlink/placement-service/internal/utils"
)

type WalletHandler struct {
	walletService *services.WalletService
}

type GrantTokensRequest struct {
	Tokens    int64  `json:"tokens" validate:"required,min=1"`
	Reference string `json:"reference" validate:"max=255"`
}

func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GET /wallet
func (h *WalletHandler) GetWallet(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	summary, err := h.walletService.Summary(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, summary)
}

// GET /wallet/transactions
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	transactions, total, err := h.walletService.Transactions(c.Request.Context(), actor, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(transactions, total, params))
}

// POST /wallet/top-up
func (h *WalletHandler) CreateTopUp(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req services.TopUpRequest
	if !bindJSON(c, &req) {
		return
	}

	intent, err := h.walletService.CreateTopUpIntent(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyWalletTopUpCreated),
		"top_up":  intent,
	})
}

// POST /wallet/top-up/confirm
func (h *WalletHandler) ConfirmTopUp(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req services.ConfirmTopUpRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.walletService.ConfirmTopUp(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyWalletToppedUp),
		"transaction": result.Transaction,
		"balance":     result.Balance,
	})
}

// POST /admin/companies/:id/tokens
func (h *WalletHandler) GrantTokens(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	companyID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req GrantTokensRequest
	if !bindJSON(c, &req) {
		return
	}

	transaction, err := h.walletService.Grant(c.Request.Context(), actor, companyID, req.Tokens, req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyWalletGranted),
		"transaction": transaction,
	})
}
