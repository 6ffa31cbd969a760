package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"fraction-presale-go/internal/api"
	"fraction-presale-go/internal/store"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *api.PresaleService
}

func NewHandler(service *api.PresaleService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.service.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListPresales(c *gin.Context) {
	presales, err := h.service.ListPresales(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, presales)
}

func (h *Handler) GetPresale(c *gin.Context) {
	key, ok := keyParam(c, "key")
	if !ok {
		return
	}
	view, err := h.service.GetPresale(c.Request.Context(), key)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) GetVesting(c *gin.Context) {
	key, ok := keyParam(c, "key")
	if !ok {
		return
	}
	owner, ok := keyParam(c, "owner")
	if !ok {
		return
	}
	view, err := h.service.GetVestingRecord(c.Request.Context(), key, owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) GetAccount(c *gin.Context) {
	address, ok := keyParam(c, "address")
	if !ok {
		return
	}
	balance, err := h.service.GetAccountBalance(c.Request.Context(), address)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (h *Handler) GetTransfers(c *gin.Context) {
	address, ok := keyParam(c, "address")
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}

	history, err := h.service.GetTransferHistory(c.Request.Context(), address, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) GetOwnerAccounts(c *gin.Context) {
	owner, ok := keyParam(c, "owner")
	if !ok {
		return
	}
	balances, err := h.service.GetOwnerBalances(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, balances)
}

func keyParam(c *gin.Context, name string) (solana.PublicKey, bool) {
	key, err := solana.PublicKeyFromBase58(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return solana.PublicKey{}, false
	}
	return key, true
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
