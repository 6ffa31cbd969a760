package httpapi

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.Health)

	presales := r.Group("/presales")
	{
		presales.GET("", h.ListPresales)
		presales.GET("/:key", h.GetPresale)
		presales.GET("/:key/vesting/:owner", h.GetVesting)
	}

	accounts := r.Group("/accounts")
	{
		accounts.GET("/:address", h.GetAccount)
		accounts.GET("/:address/transfers", h.GetTransfers)
	}

	owners := r.Group("/owners")
	{
		owners.GET("/:owner/accounts", h.GetOwnerAccounts)
	}
}
