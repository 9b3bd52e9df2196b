package main

import (
	"fixserve/src/common"
	"fixserve/src/db"
	"fixserve/src/models"
	"fixserve/src/types"
	"fixserve/src/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func payoutHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/banks", func(ctx *gin.Context) {
			country := ctx.DefaultQuery("country", "nigeria")
			currency := ctx.DefaultQuery("currency", "NGN")
			banks, err := common.Gateway().ListBanks(country, currency)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": banks, "count": len(banks)})
		}).
		GET("/payouts", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			role := ctx.GetString("role")
			db := db.GetDb()
			var payouts []models.Payout
			q := db.
				Model(&models.Payout{}).
				Order("created_at desc").
				Limit(100)
			if types.Role(role) != types.ROLE_ADMIN {
				q = q.Where("provider_id = ?", userId)
			}
			if err := q.Find(&payouts).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			data := make([]*types.APIResponsePayout, 0, len(payouts))
			for i := range payouts {
				data = append(data, utils.PayoutProjection(&payouts[i]))
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		GET("/payouts/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			role := ctx.GetString("role")
			db := db.GetDb()
			var payout models.Payout
			if err := db.
				Model(&models.Payout{}).
				Where("id = ?", params.ID).
				First(&payout).
				Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if types.Role(role) != types.ROLE_ADMIN && userId != payout.ProviderID {
				ctx.Status(http.StatusForbidden)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": utils.PayoutProjection(&payout)})
		}).
		PUT("/payouts/:id/verify", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			role := ctx.GetString("role")
			db := db.GetDb()
			var payout models.Payout
			if err := db.
				Model(&models.Payout{}).
				Where("id = ?", params.ID).
				First(&payout).
				Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if types.Role(role) != types.ROLE_ADMIN && userId != payout.ProviderID {
				ctx.Status(http.StatusForbidden)
				return
			}
			verified, err := common.VerifyTransfer(params.ID)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": utils.PayoutProjection(verified)})
		})
	return g
}
