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

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings/:id/payments", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.InitiatePaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			clientId := ctx.GetUint("id")
			payment, authURL, err := common.InitiatePayment(params.ID, clientId, body.CallbackURL)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			data := utils.PaymentProjection(payment)
			data.AuthorizationURL = authURL
			ctx.JSON(http.StatusCreated, gin.H{"data": data})
		}).
		GET("/payments/verify/:reference", func(ctx *gin.Context) {
			var params types.VerifyPaymentRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			payment, err := common.VerifyPayment(params.Reference, userId)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": utils.PaymentProjection(payment)})
		}).
		GET("/bookings/:id/payments", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			role := ctx.GetString("role")
			db := db.GetDb()
			var booking models.Booking
			if err := db.
				Model(&models.Booking{}).
				Where("id = ?", params.ID).
				Preload("Payment").
				First(&booking).
				Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if types.Role(role) != types.ROLE_ADMIN && userId != booking.ClientID && userId != booking.ProviderID {
				ctx.Status(http.StatusForbidden)
				return
			}
			if booking.Payment == nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": utils.PaymentProjection(booking.Payment)})
		}).
		PUT("/bookings/:id/cash-received", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			providerId := ctx.GetUint("id")
			if err := common.MarkCashReceived(params.ID, providerId); err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
