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

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			role := ctx.GetString("role")
			db := db.GetDb()
			var bookings []models.Booking
			q := db.
				Model(&models.Booking{}).
				Preload("Service").
				Preload("Payment").
				Order("created_at desc").
				Limit(100)
			switch types.Role(role) {
			case types.ROLE_PROVIDER:
				q = q.Where("provider_id = ?", userId)
			case types.ROLE_ADMIN:
			default:
				q = q.Where("client_id = ?", userId)
			}
			if err := q.Find(&bookings).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			data := make([]*types.APIResponseBooking, 0, len(bookings))
			for i := range bookings {
				data = append(data, utils.BookingProjection(&bookings[i]))
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
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
				Preload("Service").
				Preload("Payment").
				Preload("Proof").
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
			ctx.JSON(http.StatusOK, gin.H{"data": utils.BookingProjection(&booking)})
		}).
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			clientId := ctx.GetUint("id")
			booking, err := common.CreateBooking(clientId, &body)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": utils.BookingProjection(booking)})
		}).
		PUT("/bookings/:id/accept", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			providerId := ctx.GetUint("id")
			booking, err := common.AcceptBooking(params.ID, providerId)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": utils.BookingProjection(booking)})
		}).
		PUT("/bookings/:id/decline", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			providerId := ctx.GetUint("id")
			booking, err := common.DeclineBooking(params.ID, providerId)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": utils.BookingProjection(booking)})
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			clientId := ctx.GetUint("id")
			booking, err := common.CancelBooking(params.ID, clientId)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": utils.BookingProjection(booking)})
		}).
		PUT("/bookings/:id/start", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			providerId := ctx.GetUint("id")
			booking, err := common.StartBooking(params.ID, providerId)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": utils.BookingProjection(booking)})
		}).
		PUT("/bookings/:id/complete", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.CompleteBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			providerId := ctx.GetUint("id")
			booking, err := common.CompleteBooking(params.ID, providerId, &body)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": utils.BookingProjection(booking)})
		}).
		PUT("/bookings/:id/confirm", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			clientId := ctx.GetUint("id")
			if err := common.ConfirmBooking(params.ID, clientId); err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/bookings/:id/dispute", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.OpenDisputeRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			reporterId := ctx.GetUint("id")
			dispute, err := common.OpenDispute(params.ID, reporterId, types.DisputeReason(body.Reason), body.Description)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": dispute})
		})
	return g
}
