package main

import (
	"fixserve/src/common"
	"fixserve/src/db"
	"fixserve/src/models"
	"fixserve/src/types"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func adminOnly(ctx *gin.Context) {
	if types.Role(ctx.GetString("role")) != types.ROLE_ADMIN {
		ctx.AbortWithStatus(http.StatusForbidden)
		return
	}
	ctx.Next()
}

func reconciliationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	admin := g.Group("/admin")
	admin.Use(adminOnly)
	admin.
		POST("/recovery/run", func(ctx *gin.Context) {
			recovered, err := common.RecoverStuckReleases()
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			cleaned, err := common.CleanupDuplicatePayouts()
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"recovered": recovered, "duplicates_cleaned": cleaned}})
		}).
		GET("/settlements", func(ctx *gin.Context) {
			db := db.GetDb()
			var batches []models.SettlementBatch
			if err := db.
				Model(&models.SettlementBatch{}).
				Order("batch_date desc").
				Limit(100).
				Find(&batches).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": batches, "count": len(batches)})
		}).
		GET("/settlements/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var batch models.SettlementBatch
			if err := db.
				Model(&models.SettlementBatch{}).
				Where("id = ?", params.ID).
				Preload("Adjustments").
				First(&batch).
				Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": batch})
		}).
		POST("/settlements", func(ctx *gin.Context) {
			var body struct {
				BatchDate string `json:"batch_date" binding:"required"`
			}
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			batchDate, err := time.Parse("2006-01-02", body.BatchDate)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			batch, err := common.GenerateSettlementBatch(batchDate)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": batch})
		}).
		PUT("/settlements/:id/reconcile", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.ReconcileBatchRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			operatorId := ctx.GetUint("id")
			batch, err := common.ReconcileSettlementBatch(params.ID, body.ActualAmount, body.BankStatementRef, operatorId)
			if err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": batch})
		}).
		POST("/webhooks/:id/replay", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			if err := common.ProcessWebhookEvent(params.ID); err != nil {
				ctx.JSON(types.ErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return admin
}
