package main

import (
	"fixserve/src/db"
	"fixserve/src/models"
	"fixserve/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func serviceHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/services", func(ctx *gin.Context) {
			db := db.GetDb()
			var services []models.Service
			if err := db.
				Model(&models.Service{}).
				Where("active = ?", true).
				Order("created_at desc").
				Limit(100).
				Find(&services).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": services, "count": len(services)})
		}).
		POST("/services", func(ctx *gin.Context) {
			var body types.CreateServiceRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			role := ctx.GetString("role")
			if types.Role(role) != types.ROLE_PROVIDER {
				ctx.Status(http.StatusForbidden)
				return
			}
			service := models.Service{
				ProviderID:  ctx.GetUint("id"),
				Name:        body.Name,
				Description: body.Description,
				BasePrice:   body.BasePrice,
				Active:      true,
			}
			if err := db.GetDb().Create(&service).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": service})
		}).
		PUT("/services/:id/deactivate", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			providerId := ctx.GetUint("id")
			res := db.GetDb().
				Model(&models.Service{}).
				Where("id = ? AND provider_id = ?", params.ID, providerId).
				Update("active", false)
			if res.Error != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
