package main

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fixserve/src/common"
	"fixserve/src/db"
	"fixserve/src/models"
	"fixserve/src/types"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

type gatewayWebhookPayload struct {
	Event string      `json:"event"`
	Data  types.JSONB `json:"data"`
}

func (p *gatewayWebhookPayload) reference() string {
	switch p.Event {
	case "transfer.success", "transfer.failed", "transfer.reversed":
		if code, ok := p.Data["transfer_code"].(string); ok {
			return code
		}
	default:
		if ref, ok := p.Data["reference"].(string); ok {
			return ref
		}
	}
	return ""
}

// paystackWebhookRoute accepts gateway notifications. The raw payload is
// verified, persisted, and acknowledged immediately; state transitions
// happen asynchronously off the stored event so the gateway never waits on
// the database and redelivery is harmless.
func paystackWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/paystack", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		secret := os.Getenv("PAYSTACK_SECRET_KEY")
		mac := hmac.New(sha512.New, []byte(secret))
		mac.Write(payload)
		expected := hex.EncodeToString(mac.Sum(nil))
		signature := ctx.GetHeader("x-paystack-signature")
		if !hmac.Equal([]byte(expected), []byte(signature)) {
			log.Println("Webhook signature mismatch")
			ctx.Status(http.StatusUnauthorized)
			return
		}

		var body gatewayWebhookPayload
		if err := json.Unmarshal(payload, &body); err != nil {
			log.Printf("Error parsing webhook payload: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		reference := body.reference()
		if reference == "" {
			log.Printf("[PaystackEvent] %s carries no reference, ignored\n", body.Event)
			ctx.Status(http.StatusOK)
			return
		}
		log.Printf("[PaystackEvent] %s %s\n", body.Event, reference)

		gdb := db.GetDb()
		var existing models.WebhookEvent
		err = gdb.
			Model(&models.WebhookEvent{}).
			Where("event_type = ? AND reference = ? AND processed = ?", body.Event, reference, true).
			First(&existing).
			Error
		if err == nil {
			// Redelivery of an event already applied.
			ctx.Status(http.StatusOK)
			return
		}

		event := models.WebhookEvent{
			EventType: body.Event,
			Reference: reference,
			Payload:   body.Data,
		}
		if err := gdb.Create(&event).Error; err != nil {
			log.Printf("Error persisting webhook event: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		go func(eventId uint) {
			if err := common.ProcessWebhookEvent(eventId); err != nil {
				log.Printf("Error processing webhook event %d: %s\n", eventId, err.Error())
			}
		}(event.ID)
		ctx.Status(http.StatusOK)
	})
	return apiv1
}
