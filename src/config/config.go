package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

var API_ENV = os.Getenv("API_ENV")

// PlatformFeeRate is the cut taken on every online booking, as a fraction
// of the booking total.
func PlatformFeeRate() float64 {
	raw := os.Getenv("PLATFORM_FEE_RATE")
	if raw == "" {
		return 0.10
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || rate < 0 || rate >= 1 {
		return 0.10
	}
	return rate
}

const (
	// Cancellation fee tiers. Boundaries are exclusive on the higher-fee
	// side: exactly 24h falls in the 25% tier, exactly 48h is free.
	CancelFeeTier1Window = 24 * time.Hour
	CancelFeeTier1Rate   = 0.50
	CancelFeeTier2Window = 48 * time.Hour
	CancelFeeTier2Rate   = 0.25

	// A payment sitting in processing_release longer than this is assumed
	// to be the remains of a crashed release attempt.
	StuckReleaseThreshold = 5 * time.Minute

	// Window the client has to confirm a finished job before the
	// completion proof expires and the booking auto-confirms.
	AutoConfirmWindow = 72 * time.Hour

	// Settlement deltas up to this many cents reconcile clean.
	SettlementToleranceCents = 2

	// Payment verification attempts allowed per caller within the window.
	VerifyAttemptLimit  = 10
	VerifyAttemptWindow = 15 * time.Minute
)
