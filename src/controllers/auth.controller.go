package controllers

import (
	"errors"
	"fixserve/src/db"
	"fixserve/src/models"
	"fixserve/src/types"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

func generateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &types.Claims{
		Username: user.Email,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(user.ID)),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

func AuthRegister(ctx *gin.Context) (uint, int, error) {
	var body types.RegisterRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return 0, http.StatusBadRequest, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, http.StatusInternalServerError, err
	}
	role := types.ROLE_CLIENT
	if body.Role != "" {
		role = types.Role(body.Role)
	}
	user := models.User{
		Name:         body.Name,
		Email:        body.Email,
		Phone:        body.Phone,
		Role:         role,
		PasswordHash: string(hash),
	}
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.
			Model(&models.User{}).
			Where("email = ?", body.Email).
			Count(&count).
			Error; err != nil {
			return err
		}
		if count > 0 {
			return types.ConflictError("email %s is already registered", body.Email)
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return 0, types.ErrorStatus(err), err
	}
	log.Printf("Registered user %d (%s)\n", user.ID, user.Role)
	return user.ID, http.StatusOK, nil
}

func AuthLogin(ctx *gin.Context) (string, int, error) {
	var body types.LoginRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return "", http.StatusBadRequest, err
	}
	db := db.GetDb()
	var user models.User
	err := db.
		Model(&models.User{}).
		Where("email = ?", body.Email).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", http.StatusUnauthorized, errors.New("invalid credentials")
		}
		return "", http.StatusInternalServerError, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		return "", http.StatusUnauthorized, errors.New("invalid credentials")
	}
	token, err := generateToken(&user)
	if err != nil {
		return "", http.StatusInternalServerError, err
	}
	return token, http.StatusOK, nil
}

// UpdateBankDetails stores a provider's payout destination. The gateway
// recipient is created lazily on first release, so changing details here
// resets any recipient created from the old ones.
func UpdateBankDetails(ctx *gin.Context) (int, error) {
	var body types.UpdateBankDetailsRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	userId := ctx.GetUint("id")
	role := ctx.GetString("role")
	if types.Role(role) != types.ROLE_PROVIDER {
		err := types.ForbiddenError("only providers hold payout bank details")
		return types.ErrorStatus(err), err
	}
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&models.User{}).
			Where("id = ?", userId).
			Updates(map[string]any{
				"bank_code":           body.BankCode,
				"bank_account_number": body.BankAccountNumber,
				"bank_account_name":   body.BankAccountName,
				"recipient_code":      nil,
			}).
			Error
	})
	if err != nil {
		return types.ErrorStatus(err), err
	}
	return http.StatusNoContent, nil
}
