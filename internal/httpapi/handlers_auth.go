package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/parking/internal/auth"
	"github.com/MarkoPoloResearchLab/parking/pkg/parking"
	"github.com/gin-gonic/gin"
)

func (handler *httpHandler) handleRegister(ctx *gin.Context) {
	var request registerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "expected JSON body"})
		return
	}
	if request.Password == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}
	birthDate, err := time.Parse(birthDateLayout, request.DateDeNaissance)
	if err != nil {
		handler.respondError(ctx, fmt.Errorf("%w: date_de_naissance", parking.ErrInvalidField))
		return
	}
	passwordHash, err := auth.HashPassword(request.Password)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}

	client, err := handler.service.RegisterClient(ctx.Request.Context(), parking.RegisterClientInput{
		LastName:     request.Nom,
		FirstName:    request.Prenom,
		BirthDate:    birthDate,
		Email:        request.AdresseMail,
		Phone:        request.NumTelephone,
		PasswordHash: passwordHash,
		CardDetails:  request.DetailCarte,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}

	pair, err := handler.credentials.IssuePair(client.ID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message":       "registration succeeded",
		"client":        renderClient(client),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (handler *httpHandler) handleLogin(ctx *gin.Context) {
	var request loginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "expected JSON body"})
		return
	}
	if request.AdresseMail == "" || request.Password == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "adresse_mail and password are required"})
		return
	}

	client, err := handler.service.ClientByEmail(ctx.Request.Context(), request.AdresseMail)
	if err != nil {
		// Missing accounts look exactly like wrong passwords.
		handler.respondError(ctx, parking.ErrBadCredentials)
		return
	}
	if err := auth.VerifyPassword(client.PasswordHash, request.Password); err != nil {
		handler.respondError(ctx, err)
		return
	}

	pair, err := handler.credentials.IssuePair(client.ID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message":       "login succeeded",
		"client":        renderClient(client),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (handler *httpHandler) handleLogout(ctx *gin.Context) {
	tokenValue, ok := ctx.Get(contextKeyToken)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	token, _ := tokenValue.(string)
	if err := handler.credentials.Revoke(ctx.Request.Context(), token); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "logout succeeded"})
}

func (handler *httpHandler) handleMe(ctx *gin.Context) {
	caller, ok := callerID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing client identity"})
		return
	}
	client, err := handler.service.ClientByID(ctx.Request.Context(), caller)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, renderProfile(client))
}

func (handler *httpHandler) handleRefresh(ctx *gin.Context) {
	token := bearerToken(ctx)
	if token == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	clientID, err := handler.credentials.Validate(ctx.Request.Context(), token, true)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	pair, err := handler.credentials.IssuePair(clientID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken})
}
