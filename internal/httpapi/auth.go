package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const authSubjectKey = "auth_subject"

type tokenClaims struct {
	jwt.RegisteredClaims
}

// bearerAuth validates the Authorization header and stores the token subject
// in the gin context under authSubjectKey.
func bearerAuth(signingKey string, issuer string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if header == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing authorization header"))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid authorization header"))
			return
		}
		subject, err := parseToken(signingKey, issuer, parts[1])
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid token"))
			return
		}
		ctx.Set(authSubjectKey, subject)
		ctx.Next()
	}
}

func parseToken(signingKey string, issuer string, raw string) (string, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(signingKey), nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("token subject is required")
	}
	return claims.Subject, nil
}

func authSubject(ctx *gin.Context) string {
	subject, _ := ctx.Get(authSubjectKey)
	value, _ := subject.(string)
	return value
}
