package webserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID = "user_id"
	ctxAdmin  = "admin"
)

// JWTMiddleware accepts HS256 bearer tokens whose "sub" claim is the
// numeric user id. An "admin" claim of true marks administrators.
func JWTMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "missing bearer token"})
			return
		}
		tok, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) { return secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tok.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "invalid token"})
			return
		}
		claims, _ := tok.Claims.(jwt.MapClaims)
		var sub string
		switch v := claims["sub"].(type) {
		case string:
			sub = v
		case float64:
			sub = strconv.FormatFloat(v, 'f', -1, 64)
		}
		userID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "invalid subject"})
			return
		}
		admin, _ := claims["admin"].(bool)

		c.Set(ctxUserID, userID)
		c.Set(ctxAdmin, admin)
		c.Next()
	}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}
