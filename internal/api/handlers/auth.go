package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/playmatatu/clawmachine/internal/accounts"
	"github.com/playmatatu/clawmachine/internal/config"
	"github.com/playmatatu/clawmachine/internal/models"
	"github.com/redis/go-redis/v9"
)

type credentials struct {
	Name string `json:"name" binding:"required"`
	PIN  string `json:"pin" binding:"required"`
}

// Register creates a profile and returns a session token.
// POST /api/v1/auth/register
func Register(profiles accounts.Profiles, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and pin required"})
			return
		}

		p, err := accounts.Register(c.Request.Context(), profiles, req.Name, strings.TrimSpace(req.PIN))
		switch {
		case errors.Is(err, accounts.ErrInvalidName), errors.Is(err, accounts.ErrInvalidPIN):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case errors.Is(err, accounts.ErrProfileExists):
			c.JSON(http.StatusConflict, gin.H{"error": "name already taken"})
			return
		case err != nil:
			log.Printf("[AUTH] register failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		respondWithToken(c, cfg, p, http.StatusCreated)
	}
}

// Login verifies a profile's PIN and returns a session token. Repeated
// failures lock the name out for PINLockoutMinutes when Redis is available.
// POST /api/v1/auth/login
func Login(profiles accounts.Profiles, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and pin required"})
			return
		}
		ctx := c.Request.Context()
		name := strings.TrimSpace(req.Name)
		failKey := fmt.Sprintf("pin_fail:%s", strings.ToLower(name))

		if locked, ttl := pinLocked(ctx, rdb, cfg, failKey); locked {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":             "too many failed attempts, try again later",
				"minutes_remaining": int(ttl.Minutes()) + 1,
			})
			return
		}

		p, err := accounts.Authenticate(ctx, profiles, name, strings.TrimSpace(req.PIN))
		switch {
		case errors.Is(err, accounts.ErrProfileNotFound), errors.Is(err, accounts.ErrWrongPIN), errors.Is(err, accounts.ErrInvalidName):
			recordPINFailure(ctx, rdb, cfg, failKey)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid name or pin"})
			return
		case err != nil:
			log.Printf("[AUTH] login failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if rdb != nil {
			rdb.Del(ctx, failKey)
		}
		if err := profiles.Touch(ctx, p.ID); err != nil {
			log.Printf("[AUTH] failed to update last_active for profile %d: %v", p.ID, err)
		}
		respondWithToken(c, cfg, p, http.StatusOK)
	}
}

func pinLocked(ctx context.Context, rdb *redis.Client, cfg *config.Config, key string) (bool, time.Duration) {
	if rdb == nil || cfg.PINMaxAttempts <= 0 {
		return false, 0
	}
	n, err := rdb.Get(ctx, key).Int()
	if err != nil || n < cfg.PINMaxAttempts {
		return false, 0
	}
	ttl, _ := rdb.TTL(ctx, key).Result()
	return true, ttl
}

func recordPINFailure(ctx context.Context, rdb *redis.Client, cfg *config.Config, key string) {
	if rdb == nil {
		return
	}
	pipe := rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Duration(cfg.PINLockoutMinutes)*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[AUTH] failed to record pin failure: %v", err)
	}
}

func respondWithToken(c *gin.Context, cfg *config.Config, p *models.Profile, status int) {
	signed, exp, err := IssueToken(cfg, p.ID, p.Name)
	if err != nil {
		log.Printf("[AUTH] failed to sign token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{
		"token":      signed,
		"expires_at": exp.Format(time.RFC3339),
		"profile":    gin.H{"id": p.ID, "name": p.Name},
	})
}

// IssueToken signs a session JWT for a profile.
func IssueToken(cfg *config.Config, profileID int, name string) (string, time.Time, error) {
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	exp := time.Now().Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"profile_id": profileID,
		"name":       name,
		"exp":        exp.Unix(),
	})
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	return signed, exp, err
}

// AuthMiddleware validates the bearer JWT and sets profile_id in context.
// Browsers cannot set headers on a WebSocket upgrade, so a ?token= query
// parameter is accepted as well.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		} else {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		idf, ok := claims["profile_id"].(float64)
		if !ok || idf <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("profile_id", int(idf))
		if name, ok := claims["name"].(string); ok {
			c.Set("profile_name", name)
		}
		c.Next()
	}
}

// GetMe returns the authenticated profile.
// GET /api/v1/me
func GetMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := profileID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "name": c.GetString("profile_name")})
	}
}
