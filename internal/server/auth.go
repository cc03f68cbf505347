package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookie = "admin_token"

// Auth guards the admin pages with a single configured login. A successful
// login sets a cookie holding a random per-process token.
type Auth struct {
	username string
	password string
	hash     []byte
	token    string
	secure   bool
	logger   *log.Logger
}

// NewAuth checks credentials against hash when it is set, otherwise
// against password.
func NewAuth(username, password, hash string, secure bool, logger *log.Logger) (*Auth, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("admin.password_hash is not a bcrypt hash: %w", err)
		}
	}
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	a := &Auth{
		username: username,
		password: password,
		hash:     []byte(hash),
		token:    token,
		secure:   secure,
		logger:   logger,
	}
	logger.Printf("Admin access available at: /admin/login")
	return a, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate admin token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (a *Auth) Check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	var passOK bool
	if len(a.hash) > 0 {
		passOK = bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	}
	return userOK && passOK
}

func (a *Auth) Authenticated(c *gin.Context) bool {
	token, err := c.Cookie(sessionCookie)
	return err == nil && subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) == 1
}

// Middleware redirects unauthenticated requests to the login page.
func (a *Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Authenticated(c) {
			if c.GetHeader("HX-Request") == "true" {
				c.Header("HX-Redirect", "/admin/login")
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *Auth) login(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(sessionCookie, a.token, 3600*24, "/admin", "", a.secure, true)
}

func (a *Auth) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(sessionCookie, "", -1, "/admin", "", a.secure, true)
}
