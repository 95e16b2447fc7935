package apitest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userDetail struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (s *Server) setCSRFCookie(c *gin.Context, token string) {
	c.SetCookie(csrfCookie, token, 60*60*24*365, "/", "", false, false)
}

// getCSRF issues a token in both the cookie and the body
func (s *Server) getCSRF(c *gin.Context) {
	token := s.issueCSRF()
	s.setCSRFCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"csrfToken": token})
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password required"})
		return
	}

	var user userRow
	if err := s.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := verifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := s.signSession(&user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.SetCookie(sessionCookie, token, 60*60*2, "/", "", false, true)

	// The CSRF token rotates on login
	old, _ := c.Cookie(csrfCookie)
	s.setCSRFCookie(c, s.rotateCSRF(old))

	s.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User logged in")

	s.mu.Lock()
	omit := s.loginOmitsUser
	s.mu.Unlock()
	if omit {
		c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    userDetail{ID: user.ID, Username: user.Username},
	})
}

func (s *Server) logout(c *gin.Context) {
	if claims, ok := s.currentSession(c); ok {
		s.revokeSession(claims.ID)
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (s *Server) checkAuth(c *gin.Context) {
	claims, ok := s.currentSession(c)
	if !ok {
		s.mu.Lock()
		status := s.anonymousCheck
		s.mu.Unlock()
		c.JSON(status, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          userDetail{ID: claims.UserID, Username: claims.Username},
	})
}
