// Package apitest runs an in-process task-tracking backend that speaks the
// same REST contract as the production API: session cookies, a csrftoken
// cookie echoed in X-CSRFToken, DRF-style validation errors. Tests use it to
// exercise the client end to end and to inject faults.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DefaultUsername and DefaultPassword are the seeded operator credentials
const (
	DefaultUsername = "admin"
	DefaultPassword = "password"
)

// Server is a running test backend
type Server struct {
	router *gin.Engine
	db     *gorm.DB
	logger zerolog.Logger
	http   *httptest.Server
	secret []byte

	loginPath string

	mu              sync.Mutex
	generation      int
	csrfTokens      map[string]bool
	revokedSessions map[string]bool
	failures        map[string]int
	anonymousCheck  int
	anonymousStatus int
	loginOmitsUser  bool
	requests        map[string]int
	total           int
}

// Option configures a Server
type Option func(*Server)

// WithLogger routes request logs to l
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithLegacyLogin mounts the login endpoint at login/ instead of auth/login/
func WithLegacyLogin() Option {
	return func(s *Server) {
		s.loginPath = "login/"
	}
}

// New starts a backend with one seeded operator. It is closed when the test ends.
func New(tb testing.TB, opts ...Option) *Server {
	tb.Helper()

	db, err := openDB()
	if err != nil {
		tb.Fatalf("failed to start test backend: %v", err)
	}

	s := &Server{
		db:              db,
		logger:          zerolog.Nop(),
		secret:          []byte(randomToken()),
		loginPath:       "auth/login/",
		csrfTokens:      make(map[string]bool),
		revokedSessions: make(map[string]bool),
		failures:        make(map[string]int),
		requests:        make(map[string]int),
		anonymousCheck:  http.StatusOK,
		anonymousStatus: http.StatusUnauthorized,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.AddUser(DefaultUsername, DefaultPassword); err != nil {
		tb.Fatalf("failed to seed user: %v", err)
	}

	s.setupRouter()
	s.http = httptest.NewServer(s.router)
	tb.Cleanup(func() {
		s.http.Close()
		if sqlDB, err := s.db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return s
}

// URL returns the API root, e.g. http://127.0.0.1:4242/api/
func (s *Server) URL() string {
	return s.http.URL + "/api/"
}

// LoginPath returns the login endpoint relative to the API root
func (s *Server) LoginPath() string {
	return s.loginPath
}

// AddUser creates an operator account
func (s *Server) AddUser(username, password string) (int64, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}
	u := userRow{Username: username, PasswordHash: hash}
	if err := s.db.Create(&u).Error; err != nil {
		return 0, err
	}
	return u.ID, nil
}

// Fail makes every request to method+path answer status. path is relative to
// the API root; status 0 removes the fault.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := routeKey(method, path)
	if status == 0 {
		delete(s.failures, key)
		return
	}
	s.failures[key] = status
}

// SetAnonymousCheckStatus sets the status auth/check/ answers for visitors
// without a session (default 200 with authenticated=false)
func (s *Server) SetAnonymousCheckStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anonymousCheck = status
}

// SetAnonymousStatus sets the status protected resources answer without a
// session (default 401)
func (s *Server) SetAnonymousStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anonymousStatus = status
}

// SetLoginOmitsUser makes a successful login answer without a user payload
func (s *Server) SetLoginOmitsUser(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginOmitsUser = omit
}

// RevokeCSRF invalidates every issued CSRF token
func (s *Server) RevokeCSRF() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.csrfTokens = make(map[string]bool)
}

// ExpireSessions invalidates every issued session cookie
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// Requests returns the total number of requests served
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// RequestsTo returns how many requests hit method+path
func (s *Server) RequestsTo(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[routeKey(method, path)]
}

func routeKey(method, path string) string {
	return method + " " + strings.TrimPrefix(path, "/")
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.TestMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1")
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", csrfHeader, "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := s.router.Group("/api")
	api.Use(s.faultMiddleware(), s.csrfMiddleware())
	{
		api.GET("/auth/csrf/", s.getCSRF)
		api.POST("/"+s.loginPath, s.login)
		api.POST("/auth/logout/", s.logout)
		api.GET("/auth/check/", s.checkAuth)

		protected := api.Group("")
		protected.Use(s.sessionMiddleware())
		{
			protected.GET("/clients/", s.listClients)
			protected.POST("/clients/", s.createClient)
			protected.GET("/clients/:id/", s.getClient)
			protected.PATCH("/clients/:id/", s.updateClient)
			protected.DELETE("/clients/:id/", s.deleteClient)

			protected.GET("/workers/", s.listWorkers)
			protected.POST("/workers/", s.createWorker)
			protected.GET("/workers/:id/", s.getWorker)
			protected.PATCH("/workers/:id/", s.updateWorker)
			protected.DELETE("/workers/:id/", s.deleteWorker)

			protected.GET("/tasks/", s.listTasks)
			protected.POST("/tasks/", s.createTask)
			protected.GET("/tasks/:id/", s.getTask)
			protected.PATCH("/tasks/:id/", s.updateTask)
			protected.DELETE("/tasks/:id/", s.deleteTask)
		}
	}
}

// loggingMiddleware counts requests and logs them using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		s.mu.Lock()
		s.total++
		s.requests[routeKey(c.Request.Method, strings.TrimPrefix(c.Request.URL.Path, "/api/"))]++
		s.mu.Unlock()

		c.Next()

		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Msg("HTTP request")
	}
}

func (s *Server) faultMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		status, ok := s.failures[routeKey(c.Request.Method, strings.TrimPrefix(c.Request.URL.Path, "/api/"))]
		s.mu.Unlock()
		if ok {
			c.AbortWithStatusJSON(status, gin.H{"detail": http.StatusText(status)})
			return
		}
		c.Next()
	}
}

// csrfMiddleware enforces the double-submit check on unsafe methods: the
// header must match the cookie and the token must still be valid.
func (s *Server) csrfMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		header := c.GetHeader(csrfHeader)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "CSRF Failed: CSRF token missing."})
			return
		}
		cookie, err := c.Cookie(csrfCookie)
		if err != nil || cookie != header || !s.validCSRF(header) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "CSRF Failed: CSRF token incorrect."})
			return
		}
		c.Next()
	}
}

func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := s.currentSession(c)
		if !ok {
			s.mu.Lock()
			status := s.anonymousStatus
			s.mu.Unlock()
			c.AbortWithStatusJSON(status, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		c.Set("session", claims)
		c.Next()
	}
}

func (s *Server) currentSession(c *gin.Context) (*sessionClaims, bool) {
	raw, err := c.Cookie(sessionCookie)
	if err != nil || raw == "" {
		return nil, false
	}
	claims, err := s.parseSession(raw)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Rejected session cookie")
		return nil, false
	}
	return claims, true
}
