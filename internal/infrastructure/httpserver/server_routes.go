package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", metricsHandler())

	api := s.echo.Group("/api/v1")

	// Unauthenticated, throttled per client IP.
	throttle := s.middleware.RateLimit.Handler()
	confirmations := api.Group("/confirmations")
	confirmations.POST("/request", s.requestConfirmation, throttle)
	confirmations.GET("/confirm", s.confirmPhone, throttle)
	confirmations.POST("/confirm", s.confirmPhone, throttle)

	identities := api.Group("/identities", s.middleware.JWT.RequireJWT())
	identities.POST("", s.registerIdentity)
	identities.GET("/:id", s.getIdentity)
	identities.GET("/:id/status", s.getIdentityStatus)
	identities.PATCH("/:id/phone", s.changePhone)
	identities.POST("/:id/skip-confirmation", s.skipConfirmation)
}
