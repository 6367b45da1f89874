package server

import (
	"context"
	"net/http"
	"time"

	"geminibridge/internal/credentials"
	"geminibridge/internal/env"
	"geminibridge/internal/gemini"
	"geminibridge/internal/logger"
	"geminibridge/internal/sigcache"
)

// Config carries the operator-facing switches.
type Config struct {
	// ProjectID pins the Code Assist project, skipping discovery.
	ProjectID string
	// DisableGoogleSearch turns off Google Search grounding for requests
	// without function tools.
	DisableGoogleSearch bool
	// DisableAutoModelSwitch turns off rate-limit model fallback.
	DisableAutoModelSwitch bool
}

// Server represents the proxy server with its dependencies.
type Server struct {
	provider     credentials.CredentialsProvider
	geminiClient *gemini.Client
	cache        *sigcache.Cache
	cfg          Config
	mux          *http.ServeMux
	oauthCreds   *credentials.OAuthCredentials
}

// NewServer creates a new server instance with the given credentials
// provider and signature cache.
func NewServer(provider credentials.CredentialsProvider, cache *sigcache.Cache, cfg Config) *Server {
	s := &Server{
		provider:     provider,
		geminiClient: gemini.NewClient(provider),
		cache:        cache,
		cfg:          cfg,
		mux:          http.NewServeMux(),
	}
	if cfg.ProjectID != "" {
		s.geminiClient.SetProjectID(cfg.ProjectID)
	}
	s.setupRoutes()
	return s
}

// Start launches the proxy server on addr.
func (s *Server) Start(addr string) error {
	if err := s.LoadCredentials(false); err != nil {
		logger.Get().Error().Err(err).Msg("Failed to load OAuth credentials")
		logger.Get().Warn().Msg("The proxy will run but authentication will fail without valid credentials")
	}

	s.startTokenRefreshLoop()
	s.discoverProject()

	logger.Get().Info().Msgf("Starting proxy server on %s", addr)
	return http.ListenAndServe(addr, loggingMiddleware(s.mux))
}

// discoverProject resolves the Code Assist project at startup so the first
// request does not pay for the onboarding handshake.
func (s *Server) discoverProject() {
	if s.cfg.ProjectID != "" {
		logger.Get().Info().Str("project_id", s.cfg.ProjectID).Msg("Using configured project ID")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	projectID, err := s.geminiClient.DiscoverProject(ctx)
	if err != nil {
		logger.Get().Error().Err(err).Msg("Project discovery failed, will retry on first request")
		return
	}
	logger.Get().Info().Str("project_id", projectID).Msg("Project ready")
}

// LoadCredentials loads OAuth credentials using the configured provider and
// refreshes the token when it is expired or about to expire.
func (s *Server) LoadCredentials(isPeriodicRefresh bool) error {
	creds, err := s.provider.GetCredentials()
	if err != nil {
		return err
	}
	s.oauthCreds = creds

	// Refresh with a 5-minute buffer before expiry.
	if creds.ExpiryDate > 0 {
		expiryTime := time.Unix(creds.ExpiryDate/1000, 0)
		if time.Now().After(expiryTime.Add(-5 * time.Minute)) {
			logger.Get().Info().Msg("OAuth token is expired or expiring soon, attempting to refresh...")
			if err := s.provider.RefreshToken(); err != nil {
				logger.Get().Error().Err(err).Msg("Failed to refresh OAuth token")
				// Keep the stale token; the client retries once on 401 anyway.
			} else {
				creds, err = s.provider.GetCredentials()
				if err != nil {
					return err
				}
				s.oauthCreds = creds
			}
		} else if !isPeriodicRefresh {
			logger.Get().Info().Dur("valid_for", time.Until(expiryTime).Round(time.Second)).Msg("OAuth token valid")
		}
	}

	if !isPeriodicRefresh {
		logger.Get().Info().Str("provider", s.provider.Name()).Msg("Loaded OAuth credentials")
	}
	return nil
}

// startTokenRefreshLoop periodically re-checks token expiry in the background.
func (s *Server) startTokenRefreshLoop() {
	refreshIntervalStr := env.GetOrDefault("TOKEN_REFRESH_INTERVAL", "5m")
	refreshInterval, err := time.ParseDuration(refreshIntervalStr)
	if err != nil {
		logger.Get().Warn().Err(err).Str("value", refreshIntervalStr).Msg("Invalid token refresh interval, defaulting to 5 minutes")
		refreshInterval = 5 * time.Minute
	}

	logger.Get().Info().Dur("refresh_interval", refreshInterval).Msg("Starting periodic token refresh")

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for range ticker.C {
			logger.Get().Debug().Msg("Running periodic token refresh check...")
			if err := s.LoadCredentials(true); err != nil {
				logger.Get().Error().Err(err).Msg("Error during periodic token refresh")
			}
		}
	}()
}

// setupRoutes configures all HTTP routes. The chat completion endpoint is
// served under both the bare and the /openai prefix for client compatibility.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/chat/completions", s.chatCompletionsHandler)
	s.mux.HandleFunc("/openai/v1/chat/completions", s.chatCompletionsHandler)
	s.mux.HandleFunc("/v1/models", s.modelsHandler)
	s.mux.HandleFunc("/v1/models/", s.modelsHandler)
	s.mux.HandleFunc("/openai/v1/models", s.modelsHandler)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
