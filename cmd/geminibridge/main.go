package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"

	"geminibridge/internal/credentials"
	"geminibridge/internal/env"
	"geminibridge/internal/logger"
	"geminibridge/internal/server"
	"geminibridge/internal/sigcache"
)

var (
	port                   string
	googleCloudProject     string
	logLevel               string
	disableBrowserAuth     bool
	disableGoogleSearch    bool
	disableAutoModelSwitch bool
)

var rootCmd = &cobra.Command{
	Use:   "geminibridge",
	Short: "OpenAI-compatible proxy for Gemini Code Assist",
	Long: `geminibridge exposes an OpenAI-style /v1/chat/completions endpoint on top
of the Code Assist Gemini backend, translating requests, streaming responses
and reasoning continuity between the two dialects.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&port, "port", "p", "8085", "port to listen on")
	rootCmd.Flags().StringVar(&googleCloudProject, "google-cloud-project", "", "Google Cloud project ID (skips discovery)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&disableBrowserAuth, "disable-browser-auth", false, "do not open a browser when credentials are missing")
	rootCmd.Flags().BoolVar(&disableGoogleSearch, "disable-google-search", false, "disable Google Search grounding")
	rootCmd.Flags().BoolVar(&disableAutoModelSwitch, "disable-auto-model-switch", false, "disable rate-limit model fallback")
}

func run(cmd *cobra.Command, args []string) error {
	// A .env next to the binary is optional.
	if err := godotenv.Load(); err == nil {
		logger.Get().Debug().Msg("Loaded .env file")
	}
	logger.SetLevel(logLevel)

	projectID := googleCloudProject
	if projectID == "" {
		if v, ok := env.Get("GOOGLE_CLOUD_PROJECT"); ok {
			projectID = v
		}
	}

	provider, err := credentials.NewFileProvider()
	if err != nil {
		return fmt.Errorf("could not initialize credentials provider: %w", err)
	}

	if _, err := provider.GetCredentials(); err != nil {
		logger.Get().Warn().Err(err).Msg("No OAuth credentials found")
		authURL := credentials.AuthorizationURL()
		logger.Get().Info().Str("url", authURL).Msg("Sign in with the Gemini CLI or visit the consent URL")
		if !disableBrowserAuth {
			if err := open.Run(authURL); err != nil {
				logger.Get().Debug().Err(err).Msg("Could not open browser")
			}
		}
	}

	var store sigcache.Store
	if path, err := sigcache.DefaultPath(); err == nil {
		if s, err := sigcache.NewSQLiteStore(path); err == nil {
			store = s
		} else {
			logger.Get().Warn().Err(err).Msg("Signature database unavailable, using in-memory store")
		}
	}
	if store == nil {
		store = sigcache.NewMemoryStore()
	}
	cache := sigcache.New(store)
	defer cache.Destroy()

	srv := server.NewServer(provider, cache, server.Config{
		ProjectID:              projectID,
		DisableGoogleSearch:    disableGoogleSearch,
		DisableAutoModelSwitch: disableAutoModelSwitch,
	})
	return srv.Start(":" + port)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
