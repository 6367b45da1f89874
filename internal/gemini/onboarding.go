package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/tidwall/gjson"

	"geminibridge/internal/logger"
)

const (
	onboardDefaultProject = "default-project"
	onboardDefaultTier    = "free-tier"
	onboardPollAttempts   = 30
)

// onboardPollDelay is a variable so tests can poll without real sleeps.
var onboardPollDelay = time.Second

// ErrOnboardingTimeout is returned when onboardUser never reports done
// within the poll budget.
var ErrOnboardingTimeout = errors.New("onboarding did not complete within the poll budget")

func clientMetadata(project string) Metadata {
	return Metadata{
		IdeType:     "IDE_UNSPECIFIED",
		Platform:    "PLATFORM_UNSPECIFIED",
		PluginType:  "GEMINI",
		DuetProject: project,
	}
}

// DiscoverProject resolves the effective Code Assist project ID, running the
// onboarding handshake if the backend has not assigned one yet. The result
// is cached on the client; subsequent calls return it immediately.
func (c *Client) DiscoverProject(ctx context.Context) (string, error) {
	if c.projectID != "" {
		return c.projectID, nil
	}

	start := time.Now()
	loadReq := LoadCodeAssistRequest{
		CloudAICompanionProject: onboardDefaultProject,
		Metadata:                clientMetadata(onboardDefaultProject),
	}

	raw, err := c.CallEndpoint(ctx, "loadCodeAssist", loadReq)
	if err != nil {
		return "", fmt.Errorf("loadCodeAssist failed: %w", err)
	}

	var load LoadCodeAssistResponse
	if err := json.Unmarshal(raw, &load); err != nil {
		return "", fmt.Errorf("could not unmarshal loadCodeAssist response: %w", err)
	}

	if load.CloudAICompanionProject != "" {
		c.projectID = load.CloudAICompanionProject
		logger.Get().Info().
			Str("project_id", c.projectID).
			Dur("discovery_duration", time.Since(start)).
			Msg("Discovered project ID (quick path)")
		return c.projectID, nil
	}

	tierID := onboardDefaultTier
	for _, tier := range load.AllowedTiers {
		if tier.IsDefault {
			tierID = tier.ID
			break
		}
	}
	logger.Get().Debug().Str("tier_id", tierID).Msg("Selected tier for onboarding")

	onboardReq := OnboardUserRequest{
		TierID:                  tierID,
		CloudAICompanionProject: onboardDefaultProject,
		Metadata:                clientMetadata(onboardDefaultProject),
	}

	// Poll onboardUser until the long-running operation reports done.
	policy := retrypolicy.NewBuilder[[]byte]().
		HandleIf(func(lro []byte, err error) bool {
			return err == nil && !gjson.GetBytes(lro, "done").Bool()
		}).
		WithMaxRetries(onboardPollAttempts - 1).
		WithDelay(onboardPollDelay).
		Build()

	pollCount := 0
	lro, err := failsafe.With(policy).WithContext(ctx).Get(func() ([]byte, error) {
		pollCount++
		logger.Get().Debug().Int("poll_count", pollCount).Msg("Polling onboardUser")
		return c.CallEndpoint(ctx, "onboardUser", onboardReq)
	})
	if err != nil {
		var exceeded *retrypolicy.ExceededError
		if errors.As(err, &exceeded) || pollCount >= onboardPollAttempts {
			return "", ErrOnboardingTimeout
		}
		return "", fmt.Errorf("onboardUser failed: %w", err)
	}
	if !gjson.GetBytes(lro, "done").Bool() {
		return "", ErrOnboardingTimeout
	}

	projectID := gjson.GetBytes(lro, "response.cloudaicompanionProject.id").String()
	if projectID == "" {
		projectID = onboardDefaultProject
	}
	c.projectID = projectID

	logger.Get().Info().
		Str("project_id", projectID).
		Int("poll_count", pollCount).
		Dur("onboarding_duration", time.Since(start)).
		Msg("Discovered project ID after onboarding")
	return projectID, nil
}

// SetProjectID pins the project, bypassing discovery. Used when the operator
// supplies --google-cloud-project or GOOGLE_CLOUD_PROJECT.
func (c *Client) SetProjectID(projectID string) {
	c.projectID = projectID
}
