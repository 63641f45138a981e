// Package subscriptions decides which QMS endpoint a subscription command
// goes to and checks admin requests before they are sent.
package subscriptions

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cyverse-de/terrain-cli/internal/api"
	"github.com/cyverse-de/terrain-cli/internal/credential"
	"github.com/cyverse-de/terrain-cli/internal/failure"
	"github.com/cyverse-de/terrain-cli/internal/quota"
)

// API is the part of the Terrain client the service needs.
type API interface {
	Token(ctx context.Context) (string, error)
	ListPlans(ctx context.Context) ([]api.Plan, error)
	ListResourceTypes(ctx context.Context) ([]api.ResourceType, error)
	GetSubscription(ctx context.Context) (*api.Subscription, error)
	AdminGetSubscription(ctx context.Context, user string) (*api.Subscription, error)
	AddSubscription(ctx context.Context, user, plan string) (*api.Subscription, error)
	SetQuota(ctx context.Context, user, resourceType string, value int64) (*api.Subscription, error)
	SearchSubjects(ctx context.Context, search string) ([]api.Subject, error)
}

type Service struct {
	api API
}

func NewService(client API) *Service {
	return &Service{api: client}
}

// Get returns the subscription for user. An empty user, or the caller's own
// username, goes to the self-service endpoint; anyone else goes to the
// admin endpoint and the server decides whether the caller may see it.
func (s *Service) Get(ctx context.Context, user string) (*api.Subscription, error) {
	if user == "" {
		return s.api.GetSubscription(ctx)
	}

	self, err := s.isCaller(ctx, user)
	if err != nil {
		return nil, err
	}
	if self {
		return s.api.GetSubscription(ctx)
	}
	return s.api.AdminGetSubscription(ctx, user)
}

func (s *Service) isCaller(ctx context.Context, user string) (bool, error) {
	token, err := s.api.Token(ctx)
	if err != nil {
		return false, err
	}
	subject, ok := credential.Subject(token)
	if !ok {
		log.Debug().Msg("credential has no username claim, using admin endpoint")
		return false, nil
	}
	return subject == user, nil
}

// Add subscribes user to plan after checking that both exist.
func (s *Service) Add(ctx context.Context, user, plan string) (*api.Subscription, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return nil, err
	}
	name, err := s.findPlan(ctx, plan)
	if err != nil {
		return nil, err
	}
	return s.api.AddSubscription(ctx, user, name)
}

// SetQuota sets user's quota for resourceType to the parsed value after
// checking the value, the user and the resource type.
func (s *Service) SetQuota(ctx context.Context, user, resourceType, value string) (*api.Subscription, error) {
	raw, err := quota.Parse(value)
	if err != nil {
		return nil, failure.Invalid("invalid quota value: %q", value)
	}
	if err := s.checkUser(ctx, user); err != nil {
		return nil, err
	}
	name, err := s.findResourceType(ctx, resourceType)
	if err != nil {
		return nil, err
	}
	return s.api.SetQuota(ctx, user, name, raw)
}

// checkUser requires an exact, case-sensitive match in the subject search.
func (s *Service) checkUser(ctx context.Context, user string) error {
	if strings.TrimSpace(user) == "" {
		return failure.Invalid("a username is required")
	}
	subjects, err := s.api.SearchSubjects(ctx, user)
	if err != nil {
		return err
	}
	for _, subject := range subjects {
		if subject.ID == user {
			return nil
		}
	}
	return failure.Invalid("user does not exist: %s", user)
}

// findPlan returns the plan name as the server spells it.
func (s *Service) findPlan(ctx context.Context, plan string) (string, error) {
	plans, err := s.api.ListPlans(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range plans {
		if strings.EqualFold(p.Name, plan) {
			return p.Name, nil
		}
	}
	return "", failure.Invalid("plan does not exist: %s", plan)
}

// findResourceType returns the resource type name as the server spells it.
func (s *Service) findResourceType(ctx context.Context, resourceType string) (string, error) {
	types, err := s.api.ListResourceTypes(ctx)
	if err != nil {
		return "", err
	}
	for _, rt := range types {
		if strings.EqualFold(rt.Name, resourceType) {
			return rt.Name, nil
		}
	}
	return "", failure.Invalid("resource type does not exist: %s", resourceType)
}

// ListPlans is passed through so the command layer only needs the service.
func (s *Service) ListPlans(ctx context.Context) ([]api.Plan, error) {
	return s.api.ListPlans(ctx)
}

func (s *Service) ListResourceTypes(ctx context.Context) ([]api.ResourceType, error) {
	return s.api.ListResourceTypes(ctx)
}
