package usecase

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
	"github.com/eliteGoblin/focusd/focuslock/internal/policy"
)

// RuleInput is the payload for adding a block rule. An empty Mode takes
// the defaultBlockMode setting.
type RuleInput struct {
	AppIdentity string `json:"appIdentity"`
	MatchKind   string `json:"matchKind"`
	Mode        string `json:"mode"`
}

// RulePatch carries the fields to change on a rule. Nil fields are kept.
type RulePatch struct {
	AppIdentity *string `json:"appIdentity,omitempty"`
	MatchKind   *string `json:"matchKind,omitempty"`
	Mode        *string `json:"mode,omitempty"`
}

// RuleService validates and stores block rules.
type RuleService struct {
	mu       sync.Mutex
	repo     domain.RuleRepository
	settings *SettingsService
	matchers *policy.Registry
	notify   domain.ChangeNotifier
	newID    func() string
	logger   *zap.Logger
}

// NewRuleService creates a rule service.
func NewRuleService(
	repo domain.RuleRepository,
	settings *SettingsService,
	matchers *policy.Registry,
	logger *zap.Logger,
) *RuleService {
	return &RuleService{
		repo:     repo,
		settings: settings,
		matchers: matchers,
		newID:    uuid.NewString,
		logger:   logger,
	}
}

// SetChangeNotifier registers the receiver of rule change signals.
func (s *RuleService) SetChangeNotifier(n domain.ChangeNotifier) {
	s.mu.Lock()
	s.notify = n
	s.mu.Unlock()
}

// Add validates and stores a new rule.
func (s *RuleService) Add(in RuleInput) (*domain.BlockRule, error) {
	kind, err := domain.ParseMatchKind(in.MatchKind)
	if err != nil {
		return nil, err
	}
	mode := s.settings.DefaultBlockMode()
	if strings.TrimSpace(in.Mode) != "" {
		if mode, err = domain.ParseBlockMode(in.Mode); err != nil {
			return nil, err
		}
	}

	rule := domain.BlockRule{
		AppIdentity: strings.TrimSpace(in.AppIdentity),
		MatchKind:   kind,
		Mode:        mode,
	}
	if err := s.matchers.ValidateRule(rule); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rule.ID = s.newID()
	if err := s.repo.Insert(rule); err != nil {
		return nil, storeErr("add rule", err)
	}

	s.logger.Info("block rule added",
		zap.String("rule", rule.ID),
		zap.String("app", rule.AppIdentity),
		zap.String("kind", string(rule.MatchKind)),
		zap.String("mode", string(rule.Mode)))
	s.changed()
	return &rule, nil
}

// Update merges the present fields of patch into a rule.
func (s *RuleService) Update(id string, patch RulePatch) (*domain.BlockRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, err := s.repo.Get(id)
	if err != nil {
		return nil, storeErr("load rule", err)
	}

	if patch.AppIdentity != nil {
		rule.AppIdentity = strings.TrimSpace(*patch.AppIdentity)
	}
	if patch.MatchKind != nil {
		if rule.MatchKind, err = domain.ParseMatchKind(*patch.MatchKind); err != nil {
			return nil, err
		}
	}
	if patch.Mode != nil {
		if rule.Mode, err = domain.ParseBlockMode(*patch.Mode); err != nil {
			return nil, err
		}
	}
	if err := s.matchers.ValidateRule(*rule); err != nil {
		return nil, err
	}

	if err := s.repo.Update(*rule); err != nil {
		return nil, storeErr("update rule", err)
	}

	s.logger.Info("block rule updated",
		zap.String("rule", rule.ID),
		zap.String("app", rule.AppIdentity),
		zap.String("mode", string(rule.Mode)))
	s.changed()
	return rule, nil
}

// Remove deletes a rule.
func (s *RuleService) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(id); err != nil {
		return storeErr("remove rule", err)
	}
	s.logger.Info("block rule removed", zap.String("rule", id))
	s.changed()
	return nil
}

// List returns all rules sorted by app identity.
func (s *RuleService) List() ([]domain.BlockRule, error) {
	rules, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].AppIdentity != rules[j].AppIdentity {
			return rules[i].AppIdentity < rules[j].AppIdentity
		}
		return rules[i].ID < rules[j].ID
	})
	return rules, nil
}

func (s *RuleService) changed() {
	if s.notify != nil {
		s.notify.Trigger()
	}
}

// storeErr passes domain errors through and wraps infrastructure ones.
func storeErr(op string, err error) error {
	if domain.ErrorKind(err) != "" {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
