package usecase

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// Known setting keys.
const (
	SettingStrictMode          = "strictMode"
	SettingAutostart           = "autostart"
	SettingNotificationCadence = "notificationCadence"
	SettingDefaultBlockMode    = "defaultBlockMode"
	SettingHotkeysEnabled      = "hotkeysEnabled"
)

// Notification cadences for soft block reminders.
const (
	CadenceFrequent = "frequent"
	CadenceNormal   = "normal"
	CadenceMinimal  = "minimal"
	CadenceNone     = "none"
)

type settingSpec struct {
	def      string
	validate func(string) error
}

var settingSpecs = map[string]settingSpec{
	SettingStrictMode:          {def: "false", validate: validateBool},
	SettingAutostart:           {def: "true", validate: validateBool},
	SettingNotificationCadence: {def: CadenceNormal, validate: validateCadence},
	SettingDefaultBlockMode:    {def: string(domain.ModeSoft), validate: validateBlockMode},
	SettingHotkeysEnabled:      {def: "true", validate: validateBool},
}

// reminderIntervals maps a cadence to the gap between soft reminders for
// the same app. Zero disables reminders.
var reminderIntervals = map[string]time.Duration{
	CadenceFrequent: time.Minute,
	CadenceNormal:   5 * time.Minute,
	CadenceMinimal:  15 * time.Minute,
	CadenceNone:     0,
}

// SettingsService manages user preferences layered over defaults.
type SettingsService struct {
	repo   domain.SettingsRepository
	logger *zap.Logger
}

// NewSettingsService creates a settings service.
func NewSettingsService(repo domain.SettingsRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger}
}

// List returns every known setting (stored or default) plus any stored
// unknown keys, sorted by key.
func (s *SettingsService) List() ([]domain.Setting, error) {
	stored, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	merged := make(map[string]string, len(settingSpecs)+len(stored))
	for k, spec := range settingSpecs {
		merged[k] = spec.def
	}
	for _, st := range stored {
		merged[st.Key] = st.Value
	}

	out := make([]domain.Setting, 0, len(merged))
	for k, v := range merged {
		out = append(out, domain.Setting{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get returns a setting, falling back to its default.
func (s *SettingsService) Get(key string) (*domain.Setting, error) {
	st, err := s.repo.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read setting: %w", err)
	}
	if st != nil {
		return st, nil
	}
	if spec, ok := settingSpecs[key]; ok {
		return &domain.Setting{Key: key, Value: spec.def}, nil
	}
	return nil, &domain.NotFoundError{Resource: "setting", ID: key}
}

// Set stores a setting. Known keys are validated and normalized.
func (s *SettingsService) Set(key, value string) (*domain.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, &domain.ValidationError{Field: "key", Reason: "must not be empty"}
	}
	if spec, ok := settingSpecs[key]; ok {
		value = strings.ToLower(strings.TrimSpace(value))
		if err := spec.validate(value); err != nil {
			return nil, err
		}
	}

	st := domain.Setting{Key: key, Value: value}
	if err := s.repo.Set(st); err != nil {
		return nil, fmt.Errorf("failed to store setting: %w", err)
	}
	s.logger.Info("setting updated", zap.String("key", key), zap.String("value", value))
	return &st, nil
}

// DefaultBlockMode returns the mode given to rules added without one.
func (s *SettingsService) DefaultBlockMode() domain.BlockMode {
	mode, err := domain.ParseBlockMode(s.value(SettingDefaultBlockMode))
	if err != nil {
		return domain.ModeSoft
	}
	return mode
}

// StrictMode reports whether quitting is refused while a session is active.
func (s *SettingsService) StrictMode() bool {
	on, err := strconv.ParseBool(s.value(SettingStrictMode))
	return err == nil && on
}

// ReminderInterval returns the gap between soft reminders for one app.
// Zero means reminders are off.
func (s *SettingsService) ReminderInterval() time.Duration {
	if d, ok := reminderIntervals[s.value(SettingNotificationCadence)]; ok {
		return d
	}
	return reminderIntervals[CadenceNormal]
}

func (s *SettingsService) value(key string) string {
	st, err := s.Get(key)
	if err != nil {
		s.logger.Warn("failed to read setting, using default",
			zap.String("key", key),
			zap.Error(err))
		return settingSpecs[key].def
	}
	return st.Value
}

func validateBool(v string) error {
	if _, err := strconv.ParseBool(v); err != nil {
		return &domain.ValidationError{Field: "value", Reason: "expected true or false"}
	}
	return nil
}

func validateCadence(v string) error {
	if _, ok := reminderIntervals[v]; !ok {
		return &domain.ValidationError{Field: "value", Reason: "cadence must be frequent, normal, minimal or none"}
	}
	return nil
}

func validateBlockMode(v string) error {
	_, err := domain.ParseBlockMode(v)
	return err
}
