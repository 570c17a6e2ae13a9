package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// MinSearchLen is the shortest query the app search answers.
const MinSearchLen = 2

// AppCatalog discovers applications from the running process list.
type AppCatalog struct {
	processManager domain.ProcessManager
}

// NewAppCatalog creates an app catalog.
func NewAppCatalog(pm domain.ProcessManager) *AppCatalog {
	return &AppCatalog{processManager: pm}
}

// List returns one summary per distinct process name, sorted by name.
func (c *AppCatalog) List() ([]domain.AppSummary, error) {
	procs, err := c.processManager.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	seen := make(map[string]bool, len(procs))
	apps := make([]domain.AppSummary, 0, len(procs))
	for _, p := range procs {
		if p.Name == "" {
			continue
		}
		id := strings.ToLower(strings.TrimSuffix(p.Name, ".exe"))
		if seen[id] {
			continue
		}
		seen[id] = true
		apps = append(apps, domain.AppSummary{
			AppID:       id,
			DisplayName: strings.TrimSuffix(p.Name, ".exe"),
			ExeOrTarget: p.Exe,
		})
	}
	sort.Slice(apps, func(i, j int) bool {
		return strings.ToLower(apps[i].DisplayName) < strings.ToLower(apps[j].DisplayName)
	})
	return apps, nil
}

// Search returns apps whose name or id contains query. Queries shorter
// than MinSearchLen return nothing.
func (c *AppCatalog) Search(query string) ([]domain.AppSummary, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) < MinSearchLen {
		return []domain.AppSummary{}, nil
	}

	apps, err := c.List()
	if err != nil {
		return nil, err
	}
	out := make([]domain.AppSummary, 0)
	for _, a := range apps {
		if strings.Contains(a.AppID, q) || strings.Contains(strings.ToLower(a.DisplayName), q) {
			out = append(out, a)
		}
	}
	return out, nil
}
