package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

func TestMatchers(t *testing.T) {
	discord := domain.ProcessInfo{PID: 10, Name: "Discord.exe", Exe: `C:\Users\me\AppData\Local\Discord\app-1.0\Discord.exe`}
	steam := domain.ProcessInfo{PID: 11, Name: "steam_osx", Exe: "/Users/testuser/Applications/Steam.app/Contents/MacOS/steam_osx"}
	terminal := domain.ProcessInfo{PID: 12, Name: "WindowsTerminal.exe", Exe: `C:\Program Files\WindowsApps\Microsoft.WindowsTerminal_8wekyb3d8bbwe\WindowsTerminal.exe`}

	tests := []struct {
		name     string
		matcher  Matcher
		identity string
		proc     domain.ProcessInfo
		want     bool
	}{
		{"exe ignores case and suffix", ExeMatcher{}, "discord", discord, true},
		{"exe with suffix", ExeMatcher{}, "Discord.exe", discord, true},
		{"exe other name", ExeMatcher{}, "slack", discord, false},
		{"package in exe path", PackageMatcher{}, "microsoft.windowsterminal", terminal, true},
		{"package absent", PackageMatcher{}, "com.valvesoftware.steam", discord, false},
		{"shortcut base name", ShortcutMatcher{}, `C:\ProgramData\Start Menu\Discord.lnk`, discord, true},
		{"shortcut other", ShortcutMatcher{}, "/usr/share/applications/slack.desktop", discord, false},
		{"path with home", NewPathMatcherWithHome("/Users/testuser"), "~/Applications/Steam.app", steam, true},
		{"path exact", NewPathMatcherWithHome("/Users/testuser"), "/Users/testuser/Applications/Steam.app/Contents/MacOS/steam_osx", steam, true},
		{"path sibling prefix", NewPathMatcherWithHome("/Users/testuser"), "/Users/testuser/Applications/Ste", steam, false},
		{"pattern on name", NewPatternMatcher(), "^steam", steam, true},
		{"pattern on exe", NewPatternMatcher(), `windowsapps\\microsoft`, terminal, true},
		{"pattern miss", NewPatternMatcher(), "^dota", steam, false},
		{"pattern invalid never matches", NewPatternMatcher(), "(", steam, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.matcher.Match(tt.identity, tt.proc))
		})
	}
}

func TestRegistry_ValidateRule(t *testing.T) {
	r := NewRegistryWithMatchers(ExeMatcher{}, NewPathMatcherWithHome("/home/me"), NewPatternMatcher())

	tests := []struct {
		name    string
		rule    domain.BlockRule
		wantErr bool
	}{
		{"exe ok", domain.BlockRule{AppIdentity: "discord", MatchKind: domain.MatchExe}, false},
		{"exe with slash", domain.BlockRule{AppIdentity: "bin/discord", MatchKind: domain.MatchExe}, true},
		{"blank identity", domain.BlockRule{AppIdentity: "  ", MatchKind: domain.MatchExe}, true},
		{"path relative", domain.BlockRule{AppIdentity: "games/steam", MatchKind: domain.MatchPath}, true},
		{"path home", domain.BlockRule{AppIdentity: "~/games/steam", MatchKind: domain.MatchPath}, false},
		{"pattern bad", domain.BlockRule{AppIdentity: "[a-", MatchKind: domain.MatchPattern}, true},
		{"pattern ok", domain.BlockRule{AppIdentity: "^steam", MatchKind: domain.MatchPattern}, false},
		{"pattern matches everything", domain.BlockRule{AppIdentity: ".*", MatchKind: domain.MatchPattern}, true},
		{"pattern with empty branch", domain.BlockRule{AppIdentity: "steam|", MatchKind: domain.MatchPattern}, true},
		{"no matcher registered", domain.BlockRule{AppIdentity: "x", MatchKind: domain.MatchPackage}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateRule(tt.rule)
			if tt.wantErr {
				assert.True(t, domain.IsValidation(err), "expected ValidationError, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_MatchEntry(t *testing.T) {
	r := NewRegistryWithMatchers(ExeMatcher{}, NewPatternMatcher())
	procs := []domain.ProcessInfo{
		{PID: 1, Name: "Discord"},
		{PID: 2, Name: "DiscordPTB"},
		{PID: 3, Name: "chrome"},
	}

	exact := r.MatchEntry(domain.EffectiveBlockEntry{AppIdentity: "discord", MatchKinds: []domain.MatchKind{domain.MatchExe}}, procs)
	assert.Len(t, exact, 1)

	loose := r.MatchEntry(domain.EffectiveBlockEntry{AppIdentity: "discord", MatchKinds: []domain.MatchKind{domain.MatchExe, domain.MatchPattern}}, procs)
	assert.Len(t, loose, 2)
}
