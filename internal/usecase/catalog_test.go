package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

func TestAppCatalog_List(t *testing.T) {
	pm := &mockProcessManager{procs: []domain.ProcessInfo{
		{PID: 1, Name: "zoom", Exe: "/opt/zoom/zoom"},
		{PID: 2, Name: "Discord.exe", Exe: `C:\Discord\Discord.exe`},
		{PID: 3, Name: "Discord.exe"},
		{PID: 4, Name: ""},
		{PID: 5, Name: "chrome"},
	}}
	c := NewAppCatalog(pm)

	apps, err := c.List()
	require.NoError(t, err)

	require.Len(t, apps, 3)
	assert.Equal(t, "chrome", apps[0].AppID)
	assert.Equal(t, "discord", apps[1].AppID)
	assert.Equal(t, "Discord", apps[1].DisplayName)
	assert.Equal(t, `C:\Discord\Discord.exe`, apps[1].ExeOrTarget)
	assert.Equal(t, "zoom", apps[2].AppID)
}

func TestAppCatalog_Search(t *testing.T) {
	pm := &mockProcessManager{procs: []domain.ProcessInfo{
		{PID: 1, Name: "Discord"},
		{PID: 2, Name: "chrome"},
		{PID: 3, Name: "discord-ptb"},
	}}
	c := NewAppCatalog(pm)

	tests := []struct {
		query string
		want  int
	}{
		{"", 0},
		{"d", 0},
		{"di", 2},
		{"DISCORD", 2},
		{"chr", 1},
		{"slack", 0},
	}
	for _, tt := range tests {
		got, err := c.Search(tt.query)
		require.NoError(t, err)
		assert.Len(t, got, tt.want, tt.query)
	}
}

func TestAppCatalog_ListError(t *testing.T) {
	c := NewAppCatalog(&mockProcessManager{listErr: errBoom})
	_, err := c.List()
	assert.ErrorIs(t, err, errBoom)
}
