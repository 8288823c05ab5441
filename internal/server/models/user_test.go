package models

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestUser_ResetTokenPair(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	u := &User{}

	assert.False(t, u.ResetTokenValid(now))

	u.SetResetToken("digest", now.Add(15*time.Minute))
	require.NotNil(t, u.ResetTokenHash)
	require.NotNil(t, u.ResetTokenExpiresAt)
	assert.True(t, u.ResetTokenValid(now))
	assert.False(t, u.ResetTokenValid(now.Add(15*time.Minute)))

	u.ClearResetToken()
	assert.Nil(t, u.ResetTokenHash)
	assert.Nil(t, u.ResetTokenExpiresAt)
}

func TestUser_ToggleRole(t *testing.T) {
	u := &User{Role: common.RoleUser}
	u.ToggleRole()
	assert.True(t, u.IsAdmin())
	u.ToggleRole()
	assert.Equal(t, common.RoleUser, u.Role)
}

func TestPlaylist_AddRejectsDuplicate(t *testing.T) {
	var p Playlist
	p, err := p.Add(PlaylistItem{CourseID: "c1", Poster: "p1"})
	require.NoError(t, err)

	p, err = p.Add(PlaylistItem{CourseID: "c1", Poster: "other"})
	assert.ErrorIs(t, err, common.ErrPlaylistDuplicate)
	assert.Len(t, p, 1)
}

func TestPlaylist_RemoveAbsentIsNoop(t *testing.T) {
	p := Playlist{{CourseID: "c1"}, {CourseID: "c2"}}

	assert.Equal(t, p, p.Remove("c3"))
	assert.Equal(t, Playlist{{CourseID: "c2"}}, p.Remove("c1"))
}
