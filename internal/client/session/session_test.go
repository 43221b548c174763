package session

import (
	"testing"
	"time"

	"github.com/keepsake-app/keepsake/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-secret")

func TestGenerateAndParse(t *testing.T) {
	in := Session{UserID: "bob", PartnerID: "alice", RelationshipID: "rel1"}

	token, err := GenerateToken(in, testKey, time.Hour)
	require.NoError(t, err)

	out, err := Parse(token, testKey)
	require.NoError(t, err)
	assert.Equal(t, &in, out)
}

func TestParse_WrongKey(t *testing.T) {
	token, err := GenerateToken(Session{UserID: "bob"}, testKey, time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, []byte("other-secret"))
	require.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	token, err := GenerateToken(Session{UserID: "bob"}, testKey, -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token, testKey)
	require.Error(t, err)
}

func TestParse_MissingUserID(t *testing.T) {
	token, err := GenerateToken(Session{}, testKey, time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, testKey)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse("not-a-token", testKey)
	require.Error(t, err)
}
