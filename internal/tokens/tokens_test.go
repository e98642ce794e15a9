package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chatter/chatter-backend/internal/database"
	"github.com/chatter/chatter-backend/internal/models"
)

func testUser() *models.User {
	return &models.User{AbstractDocument: database.AbstractDocument{ID: primitive.NewObjectID()}, Email: "t@example.com"}
}

func TestGenerateAndVerify(t *testing.T) {
	u := testUser()
	tok, err := GenerateAccessToken("s3cret", u, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	parsed, err := NewVerifier("s3cret").Verify(context.Background(), tok)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, parsed.Claims(&claims))
	require.Equal(t, u.ID.Hex(), claims["sub"])
	require.Equal(t, "t@example.com", claims["email"])
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, err := GenerateAccessToken("s3cret", testUser(), time.Minute)
	require.NoError(t, err)
	_, err = NewVerifier("other").Verify(context.Background(), tok)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	tok, err := GenerateAccessToken("s3cret", testUser(), -time.Minute)
	require.NoError(t, err)
	_, err = NewVerifier("s3cret").Verify(context.Background(), tok)
	require.Error(t, err)
}

func TestGenerateRequiresSecret(t *testing.T) {
	_, err := GenerateAccessToken("", testUser(), time.Minute)
	require.Error(t, err)
}
