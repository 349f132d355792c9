package library

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBookCodecRoundTrip(t *testing.T) {
	c := BookCodec{}
	b := Book{Title: "Dune", Author: "Frank Herbert", ISBN: "111", Status: StatusIssued}

	line := c.Encode(b)
	assert.Equal(t, "Dune|Frank Herbert|111|Issued", line)

	got, err := c.Decode(line)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestTransactionCodec(t *testing.T) {
	c := TransactionCodec{}

	t.Run("open loan has empty return date", func(t *testing.T) {
		tx := Transaction{
			Username:  "alice",
			ISBN:      "111",
			IssueDate: date(2024, time.January, 1),
			DueDate:   date(2024, time.January, 8),
		}
		line := c.Encode(tx)
		assert.Equal(t, "alice|111|01-01-2024|08-01-2024||0", line)

		got, err := c.Decode(line)
		require.NoError(t, err)
		assert.Nil(t, got.ReturnDate)
		assert.True(t, got.Open())
		assert.Equal(t, tx, got)
	})

	t.Run("closed loan keeps return date and fine", func(t *testing.T) {
		ret := date(2024, time.January, 11)
		tx := Transaction{
			Username:   "alice",
			ISBN:       "111",
			IssueDate:  date(2024, time.January, 1),
			DueDate:    date(2024, time.January, 8),
			ReturnDate: &ret,
			Fine:       30,
		}
		got, err := c.Decode(c.Encode(tx))
		require.NoError(t, err)
		require.NotNil(t, got.ReturnDate)
		assert.True(t, ret.Equal(*got.ReturnDate))
		assert.Equal(t, int64(30), got.Fine)
	})
}

func TestUserCodecRoundTrip(t *testing.T) {
	h, err := NewHasher(DigestSHA256)
	require.NoError(t, err)
	cred, err := h.Derive("secret")
	require.NoError(t, err)

	u := User{Username: "bob", Credential: cred, Role: RoleAdmin}
	c := UserCodec{}
	got, err := c.Decode(c.Encode(u))
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.True(t, h.Verify("secret", got.Credential))
}

func TestUserCodecAcceptsLegacyRole(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	got, err := UserCodec{}.Decode("carol|" + hash + "|c2FsdA==|User")
	require.NoError(t, err)
	assert.Equal(t, RoleMember, got.Role)
}

func TestDecodeMalformed(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	cases := []struct {
		name string
		dec  func(string) error
		line string
	}{
		{"book too few fields", decodeErr[Book](BookCodec{}), "Dune|Herbert|111"},
		{"book too many fields", decodeErr[Book](BookCodec{}), "Dune|Herbert|111|Available|x"},
		{"book unknown status", decodeErr[Book](BookCodec{}), "Dune|Herbert|111|Lost"},
		{"book empty isbn", decodeErr[Book](BookCodec{}), "Dune|Herbert||Available"},
		{"user short hash", decodeErr[User](UserCodec{}), "bob|abcd|c2FsdA==|Admin"},
		{"user uppercase hash", decodeErr[User](UserCodec{}), "bob|" + strings.ToUpper(hash) + "|c2FsdA==|Admin"},
		{"user bad salt", decodeErr[User](UserCodec{}), "bob|" + hash + "|***|Admin"},
		{"user unknown role", decodeErr[User](UserCodec{}), "bob|" + hash + "|c2FsdA==|Root"},
		{"tx bad date", decodeErr[Transaction](TransactionCodec{}), "alice|111|2024-01-01|08-01-2024||0"},
		{"tx bad return date", decodeErr[Transaction](TransactionCodec{}), "alice|111|01-01-2024|08-01-2024|soon|0"},
		{"tx non-numeric fine", decodeErr[Transaction](TransactionCodec{}), "alice|111|01-01-2024|08-01-2024||ten"},
		{"tx negative fine", decodeErr[Transaction](TransactionCodec{}), "alice|111|01-01-2024|08-01-2024||-5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.dec(tc.line), ErrMalformedRecord)
		})
	}
}

func decodeErr[T any](c RecordCodec[T]) func(string) error {
	return func(line string) error {
		_, err := c.Decode(line)
		return err
	}
}
