package secret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New([]byte(testKey))
	require.NoError(t, err)
	return s
}

func TestNew_RejectsWrongKeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		_, err := New(make([]byte, n))
		assert.ErrorIs(t, err, ErrInvalidKeyLength, "key length %d", n)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	for _, plaintext := range []string{"", "s3cr3t-32-byte-key-padding!!", "ünïcødé ☃", strings.Repeat("x", 4096)} {
		record, err := s.Encrypt(plaintext)
		require.NoError(t, err)

		got, err := s.Decrypt(record)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncrypt_RecordFormat(t *testing.T) {
	s := newTestStore(t)

	record, err := s.Encrypt("hello")
	require.NoError(t, err)

	parts := strings.Split(record, ":")
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], ivSize*2)
	assert.Len(t, parts[1], tagSize*2)
	assert.Len(t, parts[2], len("hello")*2)
	assert.Equal(t, strings.ToLower(record), record)
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Encrypt("same secret")
	require.NoError(t, err)
	b, err := s.Encrypt("same secret")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, strings.Split(a, ":")[0], strings.Split(b, ":")[0], "IV must differ per call")
}

func TestDecrypt_DetectsTampering(t *testing.T) {
	s := newTestStore(t)

	record, err := s.Encrypt("do not flip me")
	require.NoError(t, err)

	// Flip one hex digit at every position that is not a separator.
	for i := 0; i < len(record); i++ {
		if record[i] == ':' {
			continue
		}
		b := []byte(record)
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}

		_, err := s.Decrypt(string(b))
		assert.ErrorIs(t, err, ErrDecrypt, "position %d", i)
	}
}

func TestDecrypt_MalformedRecords(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name   string
		record string
	}{
		{"empty", ""},
		{"two parts", "aa:bb"},
		{"four parts", "aa:bb:cc:dd"},
		{"bad hex iv", "zz:" + strings.Repeat("00", tagSize) + ":00"},
		{"short iv", "00:" + strings.Repeat("00", tagSize) + ":00"},
		{"short tag", strings.Repeat("00", ivSize) + ":00:00"},
		{"bad hex ciphertext", strings.Repeat("00", ivSize) + ":" + strings.Repeat("00", tagSize) + ":xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Decrypt(tt.record)
			assert.ErrorIs(t, err, ErrDecrypt)
		})
	}
}

func TestDecrypt_WrongMasterKey(t *testing.T) {
	s := newTestStore(t)
	record, err := s.Encrypt("rotated")
	require.NoError(t, err)

	other, err := New([]byte("fedcba9876543210fedcba9876543210"))
	require.NoError(t, err)

	_, err = other.Decrypt(record)
	assert.ErrorIs(t, err, ErrDecrypt)
}
