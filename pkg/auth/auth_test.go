package auth

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ringkeep/ringnode/pkg/wire"
)

func longStringBody(s string) []byte {
	var buf bytes.Buffer
	wire.WriteLongString(&buf, s)
	return buf.Bytes()
}

func writeCreds(t *testing.T, creds string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(creds), 0o600))
	return path
}

func TestValidateMatchingCredential(t *testing.T) {
	path := writeCreds(t, `[{"user":"ana","pass":"secret"}]`)
	a := New(path)

	ok, err := a.Validate("ana", "secret")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestValidateWrongPassword(t *testing.T) {
	path := writeCreds(t, `[{"user":"ana","pass":"secret"}]`)
	a := New(path)

	ok, err := a.Validate("ana", "wrong")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidateReloadsFileEachCall(t *testing.T) {
	path := writeCreds(t, `[{"user":"ana","pass":"secret"}]`)
	a := New(path)

	ok, err := a.Validate("bob", "hunter2")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte(`[{"user":"bob","pass":"hunter2"}]`), 0o600))

	ok, err = a.Validate("bob", "hunter2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDecodePlainResponse(t *testing.T) {
	user, pass, err := DecodePlainResponse(longStringBody("ana:secret"))
	require.NoError(t, err)
	require.Equal(t, "ana", user)
	require.Equal(t, "secret", pass)
}

func TestDecodePlainResponseNoSeparator(t *testing.T) {
	_, _, err := DecodePlainResponse(longStringBody("not-colon-separated"))
	require.Error(t, err)
}

func TestDecodePlainResponseTruncatedBody(t *testing.T) {
	_, _, err := DecodePlainResponse([]byte{0, 0, 0, 10, 'a', 'b'})
	require.Error(t, err)
}
