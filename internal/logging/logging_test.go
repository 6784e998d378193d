package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenLogFileEmptyPath(t *testing.T) {
	file, err := OpenLogFile("")
	require.NoError(t, err)
	assert.Nil(t, file)
}

func TestAttachFileLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nexo.log")
	file, err := OpenLogFile(path)
	require.NoError(t, err)
	defer file.Close()

	log := AttachFileLogger(zap.NewNop(), file, false)
	ForUser(log, 42, 7).Info("hola", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hola"`)
	assert.Contains(t, string(data), `"user_id":42`)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "hola", Preview("hola", 10))
	assert.Equal(t, "ho…", Preview("hola", 2))
	assert.Equal(t, "ñá…", Preview("ñáéí", 2))
}
