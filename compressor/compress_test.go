package compressor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentdiag/rollogr/compressor"
	"github.com/stretchr/testify/assert"
)

// pretty simple test. more can be done by mocking Filer.
func TestCompress(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	r, err := compressor.Compress("/does/not/exist/file")
	assert.NotNil(err)
	assert.Contains(err.Error(), "stating old file:")
	assert.ErrorIs(err, r.Error)

	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "testfile.log"))
	assert.Nilf(err, "error creating test file: %v", err)
	_, err = f.Write(make([]byte, 300000))
	assert.Nilf(err, "error writing test file: %v", err)
	assert.Nil(f.Close())

	r, err = compressor.Compress(f.Name())
	assert.Nil(err)
	assert.Nil(r.Error)
	assert.Equal(f.Name()+compressor.SuffixGZ, r.NewFile)

	_, err = os.Stat(f.Name())
	assert.True(os.IsNotExist(err), "the source file must be deleted after compression")
	info, err := os.Stat(r.NewFile)
	assert.Nil(err)
	assert.Less(info.Size(), r.OldSize, "300kB of zeros must compress smaller")
}
