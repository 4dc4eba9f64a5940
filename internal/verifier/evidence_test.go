package verifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const digestFixture = `<!DOCTYPE html>
<html>
<head><title>Nusantara Timeline</title></head>
<body>
<h1>Nusantara Timeline</h1>
<h2>Prehistoric Java</h2>
<ul><li>The Sangiran Flourishing</li></ul>
<div class="absolute z-50"><img src="/images/sangiran.jpg" alt="Sangiran"></div>
</body>
</html>`

func TestDigestPage(t *testing.T) {
	digest, err := DigestPage("http://localhost:3000/vast-timeline", digestFixture)
	require.NoError(t, err)

	assert.Contains(t, digest, "# Nusantara Timeline")
	assert.Contains(t, digest, "URL: http://localhost:3000/vast-timeline")
	assert.Contains(t, digest, "- Prehistoric Java")
	assert.Contains(t, digest, "- /images/sangiran.jpg")
	assert.Contains(t, digest, "The Sangiran Flourishing")
}

func TestDigestPageEmptyDocument(t *testing.T) {
	digest, err := DigestPage("http://localhost:3000/vast-timeline", "<html><body></body></html>")
	require.NoError(t, err)
	assert.Contains(t, digest, "URL: http://localhost:3000/vast-timeline")
}

func TestWriteArtifactCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verification", "shot.png")

	require.NoError(t, writeArtifact(path, []byte("png-bytes")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestWriteArtifactOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")

	require.NoError(t, writeArtifact(path, []byte("first run")))
	require.NoError(t, writeArtifact(path, []byte("second run")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second run", string(data))
}
