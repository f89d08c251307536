package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

const sampleSeed = `
users:
  - username: ada
    password: s3cret-pass
    role: student
questions:
  - id: q1
    question_text: Which chamber pumps blood into the aorta?
    question_media:
      - type: image
        path: img/heart.png
    options:
      - text: Left ventricle
      - text: Right atrium
    correct_answer: 0
    category: Organ Systems
    subjects:
      - name: Cardiology
        topics: [Anatomy]
    approved: true
`

func TestReadSeedAndUploadMedia(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "img", "heart.png"), []byte("png"), 0o644))
	seedPath := filepath.Join(dir, "bank.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(sampleSeed), 0o644))

	sf, err := readSeed(seedPath)
	require.NoError(t, err)
	require.Len(t, sf.Users, 1)
	assert.Equal(t, "ada", sf.Users[0].Username)
	assert.Equal(t, "s3cret-pass", sf.Users[0].Password)
	require.Len(t, sf.Questions, 1)
	q := sf.Questions[0]
	assert.Equal(t, quiz.CategoryOrganSystems, q.Category)
	require.NoError(t, q.Validate())

	blobs, err := storage.NewFSStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	require.NoError(t, uploadMedia(blobs, sf.MediaDir, &q))
	assert.Equal(t, "questions/q1/heart.png", q.Media[0].Path)
	assert.Equal(t, "heart.png", q.Media[0].Filename)

	rc, err := blobs.Get(q.Media[0].Path)
	require.NoError(t, err)
	rc.Close()
}
