package download

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jgivc/romarchive/internal/config"
	"github.com/jgivc/romarchive/internal/entity"
)

// scriptPrologue resolves the -O argument the same way the real binary
// would, so the fake can write where the manager expects the partial file.
const scriptPrologue = `#!/bin/sh
out=""
prev=""
for a in "$@"; do
	if [ "$prev" = "-O" ]; then out="$a"; fi
	prev="$a"
done
`

func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fakewget.sh")
	require.NoError(t, os.WriteFile(path, []byte(scriptPrologue+body), 0o755))

	return path
}

func newTestManager(t *testing.T, script string, fileWorkers int) (*Manager, string) {
	t.Helper()

	outDir := filepath.Join(t.TempDir(), "downloads")
	cfg := &config.DownloadConfig{
		OutputDir:   outDir,
		FileWorkers: fileWorkers,
		WgetBinary:  script,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	return New(cfg, log), outDir
}

type progressCall struct {
	downloaded, total int64
}

type progressLog struct {
	mu    sync.Mutex
	calls map[int][]progressCall
}

func newProgressLog() *progressLog {
	return &progressLog{calls: make(map[int][]progressCall)}
}

func (p *progressLog) record(jobIndex int, _ string, downloaded, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[jobIndex] = append(p.calls[jobIndex], progressCall{downloaded, total})
}

func (p *progressLog) forJob(jobIndex int) []progressCall {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls[jobIndex]
}

func TestEnqueue(t *testing.T) {
	m, _ := newTestManager(t, "wget", 2)

	require.Equal(t, 1, m.Enqueue("https://archive.test/files/a.zip"))
	require.Equal(t, 2, m.Enqueue("https://archive.test/files/b.zip"))

	jobs := m.Jobs()
	require.Len(t, jobs, 2)
	require.Equal(t, 0, jobs[0].Index)
	require.Equal(t, 1, jobs[1].Index)
	require.Equal(t, entity.JobStateQueued, jobs[0].State)
	require.NotEmpty(t, jobs[0].ID)
	require.NotEqual(t, jobs[0].ID, jobs[1].ID)
}

func TestDownloadSuccess(t *testing.T) {
	script := writeScript(t, `echo "Length: 1000" >&2
echo " 50% ........" >&2
printf 'payload' > "$out"
echo "100% ........" >&2
exit 0
`)
	m, outDir := newTestManager(t, script, 2)

	m.Enqueue("https://archive.test/files/Game%20(USA).zip")
	m.Enqueue("https://archive.test/files/Other.zip")

	progress := newProgressLog()
	require.NoError(t, m.Start(progress.record))

	for _, job := range m.Jobs() {
		require.Equal(t, entity.JobStateDone, job.State)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "Game (USA).zip"))
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))

	// No partial files left behind.
	_, err = os.Stat(filepath.Join(outDir, "Game (USA).zip"+incompleteSuffix))
	require.True(t, os.IsNotExist(err))

	calls := progress.forJob(0)
	require.NotEmpty(t, calls)
	require.Contains(t, calls, progressCall{500, 1000})
	require.Equal(t, progressCall{1000, 1000}, calls[len(calls)-1])
}

func TestDownloadFailure(t *testing.T) {
	script := writeScript(t, `printf 'junk' > "$out"
exit 1
`)
	m, outDir := newTestManager(t, script, 1)

	m.Enqueue("https://archive.test/files/Broken.zip")

	// A failing transfer is logged, not surfaced from the pool.
	require.NoError(t, m.Start(nil))

	jobs := m.Jobs()
	require.Equal(t, entity.JobStateFailed, jobs[0].State)

	// The partial file is cleaned up and nothing was finalized.
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCancel(t *testing.T) {
	script := writeScript(t, `printf 'partial' > "$out"
echo "Length: 1000" >&2
echo " 10% ........" >&2
sleep 60
exit 0
`)
	m, outDir := newTestManager(t, script, 1)

	m.Enqueue("https://archive.test/files/First.zip")
	m.Enqueue("https://archive.test/files/Second.zip")

	var once sync.Once
	require.NoError(t, m.Start(func(int, string, int64, int64) {
		once.Do(m.Cancel)
	}))

	for _, job := range m.Jobs() {
		require.Equal(t, entity.JobStateCancelled, job.State)
		require.True(t, job.State.IsFinished())
	}

	// Neither the partial of the killed transfer nor any final file remains.
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestStartWithoutJobs(t *testing.T) {
	m, _ := newTestManager(t, "wget", 4)

	require.NoError(t, m.Start(nil))
	require.Empty(t, m.Jobs())
}

func TestOutputName(t *testing.T) {
	testCases := []struct {
		rawURL   string
		expected string
	}{
		{"https://archive.test/files/No-Intro/Game%20(USA).zip", "Game (USA).zip"},
		{"https://archive.test/files/plain.zip", "plain.zip"},
		{"relative/path/name.chd", "name.chd"},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.expected, outputName(tc.rawURL))
	}
}
