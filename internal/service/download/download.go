// Package download is the queue-backed download engine. Each worker drives
// one external wget process per file, parses its progress stream and
// reports byte-level progress; transfers land under a temporary
// ".incomplete" name and are renamed only on clean completion.
package download

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/jgivc/romarchive/internal/common"
	"github.com/jgivc/romarchive/internal/config"
	"github.com/jgivc/romarchive/internal/entity"
)

const incompleteSuffix = ".incomplete"

var (
	totalLengthRE = regexp.MustCompile(`Length: (\d+)`)
	percentRE     = regexp.MustCompile(`(\d+)%`)
)

// ProgressFunc receives byte-level progress per job. It may be invoked
// concurrently from multiple workers; serializing UI updates is the
// consumer's concern.
type ProgressFunc func(jobIndex int, url string, downloaded, total int64)

type Manager struct {
	mu    sync.Mutex
	queue []*entity.DownloadJob
	procs map[string]*exec.Cmd

	running   atomic.Bool
	cancelled atomic.Bool

	fs  afero.Fs
	cfg *config.DownloadConfig
	log *slog.Logger
}

func New(cfg *config.DownloadConfig, log *slog.Logger) *Manager {
	return NewWithFS(afero.NewOsFs(), cfg, log)
}

func NewWithFS(fs afero.Fs, cfg *config.DownloadConfig, log *slog.Logger) *Manager {
	return &Manager{
		procs: make(map[string]*exec.Cmd),
		fs:    fs,
		cfg:   cfg,
		log:   log.With(slog.String("item", "DownloadManager")),
	}
}

// Enqueue appends a job for the URL and returns the queue depth.
func (m *Manager) Enqueue(rawURL string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = append(m.queue, &entity.DownloadJob{
		ID:    uuid.NewString(),
		Index: len(m.queue),
		URL:   rawURL,
		State: entity.JobStateQueued,
	})

	return len(m.queue)
}

// Jobs returns a snapshot of every job in the session.
func (m *Manager) Jobs() []entity.DownloadJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]entity.DownloadJob, 0, len(m.queue))
	for _, job := range m.queue {
		jobs = append(jobs, *job)
	}

	return jobs
}

// Start runs the worker pool until the queue drains or the session is
// cancelled, then returns. Calling Start while a session is already
// running is an error; a failed job never crashes the pool.
func (m *Manager) Start(progress ProgressFunc) error {
	if !m.running.CompareAndSwap(false, true) {
		return common.ErrDownloadAlreadyRunning
	}
	defer m.running.Store(false)

	if err := m.fs.MkdirAll(m.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}

	workers := m.cfg.FileWorkers
	if pending := m.pending(); workers > pending {
		workers = pending
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for n := 0; n < workers; n++ {
		go m.worker(n, progress, &wg)
	}
	wg.Wait()

	return nil
}

// Cancel stops the session: in-flight processes are terminated, their
// partial files removed, and remaining queued jobs are abandoned.
// Cancellation is session-wide; there is no per-file cancel.
func (m *Manager) Cancel() {
	m.cancelled.Store(true)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cmd := range m.procs {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
	for _, job := range m.queue {
		if job.State == entity.JobStateQueued {
			job.State = entity.JobStateCancelled
		}
	}
}

func (m *Manager) worker(n int, progress ProgressFunc, wg *sync.WaitGroup) {
	defer wg.Done()

	log := m.log.With(slog.Int("worker_id", n))

	for !m.cancelled.Load() {
		job := m.nextJob()
		if job == nil {
			return
		}

		if err := m.downloadFile(job, progress); err != nil {
			log.Error("Download failed", slog.String("url", job.URL), slog.Any("error", err))
		}
	}
}

func (m *Manager) nextJob() *entity.DownloadJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.queue {
		if job.State == entity.JobStateQueued {
			job.State = entity.JobStateActive

			return job
		}
	}

	return nil
}

// downloadFile runs one wget process for the job. wget mirrors with
// no-parent/continue semantics, robots off and index files excluded, and
// writes into <name>.incomplete; the file is renamed only on clean exit.
func (m *Manager) downloadFile(job *entity.DownloadJob, progress ProgressFunc) error {
	finalPath := filepath.Join(m.cfg.OutputDir, outputName(job.URL))
	tmpPath := finalPath + incompleteSuffix

	cmd := exec.Command(m.cfg.WgetBinary,
		"-m", "-np", "-c",
		"-e", "robots=off",
		"-R", "index.html*",
		"--progress=dot:mega",
		"-O", tmpPath,
		job.URL,
	)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		m.finish(job, entity.JobStateFailed, tmpPath)

		return fmt.Errorf("cannot open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		m.finish(job, entity.JobStateFailed, tmpPath)

		return fmt.Errorf("cannot start transfer process: %w", err)
	}
	m.track(job.ID, cmd)
	defer m.untrack(job.ID)

	var totalBytes, downloadedBytes int64

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		if m.cancelled.Load() {
			_ = cmd.Process.Kill()

			break
		}

		line := scanner.Text()
		if match := totalLengthRE.FindStringSubmatch(line); match != nil {
			totalBytes, _ = strconv.ParseInt(match[1], 10, 64)
		}
		if match := percentRE.FindStringSubmatch(line); match != nil && totalBytes > 0 {
			percent, _ := strconv.ParseInt(match[1], 10, 64)
			downloadedBytes = percent * totalBytes / 100
			if progress != nil {
				progress(job.Index, job.URL, downloadedBytes, totalBytes)
			}
		}
	}

	err = cmd.Wait()

	switch {
	case m.cancelled.Load():
		m.finish(job, entity.JobStateCancelled, tmpPath)

		return nil
	case err != nil:
		m.finish(job, entity.JobStateFailed, tmpPath)

		return fmt.Errorf("transfer process failed: %w", err)
	}

	if err := m.fs.Rename(tmpPath, finalPath); err != nil {
		m.finish(job, entity.JobStateFailed, tmpPath)

		return fmt.Errorf("cannot finalize download: %w", err)
	}

	m.setState(job, entity.JobStateDone)
	if totalBytes == 0 {
		totalBytes = downloadedBytes
	}
	if progress != nil {
		progress(job.Index, job.URL, totalBytes, totalBytes)
	}

	return nil
}

// finish marks the job and removes its partial file, if any.
func (m *Manager) finish(job *entity.DownloadJob, state entity.JobState, tmpPath string) {
	m.setState(job, state)

	if err := m.fs.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		m.log.Debug("Cannot remove partial file", slog.String("path", tmpPath), slog.Any("error", err))
	}
}

func (m *Manager) setState(job *entity.DownloadJob, state entity.JobState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.State = state
}

func (m *Manager) track(id string, cmd *exec.Cmd) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.procs[id] = cmd
}

func (m *Manager) untrack(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.procs, id)
}

func (m *Manager) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, job := range m.queue {
		if job.State == entity.JobStateQueued {
			n++
		}
	}

	return n
}

// outputName derives the local filename from the URL's final path segment.
func outputName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}

	name, err := url.PathUnescape(u.Path)
	if err != nil {
		name = u.Path
	}

	return path.Base(name)
}
