// Package spool watches a drop directory for audio files and writes a
// transcript next to each one. Dropping voice.wav into the spool
// eventually produces voice.txt; files that already have a transcript
// are left alone.
package spool

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/snarg/voicebox/internal/transcribe"
)

// audioExts are the spool file extensions worth transcribing. Anything
// else in the directory is ignored.
var audioExts = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
}

// Pipeline is the slice of the transcription service the watcher needs.
type Pipeline interface {
	AcquireAndNormalize(ctx context.Context, src any) (*transcribe.ClipRef, error)
	Transcribe(ctx context.Context, clip *transcribe.ClipRef, languageHint string) (*transcribe.Result, error)
}

// Watcher monitors a spool directory for new audio files and transcribes
// them in the background. It is an alternative to the HTTP endpoints for
// batch workflows: point it at a folder and collect the .txt files.
type Watcher struct {
	pipeline Pipeline
	dir      string
	language string
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc

	// Debounce: coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	filesProcessed atomic.Int64
	filesFailed    atomic.Int64
	filesSkipped   atomic.Int64
}

// New creates a watcher for dir. language is the hint applied to every
// spooled file; an empty string means autodetect.
func New(pipeline Pipeline, dir, language string, log zerolog.Logger) *Watcher {
	if language == "" {
		language = "auto"
	}
	return &Watcher{
		pipeline:       pipeline,
		dir:            dir,
		language:       language,
		log:            log.With().Str("component", "spool").Logger(),
		debounceTimers: make(map[string]*time.Timer),
	}
}

// Start initializes the fsnotify watcher and begins watching. Existing
// audio files without a transcript are processed in a background sweep.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}
	w.watcher = fsw
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.log.Info().Str("dir", w.dir).Str("language", w.language).Msg("spool watcher started")

	go w.watchLoop()
	go w.sweep()

	return nil
}

// Stop closes the watcher and cancels in-flight transcriptions.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.log.Info().
		Int64("processed", w.filesProcessed.Load()).
		Int64("failed", w.filesFailed.Load()).
		Int64("skipped", w.filesSkipped.Load()).
		Msg("spool watcher stopped")
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !audioExts[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			w.scheduleProcess(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleProcess debounces file processing by 500ms so the file is
// fully written before it is read. A Create followed by Writes resets
// the timer each time.
func (w *Watcher) scheduleProcess(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(500 * time.Millisecond)
		return
	}

	w.debounceTimers[path] = time.AfterFunc(500*time.Millisecond, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		w.processFile(path)
	})
}

// sweep transcribes audio files that were already in the spool before
// the watcher started.
func (w *Watcher) sweep() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn().Err(err).Msg("spool sweep failed")
		return
	}
	for _, e := range entries {
		if w.ctx.Err() != nil {
			return
		}
		if e.IsDir() || !audioExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		w.processFile(filepath.Join(w.dir, e.Name()))
	}
}

// transcriptPath maps voice.wav to voice.txt in the same directory.
func transcriptPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".txt"
}

func (w *Watcher) processFile(path string) {
	txtPath := transcriptPath(path)
	if _, err := os.Stat(txtPath); err == nil {
		w.filesSkipped.Add(1)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("failed to read spooled file")
		w.filesFailed.Add(1)
		return
	}

	clip, err := w.pipeline.AcquireAndNormalize(w.ctx, transcribe.UploadSource{
		Data:     data,
		Filename: filepath.Base(path),
	})
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("failed to normalize spooled file")
		w.filesFailed.Add(1)
		return
	}
	defer clip.Release()

	result, err := w.pipeline.Transcribe(w.ctx, clip, w.language)
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("failed to transcribe spooled file")
		w.filesFailed.Add(1)
		return
	}

	if err := writeTranscript(txtPath, result.Text); err != nil {
		w.log.Warn().Err(err).Str("path", txtPath).Msg("failed to write transcript")
		w.filesFailed.Add(1)
		return
	}

	w.filesProcessed.Add(1)
	w.log.Info().
		Str("path", path).
		Str("strategy", result.Strategy).
		Str("outcome", string(result.Outcome)).
		Msg("spooled file transcribed")
}

// writeTranscript writes atomically via temp file and rename so a
// partially written transcript never blocks reprocessing.
func writeTranscript(path, text string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text+"\n"), fs.FileMode(0o644)); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
