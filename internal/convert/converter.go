// Package convert derives a compact audio asset from a video asset using
// ffmpeg. It performs no network I/O; progress is reported through a
// caller-supplied callback.
package convert

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"video-scribe-go/internal/types"
)

// Target encoding for transcription uploads: low-bitrate mono-ish mp3 keeps
// files comfortably under the server's size limit.
const (
	targetBitrate   = "20k"
	targetCodec     = "libmp3lame"
	targetExtension = ".mp3"
)

var supportedContainers = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
	".m4v":  true,
}

// Request is one conversion. OnProgress, when set, receives monotonically
// non-decreasing fractions in [0,1]; the final call on success reports 1.0.
type Request struct {
	Input      types.MediaAsset
	OnProgress func(fraction float64)
}

// Result holds the derived audio asset.
type Result struct {
	Audio types.MediaAsset
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	// Output runs a command and captures its stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)
	// Stream runs a command, feeding each stdout line to onLine.
	Stream(ctx context.Context, name string, args []string, onLine func(line string)) error
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w (%s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (execRunner) Stream(ctx context.Context, name string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w (%s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return scanner.Err()
}

// Converter shells out to ffmpeg/ffprobe.
type Converter struct {
	ffmpegPath  string
	ffprobePath string
	runner      commandRunner
	mkdirTemp   func(dir, pattern string) (string, error)
	removeAll   func(path string) error
	writeFile   func(name string, data []byte, perm os.FileMode) error
	readFile    func(name string) ([]byte, error)
}

// New constructs the production converter with OS dependencies.
func New() *Converter {
	return &Converter{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      execRunner{},
		mkdirTemp:   os.MkdirTemp,
		removeAll:   os.RemoveAll,
		writeFile:   os.WriteFile,
		readFile:    os.ReadFile,
	}
}

// Convert turns a video asset into an mp3 asset.
func (c *Converter) Convert(ctx context.Context, req Request) (Result, error) {
	ext := strings.ToLower(filepath.Ext(req.Input.Filename))
	if !supportedContainers[ext] && !strings.HasPrefix(req.Input.MIMEType, "video/") {
		return Result{}, fmt.Errorf("%w: %s", types.ErrUnsupportedInput, req.Input.Filename)
	}

	tempDir, err := c.mkdirTemp("", "video-scribe-*")
	if err != nil {
		return Result{}, fmt.Errorf("create temporary workspace: %w", err)
	}
	defer func() { _ = c.removeAll(tempDir) }()

	inputPath := filepath.Join(tempDir, "input"+ext)
	if err := c.writeFile(inputPath, req.Input.Bytes, 0o644); err != nil {
		return Result{}, fmt.Errorf("stage input: %w", err)
	}

	duration, err := c.probeDuration(ctx, inputPath)
	if err != nil {
		return Result{}, fmt.Errorf("probe duration: %w", err)
	}

	outputPath := filepath.Join(tempDir, "output"+targetExtension)
	progress := newProgressTracker(duration, req.OnProgress)
	args := buildFFmpegArgs(inputPath, outputPath)
	if err := c.runner.Stream(ctx, c.ffmpegPath, args, progress.consume); err != nil {
		return Result{}, fmt.Errorf("audio conversion failed: %w", err)
	}

	data, err := c.readFile(outputPath)
	if err != nil {
		return Result{}, fmt.Errorf("conversion completed but output is missing: %w", err)
	}
	progress.finish()

	base := strings.TrimSuffix(filepath.Base(req.Input.Filename), filepath.Ext(req.Input.Filename))
	return Result{Audio: types.MediaAsset{
		Filename: base + targetExtension,
		MIMEType: "audio/mpeg",
		Bytes:    data,
	}}, nil
}

func (c *Converter) probeDuration(ctx context.Context, path string) (float64, error) {
	out, err := c.runner.Output(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(out), err)
	}
	if dur <= 0 {
		return 0, errors.New("non-positive media duration")
	}
	return dur, nil
}

// buildFFmpegArgs keeps only the audio track at the fixed target bitrate and
// codec, with machine-readable progress on stdout.
func buildFFmpegArgs(inputPath, outputPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-map", "0:a",
		"-b:a", targetBitrate,
		"-acodec", targetCodec,
		"-progress", "pipe:1",
		"-nostats",
		outputPath,
	}
}

// progressTracker converts ffmpeg -progress output into clamped,
// non-decreasing fractions.
type progressTracker struct {
	duration float64
	emit     func(float64)
	last     float64
}

func newProgressTracker(duration float64, emit func(float64)) *progressTracker {
	return &progressTracker{duration: duration, emit: emit}
}

func (p *progressTracker) consume(line string) {
	if p.emit == nil {
		return
	}
	value, ok := strings.CutPrefix(strings.TrimSpace(line), "out_time_ms=")
	if !ok {
		return
	}
	us, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return
	}
	fraction := (us / 1e6) / p.duration
	if fraction > 1 {
		fraction = 1
	}
	if fraction <= p.last {
		return
	}
	p.last = fraction
	p.emit(fraction)
}

func (p *progressTracker) finish() {
	if p.emit == nil || p.last >= 1 {
		return
	}
	p.last = 1
	p.emit(1)
}

// NewForTests constructs a converter with injectable dependencies.
func NewForTests(
	runner interface {
		Output(ctx context.Context, name string, args ...string) (string, error)
		Stream(ctx context.Context, name string, args []string, onLine func(string)) error
	},
	mkdirTemp func(dir, pattern string) (string, error),
	writeFile func(name string, data []byte, perm os.FileMode) error,
	readFile func(name string) ([]byte, error),
) *Converter {
	return &Converter{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      runner,
		mkdirTemp:   mkdirTemp,
		removeAll:   os.RemoveAll,
		writeFile:   writeFile,
		readFile:    readFile,
	}
}
