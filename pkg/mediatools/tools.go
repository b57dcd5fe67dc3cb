package mediatools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"nous-core/pkg/gateway"
)

// Tools wraps the system binaries used for media work.
//
// REQUIRED BINARIES at runtime:
// - yt-dlp for video downloads
// - edge-tts for narration audio
type Tools struct {
	ytdlpPath   string
	edgeTTSPath string
	voice       string
	timeout     time.Duration
}

var (
	_ gateway.VideoDownloader   = (*Tools)(nil)
	_ gateway.SpeechSynthesizer = (*Tools)(nil)
)

type Config struct {
	YtDlpPath   string
	EdgeTTSPath string
	Voice       string
	Timeout     time.Duration
}

func New(cfg Config) *Tools {
	t := &Tools{
		ytdlpPath:   cfg.YtDlpPath,
		edgeTTSPath: cfg.EdgeTTSPath,
		voice:       cfg.Voice,
		timeout:     cfg.Timeout,
	}
	if t.ytdlpPath == "" {
		t.ytdlpPath = "yt-dlp"
	}
	if t.edgeTTSPath == "" {
		t.edgeTTSPath = "edge-tts"
	}
	if t.voice == "" {
		t.voice = "en-US-AvaNeural"
	}
	if t.timeout == 0 {
		t.timeout = 10 * time.Minute
	}
	return t
}

// AssertReady checks that every binary is on PATH.
func (t *Tools) AssertReady() error {
	for _, bin := range []string{t.ytdlpPath, t.edgeTTSPath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

// DownloadVideo fetches url as mp4 (720p at most) into dest.
func (t *Tools) DownloadVideo(ctx context.Context, url, dest string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("url required")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("mkdir dest dir: %w", err)
	}

	primary := []string{
		"--no-playlist",
		"--geo-bypass",
		"-f", "best[height<=720][ext=mp4]/best[ext=mp4]/best",
		"--merge-output-format", "mp4",
		"-o", dest,
		url,
	}
	if err := t.run(ctx, t.ytdlpPath, primary...); err != nil {
		fallback := []string{"--no-playlist", "-f", "worst[ext=mp4]/worst", "-o", dest, url}
		if ferr := t.run(ctx, t.ytdlpPath, fallback...); ferr != nil {
			return "", fmt.Errorf("yt-dlp download failed: %w", err)
		}
	}

	if _, err := os.Stat(dest); err != nil {
		return "", fmt.Errorf("video output missing at %s", dest)
	}
	return dest, nil
}

// Synthesize renders text to an mp3 at dest using the configured voice.
func (t *Tools) Synthesize(ctx context.Context, text, dest string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", gateway.New(gateway.Malformed, "nothing to synthesize", nil)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("mkdir dest dir: %w", err)
	}

	// Narrations are long; pass them through a file rather than argv.
	textPath := dest + ".txt"
	if err := os.WriteFile(textPath, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write narration text: %w", err)
	}
	defer os.Remove(textPath)

	if err := t.run(ctx, t.edgeTTSPath, "--voice", t.voice, "--file", textPath, "--write-media", dest); err != nil {
		return "", fmt.Errorf("edge-tts failed: %w", err)
	}
	if _, err := os.Stat(dest); err != nil {
		return "", fmt.Errorf("audio output missing at %s", dest)
	}
	return dest, nil
}

func (t *Tools) run(ctx context.Context, bin string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", bin, ctx.Err())
		}
		return fmt.Errorf("%w; out=%s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
