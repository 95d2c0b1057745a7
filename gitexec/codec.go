package gitexec

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/juju/errors"
	"github.com/niukuo/git-remote-bucket/bundle"
	"github.com/niukuo/git-remote-bucket/logging"
)

// Codec applies bundles with `git bundle unbundle`
type Codec = *codec
type codec struct {
	gitDir string
	gitBin string
	tmpDir string
	logger logging.Logger
}

var _ bundle.Codec = (*codec)(nil)

type Options func(c *codec)

func WithGitBin(bin string) Options {
	return Options(func(c *codec) {
		c.gitBin = bin
	})
}

func WithTempDir(dir string) Options {
	return Options(func(c *codec) {
		c.tmpDir = dir
	})
}

// NewCodec returns a codec writing into gitDir. An empty gitDir leaves
// repository discovery to git.
func NewCodec(gitDir string, logger logging.Logger, opts ...Options) (Codec, error) {
	c := &codec{
		gitDir: gitDir,
		gitBin: "git",
		tmpDir: gitDir,
		logger: logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	if _, err := exec.LookPath(c.gitBin); err != nil {
		return nil, errors.Annotatef(err, "git binary %q", c.gitBin)
	}

	return c, nil
}

func (c *codec) Apply(ctx context.Context, r io.Reader) error {

	start := time.Now()

	f, err := os.CreateTemp(c.tmpDir, "fetch-*.bundle")
	if err != nil {
		return errors.Annotate(err, "create temp bundle")
	}
	defer os.Remove(f.Name())

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.Annotate(err, "spool bundle")
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return errors.Annotate(err, "seek bundle")
	}

	// git only says "not a bundle" on stderr, check the header ourselves
	// so corrupt input is reported as such.
	_, err = bundle.ReadHeader(bufio.NewReader(f))
	f.Close()
	if err != nil {
		return err
	}

	if err := c.exec(ctx, "bundle", "unbundle", f.Name()); err != nil {
		return err
	}

	applySeconds.Observe(time.Since(start).Seconds())

	return nil
}

func (c *codec) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.gitBin, args...)
	if c.gitDir != "" {
		cmd.Env = append(os.Environ(), "GIT_DIR="+c.gitDir)
	}
	setSysProcAttr(cmd)
	return cmd
}

func (c *codec) exec(ctx context.Context, args ...string) error {
	cmd := c.command(ctx, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.Annotatef(err,
			"err running git %v, exit code: %d, stderr: %s",
			args, exitCode(cmd.ProcessState), stderr.String())
	}

	if stderr.Len() > 0 {
		c.logger.Debug("git ", args, " stderr: \n", stderr.String())
	}
	c.logger.Debug("git ", args, " stdout: \n", stdout.String())

	return nil
}

func exitCode(p *os.ProcessState) int {
	if p == nil {
		return -1
	}
	return p.ExitCode()
}
