package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
	juju "github.com/juju/errors"
	"github.com/niukuo/git-remote-bucket/bundle"
	"github.com/niukuo/git-remote-bucket/config"
	"github.com/niukuo/git-remote-bucket/fetch"
	"github.com/niukuo/git-remote-bucket/gitexec"
	"github.com/niukuo/git-remote-bucket/helper"
	"github.com/niukuo/git-remote-bucket/logging"
	"github.com/niukuo/git-remote-bucket/objstore"
	"github.com/niukuo/git-remote-bucket/refs"
	"github.com/prometheus/client_golang/prometheus"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(),
		"usage: %s <remote> <url>\n\nruns as a git remote helper, e.g. git clone s3://bucket/prefix\n",
		filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(2)
	}

	// git passes only the url when it was given on the command line
	rawURL := flag.Arg(0)
	if flag.NArg() == 2 {
		rawURL = flag.Arg(1)
	}

	logger := logging.GetLogger("main")

	err := run(rawURL)
	if err != nil {
		logger.Error(err)
	}
	logging.Sync()

	if err != nil {
		os.Exit(1)
	}
}

func run(rawURL string) error {
	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		return err
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		return juju.Annotatef(err, "log level %q", cfg.LogLevel)
	}

	remote, err := config.ParseRemoteURL(rawURL)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := objstore.NewOptions()
	opts.S3Endpoint = cfg.S3Endpoint
	opts.S3Region = cfg.S3Region
	opts.S3PathStyle = cfg.S3PathStyle

	store, prefix, err := objstore.Open(ctx, remote, opts)
	if err != nil {
		return juju.Annotatef(err, "open %s", remote)
	}
	defer store.Close()

	codec, err := newCodec(cfg)
	if err != nil {
		return err
	}

	pool := fetch.StartPool(cfg.Workers)
	defer pool.Stop()

	fetcher := fetch.NewBundleFetcher(store, codec, prefix,
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithLogger(logging.GetLogger("fetch")),
	)
	executor := fetch.NewExecutor(pool, fetcher, refs.NewRefSet(), logging.GetLogger("executor"))

	h := helper.NewHelper(os.Stdout, executor,
		helper.WithStore(store, prefix),
		helper.WithLogger(logging.GetLogger("helper")),
	)

	logging.GetLogger("main").Debugf("serving %s, workers: %d, codec: %s", remote, pool.Size(), cfg.Codec)

	err = h.Run(ctx, os.Stdin)

	if cfg.MetricsFile != "" {
		if merr := prometheus.WriteToTextfile(cfg.MetricsFile, prometheus.DefaultGatherer); merr != nil {
			logging.GetLogger("main").Warning("write metrics failed, err: ", merr)
		}
	}

	return err
}

func newCodec(cfg config.Config) (bundle.Codec, error) {
	gitDir := cfg.GitDir
	if gitDir == "" {
		gitDir = ".git"
	}

	switch cfg.Codec {
	case config.CodecGoGit:
		st := filesystem.NewStorage(osfs.New(gitDir), cache.NewObjectLRUDefault())
		return bundle.NewStorerCodec(st), nil
	default:
		return gitexec.NewCodec(gitDir, logging.GetLogger("gitexec"))
	}
}
