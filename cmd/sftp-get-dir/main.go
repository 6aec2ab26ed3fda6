package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/yarkm13/fetchkit"
)

type options struct {
	host        string
	user        string
	password    string
	port        int
	hostKeyFile string
	remoteDir   string
	localDir    string
	prefetch    int
	timeout     time.Duration
	logLevel    string
}

func main() {
	if !fetchkit.CheckArgs(os.Stdout, os.Args) {
		os.Exit(1)
	}

	err := run(os.Args[1:])
	if err != nil {
		log.Error("Download failed", "err", err)
	}
	os.Exit(fetchkit.ExitCode(err))
}

func newFlags(environ fetchkit.Environment) (*flag.FlagSet, *options) {
	defaultPort := environ.Port
	if defaultPort == 0 {
		defaultPort = 22
	}

	opts := &options{}
	fs := flag.NewFlagSet("sftp-get-dir", flag.ContinueOnError)
	fs.StringVar(&opts.host, "host", environ.Host, "sftp hostname")
	fs.StringVar(&opts.user, "user", environ.User, "sftp username")
	fs.StringVar(&opts.password, "pw", "", "sftp password (prompted for when omitted)")
	fs.IntVar(&opts.port, "port", defaultPort, "sftp port")
	fs.StringVar(&opts.hostKeyFile, "hkey", environ.KnownHosts, "host key file path and name. If the file does not exist, the host key is trusted on first use and saved to it")
	fs.StringVar(&opts.remoteDir, "rdir", "", "remote directory path")
	fs.StringVar(&opts.localDir, "ldir", "", "local directory path")
	fs.IntVar(&opts.prefetch, "prefetch", environ.Prefetch, "concurrent read requests per file")
	fs.DurationVar(&opts.timeout, "timeout", environ.Timeout, "connection timeout")
	fs.StringVar(&opts.logLevel, "log-level", environ.LogLevel, "log level (debug, info, warn, error)")
	return fs, opts
}

func run(args []string) error {
	environ, err := fetchkit.LoadEnvironment()
	if err != nil {
		return err
	}

	fs, opts := newFlags(environ)
	help, err := fetchkit.ParseFlags(fs, args)
	if help || err != nil {
		return err
	}
	if err := fetchkit.SetupLogging(opts.logLevel); err != nil {
		return err
	}
	if err := fetchkit.RequireFlags(fs, "host", "user", "hkey", "rdir", "ldir"); err != nil {
		return err
	}

	cfg := fetchkit.Config{
		Scheme:         fetchkit.SchemeSFTP,
		Host:           opts.host,
		Port:           opts.port,
		User:           opts.user,
		KnownHostsFile: opts.hostKeyFile,
		Prefetch:       opts.prefetch,
		Timeout:        opts.timeout,
	}.WithDefaults()
	log.Info("Passed arguments", "host", cfg.Host, "user", cfg.User, "port", cfg.Port,
		"remote", opts.remoteDir, "local", opts.localDir)

	creds, err := fetchkit.ResolveCredentials(opts.password, environ.Password)
	if err != nil {
		return err
	}
	defer creds.Clear()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := fetchkit.SyncDirectory(ctx, cfg, creds, opts.remoteDir, opts.localDir)
	if err != nil {
		return err
	}

	succeeded := 0
	for _, r := range results {
		if r.OK {
			succeeded++
		}
	}
	log.Info("Finished", "downloaded", succeeded, "failed", len(results)-succeeded)
	return fetchkit.Failures(results)
}
