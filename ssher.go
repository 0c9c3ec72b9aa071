package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/snadrus/ssher/internal/browser"
	"github.com/snadrus/ssher/internal/buffer"
	"github.com/snadrus/ssher/internal/config"
	"github.com/snadrus/ssher/internal/listing"
	"github.com/snadrus/ssher/internal/logging"
	"github.com/snadrus/ssher/internal/transport"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		configPath string
		debug      bool
		force      bool
	)

	args := os.Args[1:]
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "--config":
			if len(args) < 2 {
				fatalf("--config needs a path")
			}
			configPath = args[1]
			args = args[1:]
		case "--debug":
			debug = true
		case "--force":
			force = true
		case "--version", "-v":
			fmt.Printf("ssher %s (commit %s, built %s)\n", version, commit, buildDate)
			return
		case "--help", "-h":
			printHelp()
			return
		default:
			fatalf("unknown flag: %s", args[0])
		}
		args = args[1:]
	}
	if len(args) < 1 {
		printHelp()
		return
	}

	if args[0] == "init-config" {
		path, err := config.WriteDefault(configPath, force)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Println(path)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fatalf("%v", err)
	}
	if err := logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		fatalf("logging: %v", err)
	}
	if debug {
		logging.SetLevel("debug")
	}
	defer func() { _ = logging.Sync() }()

	if err := ensureSSHInPath(cfg); err != nil {
		fatalf("%v", err)
	}

	sigs := append([]os.Signal{os.Interrupt}, extraSignals...)
	ctx, cancel := signal.NotifyContext(context.Background(), sigs...)
	defer cancel()

	t := newTransport(cfg)
	store := buffer.NewStore()
	ctrl := browser.New(store, t, browser.Options{
		Listing:        listing.Options{Mode: listing.Mode(cfg.Listing.Mode), ShowDot: cfg.Listing.ShowDot},
		Tabstop:        cfg.View.Tabstop,
		MaxConcurrency: cfg.Bootstrap.MaxConcurrency,
	}, logging.Named("browser"))

	err = execute(ctx, ctrl, store, args[0], args[1:], os.Stdin, os.Stdout)
	_ = t.Close()
	if err != nil {
		logging.L().Error("command failed", zap.String("command", args[0]), zap.Error(err))
		_ = logging.Sync()
		cancel()
		fatalf("%v", err)
	}
}

func newTransport(cfg *config.Config) transport.Transport {
	if cfg.Transport.Kind == "native" {
		return transport.NewSession(transport.SessionConfig{
			KnownHosts:            cfg.Transport.KnownHosts,
			InsecureIgnoreHostKey: cfg.Transport.InsecureIgnoreHostKey,
			DialTimeout:           cfg.Transport.Timeout(),
			IdentityFiles:         cfg.Transport.IdentityFiles,
		}, logging.Named("transport"))
	}
	return transport.NewExec(cfg.Transport.SSHBinary, logging.Named("transport"))
}

// ensureSSHInPath checks the ssh client binary when the exec transport is
// selected.
func ensureSSHInPath(cfg *config.Config) error {
	if cfg.Transport.Kind != "exec" {
		return nil
	}
	if _, err := exec.LookPath(cfg.Transport.SSHBinary); err != nil {
		return fmt.Errorf("%s not found on PATH: %w", cfg.Transport.SSHBinary, err)
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ssher: "+format+"\n", args...)
	os.Exit(1)
}

func printHelp() {
	fmt.Println("ssher " + version)
	if commit != "unknown" {
		fmt.Printf("  commit:  %s\n", commit)
	}
	if buildDate != "unknown" {
		fmt.Printf("  built:   %s\n", buildDate)
	}
	fmt.Printf("  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Println()

	fmt.Println("Browse and edit files on remote hosts over ssh.")
	fmt.Println()

	fmt.Println("USAGE")
	fmt.Println("  ssher [flags] <command> [args]")
	fmt.Println()
	fmt.Println("COMMANDS")
	fmt.Println("  open NAME          Print a remote file, or the listing of a remote directory")
	fmt.Println("  enter NAME LINE    Print the name the listing line LINE (1-based) leads to")
	fmt.Println("  save NAME          Replace a remote file with stdin, keeping its permissions")
	fmt.Println("  init-config        Write the default configuration file")
	fmt.Println()
	fmt.Println("FLAGS")
	fmt.Println("  --config PATH      Configuration file (default " + config.DefaultPath() + ")")
	fmt.Println("  --debug            Log at debug level")
	fmt.Println("  --force            Let init-config overwrite an existing file")
	fmt.Println("  --version          Print version and exit")
	fmt.Println()
	fmt.Println("EXAMPLES")
	fmt.Println("  ssher open ssher://luma@example.com/src/")
	fmt.Println("  ssher open ssher://luma@example.com:2222/etc/hosts")
	fmt.Println("  ssher enter ssher://luma@example.com/src/ 8")
	fmt.Println("  ssher save ssher://luma@example.com/notes.txt < notes.txt")
	fmt.Println()

	fmt.Println("DEPENDENCIES")
	checkBin("ssh")
	fmt.Println()
}

func checkBin(name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Printf("  ✗ %-12s NOT FOUND\n", name)
		switch runtime.GOOS {
		case "linux":
			fmt.Printf("    → sudo apt install openssh-client\n")
		case "darwin":
			fmt.Printf("    → ships with macOS; check your PATH\n")
		case "windows":
			fmt.Printf("    → Add-WindowsCapability -Online -Name OpenSSH.Client\n")
		}
		return
	}
	// ssh -V writes its version to stderr
	out, err := exec.Command(path, "-V").CombinedOutput()
	if err != nil {
		fmt.Printf("  ✓ %-12s %s (could not read version)\n", name, path)
		return
	}
	first := strings.SplitN(string(out), "\n", 2)[0]
	fmt.Printf("  ✓ %-12s %s\n", name, first)
}
