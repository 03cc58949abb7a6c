package main

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/term"

	"github.com/go-pivert/pivert/card"
	"github.com/go-pivert/pivert/config"
	"github.com/go-pivert/pivert/credential"
	"github.com/go-pivert/pivert/pivlog"
	"github.com/go-pivert/pivert/transport"
)

// defaultListenAddr is the transport endpoint used when no configuration
// file names one, matching the platform split transport.Listen itself
// builds on (Unix-domain socket path everywhere except Windows, where it
// is a named-pipe path).
func defaultListenAddr() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\pivert`
	}
	return "/tmp/pivert.sock"
}

// cmdServe implements the `pivert <pfx_path> [pfx_password]` mode named
// in spec.md section 6: load the bundle directly, serve on the default
// platform transport endpoint.
func cmdServe(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: pivert <pfx_path> [pfx_password]")
	}

	password := ""
	if len(args) == 2 {
		password = args[1]
	} else {
		p, err := readPasswordFromTerminal()
		if err != nil {
			return err
		}
		password = p
	}

	log := pivlog.New(pivlog.LevelInfo)
	return serve(args[0], password, defaultListenAddr(), log)
}

// cmdServeConfig implements the `pivert -config <pivert.yaml>` mode,
// reading the credential path, transport endpoint, and log level from a
// configuration file per config.Load.
func cmdServeConfig(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	password, err := readPasswordFromTerminal()
	if err != nil {
		return err
	}

	log := pivlog.New(parseLevel(cfg.LogLevel))
	return serve(cfg.Credential.PFXFile, password, cfg.Listen.Pipe, log)
}

func serve(pfxPath, password, listenAddr string, log pivlog.Logger) error {
	raw, err := os.ReadFile(pfxPath)
	if err != nil {
		return fmt.Errorf("reading PKCS#12 bundle %s: %w", pfxPath, err)
	}

	bundle, err := credential.LoadBundle(raw, password)
	if err != nil {
		return err
	}

	c, err := card.NewCard(bundle.CertDER, bundle.Key, card.Config{Logger: log})
	if err != nil {
		return fmt.Errorf("constructing card: %w", err)
	}

	listener, err := transport.Listen(listenAddr)
	if err != nil {
		return err
	}
	defer listener.Close()

	srv := transport.NewServer(c, true, log)
	log.InfoMsgf("pivert listening on %s", listenAddr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go func() {
			if err := srv.ServeData(conn); err != nil {
				log.ErrorMsg(err, "connection terminated")
			}
			conn.Close()
		}()
	}
}

// readPasswordFromTerminal prompts for and reads a password without
// echoing it, matching the teacher's
// example/shared.GPGYubiKeyImpl.ReadPasswordAndSendToYubikey.
func readPasswordFromTerminal() (string, error) {
	fmt.Fprint(os.Stderr, "PKCS#12 password: ")
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password from terminal: %w", err)
	}
	return string(bytePassword), nil
}

func parseLevel(level string) pivlog.Level {
	switch level {
	case "debug":
		return pivlog.LevelDebug
	case "verbose":
		return pivlog.LevelVerbose
	case "error":
		return pivlog.LevelError
	default:
		return pivlog.LevelInfo
	}
}
