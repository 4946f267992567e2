/*
Refal compiles and runs programs written in the pattern-directed
term-rewriting language described by SPEC_FULL.md.

Usage:

	refal [flags] eval FILE... [-g GOAL]
	refal [flags] repl FILE...
	refal [flags] serve FILE...

Once a set of source files is compiled and linked, "eval" calls the goal
function named by -g and prints its rendered result, "repl" opens an interactive
goal-evaluation session, and "serve" starts the HTTP evaluation service.

The flags are:

	-v, --version
		Give the current version of refal and then exit.

	-g, --goal NAME
		The function to evaluate as "eval"'s goal. Defaults to the config's
		default_goal, or "Main" if no config is loaded.

	-c, --config FILE
		Load settings from the given TOML configuration file.

	-l, --listen LISTEN_ADDRESS
		Listen on the given address for "serve". Must be in
		BIND_ADDRESS:PORT or :PORT format. If not given, falls back to the
		environment variable REFAL_LISTEN_ADDRESS, then the config's server
		address, which is ":8080" unless a loaded config file sets one.

	-s, --secret TOKEN_SECRET
		Use the provided secret for signing JWT tokens issued by "serve". If
		not given, falls back to the environment variable REFAL_TOKEN_SECRET.
		If no secret is given anywhere, a random one is generated and a
		warning is printed; all tokens issued will become invalid as soon as
		the server shuts down.

	--cache FILE
		Dump the compiled program to FILE after a successful build, or (with
		no source FILEs given) load a previously dumped program from FILE
		instead of compiling.
*/
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/relang/refal"
	"github.com/relang/refal/internal/config"
	"github.com/relang/refal/internal/version"
	"github.com/relang/refal/server"
)

const (
	EnvListen = "REFAL_LISTEN_ADDRESS"
	EnvSecret = "REFAL_TOKEN_SECRET"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitUsageError indicates bad flags or arguments.
	ExitUsageError

	// ExitInitError indicates an issue compiling or loading the program.
	ExitInitError

	// ExitRunError indicates an issue during eval/repl/serve itself.
	ExitRunError
)

var (
	returnCode = ExitSuccess

	flagVersion = pflag.BoolP("version", "v", false, "Give the current version of refal and then exit.")
	flagGoal    = pflag.StringP("goal", "g", "", "The goal function to evaluate.")
	flagConfig  = pflag.StringP("config", "c", "", "Load settings from the given TOML configuration file.")
	flagListen  = pflag.StringP("listen", "l", "", "Listen on the given address for serve.")
	flagSecret  = pflag.StringP("secret", "s", "", "Use the given secret for JWT token signing.")
	flagCache   = pflag.String("cache", "", "Dump/load the compiled program at this path.")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	args := pflag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Missing subcommand: eval, repl, or serve\nDo -h for help.\n")
		returnCode = ExitUsageError
		return
	}
	cmd, sourceFiles := args[0], args[1:]

	cfg := config.Default()
	if *flagConfig != "" {
		loaded, err := config.Load(*flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
		cfg = loaded
	}

	eng, err := loadEngine(sourceFiles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}

	if *flagCache != "" && len(sourceFiles) > 0 {
		if err := eng.DumpCompiled(*flagCache); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: could not write cache: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
	}

	goal := cfg.DefaultGoal
	if *flagGoal != "" {
		goal = *flagGoal
	}

	switch strings.ToLower(cmd) {
	case "eval":
		runEval(eng, goal)
	case "repl":
		runREPL(eng)
	case "serve":
		runServe(eng, cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand %q: must be eval, repl, or serve\nDo -h for help.\n", cmd)
		returnCode = ExitUsageError
	}
}

func loadEngine(sourceFiles []string) (*refal.Engine, error) {
	if len(sourceFiles) == 0 {
		if *flagCache == "" {
			return nil, fmt.Errorf("no source files given and no --cache to load from")
		}
		return refal.LoadCompiled(*flagCache)
	}
	return refal.New(sourceFiles...)
}

func runEval(eng *refal.Engine, goal string) {
	out, err := eng.EvalString(goal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitRunError
		return
	}
	fmt.Println(out)
}

func runREPL(eng *refal.Engine) {
	if err := eng.RunREPL(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitRunError
	}
}

func runServe(eng *refal.Engine, cfg config.Config) {
	listenAddr := os.Getenv(EnvListen)
	if pflag.Lookup("listen").Changed {
		listenAddr = *flagListen
	}
	if listenAddr == "" {
		listenAddr = cfg.ServerAddr
	}
	if listenAddr == "" {
		listenAddr = "localhost:8080"
	}
	if _, _, err := splitHostPort(listenAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Listen address is not in ADDRESS:PORT or :PORT format.\nDo -h for help.\n")
		returnCode = ExitUsageError
		return
	}

	secretStr := os.Getenv(EnvSecret)
	if pflag.Lookup("secret").Changed {
		secretStr = *flagSecret
	}
	var secret []byte
	if secretStr != "" {
		secret = []byte(secretStr)
		for len(secret) < 32 {
			secret = append(secret, secret...)
		}
	} else if cfg.JWTSigningKey != "" {
		secret = []byte(cfg.JWTSigningKey)
	} else {
		secret = make([]byte, 64)
		if _, err := rand.Read(secret); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: could not generate token secret: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
		fmt.Fprintln(os.Stderr, "WARN  using generated token secret; all tokens issued will become invalid at shutdown")
	}

	srv, err := server.New(server.Config{
		Addr:          listenAddr,
		Engine:        eng,
		AuditDBPath:   cfg.AuditDBPath,
		SecretHash:    cfg.AuthSecretHash,
		JWTSigningKey: secret,
		UnauthDelay:   time.Second,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: could not start server: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.ServeForever(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitRunError
	}
}

func splitHostPort(addr string) (host string, port int, err error) {
	parts := strings.SplitN(addr, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("missing ':'")
	}
	port, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("%q is not a valid port number", parts[1])
	}
	return parts[0], port, nil
}
