package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/spendlog/spendlog-go/internal/config"
	"github.com/spendlog/spendlog-go/internal/crypto"
	"github.com/spendlog/spendlog-go/internal/model"
	"github.com/spendlog/spendlog-go/internal/repository"
	"github.com/spendlog/spendlog-go/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email address")
	name := fs.String("name", "", "Display name")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	generate := fs.Int("generate", 0, "Generate a random password of this length and print it")
	driver := fs.String("driver", cfg.DatabaseDriver, "Database driver: sqlite, mysql, postgres or mongo")
	dsn := fs.String("dsn", cfg.DatabaseDSN, "Database DSN or sqlite path")
	algorithm := fs.String("hash", cfg.PasswordHash, "Password hash algorithm: bcrypt or argon2id")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(stdout, "Usage: adduser -email <email> [-name <name>] [-password <password> | -generate <length>] [-driver <driver>] [-dsn <dsn>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}

	password := *passwordFlag
	switch {
	case *generate > 0:
		password, err = crypto.RandomPassword(*generate)
		if err != nil {
			return err
		}
	case password == "":
		fmt.Fprint(stdout, "Password: ")
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout) // Print newline after password input
	}

	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := repository.Open(ctx, repository.Options{Driver: *driver, DSN: *dsn, Database: cfg.MongoDatabase})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	hasher, err := crypto.NewHasher(*algorithm)
	if err != nil {
		return err
	}

	// The token is discarded; only the account matters here.
	auth := service.NewAuthService(store.Users(), hasher, crypto.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry), nil)
	resp, err := auth.Register(ctx, model.CreateUserRequest{Name: *name, Email: *email, Password: password})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return fmt.Errorf("user %s already exists", model.NormalizeEmail(*email))
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %s\n", resp.User.Email, resp.User.ID)
	if *generate > 0 {
		fmt.Fprintf(stdout, "Generated password: %s\n", password)
	}
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Pipes and tests.
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
