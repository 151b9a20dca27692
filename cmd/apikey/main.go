// Package main manages the API keys accepted by the submission server.
//
//	apikey create -name ci
//	apikey list
//	apikey revoke -id <uuid>
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/facequeue/internal/api/middleware"
	"github.com/kiranshivaraju/facequeue/internal/config"
	"github.com/kiranshivaraju/facequeue/internal/store"
	"github.com/kiranshivaraju/facequeue/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefix = "fq_"

var errUsage = errors.New("usage: apikey create -name NAME | list | revoke -id ID")

// KeyAdmin is the part of the store this tool uses.
type KeyAdmin interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("apikey failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := store.RunMigrations(cfg.Database.URL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return dispatch(ctx, store.NewPostgresStore(pool), args, out)
}

func dispatch(ctx context.Context, s KeyAdmin, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("create", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		name := fs.String("name", "", "label for the key")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *name == "" {
			return fmt.Errorf("create: -name is required")
		}
		return createKey(ctx, s, *name, out)

	case "list":
		return listKeys(ctx, s, out)

	case "revoke":
		fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		rawID := fs.String("id", "", "key id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		id, err := uuid.Parse(*rawID)
		if err != nil {
			return fmt.Errorf("revoke: invalid -id %q", *rawID)
		}
		if err := s.RevokeAPIKey(ctx, id); err != nil {
			return fmt.Errorf("revoke key: %w", err)
		}
		fmt.Fprintf(out, "revoked %s\n", id)
		return nil
	}
	return errUsage
}

// createKey stores a new key and prints the raw value. It is never shown again.
func createKey(ctx context.Context, s KeyAdmin, name string, out io.Writer) error {
	raw, err := generateKey()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash key: %w", err)
	}

	key := models.NewAPIKey(name, raw[:mw.KeyPrefixLen], string(hash), time.Now())
	if err := s.CreateAPIKey(ctx, key); err != nil {
		return fmt.Errorf("create key: %w", err)
	}

	fmt.Fprintf(out, "id:  %s\nkey: %s\n", key.ID, raw)
	return nil
}

// listKeys prints the active keys.
func listKeys(ctx context.Context, s KeyAdmin, out io.Writer) error {
	keys, err := s.ListAPIKeys(ctx)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPREFIX\tLAST USED")
	for _, k := range keys {
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.ID, k.Name, k.KeyPrefix, lastUsed)
	}
	return tw.Flush()
}

func generateKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return keyPrefix + hex.EncodeToString(buf), nil
}
