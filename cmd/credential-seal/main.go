// Package main seals a user's producer API credential into the profile store.
//
// Usage:
//
//	credential-seal -user <id> -key <credential>
//	credential-seal -user <id> -delete
//
// The credential is checked against CREDENTIAL_PREFIX and
// CREDENTIAL_BODY_LENGTH, encrypted with CREDENTIAL_SECRET and written to
// the database named by DATABASE_URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"tradelens/config"
	"tradelens/internal/credentials"
	"tradelens/repository"
)

func main() {
	userID := flag.String("user", "", "user id the credential belongs to")
	key := flag.String("key", "", "plaintext API credential (or set TRADELENS_CREDENTIAL)")
	remove := flag.Bool("delete", false, "remove the user's stored credential")
	flag.Parse()

	if err := run(*userID, *key, *remove); err != nil {
		fmt.Fprintf(os.Stderr, "credential-seal: %v\n", err)
		os.Exit(1)
	}
}

func run(userID, key string, remove bool) error {
	_ = godotenv.Load()

	if userID == "" {
		return fmt.Errorf("-user is required")
	}
	if key == "" {
		key = os.Getenv("TRADELENS_CREDENTIAL")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.HasDatabase() {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.NewRepository(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer repo.Close()

	if remove {
		if err := repo.DeleteEncryptedCredential(ctx, userID); err != nil {
			return err
		}
		fmt.Printf("removed credential for %s\n", userID)
		return nil
	}

	blob, err := seal(cfg.Credentials, key)
	if err != nil {
		return err
	}
	if err := repo.SetEncryptedCredential(ctx, userID, blob); err != nil {
		return err
	}
	fmt.Printf("stored credential for %s\n", userID)
	return nil
}

// seal validates key and encrypts it for storage
func seal(cfg config.CredentialConfig, key string) ([]byte, error) {
	format, err := credentials.NewFormat(cfg.Prefix, cfg.BodyLength)
	if err != nil {
		return nil, err
	}
	if !format.Matches(key) {
		return nil, fmt.Errorf("credential does not match %s followed by %d alphanumerics", cfg.Prefix, cfg.BodyLength)
	}

	crypto, err := credentials.NewCrypto(cfg.Secret)
	if err != nil {
		return nil, err
	}
	return crypto.Encrypt([]byte(key))
}
