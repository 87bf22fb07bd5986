// Command keygen bootstraps a realm's first RSA signing key: it mints an
// RS256 key pair, marks it active, and persists it through the same
// SigningKeyStore the grant pipeline reads from at runtime, rather than
// printing a PEM for an operator to paste into an env var by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Islamawad132/Authme-sub001/internal/config"
	"github.com/Islamawad132/Authme-sub001/internal/domain"
	"github.com/Islamawad132/Authme-sub001/internal/store/pgstore"
	"github.com/Islamawad132/Authme-sub001/internal/tokensvc"
)

func main() {
	realmName := flag.String("realm", "", "name of the realm to mint a signing key for")
	flag.Parse()

	if *realmName == "" {
		fmt.Fprintln(os.Stderr, "usage: keygen -realm <name>")
		os.Exit(1)
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgstore.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database connect failed: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	db := pgstore.New(pool)

	realm, found, err := db.GetByName(*realmName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "realm lookup failed: %v\n", err)
		os.Exit(1)
	}
	if !found {
		realm = domain.Realm{
			ID:                   uuid.New(),
			Name:                 *realmName,
			DisplayName:          *realmName,
			Enabled:              true,
			AccessTokenLifespan:  5 * time.Minute,
			RefreshTokenLifespan: 30 * time.Minute,
			OfflineTokenLifespan: 30 * 24 * time.Hour,
			CreatedAt:            time.Now(),
		}
		if err := db.PutRealm(realm); err != nil {
			fmt.Fprintf(os.Stderr, "realm creation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created realm %q (%s)\n", realm.Name, realm.ID)
	}

	kid, publicPem, privatePem, err := tokensvc.GenerateRsaKeyPair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
		os.Exit(1)
	}

	key := domain.SigningKey{
		ID:         uuid.New(),
		RealmID:    realm.ID,
		Kid:        kid,
		Algorithm:  "RS256",
		PublicKey:  publicPem,
		PrivateKey: privatePem,
		Active:     true,
		CreatedAt:  time.Now(),
	}
	if err := db.PutSigningKey(key); err != nil {
		fmt.Fprintf(os.Stderr, "key persistence failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("minted active signing key %q for realm %q\n", kid, realm.Name)
}
