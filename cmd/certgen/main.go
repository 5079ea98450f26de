// Command certgen creates a tenant's AS2 key pair and stores it, together
// with the tenant's AS2 identity, in edi_settings.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"infinite-experiment/edigate/internal/as2"
	"infinite-experiment/edigate/internal/config"
)

const upsertSettings = `
INSERT INTO edi_settings (id, tenant_id, company_name, as2_id, x12_sender_id, certificate, private_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
ON CONFLICT (tenant_id) DO UPDATE SET
	company_name  = EXCLUDED.company_name,
	as2_id        = EXCLUDED.as2_id,
	x12_sender_id = EXCLUDED.x12_sender_id,
	certificate   = EXCLUDED.certificate,
	private_key   = EXCLUDED.private_key,
	updated_at    = NOW()`

func main() {
	tenantID := flag.String("tenant", "", "tenant id (uuid)")
	company := flag.String("company", "", "company name, used as certificate organization")
	as2ID := flag.String("as2-id", "", "our AS2 identifier, used as certificate common name")
	x12Sender := flag.String("x12-sender", "", "our X12 interchange sender id")
	days := flag.Int("days", 730, "certificate validity in days")
	outDir := flag.String("out", "", "also write cert.pem and key.pem to this directory")
	dsn := flag.String("dsn", "", "postgres DSN (defaults to PG_* environment)")
	flag.Parse()

	if _, err := uuid.Parse(*tenantID); err != nil {
		log.Fatalf("-tenant must be a uuid: %v", err)
	}
	if *as2ID == "" {
		log.Fatal("-as2-id is required")
	}

	if *dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		*dsn = cfg.PostgresDSN()
	}

	kp, err := as2.GenerateSelfSigned(*as2ID, *company, time.Duration(*days)*24*time.Hour)
	if err != nil {
		log.Fatalf("generate certificate: %v", err)
	}
	certPEM := as2.EncodeCertificatePEM(kp.Certificate)
	keyPEM, err := as2.EncodePrivateKeyPEM(kp.PrivateKey)
	if err != nil {
		log.Fatalf("encode key: %v", err)
	}

	if *outDir != "" {
		if err := writePEMs(*outDir, certPEM, keyPEM); err != nil {
			log.Fatalf("write files: %v", err)
		}
	}

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, upsertSettings,
		uuid.NewString(), *tenantID, *company, *as2ID, *x12Sender, certPEM, keyPEM); err != nil {
		log.Fatalf("upsert edi settings: %v", err)
	}

	fmt.Printf("Stored AS2 identity %s for tenant %s\n", *as2ID, *tenantID)
	fmt.Printf("Certificate expires %s\n", kp.Certificate.NotAfter.Format(time.RFC3339))
	fmt.Print(certPEM)
}

func writePEMs(dir, certPEM, keyPEM string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "cert.pem"), []byte(certPEM), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "key.pem"), []byte(keyPEM), 0o600)
}
