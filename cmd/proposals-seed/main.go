package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/stake-plus/civic-proposals/src/api/data"
	"github.com/stake-plus/civic-proposals/src/api/types"
	"github.com/stake-plus/civic-proposals/src/proposals"
	"github.com/stake-plus/civic-proposals/src/search"
	"github.com/stake-plus/civic-proposals/src/verifications"
	"gorm.io/gorm"
)

var (
	modeFlag       = flag.String("mode", "seed", "seed|reindex|check")
	processFlag    = flag.Int64("process", 1, "Process id")
	featureFlag    = flag.Int64("feature", 1, "Feature id")
	votesFlag      = flag.String("votes", "enabled", "enabled|blocked|disabled")
	creationFlag   = flag.Bool("creation", true, "Enable proposal creation")
	officialFlag   = flag.Bool("official", false, "Enable official proposals")
	scopedFlag     = flag.Bool("scoped", false, "Enable scoped proposals")
	answeringFlag  = flag.Bool("answering", true, "Enable proposal answering")
	geocodingFlag  = flag.Bool("geocoding", false, "Enable geocoding")
	permissionFlag = flag.String("permission", "", "Authorization handler required to create")
	prefixFlag     = flag.String("prefix", "D", "Reference prefix of the process")
	fileFlag       = flag.String("verifications", "verifications.yaml", "Registry file for -mode=check")
	timeoutFlag    = flag.Duration("timeout", 2*time.Minute, "Overall timeout")
)

func main() {
	log.SetFlags(0)
	flag.Parse()
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	var err error
	switch *modeFlag {
	case "check":
		err = checkRegistry(*fileFlag)
	case "seed":
		err = seed(ctx, openDB())
	case "reindex":
		err = reindex(ctx, openDB())
	default:
		err = fmt.Errorf("unknown mode %q", *modeFlag)
	}
	if err != nil {
		log.Fatalf("%s ❌ %v", *modeFlag, err)
	}
	fmt.Printf("%s ✅\n", *modeFlag)
}

func openDB() *gorm.DB {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		log.Fatal("DATABASE_DSN is required")
	}
	db := data.MustDB(dsn)
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	return db
}

func checkRegistry(path string) error {
	registry, err := verifications.LoadFile(path)
	if err != nil {
		return err
	}
	for _, m := range registry.Methods() {
		fmt.Printf("%-32s %-10s %v\n", m.Name, m.Kind, m.Steps)
	}
	return nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	switch proposals.VoteMode(*votesFlag) {
	case proposals.VotesEnabled, proposals.VotesBlocked, proposals.VotesDisabled:
	default:
		return fmt.Errorf("invalid votes mode %q", *votesFlag)
	}

	process := types.Process{ID: *processFlag, Title: "Seeded process", ReferencePrefix: *prefixFlag}
	feature := types.Feature{
		ID:                       *featureFlag,
		ProcessID:                *processFlag,
		CreationEnabled:          *creationFlag,
		OfficialProposalsEnabled: *officialFlag,
		ScopedProposalsEnabled:   *scopedFlag,
		ProposalAnsweringEnabled: *answeringFlag,
		VotesMode:                *votesFlag,
		GeocodingEnabled:         *geocodingFlag,
		CreatePermission:         *permissionFlag,
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.FirstOrCreate(&types.Process{}, types.Process{ID: process.ID}).Error; err != nil {
			return err
		}
		if err := tx.Model(&process).Select("*").Updates(&process).Error; err != nil {
			return err
		}
		if err := tx.FirstOrCreate(&types.Feature{}, types.Feature{ID: feature.ID, ProcessID: feature.ProcessID}).Error; err != nil {
			return err
		}
		// Select("*") so false toggles overwrite column defaults
		return tx.Model(&feature).Omit("Process").Select("*").Updates(&feature).Error
	})
}

func reindex(ctx context.Context, db *gorm.DB) error {
	url := os.Getenv("MEILI_URL")
	if url == "" {
		return fmt.Errorf("MEILI_URL is required")
	}
	meili := search.NewMeili(url, os.Getenv("MEILI_KEY"), nil)
	defer meili.Close()
	if !meili.Healthy() {
		return search.ErrUnhealthy
	}

	all, err := data.NewProposalStore(db).ListByParent(ctx, *featureFlag)
	if err != nil {
		return err
	}
	for _, p := range all {
		if err := meili.IndexProposal(ctx, p); err != nil {
			return fmt.Errorf("index %d: %w", p.ID, err)
		}
	}
	fmt.Printf("indexed %d proposals of feature %d\n", len(all), *featureFlag)
	return nil
}
