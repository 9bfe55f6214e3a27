// Command pipeline runs one stage and prints its result as JSON.
//
//	pipeline -stage prepare              # credential from STOCKSENSE_TOKEN or
//	                                     # STOCKSENSE_USERNAME/STOCKSENSE_PASSWORD
//	pipeline -stage forecast -artifact latest
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"StockSense/internal/di"
	"StockSense/internal/domain/models"
	"StockSense/internal/domain/repository"
	"StockSense/internal/service/txsource"
	"StockSense/pkg/config"
	"StockSense/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	stage := flag.String("stage", "", "stage to run: prepare or forecast")
	artifact := flag.String("artifact", string(models.LatestArtifact), "artifact id for the forecast stage")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	p, cleanup, err := di.InitializePipeline(cfg)
	if err != nil {
		log.Fatalf("pipeline initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, p, cfg, models.RunStage(*stage), models.ArtifactID(*artifact))
	stop()
	cleanup()
	if err != nil {
		p.Log.Error("pipeline failed", logger.String("stage", *stage), logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, p *di.Pipeline, cfg *config.Config, stage models.RunStage, id models.ArtifactID) error {
	var (
		out interface{}
		err error
	)
	switch stage {
	case models.StagePrepare:
		out, err = p.Prepare.Prepare(ctx, credentialFromEnv(cfg))
	case models.StageForecast:
		out, err = p.Forecast.Forecast(ctx, id)
	default:
		return fmt.Errorf("unknown stage %q (want prepare or forecast)", stage)
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// credentialFromEnv keeps secrets off the command line.
func credentialFromEnv(cfg *config.Config) repository.Credential {
	if tok := os.Getenv("STOCKSENSE_TOKEN"); tok != "" {
		return txsource.NewBearerToken(tok)
	}
	if u, pw := os.Getenv("STOCKSENSE_USERNAME"), os.Getenv("STOCKSENSE_PASSWORD"); u != "" && pw != "" {
		return txsource.NewPasswordLogin(u, pw)
	}
	if cfg.Source.ServiceToken != "" {
		return txsource.NewBearerToken(cfg.Source.ServiceToken)
	}
	return nil
}
