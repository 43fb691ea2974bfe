package main

import (
	"fmt"

	"github.com/chatvault/chatvault/internal/adapter"
	"github.com/chatvault/chatvault/internal/client"
	"github.com/chatvault/chatvault/internal/config"
	"github.com/chatvault/chatvault/internal/crypto"
	"github.com/chatvault/chatvault/internal/logger"
	"github.com/chatvault/chatvault/internal/service"
	"github.com/chatvault/chatvault/internal/store"
	"github.com/chatvault/chatvault/internal/tui"
	"github.com/chatvault/chatvault/internal/vault"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewClientLogger("chatvault", "")
	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	log = logger.NewClientLogger("chatvault", cfg.Log.Path)

	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}

	keychain := crypto.NewKeyChain()

	kv := vault.New(storages.Keys, keychain, vault.NewRealClock(), log)
	kv.SetAutoLockTimeout(cfg.Vault.AutoLockTimeout)
	kv.SetKDFIterations(cfg.Vault.KDFIterations)

	syncClient := adapter.NewHTTPSyncClient(adapter.HTTPClientConfig{
		BaseURL: cfg.Sync.BaseURL,
		Timeout: cfg.Sync.RequestTimeout,
	})

	services := service.NewServices(storages, kv, keychain, syncClient, log)

	ui, err := tui.New(kv, services, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating ui")
	}

	app, err := client.NewApp(cfg, services, ui, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	if err = app.Run(); err != nil {
		log.Fatal().Err(err).Msg("client run error")
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
