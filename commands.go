package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pkg/errors"

	"kira-treasury-go/internal/deployment"
	"kira-treasury-go/internal/pipeline"
	"kira-treasury-go/internal/verify"
)

func generateWallet(conf *generateWalletConfig) error {
	e, err := newEnv(conf.pathFlags)
	if err != nil {
		return err
	}
	return e.buildPipeline(nil).Run(context.Background(), pipeline.StageWallet)
}

func deployTreasury(conf *deployTreasuryConfig) error {
	e, err := newEnv(conf.pathFlags)
	if err != nil {
		return err
	}
	return e.buildPipeline(conf.Members).Run(context.Background(), pipeline.StageTreasury)
}

func issueAsset(conf *issueAssetConfig) error {
	e, err := newEnv(conf.pathFlags)
	if err != nil {
		return err
	}
	return e.buildPipeline(nil).Run(context.Background(), pipeline.StageAsset)
}

func fundTreasury(conf *fundTreasuryConfig) error {
	e, err := newEnv(conf.pathFlags)
	if err != nil {
		return err
	}
	return e.buildPipeline(nil).Run(context.Background(), pipeline.StageFunding)
}

func verifyDeployment(conf *verifyConfig) error {
	e, err := newEnv(conf.pathFlags)
	if err != nil {
		return err
	}
	return e.buildPipeline(nil).Run(context.Background(), pipeline.StageVerify)
}

func runAll(conf *runAllConfig) error {
	e, err := newEnv(conf.pathFlags)
	if err != nil {
		return err
	}
	return e.buildPipeline(conf.Members).RunAll(context.Background())
}

func soakDeployment(conf *soakConfig) error {
	e, err := newEnv(conf.pathFlags)
	if err != nil {
		return err
	}
	state, err := e.store.Load()
	if err != nil {
		return err
	}
	if conf.Rounds < 1 {
		return errors.New("rounds must be at least 1")
	}

	runner := verify.NewRunner(e.client, e.squads)
	result, err := runner.SoakCheck(context.Background(), state, conf.Rounds)
	if err != nil {
		return err
	}
	log.Printf("soak: %d rounds, %d reads, %d failures (%.1f%% success) in %s",
		result.Rounds, result.Reads, result.Failures, result.SuccessRate()*100, result.Elapsed)
	log.Printf("soak latency: min %s, avg %s, max %s",
		result.MinLatency, result.AvgLatency, result.MaxLatency)
	if result.Failures > 0 {
		return errors.Errorf("%d of %d reads failed", result.Failures, result.Reads)
	}
	return nil
}

func showStatus(conf *statusConfig) error {
	e, err := newEnv(conf.pathFlags)
	if err != nil {
		return err
	}
	state, err := e.store.Load()
	if errors.Is(err, deployment.ErrNotFound) {
		fmt.Println("no deployment record; nothing has run yet")
		return nil
	}
	if err != nil {
		return err
	}

	// The create-key secret stays in the file; it is never printed.
	redacted := *state
	if redacted.TreasuryCreateKeySecret != "" {
		redacted.TreasuryCreateKeySecret = "(redacted, see record file)"
	}
	raw, err := json.MarshalIndent(&redacted, "", "  ")
	if err != nil {
		return errors.Wrap(err, "render deployment record")
	}
	fmt.Println(string(raw))

	completed := pipeline.Completed(state)
	if len(completed) == 0 {
		fmt.Println("completed stages: none")
		return nil
	}
	fmt.Print("completed stages:")
	for _, stage := range completed {
		fmt.Printf(" %s", stage)
	}
	fmt.Println()
	return nil
}
