package main

import (
	"context"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"kira-treasury-go/internal/chain"
	"kira-treasury-go/internal/config"
	"kira-treasury-go/internal/deployerr"
	"kira-treasury-go/internal/deployment"
	"kira-treasury-go/internal/funding"
	"kira-treasury-go/internal/pipeline"
	"kira-treasury-go/internal/token"
	"kira-treasury-go/internal/treasury"
	"kira-treasury-go/internal/verify"
	"kira-treasury-go/internal/wallet"
)

// env wires the shared collaborators for one CLI invocation. The
// configuration is read once here; components receive it explicitly.
type env struct {
	cfg    config.Config
	client *chain.Client
	store  *deployment.Store
	squads treasury.SquadsClient
}

func newEnv(paths pathFlags) (*env, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if paths.WalletPath != "" {
		cfg.WalletPath = paths.WalletPath
	}
	if paths.StatePath != "" {
		cfg.StatePath = paths.StatePath
	}
	log.Printf("network: %s (%s)", cfg.Network, cfg.Network.RPCEndpoint())
	return &env{
		cfg:    cfg,
		client: chain.NewClient(cfg),
		store:  deployment.NewStore(cfg.StatePath),
		squads: treasury.NewSquadsClient(cfg.Network),
	}, nil
}

// buildPipeline registers every stage runner. Individual sub-commands
// run a single stage; run-all walks the whole order.
func (e *env) buildPipeline(extraMembers []string) *pipeline.Pipeline {
	p := pipeline.New(e.store)
	p.Register(pipeline.StageWallet, e.runWalletStage)
	p.Register(pipeline.StageTreasury, func(ctx context.Context) error {
		return e.runTreasuryStage(ctx, extraMembers)
	})
	p.Register(pipeline.StageAsset, e.runAssetStage)
	p.Register(pipeline.StageFunding, e.runFundingStage)
	p.Register(pipeline.StageVerify, e.runVerifyStage)
	return p
}

func (e *env) runWalletStage(ctx context.Context) error {
	key, err := wallet.LoadOrCreate(e.cfg.WalletPath)
	if err != nil {
		return err
	}
	log.Printf("deployer wallet ready: %s (%s)", key.PublicKey(), e.cfg.WalletPath)
	return nil
}

func (e *env) runTreasuryStage(ctx context.Context, extraMembers []string) error {
	key, err := wallet.LoadOrCreate(e.cfg.WalletPath)
	if err != nil {
		return err
	}
	creator := key.PublicKey()

	gate, err := chain.RequireMinimumBalance(ctx, e.client, creator, e.cfg.MinTreasuryDeployBalance)
	if err != nil {
		return err
	}
	log.Printf("deployer balance %s, required %s",
		formatSOL(gate.Observed), formatSOL(gate.Required))

	additional, err := resolveMembers(extraMembers, e.cfg.MemberCount-1)
	if err != nil {
		return err
	}

	provisioner := treasury.NewProvisioner(e.squads)
	account, err := provisioner.CreateTreasury(ctx, key, e.cfg.Threshold, additional, treasury.Metadata{
		Name:        e.cfg.TreasuryName,
		Description: e.cfg.TreasuryDesc,
		IconURL:     e.cfg.TreasuryIconURL,
	})
	if err != nil {
		return err
	}

	memberAddrs := make([]string, len(account.Members))
	for i, m := range account.Members {
		memberAddrs[i] = m.String()
	}
	_, err = e.store.Save(&deployment.State{
		TreasuryAddress:         account.Address.String(),
		TreasuryVault:           account.Vault.String(),
		TreasuryCreateKey:       account.CreateKey.String(),
		TreasuryCreateKeySecret: account.CreateKeySecret,
		CreatorAddress:          creator.String(),
		Threshold:               int(account.Threshold),
		MemberAddresses:         memberAddrs,
		TreasuryName:            account.Metadata.Name,
		SolscanURL:              e.cfg.Network.SolscanAccountURL(account.Address.String()),
		SquadsURL:               e.cfg.Network.SquadsAppURL(account.Address.String()),
		Network:                 string(e.cfg.Network),
	})
	if err != nil {
		return err
	}

	log.Printf("treasury deployed: %s (%d of %d), vault %s",
		account.Address, account.Threshold, len(account.Members), account.Vault)
	log.Printf("record saved to %s", e.store.Path())
	log.Printf("export the create-key secret from the record to your secrets vault; it is required for any future configuration change")
	return nil
}

func (e *env) runAssetStage(ctx context.Context) error {
	state, err := e.store.Load()
	if err != nil {
		return errors.Wrap(err, "asset issuance needs a provisioned treasury; run deploy-treasury first")
	}
	if !state.HasTreasury() {
		return errors.New("asset issuance needs a provisioned treasury; run deploy-treasury first")
	}
	treasuryAddr, err := solana.PublicKeyFromBase58(state.TreasuryAddress)
	if err != nil {
		return errors.Wrap(err, "recorded treasury address")
	}

	key, err := wallet.LoadOrCreate(e.cfg.WalletPath)
	if err != nil {
		return err
	}

	if _, err := chain.RequireMinimumBalance(ctx, e.client, key.PublicKey(), e.cfg.MinAssetDeployBalance); err != nil {
		return err
	}

	issuer := token.NewIssuer(e.client)
	decimals := e.cfg.AssetDecimals

	// Mint creation is skipped on a re-run after a failed distribution;
	// only the transfer below is resumed.
	var mintAddr solana.PublicKey
	if state.HasAsset() {
		mintAddr, err = solana.PublicKeyFromBase58(state.AssetMint)
		if err != nil {
			return errors.Wrap(err, "recorded asset mint")
		}
		decimals = state.AssetDecimals
		log.Printf("asset mint already recorded: %s, resuming distribution", mintAddr)
	} else {
		supply, err := token.BaseUnits(e.cfg.AssetSupply, decimals)
		if err != nil {
			return err
		}
		issued, err := issuer.IssueAsset(ctx, key, decimals, supply)
		if err != nil {
			return err
		}
		if _, err := e.store.Save(&deployment.State{
			AssetMint:     issued.Mint.String(),
			AssetDecimals: issued.Decimals,
			HolderAccount: issued.HolderAccount.String(),
		}); err != nil {
			return err
		}
		log.Printf("asset mint created: %s (%d decimals, supply %d base units)",
			issued.Mint, issued.Decimals, issued.Supply)
		mintAddr = issued.Mint
	}

	// The treasury is a program-derived address, so its asset account
	// cannot pre-exist.
	share, err := token.BaseUnits(e.cfg.DistributeAmount, decimals)
	if err != nil {
		return err
	}
	dist, err := issuer.Distribute(ctx, mintAddr, key, treasuryAddr, share, true)
	if err != nil {
		return err
	}
	if _, err := e.store.Save(&deployment.State{
		TreasuryAssetAccount: dist.DestinationATA.String(),
	}); err != nil {
		return err
	}
	log.Printf("treasury share distributed: %d base units to %s", dist.Amount, dist.DestinationATA)
	return nil
}

func (e *env) runFundingStage(ctx context.Context) error {
	state, err := e.store.Load()
	if err != nil {
		return errors.Wrap(err, "funding needs a provisioned treasury; run deploy-treasury first")
	}
	if !state.HasTreasury() {
		return errors.New("funding needs a provisioned treasury; run deploy-treasury first")
	}
	treasuryAddr, err := solana.PublicKeyFromBase58(state.TreasuryAddress)
	if err != nil {
		return errors.Wrap(err, "recorded treasury address")
	}

	key, err := wallet.LoadOrCreate(e.cfg.WalletPath)
	if err != nil {
		return err
	}

	funder := funding.NewFunder(e.client, e.cfg.FeeHeadroomLamports)
	receipt, err := funder.TransferNative(ctx, key, treasuryAddr, e.cfg.FundingLamports)
	if err != nil {
		return err
	}

	if _, err := e.store.Save(&deployment.State{
		TreasuryNativeBalance: receipt.TreasuryBalance,
		LastFundedAt:          &receipt.FundedAt,
	}); err != nil {
		return err
	}
	log.Printf("treasury funded: %s, balance now %s (tx %s)",
		formatSOL(receipt.Amount), formatSOL(receipt.TreasuryBalance), receipt.Signature)
	return nil
}

func (e *env) runVerifyStage(ctx context.Context) error {
	state, err := e.store.Load()
	if err != nil {
		return err
	}

	runner := verify.NewRunner(e.client, e.squads)
	report, err := runner.Verify(ctx, state)
	if err != nil {
		return err
	}
	for _, check := range report.Checks {
		status := "FAIL"
		if check.Passed {
			status = "ok"
		}
		log.Printf("  [%s] %s: %s", status, check.Name, check.Detail)
	}

	// Advisory only: a drained deployer does not fail verification, but
	// the operator should know before the next fee-consuming step.
	if creator, err := solana.PublicKeyFromBase58(state.CreatorAddress); err == nil {
		gate, err := chain.ObserveBalance(ctx, e.client, creator, e.cfg.MinAssetDeployBalance)
		if err != nil {
			log.Printf("  [warn] deployer balance unreadable: %v", err)
		} else if !gate.Satisfied {
			log.Printf("  [warn] deployer balance %s below the %s deploy minimum",
				formatSOL(gate.Observed), formatSOL(gate.Required))
		} else {
			log.Printf("  [info] deployer balance %s", formatSOL(gate.Observed))
		}
	}

	if !report.Passed() {
		return errors.New("verification failed")
	}
	log.Printf("verification passed")
	return nil
}

// resolveMembers parses operator-supplied member addresses, or
// generates placeholder keys to be replaced with real team wallets
// before the treasury is used in earnest.
func resolveMembers(supplied []string, count int) ([]solana.PublicKey, error) {
	if len(supplied) > 0 {
		members := make([]solana.PublicKey, len(supplied))
		for i, addr := range supplied {
			key, err := solana.PublicKeyFromBase58(addr)
			if err != nil {
				return nil, errors.Wrapf(err, "member address %q", addr)
			}
			members[i] = key
		}
		return members, nil
	}
	members := make([]solana.PublicKey, count)
	for i := range members {
		members[i] = solana.NewWallet().PublicKey()
	}
	log.Printf("generated %d placeholder member addresses; replace them with team wallets", count)
	return members, nil
}

func formatSOL(lamports uint64) string {
	return deployerr.FormatLamports(lamports)
}
