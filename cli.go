package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

const (
	generateWalletSubCmd = "generate-wallet"
	deployTreasurySubCmd = "deploy-treasury"
	issueAssetSubCmd     = "issue-asset"
	fundTreasurySubCmd   = "fund-treasury"
	verifySubCmd         = "verify"
	soakSubCmd           = "soak"
	statusSubCmd         = "status"
	runAllSubCmd         = "run-all"
)

// pathFlags are the per-invocation file overrides shared by every
// sub-command. Network selection is deliberately not a flag: it comes
// from the KIRA_NETWORK environment variable only.
type pathFlags struct {
	WalletPath string `long:"wallet" description:"Path to the deployer key file" default:"wallets/deployer.json"`
	StatePath  string `long:"state" description:"Path to the deployment record" default:"multisig-deployment.json"`
}

type generateWalletConfig struct {
	pathFlags
}

type deployTreasuryConfig struct {
	pathFlags
	Members []string `long:"member" description:"Additional member address (repeatable); placeholders are generated when omitted"`
}

type issueAssetConfig struct {
	pathFlags
}

type fundTreasuryConfig struct {
	pathFlags
}

type verifyConfig struct {
	pathFlags
}

type soakConfig struct {
	pathFlags
	Rounds int `long:"rounds" description:"Number of read batches to issue" default:"10"`
}

type statusConfig struct {
	pathFlags
}

type runAllConfig struct {
	pathFlags
	Members []string `long:"member" description:"Additional member address (repeatable); placeholders are generated when omitted"`
}

func parseCommandLine() (subCommand string, cmdConfig interface{}) {
	parser := flags.NewNamedParser("kira-treasury", flags.PrintErrors|flags.HelpFlag)

	generateWalletConf := &generateWalletConfig{}
	parser.AddCommand(generateWalletSubCmd, "Generate or load the deployer wallet",
		"Loads the deployer keypair, generating and persisting a new one with owner-only permissions when absent", generateWalletConf)

	deployTreasuryConf := &deployTreasuryConfig{}
	parser.AddCommand(deployTreasurySubCmd, "Deploy the multisig treasury",
		"Creates the Squads multisig treasury after a balance precondition check and records it in the deployment file", deployTreasuryConf)

	issueAssetConf := &issueAssetConfig{}
	parser.AddCommand(issueAssetSubCmd, "Issue the treasury asset",
		"Creates the token mint, mints the initial supply, and distributes the treasury share", issueAssetConf)

	fundTreasuryConf := &fundTreasuryConfig{}
	parser.AddCommand(fundTreasurySubCmd, "Fund the treasury with SOL",
		"Transfers native currency from the deployer into the treasury and waits for confirmation", fundTreasuryConf)

	verifyConf := &verifyConfig{}
	parser.AddCommand(verifySubCmd, "Verify the deployment",
		"Runs read-only checks against the recorded deployment; mutates nothing", verifyConf)

	soakConf := &soakConfig{}
	parser.AddCommand(soakSubCmd, "Soak-test read access",
		"Repeats batched read-only queries and reports latency and success-rate statistics", soakConf)

	statusConf := &statusConfig{}
	parser.AddCommand(statusSubCmd, "Show the deployment record",
		"Prints the checkpoint record and the derived list of completed stages", statusConf)

	runAllConf := &runAllConfig{}
	parser.AddCommand(runAllSubCmd, "Run the whole pipeline",
		"Runs every stage in order, skipping irreversible stages that already completed", runAllConf)

	_, err := parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if ok := errors.As(err, &flagsErr); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		} else {
			os.Exit(1)
		}
		return "", nil
	}

	switch parser.Command.Active.Name {
	case generateWalletSubCmd:
		return generateWalletSubCmd, generateWalletConf
	case deployTreasurySubCmd:
		return deployTreasurySubCmd, deployTreasuryConf
	case issueAssetSubCmd:
		return issueAssetSubCmd, issueAssetConf
	case fundTreasurySubCmd:
		return fundTreasurySubCmd, fundTreasuryConf
	case verifySubCmd:
		return verifySubCmd, verifyConf
	case soakSubCmd:
		return soakSubCmd, soakConf
	case statusSubCmd:
		return statusSubCmd, statusConf
	case runAllSubCmd:
		return runAllSubCmd, runAllConf
	}
	return "", nil
}
