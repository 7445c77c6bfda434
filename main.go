package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

func main() {
	subCmd, cmdConfig := parseCommandLine()

	var err error
	switch subCmd {
	case generateWalletSubCmd:
		err = generateWallet(cmdConfig.(*generateWalletConfig))
	case deployTreasurySubCmd:
		err = deployTreasury(cmdConfig.(*deployTreasuryConfig))
	case issueAssetSubCmd:
		err = issueAsset(cmdConfig.(*issueAssetConfig))
	case fundTreasurySubCmd:
		err = fundTreasury(cmdConfig.(*fundTreasuryConfig))
	case verifySubCmd:
		err = verifyDeployment(cmdConfig.(*verifyConfig))
	case soakSubCmd:
		err = soakDeployment(cmdConfig.(*soakConfig))
	case statusSubCmd:
		err = showStatus(cmdConfig.(*statusConfig))
	case runAllSubCmd:
		err = runAll(cmdConfig.(*runAllConfig))
	default:
		err = errors.Errorf("unknown sub-command '%s'", subCmd)
	}

	if err != nil {
		printErrorAndExit(err)
	}
}

func printErrorAndExit(err error) {
	fmt.Fprintf(os.Stderr, "error: %+v\n", err)
	os.Exit(1)
}
