package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonhee/bracket/internal/contracts"
	"github.com/wonhee/bracket/internal/risk"
	"github.com/wonhee/bracket/internal/validation"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a bracket price set from the command line",
	Long: `Validates a proposed bracket against the directional ordering
rules and prints the position size for the given balance.

Example:
  go run ./cmd/bracket check --side buy --entry 45000 --stop 44000 --tp1 47000
  go run ./cmd/bracket check --side sell --entry 45000 --stop 46000 --tp1 43000 --tp2 42000`,
	RunE: runCheck,
}

var (
	checkSide    string
	checkEntry   float64
	checkStop    float64
	checkTP1     float64
	checkTP2     float64
	checkBalance float64
	checkRiskPct float64
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkSide, "side", "buy", "order side (buy|sell)")
	checkCmd.Flags().Float64Var(&checkEntry, "entry", 0, "entry price")
	checkCmd.Flags().Float64Var(&checkStop, "stop", 0, "stop loss price (0 = none)")
	checkCmd.Flags().Float64Var(&checkTP1, "tp1", 0, "first take profit price (0 = none)")
	checkCmd.Flags().Float64Var(&checkTP2, "tp2", 0, "second take profit price (0 = none)")
	checkCmd.Flags().Float64Var(&checkBalance, "balance", 1000, "account balance")
	checkCmd.Flags().Float64Var(&checkRiskPct, "risk", 1.0, "risk percentage of balance")
}

func runCheck(cmd *cobra.Command, args []string) error {
	side := contracts.OrderSide(checkSide)
	if !side.Valid() {
		return fmt.Errorf("invalid side %q (valid: buy, sell)", checkSide)
	}
	if checkEntry <= 0 {
		return fmt.Errorf("--entry is required")
	}

	fmt.Println("=== Bracket Check ===")
	fmt.Printf("Side:  %s\n", side)
	fmt.Printf("Entry: %.2f\n", checkEntry)
	if checkStop > 0 {
		fmt.Printf("Stop:  %.2f\n", checkStop)
	}
	if checkTP1 > 0 {
		fmt.Printf("TP1:   %.2f\n", checkTP1)
	}
	if checkTP2 > 0 {
		fmt.Printf("TP2:   %.2f\n", checkTP2)
	}
	fmt.Println()

	res := validation.OrderPrices(side, checkEntry, checkStop, []float64{checkTP1, checkTP2})
	if !res.Valid {
		fmt.Printf("INVALID: %s (leg: %s)\n", res.Reason, res.Leg)
		return nil
	}
	fmt.Println("Price ordering OK")

	if checkStop > 0 {
		size := risk.PositionSize(checkEntry, checkStop, checkBalance, checkRiskPct)
		amount := risk.Amount(checkBalance, checkRiskPct)
		fmt.Printf("\nRisk amount:   %.2f (%.2f%% of %.2f)\n", amount, checkRiskPct, checkBalance)
		fmt.Printf("Position size: %.4f\n", size)

		if checkTP1 > 0 {
			fmt.Printf("R/R to TP1:    %.2f\n", risk.RewardRatio(checkEntry, checkStop, checkTP1))
		}
		if checkTP2 > 0 {
			fmt.Printf("R/R to TP2:    %.2f\n", risk.RewardRatio(checkEntry, checkStop, checkTP2))
		}
	}

	return nil
}
