package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulatePrice float64
	simulateDrop  float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次价格下跌并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrice <= 0 {
			return errors.New("--price 必须大于 0")
		}
		if simulateDrop <= 0 {
			return errors.New("--drop 必须大于 0")
		}

		start := decimal.NewFromFloat(simulatePrice)
		drop := decimal.NewFromFloat(simulateDrop)
		return getApp().SimulateAlert(cmd.Context(), start, drop)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 100, "模拟起始价格")
	simulateCmd.Flags().Float64Var(&simulateDrop, "drop", 0, "模拟跌幅百分比")
}
