package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/solbody-protocol/solbody-protocol/internal/pricing"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap against given reserves",
		Long: "Computes the spot price for the given reserves and weights. " +
			"With --amount-in it quotes the output amount, with --amount-out the required input.",
		RunE: runQuote,
	}

	cmd.Flags().String("balance-in", "", "reserve of the input token")
	cmd.Flags().String("weight-in", "", "denormalized weight of the input token")
	cmd.Flags().String("balance-out", "", "reserve of the output token")
	cmd.Flags().String("weight-out", "", "denormalized weight of the output token")
	cmd.Flags().String("fee", "0", "swap fee as a fraction, e.g. 0.001")
	cmd.Flags().String("amount-in", "", "exact input amount to quote")
	cmd.Flags().String("amount-out", "", "exact output amount to quote")

	return cmd
}

func runQuote(cmd *cobra.Command, _ []string) error {
	balanceIn, err := decimalFlag(cmd, "balance-in", true)
	if err != nil {
		return err
	}
	weightIn, err := decimalFlag(cmd, "weight-in", true)
	if err != nil {
		return err
	}
	balanceOut, err := decimalFlag(cmd, "balance-out", true)
	if err != nil {
		return err
	}
	weightOut, err := decimalFlag(cmd, "weight-out", true)
	if err != nil {
		return err
	}
	fee, err := decimalFlag(cmd, "fee", false)
	if err != nil {
		return err
	}

	amountIn, _ := cmd.Flags().GetString("amount-in")
	amountOut, _ := cmd.Flags().GetString("amount-out")

	switch {
	case amountIn != "" && amountOut != "":
		return fmt.Errorf("set either --amount-in or --amount-out, not both")
	case amountIn != "":
		in, err := decimal.NewFromString(amountIn)
		if err != nil {
			return fmt.Errorf("parse amount-in: %w", err)
		}
		out, err := pricing.OutGivenIn(balanceIn, weightIn, balanceOut, weightOut, in, fee)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.String())
	case amountOut != "":
		out, err := decimal.NewFromString(amountOut)
		if err != nil {
			return fmt.Errorf("parse amount-out: %w", err)
		}
		in, err := pricing.InGivenOut(balanceIn, weightIn, balanceOut, weightOut, out, fee)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), in.String())
	default:
		price, err := pricing.SpotPrice(balanceIn, weightIn, balanceOut, weightOut, fee)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), price.String())
	}

	return nil
}

func newSlippageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slippage",
		Short: "Estimate the spot price move of a trade",
		Long: "Estimates, in percent, how much a buy or sell of the data token " +
			"would move the pool's spot price.",
		RunE: runSlippage,
	}

	cmd.Flags().String("data-reserve", "", "data token reserve")
	cmd.Flags().String("data-weight", "", "data token denormalized weight")
	cmd.Flags().String("base-reserve", "", "base token reserve")
	cmd.Flags().String("base-weight", "", "base token denormalized weight")
	cmd.Flags().String("fee", "0", "swap fee as a fraction")
	cmd.Flags().String("buy", "", "base token amount spent buying data tokens")
	cmd.Flags().String("sell", "", "data token amount sold")

	return cmd
}

func runSlippage(cmd *cobra.Command, _ []string) error {
	dataReserve, err := decimalFlag(cmd, "data-reserve", true)
	if err != nil {
		return err
	}
	dataWeight, err := decimalFlag(cmd, "data-weight", true)
	if err != nil {
		return err
	}
	baseReserve, err := decimalFlag(cmd, "base-reserve", true)
	if err != nil {
		return err
	}
	baseWeight, err := decimalFlag(cmd, "base-weight", true)
	if err != nil {
		return err
	}
	fee, err := decimalFlag(cmd, "fee", false)
	if err != nil {
		return err
	}

	buy, _ := cmd.Flags().GetString("buy")
	sell, _ := cmd.Flags().GetString("sell")

	var percent decimal.Decimal
	switch {
	case buy != "" && sell != "":
		return fmt.Errorf("set either --buy or --sell, not both")
	case buy != "":
		amount, err := decimal.NewFromString(buy)
		if err != nil {
			return fmt.Errorf("parse buy amount: %w", err)
		}
		percent, err = pricing.BuySlippage(baseReserve, baseWeight, dataReserve, dataWeight, amount, fee)
		if err != nil {
			return err
		}
	case sell != "":
		amount, err := decimal.NewFromString(sell)
		if err != nil {
			return fmt.Errorf("parse sell amount: %w", err)
		}
		percent, err = pricing.SellSlippage(dataReserve, dataWeight, baseReserve, baseWeight, amount, fee)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("one of --buy or --sell is required")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s%%\n", percent.StringFixed(6))
	return nil
}

func decimalFlag(cmd *cobra.Command, name string, required bool) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		if required {
			return decimal.Zero, fmt.Errorf("--%s is required", name)
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse --%s: %w", name, err)
	}
	return d, nil
}
