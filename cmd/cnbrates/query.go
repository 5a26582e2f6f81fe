package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"cnbrates/internal/config"
	"cnbrates/internal/rates"
)

var (
	dateFlag    string
	toFlag      string
	percentFlag string
)

var rateCmd = &cobra.Command{
	Use:   "rate CURRENCY",
	Short: "Print the real rate (CZK per one unit) for a currency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		date, err := parseDateFlag(dateFlag)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st := openStorage(ctx, cfg)
		if st != nil {
			defer st.Close()
		}
		svc, err := newService(cfg, st)
		if err != nil {
			return err
		}

		res, err := svc.RateTuple(ctx, args[0], date)
		if err != nil {
			return err
		}
		fmt.Printf("%s = %s CZK (list of %s", args[0], res.Real(), rates.DateKey(res.Date))
		if res.Stale {
			fmt.Print(", stale cache")
		} else if res.FromCache {
			fmt.Print(", cached")
		}
		fmt.Println(")")
		return nil
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert AMOUNT FROM [TO]",
	Short: "Convert an amount into CZK or another currency",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		if len(args) == 3 && toFlag == "" {
			toFlag = args[2]
		}
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[0])
		}
		date, err := parseDateFlag(dateFlag)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st := openStorage(ctx, cfg)
		if st != nil {
			defer st.Close()
		}
		svc, err := newService(cfg, st)
		if err != nil {
			return err
		}

		result, err := svc.Convert(ctx, amount, args[1], toFlag, date)
		if err != nil {
			return err
		}
		if percentFlag != "" {
			percent, err := decimal.NewFromString(percentFlag)
			if err != nil {
				return fmt.Errorf("invalid --percent %q", percentFlag)
			}
			result = rates.Modified(result, percent).Round(2)
		}

		target := toFlag
		if target == "" {
			target = rates.HomeCurrency
		}
		fmt.Printf("%s %s = %s %s\n", amount, args[1], result, target)
		return nil
	},
}

var worseCmd = &cobra.Command{
	Use:   "worse AMOUNT_GIVEN CURRENCY_GIVEN AMOUNT_OBTAINED CURRENCY_OBTAINED",
	Short: "Compare the home value of a given amount against what a cross transaction obtained",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		amountGiven, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[0])
		}
		amountObtained, err := decimal.NewFromString(args[2])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[2])
		}
		date, err := parseDateFlag(dateFlag)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st := openStorage(ctx, cfg)
		if st != nil {
			defer st.Close()
		}
		svc, err := newService(cfg, st)
		if err != nil {
			return err
		}

		res, err := svc.Worse(ctx, amountGiven, args[1], amountObtained, args[3], date)
		if err != nil {
			return err
		}
		fmt.Printf("%s %% = %s %s = %s %s\n", res.Percent, res.HomeDelta, rates.HomeCurrency, res.ForeignDelta, args[3])
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Invalidate today's cached list and refetch the current one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st := openStorage(ctx, cfg)
		if st != nil {
			defer st.Close()
		}
		svc, err := newService(cfg, st)
		if err != nil {
			return err
		}

		date, err := svc.Refresh(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("refreshed, list covers %s\n", rates.DateKey(date))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{rateCmd, convertCmd, worseCmd} {
		c.Flags().StringVar(&dateFlag, "date", "", "lookup date (YYYY-MM-DD, default today)")
	}
	convertCmd.Flags().StringVar(&toFlag, "to", "", "target currency (default CZK)")
	convertCmd.Flags().StringVar(&percentFlag, "percent", "", "margin percentage to apply to the result")

	rootCmd.AddCommand(rateCmd, convertCmd, worseCmd, refreshCmd)
}
