package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert catalog rows, discount codes and admin accounts",
	}
	cmd.AddCommand(seedTourCmd(), seedSlotCmd(), seedDiscountCmd(), seedAdminCmd())
	return cmd
}

// parsePrices turns ["adult=1000","child=500"] into cents by tier.
func parsePrices(in []string) (map[string]int64, error) {
	out := make(map[string]int64, len(in))
	for _, p := range in {
		tier, raw, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(tier) == "" {
			return nil, fmt.Errorf("price %q: want tier=cents", p)
		}
		cents, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || cents < 0 {
			return nil, fmt.Errorf("price %q: cents must be a non-negative integer", p)
		}
		out[strings.ToLower(strings.TrimSpace(tier))] = cents
	}
	if _, ok := out[model.TierAdult]; !ok {
		return nil, fmt.Errorf("an %q price is required", model.TierAdult)
	}
	return out, nil
}

func seedTourCmd() *cobra.Command {
	var (
		title, currency string
		minParticipants int
		prices          []string
	)
	cmd := &cobra.Command{
		Use:   "tour",
		Short: "Create a tour with its price tiers",
		Example: `  tourctl seed tour --title "Table Mountain Hike" --price adult=45000 --price child=22500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tiers, err := parsePrices(prices)
			if err != nil {
				return err
			}
			db, _, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			t := model.Tour{Title: title, Currency: strings.ToUpper(currency), MinParticipants: minParticipants, IsActive: true}
			if err := repository.NewTourRepo(db).Create(cmd.Context(), &t, tiers); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tour %d created\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "tour title")
	cmd.Flags().StringVar(&currency, "currency", "ZAR", "ISO currency code")
	cmd.Flags().IntVar(&minParticipants, "min", 1, "minimum participants per booking")
	cmd.Flags().StringArrayVar(&prices, "price", nil, "tier=cents, repeatable")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func seedSlotCmd() *cobra.Command {
	var (
		tourID           uint64
		date, start, end string
		spots            int
		overrideCents    int64
	)
	cmd := &cobra.Command{
		Use:     "slot",
		Short:   "Create a time slot for a tour",
		Example: `  tourctl seed slot --tour 1 --date 2026-12-01 --start 09:00 --end 12:00 --spots 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := time.Parse("2006-01-02", date); err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD")
			}
			if spots < 1 {
				return fmt.Errorf("--spots must be positive")
			}
			db, _, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			s := model.TimeSlot{TourID: tourID, SlotDate: date, StartTime: start, EndTime: end, AvailableSpots: spots, IsActive: true}
			if cmd.Flags().Changed("override") {
				s.PriceOverrideCents = &overrideCents
			}
			if err := repository.NewTimeSlotRepo(db).Create(cmd.Context(), &s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "slot %d created\n", s.ID)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&tourID, "tour", 0, "tour id")
	cmd.Flags().StringVar(&date, "date", "", "slot date")
	cmd.Flags().StringVar(&start, "start", "09:00", "start time")
	cmd.Flags().StringVar(&end, "end", "12:00", "end time")
	cmd.Flags().IntVar(&spots, "spots", 10, "capacity")
	cmd.Flags().Int64Var(&overrideCents, "override", 0, "adult price override in cents")
	_ = cmd.MarkFlagRequired("tour")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func seedDiscountCmd() *cobra.Command {
	var (
		code, typ, value string
		minOrder, maxOff int64
		usage, perUser   int
		from, until      string
	)
	cmd := &cobra.Command{
		Use:     "discount",
		Short:   "Create a discount code",
		Example: `  tourctl seed discount --code SUMMER10 --type percentage --value 10 --max 50000 --usage 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if typ != model.DiscountPercentage && typ != model.DiscountFixed {
				return fmt.Errorf("--type must be %s or %s", model.DiscountPercentage, model.DiscountFixed)
			}
			v, err := decimal.NewFromString(value)
			if err != nil || !v.IsPositive() {
				return fmt.Errorf("--value must be a positive number")
			}
			d := model.DiscountCode{Code: code, Type: typ, Value: v, IsActive: true}
			flags := cmd.Flags()
			if flags.Changed("min-order") {
				d.MinOrderCents = &minOrder
			}
			if flags.Changed("max") {
				d.MaxDiscountCents = &maxOff
			}
			if flags.Changed("usage") {
				d.UsageLimit = &usage
			}
			if flags.Changed("per-user") {
				d.PerUserLimit = &perUser
			}
			if d.ValidFrom, err = parseOptionalTime(from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if d.ValidUntil, err = parseOptionalTime(until); err != nil {
				return fmt.Errorf("--until: %w", err)
			}
			db, _, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := repository.NewDiscountRepo(db).Create(cmd.Context(), &d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "discount %s created\n", d.Code)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&code, "code", "", "code customers enter")
	f.StringVar(&typ, "type", model.DiscountPercentage, "percentage or fixed")
	f.StringVar(&value, "value", "", "percent, or currency amount for fixed codes")
	f.Int64Var(&minOrder, "min-order", 0, "minimum subtotal in cents")
	f.Int64Var(&maxOff, "max", 0, "maximum deduction in cents")
	f.IntVar(&usage, "usage", 0, "total usage limit")
	f.IntVar(&perUser, "per-user", 0, "usage limit per customer")
	f.StringVar(&from, "from", "", "valid from (RFC 3339)")
	f.StringVar(&until, "until", "", "valid until (RFC 3339)")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func seedAdminCmd() *cobra.Command {
	var email, password string
	var cost int
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Create an ADMIN account",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			id, err := repository.NewUserRepo(db).Create(cmd.Context(), strings.ToLower(strings.TrimSpace(email)), password, model.RoleAdmin, cost)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %d created\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().IntVar(&cost, "bcrypt-cost", 12, "bcrypt cost")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
